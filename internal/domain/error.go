package domain

// ErrorResponse é a estrutura padronizada para respostas de erro na API.
// @Description Estrutura padronizada para respostas de erro na API.
type ErrorResponse struct {
	Code     int    `json:"code" example:"400"`
	Category string `json:"category" example:"VALIDATION_ERROR"`
	Message  string `json:"message" example:"Erro de Validação: O nome do dispositivo não pode ser vazio."`
	Degraded bool   `json:"degraded,omitempty" example:"false"`
}

// Envelope é o formato das respostas de sucesso.
// @Description Envelope de resposta. Source indica o backend que atendeu; Degraded marca o uso do cache.
type Envelope struct {
	Success  bool        `json:"success" example:"true"`
	Count    *int        `json:"count,omitempty" example:"2"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	PhotoURL string      `json:"photo_url,omitempty" example:"/inventory/7/photo"`
	Source   string      `json:"source" example:"postgres"`
	Degraded bool        `json:"degraded" example:"false"`
	Notice   string      `json:"notice,omitempty" example:"Using cached data (database unavailable)"`
}
