package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Pinger testa a conexão com o banco.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Counter informa quantos registros o cache mantém.
type Counter interface {
	Len() int
}

// Handler responde o estado do serviço e de seus backends.
type Handler struct {
	DB    Pinger
	Cache Counter
}

// NewHandler cria o Handler de saúde.
func NewHandler(db Pinger, cache Counter) *Handler {
	return &Handler{DB: db, Cache: cache}
}

// Status é o corpo de GET /health.
type Status struct {
	Status       string    `json:"status" example:"OK"`
	Database     string    `json:"database" example:"connected"`
	CacheRecords int       `json:"cache_records" example:"3"`
	Timestamp    time.Time `json:"timestamp"`
}

// HealthHandler lida com a requisição GET /health.
// O serviço continua "OK" com o banco fora do ar, pois atende pelo cache.
// @Summary Estado do serviço
// @Tags health
// @Produce json
// @Success 200 {object} Status
// @Router /health [get]
func (h *Handler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	status := Status{
		Status:       "OK",
		Database:     "connected",
		CacheRecords: h.Cache.Len(),
		Timestamp:    time.Now().UTC(),
	}
	if err := h.DB.Ping(r.Context()); err != nil {
		status.Database = "disconnected"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(status)
}

// PingHandler é o health check mínimo.
func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}
