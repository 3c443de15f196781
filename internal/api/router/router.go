package router

import (
	"encoding/json"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "goinventory/docs" // registra a especificação servida em /swagger/
	"goinventory/internal/api/device"
	"goinventory/internal/api/health"
	"goinventory/internal/pkg/logger"
	"goinventory/internal/pkg/middleware"
)

// Middleware é a assinatura comum dos middlewares HTTP.
type Middleware func(http.Handler) http.Handler

// Deps agrupa os handlers e middlewares injetados pelo main.go.
// Campos de middleware nil são simplesmente omitidos.
type Deps struct {
	Device    *device.Handler
	Health    *health.Handler
	Metrics   http.Handler
	Auth      Middleware // protege as rotas de escrita
	RateLimit Middleware
	Logger    logger.Logger
}

// NewRouter configura e retorna o roteador HTTP principal.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	write := func(h http.HandlerFunc) http.Handler {
		if d.Auth == nil {
			return h
		}
		return d.Auth(middleware.PermissionMiddleware(middleware.RoleAdmin, middleware.RoleOperator)(h))
	}

	// --- Health Check ---
	mux.HandleFunc("GET /ping", health.PingHandler)
	mux.HandleFunc("GET /health", d.Health.HealthHandler)
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}
	mux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// --- Inventário ---
	mux.Handle("POST /register", write(d.Device.RegisterHandler))
	mux.HandleFunc("GET /inventory", d.Device.ListHandler)
	mux.HandleFunc("GET /products", d.Device.ProductsHandler)
	mux.HandleFunc("GET /inventory/{id}", d.Device.GetHandler)
	mux.Handle("PUT /inventory/{id}", write(d.Device.UpdateHandler))
	mux.Handle("DELETE /inventory/{id}", write(d.Device.DeleteHandler))
	mux.HandleFunc("GET /inventory/{id}/photo", d.Device.GetPhotoHandler)
	mux.Handle("PUT /inventory/{id}/photo", write(d.Device.ReplacePhotoHandler))
	mux.HandleFunc("POST /search", d.Device.SearchHandler)

	mux.HandleFunc("/", NotFoundHandler)

	var h http.Handler = mux
	if d.RateLimit != nil {
		h = d.RateLimit(h)
	}
	h = middleware.RequestLog(d.Logger)(h)
	return middleware.RequestID(h)
}

// NotFoundHandler responde rotas inexistentes no formato de erro da API.
func NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":     http.StatusNotFound,
		"category": "NOT_FOUND",
		"message":  "Rota não encontrada: " + r.Method + " " + r.URL.Path,
	})
}
