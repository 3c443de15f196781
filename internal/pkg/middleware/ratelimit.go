package middleware

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"time"

	"goinventory/internal/pkg/cache"
	"goinventory/internal/pkg/logger"
)

// RateLimiter aplica uma janela fixa por IP usando contadores no Redis.
// Se o Redis falhar, a requisição segue: o serviço prioriza disponibilidade.
func RateLimiter(client cache.Client, limit int, window time.Duration, log logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			key := "rate-limit:" + ip

			ctx, cancel := context.WithTimeout(r.Context(), time.Second)
			defer cancel()

			count, err := client.Incr(ctx, key)
			if err != nil {
				log.Warn("Rate limiter indisponível. Requisição liberada.", map[string]interface{}{"error": err.Error()})
				next.ServeHTTP(w, r)
				return
			}
			if count == 1 {
				if err := client.Expire(ctx, key, window); err != nil {
					log.Warn("Falha ao definir expiração do rate limit.", map[string]interface{}{"error": err.Error()})
				}
			}

			remaining := int64(limit) - count
			if remaining < 0 {
				remaining = 0
			}
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

			if count > int64(limit) {
				if ttl, err := client.TTL(ctx, key); err == nil && ttl > 0 {
					w.Header().Set("Retry-After", strconv.Itoa(int(ttl.Seconds())+1))
				}
				writeError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Limite de requisições excedido.")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
