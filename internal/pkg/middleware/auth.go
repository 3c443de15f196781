package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/token"
)

// ContextKey é o tipo das chaves de contexto deste pacote.
type ContextKey int

const (
	UserClaimsKey ContextKey = iota
	requestIDKey
)

// Papéis aceitos nas rotas de escrita.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// UserClaims representa os dados extraídos do token JWT e anexados ao contexto.
type UserClaims struct {
	Subject string
	Role    string
}

// TokenService define o contrato de validação necessário para o middleware.
type TokenService interface {
	ValidateToken(tokenString string) (*token.CustomClaims, error)
}

// NewAuthMiddleware valida o JWT do header Authorization e anexa as claims ao contexto.
func NewAuthMiddleware(tokenSvc TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			tokenString, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || strings.TrimSpace(tokenString) == "" {
				writeAppError(w, apperror.NewUnauthorizedError("Token de autorização ausente ou malformado."))
				return
			}

			claims, err := tokenSvc.ValidateToken(tokenString)
			if err != nil {
				writeAppError(w, apperror.NewUnauthorizedError("Token inválido ou expirado."))
				return
			}

			ctx := context.WithValue(r.Context(), UserClaimsKey, UserClaims{
				Subject: claims.Subject,
				Role:    claims.Role,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserClaimsFromContext extrai as claims anexadas por NewAuthMiddleware.
func GetUserClaimsFromContext(ctx context.Context) (UserClaims, bool) {
	claims, ok := ctx.Value(UserClaimsKey).(UserClaims)
	return claims, ok
}

// PermissionMiddleware libera a requisição apenas para os papéis informados.
// Deve rodar depois de NewAuthMiddleware.
func PermissionMiddleware(requiredRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := GetUserClaimsFromContext(r.Context())
			if !ok {
				writeAppError(w, apperror.NewUnauthorizedError("Autorização necessária. Token não processado."))
				return
			}

			for _, role := range requiredRoles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeError(w, http.StatusForbidden, "FORBIDDEN", "Acesso negado. Você não tem a permissão necessária.")
		})
	}
}

func writeAppError(w http.ResponseWriter, err apperror.AppError) {
	writeError(w, err.HTTPStatus(), err.Category(), err.Error())
}

// writeError segue o mesmo formato de erro dos handlers da API.
func writeError(w http.ResponseWriter, status int, category, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"code":     status,
		"category": category,
		"message":  message,
	})
}
