package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// AppError é a interface central para todos os erros customizados do inventário.
// Ela permite que o código externo (Handler, FallbackRouter) acesse a Categoria e a Mensagem do erro.
type AppError interface {
	Error() string    // Implementa a interface error padrão do Go
	Category() string // Categoria do erro (e.g., "VALIDATION_ERROR", "NOT_FOUND")
	HTTPStatus() int  // Código HTTP sugerido para o Handler
	Unwrap() error    // Permite encapsular erros subjacentes (original error)
}

// --- Tipos de Erro Específicos (Erros de Domínio) ---

// ValidationError representa falhas de validação de dados de entrada.
// Nunca provoca fallback para o cache.
type ValidationError struct {
	Msg string
	Err error
}

func (e *ValidationError) Error() string    { return fmt.Sprintf("Erro de Validação: %s", e.Msg) }
func (e *ValidationError) Category() string { return "VALIDATION_ERROR" }
func (e *ValidationError) HTTPStatus() int  { return http.StatusBadRequest } // 400
func (e *ValidationError) Unwrap() error    { return e.Err }

// NewValidationError cria um novo erro de validação.
func NewValidationError(msg string) AppError {
	return &ValidationError{Msg: msg}
}

// NewConstraintError cria um erro de validação a partir de uma violação de restrição do DB.
func NewConstraintError(msg string, err error) AppError {
	return &ValidationError{Msg: msg, Err: err}
}

// NotFoundError representa a ausência de um recurso solicitado.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string    { return fmt.Sprintf("Recurso não encontrado: %s", e.Msg) }
func (e *NotFoundError) Category() string { return "NOT_FOUND" }
func (e *NotFoundError) HTTPStatus() int  { return http.StatusNotFound } // 404
func (e *NotFoundError) Unwrap() error    { return nil }

// NewNotFoundError cria um novo erro de recurso não encontrado.
func NewNotFoundError(msg string) AppError {
	return &NotFoundError{Msg: msg}
}

// UnauthorizedError representa uma requisição sem credenciais válidas.
type UnauthorizedError struct {
	Msg string
}

func (e *UnauthorizedError) Error() string    { return fmt.Sprintf("Não autorizado: %s", e.Msg) }
func (e *UnauthorizedError) Category() string { return "UNAUTHORIZED" }
func (e *UnauthorizedError) HTTPStatus() int  { return http.StatusUnauthorized } // 401
func (e *UnauthorizedError) Unwrap() error    { return nil }

// NewUnauthorizedError cria um erro de autenticação.
func NewUnauthorizedError(msg string) AppError {
	return &UnauthorizedError{Msg: msg}
}

// --- Tipos de Erro de Infraestrutura (Encapsulamento) ---

// BackendUnavailableError indica que o backend de persistência não respondeu
// (conexão recusada, timeout, falha de escrita do arquivo de cache).
// É o único tipo que o FallbackRouter converte em nova tentativa no cache.
type BackendUnavailableError struct {
	Backend string
	Msg     string
	Err     error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("Backend indisponível (%s): %s", e.Backend, e.Msg)
}
func (e *BackendUnavailableError) Category() string { return "BACKEND_UNAVAILABLE" }
func (e *BackendUnavailableError) HTTPStatus() int  { return http.StatusServiceUnavailable } // 503
func (e *BackendUnavailableError) Unwrap() error    { return e.Err }

// NewBackendUnavailableError cria um erro de indisponibilidade para o backend informado.
func NewBackendUnavailableError(backend, msg string, err error) AppError {
	return &BackendUnavailableError{Backend: backend, Msg: msg, Err: err}
}

// InternalError representa falhas inesperadas no servidor, serviço ou repositório.
type InternalError struct {
	Msg string
	Err error // Erro original subjacente (e.g., erro do driver SQL)
}

func (e *InternalError) Error() string    { return fmt.Sprintf("Erro Interno: %s", e.Msg) }
func (e *InternalError) Category() string { return "INTERNAL_ERROR" }
func (e *InternalError) HTTPStatus() int  { return http.StatusInternalServerError } // 500
func (e *InternalError) Unwrap() error    { return e.Err }

// NewInternalError cria um erro de servidor (para falhas de lógica ou código não esperado).
func NewInternalError(msg string, err error) AppError {
	return &InternalError{Msg: msg, Err: err}
}

// --- Helpers ---

// IsBackendUnavailable informa se err (ou algum erro encapsulado) é BackendUnavailableError.
func IsBackendUnavailable(err error) bool {
	var target *BackendUnavailableError
	return errors.As(err, &target)
}

// IsNotFound informa se err (ou algum erro encapsulado) é NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// MapToHTTPStatus recebe um erro e o traduz para o código HTTP e corpo de resposta.
// Erros internos nunca expõem o detalhe ao cliente; o detalhe fica no log.
func MapToHTTPStatus(err error) (int, string, string) {
	var appErr AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPStatus() >= http.StatusInternalServerError && appErr.HTTPStatus() != http.StatusServiceUnavailable {
			return appErr.HTTPStatus(), appErr.Category(), "Ocorreu um erro inesperado."
		}
		return appErr.HTTPStatus(), appErr.Category(), appErr.Error()
	}

	// Erro não tipado: tratar como erro interno genérico.
	return http.StatusInternalServerError, "INTERNAL_ERROR", "Ocorreu um erro inesperado."
}
