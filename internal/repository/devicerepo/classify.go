package devicerepo

import (
	"context"
	"errors"

	"github.com/lib/pq"

	apperror "goinventory/internal/errors"
)

// Classes SQLSTATE tratadas como erro do cliente. Todo o resto é infraestrutura.
const (
	classDataException       pq.ErrorClass = "22"
	classIntegrityConstraint pq.ErrorClass = "23"
)

// classify converte um erro do driver num dos tipos de goinventory/internal/errors.
// A decisão usa apenas o tipo e o código SQLSTATE, nunca o texto da mensagem.
func classify(msg string, err error) error {
	if err == nil {
		return nil
	}

	var appErr apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case classDataException, classIntegrityConstraint:
			return apperror.NewConstraintError(msg+": "+pqErr.Code.Name(), err)
		}
		return apperror.NewBackendUnavailableError(BackendName, msg, err)
	}

	// Cancelamento pelo cliente não é falha do banco: não deve acionar fallback.
	if errors.Is(err, context.Canceled) {
		return apperror.NewInternalError(msg+": requisição cancelada", err)
	}

	// Timeouts, conexão recusada, driver.ErrBadConn, EOF: tudo infraestrutura.
	return apperror.NewBackendUnavailableError(BackendName, msg, err)
}
