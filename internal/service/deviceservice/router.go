package deviceservice

import (
	"context"
	stderrors "errors"

	"goinventory/internal/domain"
	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/logger"
	"goinventory/internal/pkg/metrics"
)

// Outcome descreve qual backend atendeu uma operação.
type Outcome struct {
	Backend  string
	Degraded bool
}

// FallbackRouter envia cada operação ao backend primário (PostgreSQL) e, somente quando
// ele está indisponível, repete a mesma operação no backend de fallback (cache).
// Erros de validação e de recurso inexistente nunca provocam fallback.
// Não há reconciliação entre os backends quando o primário volta.
type FallbackRouter struct {
	primary  domain.DeviceStore
	fallback domain.DeviceStore
	metrics  *metrics.Recorder
	logger   logger.Logger
}

// NewFallbackRouter cria o roteador. fallback pode ser nil (sem modo degradado).
func NewFallbackRouter(primary, fallback domain.DeviceStore, rec *metrics.Recorder, logger logger.Logger) *FallbackRouter {
	return &FallbackRouter{
		primary:  primary,
		fallback: fallback,
		metrics:  rec,
		logger:   logger,
	}
}

// Pinned devolve o backend que produziu o Outcome, para que passos seguintes de uma
// mesma operação não atravessem de um backend para o outro.
func (r *FallbackRouter) Pinned(o Outcome) domain.DeviceStore {
	if o.Degraded && r.fallback != nil {
		return r.fallback
	}
	return r.primary
}

func (r *FallbackRouter) execute(ctx context.Context, operation string, fn func(domain.DeviceStore) error) (Outcome, error) {
	err := fn(r.primary)
	r.metrics.ObserveOperation(operation, r.primary.Name(), resultLabel(err))
	if err == nil || !apperror.IsBackendUnavailable(err) || r.fallback == nil {
		return Outcome{Backend: r.primary.Name()}, err
	}

	r.logger.Warn("Backend primário indisponível. Usando cache.", map[string]interface{}{
		"operation": operation,
		"backend":   r.primary.Name(),
		"error":     err.Error(),
	})
	r.metrics.ObserveFallback(operation)

	err = fn(r.fallback)
	r.metrics.ObserveOperation(operation, r.fallback.Name(), resultLabel(err))
	return Outcome{Backend: r.fallback.Name(), Degraded: true}, err
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	var appErr apperror.AppError
	if stderrors.As(err, &appErr) {
		return appErr.Category()
	}
	return "UNKNOWN"
}

// Create registra um dispositivo.
func (r *FallbackRouter) Create(ctx context.Context, input domain.NewDevice) (domain.Device, Outcome, error) {
	var device domain.Device
	outcome, err := r.execute(ctx, "create", func(s domain.DeviceStore) error {
		var err error
		device, err = s.Create(ctx, input)
		return err
	})
	return device, outcome, err
}

// List lista todos os dispositivos.
func (r *FallbackRouter) List(ctx context.Context) ([]domain.Device, Outcome, error) {
	var devices []domain.Device
	outcome, err := r.execute(ctx, "list", func(s domain.DeviceStore) error {
		var err error
		devices, err = s.List(ctx)
		return err
	})
	return devices, outcome, err
}

// ListPrimary lista apenas o backend primário. Indisponibilidade vira erro, sem cache.
func (r *FallbackRouter) ListPrimary(ctx context.Context) ([]domain.Device, Outcome, error) {
	devices, err := r.primary.List(ctx)
	r.metrics.ObserveOperation("list_primary", r.primary.Name(), resultLabel(err))
	return devices, Outcome{Backend: r.primary.Name()}, err
}

// GetByID busca um dispositivo.
func (r *FallbackRouter) GetByID(ctx context.Context, id int64) (domain.Device, Outcome, error) {
	var device domain.Device
	outcome, err := r.execute(ctx, "get", func(s domain.DeviceStore) error {
		var err error
		device, err = s.GetByID(ctx, id)
		return err
	})
	return device, outcome, err
}

// Update aplica uma atualização parcial.
func (r *FallbackRouter) Update(ctx context.Context, id int64, patch domain.DevicePatch) (domain.Device, Outcome, error) {
	var device domain.Device
	outcome, err := r.execute(ctx, "update", func(s domain.DeviceStore) error {
		var err error
		device, err = s.Update(ctx, id, patch)
		return err
	})
	return device, outcome, err
}

// Delete remove um dispositivo.
func (r *FallbackRouter) Delete(ctx context.Context, id int64) (domain.Device, Outcome, error) {
	var device domain.Device
	outcome, err := r.execute(ctx, "delete", func(s domain.DeviceStore) error {
		var err error
		device, err = s.Delete(ctx, id)
		return err
	})
	return device, outcome, err
}

// Search busca por ID com a forma de resposta de busca.
func (r *FallbackRouter) Search(ctx context.Context, query domain.SearchQuery) (domain.Device, Outcome, error) {
	var device domain.Device
	outcome, err := r.execute(ctx, "search", func(s domain.DeviceStore) error {
		var err error
		device, err = s.Search(ctx, query)
		return err
	})
	return device, outcome, err
}
