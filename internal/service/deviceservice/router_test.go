package deviceservice_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"goinventory/internal/domain"
	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/logger"
	"goinventory/internal/pkg/metrics"
	"goinventory/internal/service/deviceservice"
)

// MockDeviceStore é uma implementação mock de domain.DeviceStore.
type MockDeviceStore struct {
	mock.Mock
	name string
}

func newMockStore(name string) *MockDeviceStore { return &MockDeviceStore{name: name} }

func (m *MockDeviceStore) Name() string { return m.name }

func (m *MockDeviceStore) Create(ctx context.Context, input domain.NewDevice) (domain.Device, error) {
	args := m.Called(ctx, input)
	return args.Get(0).(domain.Device), args.Error(1)
}

func (m *MockDeviceStore) List(ctx context.Context) ([]domain.Device, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.Device), args.Error(1)
}

func (m *MockDeviceStore) GetByID(ctx context.Context, id int64) (domain.Device, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Device), args.Error(1)
}

func (m *MockDeviceStore) Update(ctx context.Context, id int64, patch domain.DevicePatch) (domain.Device, error) {
	args := m.Called(ctx, id, patch)
	return args.Get(0).(domain.Device), args.Error(1)
}

func (m *MockDeviceStore) Delete(ctx context.Context, id int64) (domain.Device, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Device), args.Error(1)
}

func (m *MockDeviceStore) Search(ctx context.Context, query domain.SearchQuery) (domain.Device, error) {
	args := m.Called(ctx, query)
	return args.Get(0).(domain.Device), args.Error(1)
}

func unavailable() error {
	return apperror.NewBackendUnavailableError("postgres", "connection refused", errors.New("dial tcp: refused"))
}

// --- Testes do FallbackRouter ---

func TestRouter_PrimarySuccess_NotDegraded(t *testing.T) {
	primary, fallback := newMockStore("postgres"), newMockStore("cache")
	router := deviceservice.NewFallbackRouter(primary, fallback, nil, logger.NewNop())

	primary.On("GetByID", mock.Anything, int64(1)).Return(domain.Device{ID: 1, Name: "A"}, nil)

	device, outcome, err := router.GetByID(context.Background(), 1)

	require.NoError(t, err)
	assert.Equal(t, "A", device.Name)
	assert.Equal(t, deviceservice.Outcome{Backend: "postgres"}, outcome)
	fallback.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
}

func TestRouter_Unavailable_FallsBackAndMarksDegraded(t *testing.T) {
	primary, fallback := newMockStore("postgres"), newMockStore("cache")
	rec := metrics.NewRecorder()
	router := deviceservice.NewFallbackRouter(primary, fallback, rec, logger.NewNop())
	input := domain.NewDevice{Name: "Sensor X"}

	primary.On("Create", mock.Anything, input).Return(domain.Device{}, unavailable())
	fallback.On("Create", mock.Anything, input).Return(domain.Device{ID: 1, Name: "Sensor X"}, nil)

	device, outcome, err := router.Create(context.Background(), input)

	require.NoError(t, err)
	assert.Equal(t, int64(1), device.ID)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, "cache", outcome.Backend)
	assert.Same(t, fallback, router.Pinned(outcome))
	primary.AssertExpectations(t)
	fallback.AssertExpectations(t)

	families, err := rec.Gatherer().Gather()
	require.NoError(t, err)
	var fallbacks float64
	for _, f := range families {
		if f.GetName() == "goinventory_store_fallbacks_total" {
			fallbacks = f.GetMetric()[0].GetCounter().GetValue()
		}
	}
	assert.Equal(t, float64(1), fallbacks)
}

func TestRouter_Validation_NeverFallsBack(t *testing.T) {
	primary, fallback := newMockStore("postgres"), newMockStore("cache")
	router := deviceservice.NewFallbackRouter(primary, fallback, nil, logger.NewNop())
	input := domain.NewDevice{Name: ""}

	primary.On("Create", mock.Anything, input).Return(domain.Device{}, apperror.NewValidationError("O nome do dispositivo não pode ser vazio."))

	_, outcome, err := router.Create(context.Background(), input)

	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.False(t, outcome.Degraded)
	fallback.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRouter_NotFound_NeverFallsBack(t *testing.T) {
	primary, fallback := newMockStore("postgres"), newMockStore("cache")
	router := deviceservice.NewFallbackRouter(primary, fallback, nil, logger.NewNop())

	primary.On("Delete", mock.Anything, int64(99)).Return(domain.Device{}, apperror.NewNotFoundError("99"))

	_, _, err := router.Delete(context.Background(), 99)

	assert.IsType(t, &apperror.NotFoundError{}, err)
	fallback.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestRouter_FallbackFailureIsFinal(t *testing.T) {
	primary, fallback := newMockStore("postgres"), newMockStore("cache")
	router := deviceservice.NewFallbackRouter(primary, fallback, nil, logger.NewNop())

	primary.On("List", mock.Anything).Return([]domain.Device(nil), unavailable())
	fallback.On("List", mock.Anything).Return([]domain.Device(nil), apperror.NewBackendUnavailableError("cache", "disco", nil))

	_, outcome, err := router.List(context.Background())

	assert.True(t, apperror.IsBackendUnavailable(err))
	assert.True(t, outcome.Degraded)
	primary.AssertNumberOfCalls(t, "List", 1)
	fallback.AssertNumberOfCalls(t, "List", 1)
}

func TestRouter_NoFallbackConfigured(t *testing.T) {
	primary := newMockStore("postgres")
	router := deviceservice.NewFallbackRouter(primary, nil, nil, logger.NewNop())

	primary.On("Search", mock.Anything, domain.SearchQuery{ID: 1}).Return(domain.Device{}, unavailable())

	_, outcome, err := router.Search(context.Background(), domain.SearchQuery{ID: 1})

	assert.True(t, apperror.IsBackendUnavailable(err))
	assert.False(t, outcome.Degraded)
	assert.Same(t, primary, router.Pinned(outcome))
}
