package deviceservice_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goinventory/internal/domain"
	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/logger"
	"goinventory/internal/pkg/photostore"
	"goinventory/internal/repository/devicecache"
	"goinventory/internal/service/deviceservice"
)

// downStore simula o PostgreSQL fora do ar.
type downStore struct{}

func (downStore) Name() string { return "postgres" }
func (downStore) Create(context.Context, domain.NewDevice) (domain.Device, error) {
	return domain.Device{}, unavailable()
}
func (downStore) List(context.Context) ([]domain.Device, error) { return nil, unavailable() }
func (downStore) GetByID(context.Context, int64) (domain.Device, error) {
	return domain.Device{}, unavailable()
}
func (downStore) Update(context.Context, int64, domain.DevicePatch) (domain.Device, error) {
	return domain.Device{}, unavailable()
}
func (downStore) Delete(context.Context, int64) (domain.Device, error) {
	return domain.Device{}, unavailable()
}
func (downStore) Search(context.Context, domain.SearchQuery) (domain.Device, error) {
	return domain.Device{}, unavailable()
}

// switchableStore faz o papel do PostgreSQL e pode ser desligado no meio do teste.
type switchableStore struct {
	*devicecache.Store
	down       bool
	failUpdate bool
}

func (s *switchableStore) Name() string { return "postgres" }

func (s *switchableStore) check() error {
	if s.down {
		return unavailable()
	}
	return nil
}

func (s *switchableStore) Create(ctx context.Context, input domain.NewDevice) (domain.Device, error) {
	if err := s.check(); err != nil {
		return domain.Device{}, err
	}
	return s.Store.Create(ctx, input)
}

func (s *switchableStore) List(ctx context.Context) ([]domain.Device, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	return s.Store.List(ctx)
}

func (s *switchableStore) GetByID(ctx context.Context, id int64) (domain.Device, error) {
	if err := s.check(); err != nil {
		return domain.Device{}, err
	}
	return s.Store.GetByID(ctx, id)
}

func (s *switchableStore) Update(ctx context.Context, id int64, patch domain.DevicePatch) (domain.Device, error) {
	if s.down || s.failUpdate {
		return domain.Device{}, unavailable()
	}
	return s.Store.Update(ctx, id, patch)
}

func (s *switchableStore) Delete(ctx context.Context, id int64) (domain.Device, error) {
	if err := s.check(); err != nil {
		return domain.Device{}, err
	}
	return s.Store.Delete(ctx, id)
}

func (s *switchableStore) Search(ctx context.Context, query domain.SearchQuery) (domain.Device, error) {
	if err := s.check(); err != nil {
		return domain.Device{}, err
	}
	return s.Store.Search(ctx, query)
}

func newSwitchableFixture(t *testing.T) (fixture, *switchableStore) {
	t.Helper()
	log := logger.NewNop()
	root := t.TempDir()

	db, err := devicecache.NewStore(filepath.Join(root, "primary"), log)
	require.NoError(t, err)
	primary := &switchableStore{Store: db}
	fallback, err := devicecache.NewStore(filepath.Join(root, "fallback"), log)
	require.NoError(t, err)
	photos, err := photostore.NewManager(filepath.Join(root, "cache"))
	require.NoError(t, err)

	router := deviceservice.NewFallbackRouter(primary, fallback, nil, log)
	return fixture{
		svc:      deviceservice.NewService(router, photos, log),
		primary:  primary,
		fallback: fallback,
		photos:   photos,
	}, primary
}

type fixture struct {
	svc      *deviceservice.Service
	primary  domain.DeviceStore
	fallback *devicecache.Store
	photos   *photostore.Manager
}

// newFixture monta o Service com um cache em memória fazendo o papel do banco
// (ou downStore, quando primaryDown) e outro como fallback.
func newFixture(t *testing.T, primaryDown bool) fixture {
	t.Helper()
	log := logger.NewNop()
	root := t.TempDir()

	fallback, err := devicecache.NewStore(filepath.Join(root, "fallback"), log)
	require.NoError(t, err)

	var primary domain.DeviceStore = downStore{}
	if !primaryDown {
		primary, err = devicecache.NewStore(filepath.Join(root, "primary"), log)
		require.NoError(t, err)
	}

	photos, err := photostore.NewManager(filepath.Join(root, "cache"))
	require.NoError(t, err)

	router := deviceservice.NewFallbackRouter(primary, fallback, nil, log)
	return fixture{
		svc:      deviceservice.NewService(router, photos, log),
		primary:  primary,
		fallback: fallback,
		photos:   photos,
	}
}

func TestRegister_WithoutPhoto(t *testing.T) {
	f := newFixture(t, false)

	device, outcome, err := f.svc.Register(context.Background(), deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Sensor X"},
	})

	require.NoError(t, err)
	assert.False(t, outcome.Degraded)
	assert.Nil(t, device.PhotoFilename)
	assert.Equal(t, 0, f.fallback.Len())
}

func TestRegister_WithPhoto_NamesFileByID(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	for i := 0; i < 6; i++ {
		_, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{Device: domain.NewDevice{Name: "pad"}})
		require.NoError(t, err)
	}

	device, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Cam"},
		Photo:  &deviceservice.PhotoUpload{Filename: "device.png", Data: []byte("img")},
	})

	require.NoError(t, err)
	assert.Equal(t, int64(7), device.ID)
	require.NotNil(t, device.PhotoFilename)
	assert.Equal(t, "7.png", *device.PhotoFilename)

	photo, _, err := f.svc.GetPhoto(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte("img"), photo.Data)
}

func TestRegister_Fail_EmptyName_PrimaryDown(t *testing.T) {
	f := newFixture(t, true)

	_, _, err := f.svc.Register(context.Background(), deviceservice.RegisterInput{Device: domain.NewDevice{Name: ""}})

	// A indisponibilidade do primário leva ao cache, que rejeita o nome vazio.
	assert.IsType(t, &apperror.ValidationError{}, err)
	assert.Equal(t, 0, f.fallback.Len())
}

func TestRegister_PrimaryDown_PersistsToCacheFile(t *testing.T) {
	f := newFixture(t, true)

	device, outcome, err := f.svc.Register(context.Background(), deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Offline"},
		Photo:  &deviceservice.PhotoUpload{Filename: "p.jpeg", Data: []byte("x")},
	})

	require.NoError(t, err)
	assert.True(t, outcome.Degraded)
	assert.Equal(t, "cache", outcome.Backend)
	assert.Equal(t, "cache-1.jpeg", *device.PhotoFilename)

	stored, err := f.fallback.GetByID(context.Background(), device.ID)
	require.NoError(t, err)
	assert.Equal(t, "cache-1.jpeg", *stored.PhotoFilename)
}

func TestDelete_RemovesPhotoThenRecord(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	device, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Cam"},
		Photo:  &deviceservice.PhotoUpload{Filename: "a.png", Data: []byte("img")},
	})
	require.NoError(t, err)

	_, _, err = f.svc.Delete(ctx, device.ID)
	require.NoError(t, err)

	_, statErr := os.Stat(filepath.Join(f.photos.Dir(), "1.png"))
	assert.True(t, os.IsNotExist(statErr))

	_, _, err = f.svc.GetPhoto(ctx, device.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err)
	_, _, err = f.svc.Get(ctx, device.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestDelete_Fail_NotFound(t *testing.T) {
	f := newFixture(t, false)

	_, _, err := f.svc.Delete(context.Background(), 42)

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestGetPhoto_NoPhotoAndMissingFile(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	plain, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{Device: domain.NewDevice{Name: "Sem foto"}})
	require.NoError(t, err)

	_, _, err = f.svc.GetPhoto(ctx, plain.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err)

	withPhoto, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Com foto"},
		Photo:  &deviceservice.PhotoUpload{Filename: "x.png", Data: []byte("x")},
	})
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(f.photos.Dir(), *withPhoto.PhotoFilename)))

	_, _, err = f.svc.GetPhoto(ctx, withPhoto.ID)
	assert.IsType(t, &apperror.NotFoundError{}, err, "foto referenciada mas ausente é 404")
}

func TestReplacePhoto_SwapsFileAndRecord(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	device, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Cam"},
		Photo:  &deviceservice.PhotoUpload{Filename: "old.png", Data: []byte("old")},
	})
	require.NoError(t, err)

	updated, _, err := f.svc.ReplacePhoto(ctx, device.ID, deviceservice.PhotoUpload{Filename: "new.gif", Data: []byte("new")})
	require.NoError(t, err)

	assert.Equal(t, "1.gif", *updated.PhotoFilename)
	assert.True(t, updated.UpdatedAt.After(device.UpdatedAt))
	_, statErr := os.Stat(filepath.Join(f.photos.Dir(), "1.png"))
	assert.True(t, os.IsNotExist(statErr))

	photo, _, err := f.svc.GetPhoto(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), photo.Data)
}

func TestReplacePhoto_Fail_NotFound(t *testing.T) {
	f := newFixture(t, false)

	_, _, err := f.svc.ReplacePhoto(context.Background(), 5, deviceservice.PhotoUpload{Filename: "a.png"})

	assert.IsType(t, &apperror.NotFoundError{}, err)
	entries, _ := os.ReadDir(f.photos.Dir())
	assert.Empty(t, entries)
}

func TestUpdate_IgnoresPhotoFilename(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	device, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{Device: domain.NewDevice{Name: "A"}})
	require.NoError(t, err)

	bogus := "../../segredo"
	name := "B"
	updated, _, err := f.svc.Update(ctx, device.ID, domain.DevicePatch{Name: &name, PhotoFilename: &bogus})

	require.NoError(t, err)
	assert.Equal(t, "B", updated.Name)
	assert.Nil(t, updated.PhotoFilename)
}

func TestSearch_WithAndWithoutPhotoReference(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	device, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Cam", Description: "Camera"},
		Photo:  &deviceservice.PhotoUpload{Filename: "c.png", Data: []byte("c")},
	})
	require.NoError(t, err)

	annotated, _, err := f.svc.Search(ctx, domain.SearchQuery{ID: device.ID, IncludePhotoReference: true})
	require.NoError(t, err)
	assert.Equal(t, "Camera [Photo: /inventory/1/photo]", annotated.Description)

	plain, _, err := f.svc.Search(ctx, domain.SearchQuery{ID: device.ID})
	require.NoError(t, err)
	assert.Equal(t, "Camera", plain.Description)
}

func TestPhotos_SameIDOnBothBackendsKeepSeparateFiles(t *testing.T) {
	f, db := newSwitchableFixture(t)
	ctx := context.Background()

	pg, outcome, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "PG"},
		Photo:  &deviceservice.PhotoUpload{Filename: "a.jpg", Data: []byte("banco")},
	})
	require.NoError(t, err)
	require.False(t, outcome.Degraded)

	db.down = true
	cached, outcome, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "CACHE"},
		Photo:  &deviceservice.PhotoUpload{Filename: "b.jpg", Data: []byte("cache")},
	})
	require.NoError(t, err)
	require.True(t, outcome.Degraded)
	require.Equal(t, pg.ID, cached.ID, "os backends numeram IDs de forma independente")
	assert.NotEqual(t, *pg.PhotoFilename, *cached.PhotoFilename)

	_, _, err = f.svc.ReplacePhoto(ctx, cached.ID, deviceservice.PhotoUpload{Filename: "c.jpg", Data: []byte("cache2")})
	require.NoError(t, err)
	_, _, err = f.svc.Delete(ctx, cached.ID)
	require.NoError(t, err)

	db.down = false
	photo, outcome, err := f.svc.GetPhoto(ctx, pg.ID)
	require.NoError(t, err)
	assert.False(t, outcome.Degraded)
	assert.Equal(t, []byte("banco"), photo.Data)
}

func TestReplacePhoto_Fail_AttachKeepsOldPhoto(t *testing.T) {
	f, db := newSwitchableFixture(t)
	ctx := context.Background()
	device, _, err := f.svc.Register(ctx, deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: "Cam"},
		Photo:  &deviceservice.PhotoUpload{Filename: "old.png", Data: []byte("old")},
	})
	require.NoError(t, err)

	db.failUpdate = true
	_, _, err = f.svc.ReplacePhoto(ctx, device.ID, deviceservice.PhotoUpload{Filename: "new.gif", Data: []byte("new")})
	require.Error(t, err)
	assert.True(t, apperror.IsBackendUnavailable(err))

	db.failUpdate = false
	current, _, err := f.svc.Get(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, "1.png", *current.PhotoFilename)

	photo, _, err := f.svc.GetPhoto(ctx, device.ID)
	require.NoError(t, err)
	assert.Equal(t, []byte("old"), photo.Data)
	_, statErr := os.Stat(filepath.Join(f.photos.Dir(), "1.gif"))
	assert.True(t, os.IsNotExist(statErr), "arquivo novo não fica órfão")
}
