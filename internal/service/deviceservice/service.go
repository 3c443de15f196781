package deviceservice

import (
	"context"

	"goinventory/internal/domain"
	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/logger"
)

// PhotoStore define o que o Service precisa do gerenciador de fotos.
type PhotoStore interface {
	Store(namespace string, id int64, originalFilename string, data []byte) (string, error)
	Replace(namespace string, id int64, oldFilename, originalFilename string, data []byte, attach func(filename string) error) (string, error)
	Remove(filename string) error
	Read(filename string) ([]byte, error)
	Lock(id int64) func()
}

// PhotoUpload é um arquivo recebido do cliente.
type PhotoUpload struct {
	Filename string
	Data     []byte
}

// RegisterInput reúne os dados de cadastro, com foto opcional.
type RegisterInput struct {
	Device domain.NewDevice
	Photo  *PhotoUpload
}

// Photo é o conteúdo de uma foto armazenada.
type Photo struct {
	Filename string
	Data     []byte
}

// Service coordena registros e fotos sobre o FallbackRouter.
type Service struct {
	router *FallbackRouter
	photos PhotoStore
	logger logger.Logger
}

// NewService cria uma nova instância do Service.
func NewService(router *FallbackRouter, photos PhotoStore, logger logger.Logger) *Service {
	return &Service{
		router: router,
		photos: photos,
		logger: logger,
	}
}

// Register cria o registro e, se houver foto, grava o arquivo com o ID recém-gerado
// e anexa o nome ao registro no mesmo backend que o criou.
func (s *Service) Register(ctx context.Context, input RegisterInput) (domain.Device, Outcome, error) {
	input.Device.PhotoFilename = nil
	device, outcome, err := s.router.Create(ctx, input.Device)
	if err != nil || input.Photo == nil {
		return device, outcome, err
	}

	store := s.router.Pinned(outcome)
	release := s.photos.Lock(device.ID)
	defer release()

	filename, err := s.photos.Store(photoNamespace(outcome), device.ID, input.Photo.Filename, input.Photo.Data)
	if err != nil {
		s.rollbackRegister(ctx, store, device.ID)
		return domain.Device{}, outcome, err
	}

	withPhoto, err := store.Update(ctx, device.ID, domain.DevicePatch{PhotoFilename: &filename})
	if err != nil {
		if rmErr := s.photos.Remove(filename); rmErr != nil {
			s.logger.Error("Falha ao remover foto órfã após erro no cadastro.", rmErr)
		}
		s.rollbackRegister(ctx, store, device.ID)
		return domain.Device{}, outcome, err
	}

	s.logger.Info("Dispositivo registrado com foto.", map[string]interface{}{
		"id": device.ID, "photo": filename, "backend": outcome.Backend,
	})
	return withPhoto, outcome, nil
}

// photoNamespace separa os arquivos do cache dos do banco: os dois backends numeram
// IDs de forma independente e compartilham o diretório de fotos.
func photoNamespace(outcome Outcome) string {
	if outcome.Degraded {
		return outcome.Backend
	}
	return ""
}

func (s *Service) rollbackRegister(ctx context.Context, store domain.DeviceStore, id int64) {
	if _, err := store.Delete(ctx, id); err != nil {
		s.logger.Error("Falha ao desfazer cadastro incompleto.", err)
	}
}

// List devolve todos os dispositivos.
func (s *Service) List(ctx context.Context) ([]domain.Device, Outcome, error) {
	return s.router.List(ctx)
}

// Get devolve um dispositivo pelo ID.
func (s *Service) Get(ctx context.Context, id int64) (domain.Device, Outcome, error) {
	return s.router.GetByID(ctx, id)
}

// Update aplica uma atualização parcial. A foto só muda por ReplacePhoto.
func (s *Service) Update(ctx context.Context, id int64, patch domain.DevicePatch) (domain.Device, Outcome, error) {
	patch.PhotoFilename = nil
	return s.router.Update(ctx, id, patch)
}

// Search busca por ID; com IncludePhotoReference a descrição recebe a URL da foto.
func (s *Service) Search(ctx context.Context, query domain.SearchQuery) (domain.Device, Outcome, error) {
	return s.router.Search(ctx, query)
}

// Delete remove a foto associada e depois o registro.
func (s *Service) Delete(ctx context.Context, id int64) (domain.Device, Outcome, error) {
	_, outcome, err := s.router.GetByID(ctx, id)
	if err != nil {
		return domain.Device{}, outcome, err
	}

	release := s.photos.Lock(id)
	defer release()

	store := s.router.Pinned(outcome)
	// Relê dentro do lock: uma troca de foto concorrente pode ter mudado o nome.
	current, err := store.GetByID(ctx, id)
	if err != nil {
		return domain.Device{}, outcome, err
	}
	if current.HasPhoto() {
		if err := s.photos.Remove(*current.PhotoFilename); err != nil {
			return domain.Device{}, outcome, err
		}
	}

	removed, err := store.Delete(ctx, id)
	if err != nil {
		return domain.Device{}, outcome, err
	}
	return removed, outcome, nil
}

// GetPhoto devolve a foto do dispositivo. Registro sem foto ou arquivo ausente resultam em NotFound.
func (s *Service) GetPhoto(ctx context.Context, id int64) (Photo, Outcome, error) {
	device, outcome, err := s.router.GetByID(ctx, id)
	if err != nil {
		return Photo{}, outcome, err
	}
	if !device.HasPhoto() {
		return Photo{}, outcome, apperror.NewNotFoundError("O dispositivo não possui foto.")
	}

	data, err := s.photos.Read(*device.PhotoFilename)
	if err != nil {
		return Photo{}, outcome, err
	}
	return Photo{Filename: *device.PhotoFilename, Data: data}, outcome, nil
}

// ReplacePhoto troca a foto do dispositivo: grava o arquivo novo, atualiza o registro e
// só então remove o antigo. Trocas para o mesmo ID são serializadas.
func (s *Service) ReplacePhoto(ctx context.Context, id int64, upload PhotoUpload) (domain.Device, Outcome, error) {
	_, outcome, err := s.router.GetByID(ctx, id)
	if err != nil {
		return domain.Device{}, outcome, err
	}

	release := s.photos.Lock(id)
	defer release()

	store := s.router.Pinned(outcome)
	current, err := store.GetByID(ctx, id)
	if err != nil {
		return domain.Device{}, outcome, err
	}

	oldFilename := ""
	if current.HasPhoto() {
		oldFilename = *current.PhotoFilename
	}

	var updated domain.Device
	filename, err := s.photos.Replace(photoNamespace(outcome), id, oldFilename, upload.Filename, upload.Data, func(name string) error {
		var attachErr error
		updated, attachErr = store.Update(ctx, id, domain.DevicePatch{PhotoFilename: &name})
		return attachErr
	})
	if err != nil {
		if filename == "" {
			return domain.Device{}, outcome, err
		}
		s.logger.Warn("Foto substituída, mas o arquivo anterior não foi removido.", map[string]interface{}{
			"id": id, "old_photo": oldFilename, "error": err.Error(),
		})
	}

	s.logger.Info("Foto do dispositivo substituída.", map[string]interface{}{"id": id, "photo": filename})
	return updated, outcome, nil
}

// Products lista os registros diretamente do banco, sem fallback para o cache.
func (s *Service) Products(ctx context.Context) ([]domain.Device, Outcome, error) {
	return s.router.ListPrimary(ctx)
}
