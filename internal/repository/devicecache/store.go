package devicecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"goinventory/internal/domain"
	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/logger"
)

// BackendName identifica este backend nas respostas e métricas.
const BackendName = "cache"

// FileName é o nome do arquivo de persistência dentro do diretório de cache.
const FileName = "inventory.json"

// Store é o backend de fallback: um mapa em memória espelhado em inventory.json.
// Toda mutação reescreve o arquivo inteiro antes de retornar.
type Store struct {
	mu      sync.RWMutex
	path    string
	records map[int64]domain.Device
	nextID  int64
	logger  logger.Logger
}

// NewStore cria o backend de cache e carrega o arquivo existente, se houver.
// Um arquivo corrompido não impede a inicialização: o cache começa vazio.
func NewStore(cacheDir string, logger logger.Logger) (*Store, error) {
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de cache %s: %w", cacheDir, err)
	}
	s := &Store{
		path:    filepath.Join(cacheDir, FileName),
		records: make(map[int64]domain.Device),
		nextID:  1,
		logger:  logger,
	}
	s.Load()
	return s, nil
}

// Name implementa domain.DeviceStore.
func (s *Store) Name() string { return BackendName }

// Len devolve o número de registros em memória.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Load substitui o conteúdo em memória pelo conteúdo do arquivo.
// Arquivo ausente resulta em cache vazio; falha de leitura ou parse é registrada e ignorada.
func (s *Store) Load() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[int64]domain.Device)
	s.nextID = 1

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("Arquivo de cache inexistente. Iniciando cache vazio.", map[string]interface{}{"path": s.path})
		return
	}
	if err != nil {
		s.logger.Error("Falha ao ler arquivo de cache. Iniciando cache vazio.", err)
		return
	}

	var devices []domain.Device
	if err := json.Unmarshal(data, &devices); err != nil {
		s.logger.Error("Arquivo de cache corrompido. Iniciando cache vazio.", err)
		return
	}

	for _, d := range devices {
		if d.ID <= 0 {
			continue
		}
		s.records[d.ID] = d
		if d.ID >= s.nextID {
			s.nextID = d.ID + 1
		}
	}
	s.logger.Info("Cache carregado do disco.", map[string]interface{}{"records": len(s.records), "next_id": s.nextID})
}

// save grava o snapshot ordenado por ID num arquivo temporário e o renomeia
// sobre inventory.json. Deve ser chamado com s.mu travado.
func (s *Store) save() error {
	data, err := json.MarshalIndent(s.sortedLocked(), "", "  ")
	if err != nil {
		return apperror.NewInternalError("falha ao serializar cache", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), FileName+".*.tmp")
	if err != nil {
		return apperror.NewBackendUnavailableError(BackendName, "falha ao criar arquivo temporário do cache", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperror.NewBackendUnavailableError(BackendName, "falha ao gravar arquivo do cache", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperror.NewBackendUnavailableError(BackendName, "falha ao fechar arquivo do cache", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperror.NewBackendUnavailableError(BackendName, "falha ao substituir arquivo do cache", err)
	}
	return nil
}

func (s *Store) sortedLocked() []domain.Device {
	out := make([]domain.Device, 0, len(s.records))
	for _, d := range s.records {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Create insere um novo registro com o próximo ID local.
func (s *Store) Create(ctx context.Context, input domain.NewDevice) (domain.Device, error) {
	if err := input.Validate(); err != nil {
		return domain.Device{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := domain.NextTimestamp(time.Time{})
	device := domain.Device{
		ID:            s.nextID,
		Name:          input.Name,
		Description:   input.Description,
		Price:         input.Price,
		StockQuantity: input.StockQuantity,
		PhotoFilename: input.PhotoFilename,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	s.records[device.ID] = device
	s.nextID++
	if err := s.save(); err != nil {
		delete(s.records, device.ID)
		s.nextID--
		s.logger.Error("Falha ao persistir criação no cache.", err)
		return domain.Device{}, err
	}

	s.logger.Info("Dispositivo criado no cache.", map[string]interface{}{"id": device.ID, "name": device.Name})
	return device, nil
}

// List devolve todos os registros em ordem crescente de ID.
func (s *Store) List(ctx context.Context) ([]domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLocked(), nil
}

// GetByID busca um registro pelo ID.
func (s *Store) GetByID(ctx context.Context, id int64) (domain.Device, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	device, ok := s.records[id]
	if !ok {
		return domain.Device{}, apperror.NewNotFoundError(fmt.Sprintf("Dispositivo com ID %d não encontrado.", id))
	}
	return device, nil
}

// Update aplica uma atualização parcial e renova updated_at.
func (s *Store) Update(ctx context.Context, id int64, patch domain.DevicePatch) (domain.Device, error) {
	if err := patch.Validate(); err != nil {
		return domain.Device{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return domain.Device{}, apperror.NewNotFoundError(fmt.Sprintf("Dispositivo com ID %d não encontrado para atualização.", id))
	}

	updated := patch.Apply(current)
	updated.UpdatedAt = domain.NextTimestamp(current.UpdatedAt)

	s.records[id] = updated
	if err := s.save(); err != nil {
		s.records[id] = current
		s.logger.Error("Falha ao persistir atualização no cache.", err)
		return domain.Device{}, err
	}

	s.logger.Info("Dispositivo atualizado no cache.", map[string]interface{}{"id": id})
	return updated, nil
}

// Delete remove o registro e o devolve.
func (s *Store) Delete(ctx context.Context, id int64) (domain.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[id]
	if !ok {
		return domain.Device{}, apperror.NewNotFoundError(fmt.Sprintf("Dispositivo com ID %d não encontrado para exclusão.", id))
	}

	delete(s.records, id)
	if err := s.save(); err != nil {
		s.records[id] = current
		s.logger.Error("Falha ao persistir exclusão no cache.", err)
		return domain.Device{}, err
	}

	s.logger.Info("Dispositivo removido do cache.", map[string]interface{}{"id": id})
	return current, nil
}

// Search busca pelo ID e, se pedido, anexa a referência da foto à descrição.
// O registro armazenado nunca é alterado.
func (s *Store) Search(ctx context.Context, query domain.SearchQuery) (domain.Device, error) {
	device, err := s.GetByID(ctx, query.ID)
	if err != nil {
		return domain.Device{}, err
	}
	if query.IncludePhotoReference {
		return device.WithPhotoReference(), nil
	}
	return device, nil
}
