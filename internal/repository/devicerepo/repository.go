package devicerepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"goinventory/internal/domain"
	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/logger"
)

// BackendName identifica este backend nas respostas e métricas.
const BackendName = "postgres"

const deviceColumns = `id, name, COALESCE(description, ''), COALESCE(price, 0), COALESCE(stock_quantity, 0),
        photo_filename, created_at, updated_at`

// DeviceRepository é o backend relacional (autoritativo) de dispositivos.
type DeviceRepository struct {
	DB        *sql.DB
	DBTimeout time.Duration
	logger    logger.Logger

	schemaMu    sync.Mutex
	schemaReady atomic.Bool
}

// NewDeviceRepository cria e retorna uma nova instância do Repositório de Dispositivos.
// O schema é verificado de forma preguiçosa na primeira operação que conseguir conexão.
func NewDeviceRepository(db *sql.DB, dbTimeout time.Duration, logger logger.Logger) *DeviceRepository {
	return &DeviceRepository{
		DB:        db,
		DBTimeout: dbTimeout,
		logger:    logger,
	}
}

// Name implementa domain.DeviceStore.
func (r *DeviceRepository) Name() string { return BackendName }

// Ping testa a conexão com o banco, limitado por DBTimeout.
func (r *DeviceRepository) Ping(ctx context.Context) error {
	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()
	return classify("Falha no ping ao banco", r.DB.PingContext(ctxTimeout))
}

// Bootstrap garante a existência da tabela products. Chamado na inicialização e,
// enquanto não tiver sucesso, antes de cada operação.
func (r *DeviceRepository) Bootstrap(ctx context.Context) error {
	if r.schemaReady.Load() {
		return nil
	}

	r.schemaMu.Lock()
	defer r.schemaMu.Unlock()
	if r.schemaReady.Load() {
		return nil
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	created, err := EnsureSchema(ctxTimeout, r.DB)
	if err != nil {
		return classify("Falha ao preparar schema do banco", err)
	}
	r.schemaReady.Store(true)
	if created {
		r.logger.Info("Tabela products criada com dados iniciais.", nil)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDevice(row rowScanner) (domain.Device, error) {
	var d domain.Device
	var photo sql.NullString
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.Price, &d.StockQuantity, &photo, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return domain.Device{}, err
	}
	if photo.Valid {
		d.PhotoFilename = &photo.String
	}
	return d, nil
}

// Create insere um novo dispositivo no banco de dados.
func (r *DeviceRepository) Create(ctx context.Context, input domain.NewDevice) (domain.Device, error) {
	if err := input.Validate(); err != nil {
		return domain.Device{}, err
	}
	if err := r.Bootstrap(ctx); err != nil {
		return domain.Device{}, err
	}
	r.logger.Debug("Iniciando Create no repositório.", map[string]interface{}{"name": input.Name})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	now := domain.NextTimestamp(time.Time{})
	query := `
        INSERT INTO products (name, description, price, stock_quantity, photo_filename, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $6)
        RETURNING ` + deviceColumns

	device, err := scanDevice(r.DB.QueryRowContext(ctxTimeout, query,
		input.Name, input.Description, input.Price, input.StockQuantity, input.PhotoFilename, now,
	))
	if err != nil {
		r.logger.Error("Falha ao inserir dispositivo no DB.", err)
		return domain.Device{}, classify("Falha ao criar dispositivo", err)
	}

	r.logger.Info("Dispositivo criado com sucesso.", map[string]interface{}{"id": device.ID, "name": device.Name})
	return device, nil
}

// List busca todos os dispositivos em ordem de ID.
func (r *DeviceRepository) List(ctx context.Context) ([]domain.Device, error) {
	if err := r.Bootstrap(ctx); err != nil {
		return nil, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	rows, err := r.DB.QueryContext(ctxTimeout, `SELECT `+deviceColumns+` FROM products ORDER BY id`)
	if err != nil {
		r.logger.Error("Falha ao executar List query.", err)
		return nil, classify("Falha ao listar dispositivos", err)
	}
	defer rows.Close()

	devices := make([]domain.Device, 0)
	for rows.Next() {
		device, err := scanDevice(rows)
		if err != nil {
			r.logger.Error("Falha ao mapear dispositivo na iteração de List.", err)
			return nil, classify("Falha ao mapear dispositivos do DB", err)
		}
		devices = append(devices, device)
	}
	if err := rows.Err(); err != nil {
		r.logger.Error("Erro após iteração das linhas de dispositivos.", err)
		return nil, classify("Erro após iteração de dispositivos", err)
	}

	r.logger.Debug("List concluído com sucesso.", map[string]interface{}{"total": len(devices)})
	return devices, nil
}

// GetByID busca um dispositivo pelo ID.
func (r *DeviceRepository) GetByID(ctx context.Context, id int64) (domain.Device, error) {
	if err := r.Bootstrap(ctx); err != nil {
		return domain.Device{}, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	device, err := scanDevice(r.DB.QueryRowContext(ctxTimeout, `SELECT `+deviceColumns+` FROM products WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Device{}, apperror.NewNotFoundError(fmt.Sprintf("Dispositivo com ID %d não encontrado.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao buscar dispositivo no DB.", err)
		return domain.Device{}, classify("Falha ao buscar dispositivo", err)
	}
	return device, nil
}

// Update aplica apenas os campos presentes no patch e renova updated_at.
func (r *DeviceRepository) Update(ctx context.Context, id int64, patch domain.DevicePatch) (domain.Device, error) {
	if err := patch.Validate(); err != nil {
		return domain.Device{}, err
	}
	if err := r.Bootstrap(ctx); err != nil {
		return domain.Device{}, err
	}
	r.logger.Debug("Iniciando Update no repositório.", map[string]interface{}{"id": id})

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	var sets []string
	var args []interface{}
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	if patch.Name != nil {
		set("name", *patch.Name)
	}
	if patch.Description != nil {
		set("description", *patch.Description)
	}
	if patch.Price != nil {
		set("price", *patch.Price)
	}
	if patch.StockQuantity != nil {
		set("stock_quantity", *patch.StockQuantity)
	}
	if patch.PhotoFilename != nil {
		set("photo_filename", *patch.PhotoFilename)
	}
	// updated_at precisa avançar mesmo com relógio igual ou atrasado.
	sets = append(sets, "updated_at = GREATEST(NOW(), updated_at + INTERVAL '1 microsecond')")
	args = append(args, id)

	query := fmt.Sprintf(`
        UPDATE products
        SET %s
        WHERE id = $%d
        RETURNING %s`, strings.Join(sets, ", "), len(args), deviceColumns)

	device, err := scanDevice(r.DB.QueryRowContext(ctxTimeout, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Dispositivo não encontrado para atualização.", map[string]interface{}{"id": id})
		return domain.Device{}, apperror.NewNotFoundError(fmt.Sprintf("Dispositivo com ID %d não encontrado para atualização.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao atualizar dispositivo no DB.", err)
		return domain.Device{}, classify("Falha ao atualizar dispositivo", err)
	}

	r.logger.Info("Dispositivo atualizado com sucesso.", map[string]interface{}{"id": id})
	return device, nil
}

// Delete remove o dispositivo e devolve a linha removida.
func (r *DeviceRepository) Delete(ctx context.Context, id int64) (domain.Device, error) {
	if err := r.Bootstrap(ctx); err != nil {
		return domain.Device{}, err
	}

	ctxTimeout, cancel := context.WithTimeout(ctx, r.DBTimeout)
	defer cancel()

	device, err := scanDevice(r.DB.QueryRowContext(ctxTimeout, `DELETE FROM products WHERE id = $1 RETURNING `+deviceColumns, id))
	if errors.Is(err, sql.ErrNoRows) {
		r.logger.Info("Dispositivo não encontrado para exclusão.", map[string]interface{}{"id": id})
		return domain.Device{}, apperror.NewNotFoundError(fmt.Sprintf("Dispositivo com ID %d não encontrado para exclusão.", id))
	}
	if err != nil {
		r.logger.Error("Falha ao deletar dispositivo do DB.", err)
		return domain.Device{}, classify("Falha ao deletar dispositivo", err)
	}

	r.logger.Info("Dispositivo deletado com sucesso.", map[string]interface{}{"id": id})
	return device, nil
}

// Search busca pelo ID e, se pedido, anexa a referência da foto à descrição.
func (r *DeviceRepository) Search(ctx context.Context, query domain.SearchQuery) (domain.Device, error) {
	device, err := r.GetByID(ctx, query.ID)
	if err != nil {
		return domain.Device{}, err
	}
	if query.IncludePhotoReference {
		return device.WithPhotoReference(), nil
	}
	return device, nil
}
