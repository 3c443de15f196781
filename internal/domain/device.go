package domain

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperror "goinventory/internal/errors"
)

// Device representa um item de inventário registrado.
// @Description Dispositivo do inventário.
type Device struct {
	ID            int64           `json:"id" example:"7"`
	Name          string          `json:"name" example:"Sensor X"`
	Description   string          `json:"description" example:"Sensor de temperatura"`
	Price         decimal.Decimal `json:"price" swaggertype:"string" example:"120.50"`
	StockQuantity int             `json:"stock_quantity" example:"50"`
	PhotoFilename *string         `json:"photo_filename" example:"7.png"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// HasPhoto informa se o registro referencia um arquivo de foto.
func (d Device) HasPhoto() bool {
	return d.PhotoFilename != nil && *d.PhotoFilename != ""
}

// PhotoURL devolve o caminho público da foto do dispositivo.
func PhotoURL(id int64) string {
	return fmt.Sprintf("/inventory/%d/photo", id)
}

// WithPhotoReference devolve uma cópia do dispositivo com a referência da foto
// anexada à descrição. Sem foto, a cópia é idêntica.
func (d Device) WithPhotoReference() Device {
	if !d.HasPhoto() {
		return d
	}
	d.Description = strings.TrimSpace(fmt.Sprintf("%s [Photo: %s]", d.Description, PhotoURL(d.ID)))
	return d
}

// DeviceView é a forma pública de um Device nas respostas HTTP.
type DeviceView struct {
	Device
	PhotoURL *string `json:"photo_url" example:"/inventory/7/photo"`
}

// NewDeviceView calcula o photo_url a partir do photo_filename.
func NewDeviceView(d Device) DeviceView {
	v := DeviceView{Device: d}
	if d.HasPhoto() {
		url := PhotoURL(d.ID)
		v.PhotoURL = &url
	}
	return v
}

// NewDeviceViews converte uma lista preservando a ordem.
func NewDeviceViews(devices []Device) []DeviceView {
	views := make([]DeviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, NewDeviceView(d))
	}
	return views
}

// NewDevice reúne os campos aceitos na criação de um dispositivo.
type NewDevice struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	StockQuantity int
	PhotoFilename *string
}

// Validate normaliza e valida os campos de criação.
func (n *NewDevice) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	if n.Name == "" {
		return apperror.NewValidationError("O nome do dispositivo não pode ser vazio.")
	}
	if len(n.Name) > MaxNameLength {
		return apperror.NewValidationError(fmt.Sprintf("O nome do dispositivo excede %d caracteres.", MaxNameLength))
	}
	if n.Price.IsNegative() {
		return apperror.NewValidationError("O preço não pode ser negativo.")
	}
	if n.StockQuantity < 0 {
		return apperror.NewValidationError("A quantidade em estoque não pode ser negativa.")
	}
	return nil
}

// MaxNameLength acompanha a coluna VARCHAR(255) da tabela products.
const MaxNameLength = 255

// DevicePatch descreve uma atualização parcial. Campos nil ficam inalterados.
type DevicePatch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	StockQuantity *int
	PhotoFilename *string
}

// Validate normaliza e valida apenas os campos presentes.
func (p *DevicePatch) Validate() error {
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return apperror.NewValidationError("O nome do dispositivo não pode ser vazio.")
		}
		if len(name) > MaxNameLength {
			return apperror.NewValidationError(fmt.Sprintf("O nome do dispositivo excede %d caracteres.", MaxNameLength))
		}
		p.Name = &name
	}
	if p.Price != nil && p.Price.IsNegative() {
		return apperror.NewValidationError("O preço não pode ser negativo.")
	}
	if p.StockQuantity != nil && *p.StockQuantity < 0 {
		return apperror.NewValidationError("A quantidade em estoque não pode ser negativa.")
	}
	return nil
}

// Apply copia os campos presentes do patch para d.
func (p DevicePatch) Apply(d Device) Device {
	if p.Name != nil {
		d.Name = *p.Name
	}
	if p.Description != nil {
		d.Description = *p.Description
	}
	if p.Price != nil {
		d.Price = *p.Price
	}
	if p.StockQuantity != nil {
		d.StockQuantity = *p.StockQuantity
	}
	if p.PhotoFilename != nil {
		name := *p.PhotoFilename
		d.PhotoFilename = &name
	}
	return d
}

// SearchQuery parametriza a busca por ID.
type SearchQuery struct {
	ID int64
	// IncludePhotoReference anexa "[Photo: <url>]" à descrição quando há foto.
	IncludePhotoReference bool
}

// NextTimestamp devolve o instante de agora truncado em microssegundos (precisão do
// PostgreSQL), sempre estritamente posterior a prev.
func NextTimestamp(prev time.Time) time.Time {
	now := time.Now().UTC().Truncate(time.Microsecond)
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

// DeviceStore é o contrato comum aos backends de persistência (PostgreSQL e cache).
// Falhas são sempre erros tipados de goinventory/internal/errors.
type DeviceStore interface {
	// Name identifica o backend nas respostas e métricas ("postgres", "cache").
	Name() string
	Create(ctx context.Context, input NewDevice) (Device, error)
	List(ctx context.Context) ([]Device, error)
	GetByID(ctx context.Context, id int64) (Device, error)
	Update(ctx context.Context, id int64, patch DevicePatch) (Device, error)
	// Delete remove o registro e o devolve. Não toca no sistema de arquivos.
	Delete(ctx context.Context, id int64) (Device, error)
	Search(ctx context.Context, query SearchQuery) (Device, error)
}
