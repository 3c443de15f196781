package device

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/blake2b"

	"goinventory/internal/domain"
	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/logger"
	"goinventory/internal/pkg/photostore"
	"goinventory/internal/service/deviceservice"
)

// Avisos enviados quando a resposta veio do cache.
const (
	noticeRead     = "Using cached data (database unavailable)"
	noticeRegister = "Device registered to cache (database unavailable)"
	noticeWrite    = "Change saved to cache (database unavailable)"
)

// Headers que identificam o backend que atendeu a requisição.
const (
	HeaderSource   = "X-Inventory-Source"
	HeaderDegraded = "X-Inventory-Degraded"
)

// multipartOverhead cobre os campos de texto que acompanham a foto no mesmo corpo.
const multipartOverhead = 1 << 20

// DeviceService define o contrato que o Handler espera da camada de Serviço.
type DeviceService interface {
	Register(ctx context.Context, input deviceservice.RegisterInput) (domain.Device, deviceservice.Outcome, error)
	List(ctx context.Context) ([]domain.Device, deviceservice.Outcome, error)
	Get(ctx context.Context, id int64) (domain.Device, deviceservice.Outcome, error)
	Update(ctx context.Context, id int64, patch domain.DevicePatch) (domain.Device, deviceservice.Outcome, error)
	Delete(ctx context.Context, id int64) (domain.Device, deviceservice.Outcome, error)
	Search(ctx context.Context, query domain.SearchQuery) (domain.Device, deviceservice.Outcome, error)
	GetPhoto(ctx context.Context, id int64) (deviceservice.Photo, deviceservice.Outcome, error)
	ReplacePhoto(ctx context.Context, id int64, upload deviceservice.PhotoUpload) (domain.Device, deviceservice.Outcome, error)
	Products(ctx context.Context) ([]domain.Device, deviceservice.Outcome, error)
}

// Handler agrupa todos os métodos de Handler do inventário.
type Handler struct {
	Service       DeviceService
	Logger        logger.Logger
	MaxPhotoBytes int64
}

// NewHandler cria uma nova instância do Handler, injetando o Service e o Logger.
func NewHandler(svc DeviceService, log logger.Logger, maxPhotoBytes int64) *Handler {
	return &Handler{
		Service:       svc,
		Logger:        log,
		MaxPhotoBytes: maxPhotoBytes,
	}
}

// handleServiceResponse envia o envelope de sucesso ou o corpo de erro padronizado.
// Em ambos os casos os headers indicam o backend que atendeu.
func (h *Handler) handleServiceResponse(w http.ResponseWriter, r *http.Request, env domain.Envelope, outcome deviceservice.Outcome, err error, successStatus int) {
	setOutcomeHeaders(w, outcome)

	if err == nil {
		env.Success = true
		env.Source = outcome.Backend
		env.Degraded = outcome.Degraded
		if !outcome.Degraded {
			env.Notice = ""
		}
		writeJSON(w, successStatus, env, h.Logger)
		return
	}

	status, category, message := apperror.MapToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(fmt.Sprintf("Erro de Servidor: %s", category), err)
	} else {
		h.Logger.Debug(fmt.Sprintf("Requisição rejeitada com status %d. Categoria: %s", status, category), map[string]interface{}{"path": r.URL.Path})
	}

	writeJSON(w, status, domain.ErrorResponse{
		Code:     status,
		Category: category,
		Message:  message,
		Degraded: outcome.Degraded,
	}, h.Logger)
}

func setOutcomeHeaders(w http.ResponseWriter, outcome deviceservice.Outcome) {
	if outcome.Backend != "" {
		w.Header().Set(HeaderSource, outcome.Backend)
	}
	if outcome.Degraded {
		w.Header().Set(HeaderDegraded, "true")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}, log logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error("Falha ao codificar JSON de resposta", err)
	}
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.NewValidationError(fmt.Sprintf("ID inválido: %q.", raw))
	}
	return id, nil
}

// parseMultipart exige multipart/form-data e limita o tamanho do corpo.
func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) error {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "multipart/form-data" {
		return apperror.NewValidationError("O corpo deve ser multipart/form-data.")
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxPhotoBytes+multipartOverhead)
	if err := r.ParseMultipartForm(h.MaxPhotoBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return apperror.NewValidationError(fmt.Sprintf("A foto excede o limite de %d bytes.", h.MaxPhotoBytes))
		}
		return apperror.NewValidationError("Formulário multipart inválido.")
	}
	return nil
}

// readPhoto lê o arquivo do campo "photo". Devolve nil quando o campo não foi enviado.
func (h *Handler) readPhoto(r *http.Request) (*deviceservice.PhotoUpload, error) {
	file, header, err := r.FormFile("photo")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.NewValidationError("Não foi possível ler a foto enviada.")
	}
	defer file.Close()

	if header.Size > h.MaxPhotoBytes {
		return nil, apperror.NewValidationError(fmt.Sprintf("A foto excede o limite de %d bytes.", h.MaxPhotoBytes))
	}
	data, err := io.ReadAll(io.LimitReader(file, h.MaxPhotoBytes+1))
	if err != nil {
		return nil, apperror.NewInternalError("falha ao ler foto enviada", err)
	}
	if int64(len(data)) > h.MaxPhotoBytes {
		return nil, apperror.NewValidationError(fmt.Sprintf("A foto excede o limite de %d bytes.", h.MaxPhotoBytes))
	}
	return &deviceservice.PhotoUpload{Filename: header.Filename, Data: data}, nil
}

// RegisterHandler lida com a requisição POST /register.
// @Summary Registra um dispositivo
// @Description Cadastra um dispositivo com foto opcional. Aceita "name" ou "inventory_name".
// @Tags inventory
// @Accept mpfd
// @Produce json
// @Param name formData string true "Nome do dispositivo"
// @Param description formData string false "Descrição"
// @Param price formData string false "Preço"
// @Param stock_quantity formData int false "Quantidade em estoque"
// @Param photo formData file false "Foto"
// @Success 201 {object} domain.Envelope "Dispositivo criado"
// @Failure 400 {object} domain.ErrorResponse "Nome ausente ou formulário inválido"
// @Failure 503 {object} domain.ErrorResponse "Nenhum backend disponível"
// @Security ApiKeyAuth
// @Router /register [post]
func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	none := deviceservice.Outcome{}
	if err := h.parseMultipart(w, r); err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, err, http.StatusCreated)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		name = strings.TrimSpace(r.FormValue("inventory_name"))
	}
	if name == "" {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, apperror.NewValidationError("O nome do dispositivo é obrigatório."), http.StatusCreated)
		return
	}

	input := deviceservice.RegisterInput{
		Device: domain.NewDevice{Name: name, Description: r.FormValue("description")},
	}
	if raw := strings.TrimSpace(r.FormValue("price")); raw != "" {
		price, err := decimal.NewFromString(raw)
		if err != nil {
			h.handleServiceResponse(w, r, domain.Envelope{}, none, apperror.NewValidationError("Preço inválido."), http.StatusCreated)
			return
		}
		input.Device.Price = price
	}
	if raw := strings.TrimSpace(r.FormValue("stock_quantity")); raw != "" {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			h.handleServiceResponse(w, r, domain.Envelope{}, none, apperror.NewValidationError("Quantidade em estoque inválida."), http.StatusCreated)
			return
		}
		input.Device.StockQuantity = qty
	}

	photo, err := h.readPhoto(r)
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, err, http.StatusCreated)
		return
	}
	input.Photo = photo

	created, outcome, err := h.Service.Register(r.Context(), input)
	h.handleServiceResponse(w, r, domain.Envelope{
		Message: "Dispositivo registrado com sucesso.",
		Data:    domain.NewDeviceView(created),
		Notice:  noticeRegister,
	}, outcome, err, http.StatusCreated)
}

// ListHandler lida com a requisição GET /inventory.
// @Summary Lista o inventário
// @Description Retorna todos os dispositivos em ordem de ID, cada um com photo_url.
// @Tags inventory
// @Produce json
// @Success 200 {object} domain.Envelope "Lista de dispositivos"
// @Failure 503 {object} domain.ErrorResponse "Nenhum backend disponível"
// @Router /inventory [get]
func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	devices, outcome, err := h.Service.List(r.Context())
	count := len(devices)
	h.handleServiceResponse(w, r, domain.Envelope{
		Count:  &count,
		Data:   domain.NewDeviceViews(devices),
		Notice: noticeRead,
	}, outcome, err, http.StatusOK)
}

// ProductsHandler lida com a requisição GET /products.
// Devolve o array cru da tabela products, sem envelope e sem cair para o cache.
// @Summary Lista crua do banco
// @Tags inventory
// @Produce json
// @Success 200 {array} domain.Device
// @Failure 503 {object} domain.ErrorResponse "Banco indisponível"
// @Router /products [get]
func (h *Handler) ProductsHandler(w http.ResponseWriter, r *http.Request) {
	devices, outcome, err := h.Service.Products(r.Context())
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, outcome, err, http.StatusOK)
		return
	}
	if devices == nil {
		devices = []domain.Device{}
	}
	setOutcomeHeaders(w, outcome)
	writeJSON(w, http.StatusOK, devices, h.Logger)
}

// GetHandler lida com a requisição GET /inventory/{id}.
// @Summary Obtém um dispositivo por ID
// @Tags inventory
// @Produce json
// @Param id path int true "ID do dispositivo"
// @Success 200 {object} domain.Envelope "Dispositivo encontrado"
// @Failure 400 {object} domain.ErrorResponse "ID inválido"
// @Failure 404 {object} domain.ErrorResponse "Dispositivo não encontrado"
// @Router /inventory/{id} [get]
func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, deviceservice.Outcome{}, err, http.StatusOK)
		return
	}

	device, outcome, err := h.Service.Get(r.Context(), id)
	h.handleServiceResponse(w, r, domain.Envelope{
		Data:   domain.NewDeviceView(device),
		Notice: noticeRead,
	}, outcome, err, http.StatusOK)
}

type updateRequest struct {
	Name          *string          `json:"name"`
	InventoryName *string          `json:"inventory_name"`
	Description   *string          `json:"description"`
	Price         *decimal.Decimal `json:"price"`
	StockQuantity *int             `json:"stock_quantity"`
}

func (u updateRequest) patch() domain.DevicePatch {
	name := u.Name
	if name == nil {
		name = u.InventoryName
	}
	return domain.DevicePatch{
		Name:          name,
		Description:   u.Description,
		Price:         u.Price,
		StockQuantity: u.StockQuantity,
	}
}

// UpdateHandler lida com a requisição PUT /inventory/{id}.
// @Summary Atualiza um dispositivo
// @Description Atualização parcial: apenas os campos enviados são alterados.
// @Tags inventory
// @Accept json
// @Produce json
// @Param id path int true "ID do dispositivo"
// @Param device body updateRequest true "Campos a alterar"
// @Success 200 {object} domain.Envelope "Dispositivo atualizado"
// @Failure 400 {object} domain.ErrorResponse "Payload inválido"
// @Failure 404 {object} domain.ErrorResponse "Dispositivo não encontrado"
// @Security ApiKeyAuth
// @Router /inventory/{id} [put]
func (h *Handler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	none := deviceservice.Outcome{}
	id, err := pathID(r)
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, err, http.StatusOK)
		return
	}

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, apperror.NewValidationError("Payload inválido. Verifique o formato JSON."), http.StatusOK)
		return
	}

	updated, outcome, err := h.Service.Update(r.Context(), id, req.patch())
	h.handleServiceResponse(w, r, domain.Envelope{
		Message: "Dispositivo atualizado com sucesso.",
		Data:    domain.NewDeviceView(updated),
		Notice:  noticeWrite,
	}, outcome, err, http.StatusOK)
}

// DeleteHandler lida com a requisição DELETE /inventory/{id}.
// @Summary Remove um dispositivo
// @Description Remove o dispositivo e sua foto.
// @Tags inventory
// @Produce json
// @Param id path int true "ID do dispositivo"
// @Success 200 {object} domain.Envelope "Dispositivo removido"
// @Failure 404 {object} domain.ErrorResponse "Dispositivo não encontrado"
// @Security ApiKeyAuth
// @Router /inventory/{id} [delete]
func (h *Handler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, deviceservice.Outcome{}, err, http.StatusOK)
		return
	}

	removed, outcome, err := h.Service.Delete(r.Context(), id)
	h.handleServiceResponse(w, r, domain.Envelope{
		Message: "Dispositivo removido com sucesso.",
		Data:    domain.NewDeviceView(removed),
		Notice:  noticeWrite,
	}, outcome, err, http.StatusOK)
}

// GetPhotoHandler lida com a requisição GET /inventory/{id}/photo.
// @Summary Obtém a foto de um dispositivo
// @Tags inventory
// @Produce image/jpeg,image/png
// @Param id path int true "ID do dispositivo"
// @Success 200 {file} binary "Foto"
// @Failure 404 {object} domain.ErrorResponse "Dispositivo sem foto ou arquivo ausente"
// @Router /inventory/{id}/photo [get]
func (h *Handler) GetPhotoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, deviceservice.Outcome{}, err, http.StatusOK)
		return
	}

	photo, outcome, err := h.Service.GetPhoto(r.Context(), id)
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, outcome, err, http.StatusOK)
		return
	}

	sum := blake2b.Sum256(photo.Data)
	etag := `"` + hex.EncodeToString(sum[:16]) + `"`

	setOutcomeHeaders(w, outcome)
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}

	w.Header().Set("Content-Type", photostore.ContentType(photo.Filename, photo.Data))
	w.Header().Set("Content-Length", strconv.Itoa(len(photo.Data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(photo.Data); err != nil {
		h.Logger.Error("Falha ao enviar foto.", err)
	}
}

// ReplacePhotoHandler lida com a requisição PUT /inventory/{id}/photo.
// @Summary Substitui a foto de um dispositivo
// @Tags inventory
// @Accept mpfd
// @Produce json
// @Param id path int true "ID do dispositivo"
// @Param photo formData file true "Nova foto"
// @Success 200 {object} domain.Envelope "Foto atualizada"
// @Failure 400 {object} domain.ErrorResponse "Foto ausente ou inválida"
// @Failure 404 {object} domain.ErrorResponse "Dispositivo não encontrado"
// @Security ApiKeyAuth
// @Router /inventory/{id}/photo [put]
func (h *Handler) ReplacePhotoHandler(w http.ResponseWriter, r *http.Request) {
	none := deviceservice.Outcome{}
	id, err := pathID(r)
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, err, http.StatusOK)
		return
	}
	if err := h.parseMultipart(w, r); err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, err, http.StatusOK)
		return
	}

	photo, err := h.readPhoto(r)
	if err == nil && photo == nil {
		err = apperror.NewValidationError("Nenhuma foto enviada no campo \"photo\".")
	}
	if err != nil {
		h.handleServiceResponse(w, r, domain.Envelope{}, none, err, http.StatusOK)
		return
	}

	updated, outcome, err := h.Service.ReplacePhoto(r.Context(), id, *photo)
	h.handleServiceResponse(w, r, domain.Envelope{
		Message:  "Foto atualizada com sucesso.",
		Data:     domain.NewDeviceView(updated),
		PhotoURL: domain.PhotoURL(id),
		Notice:   noticeWrite,
	}, outcome, err, http.StatusOK)
}

// SearchHandler lida com a requisição POST /search.
// @Summary Busca um dispositivo por ID
// @Description Com has_photo=true e foto existente, a descrição recebe "[Photo: <url>]".
// @Tags inventory
// @Accept x-www-form-urlencoded
// @Produce json
// @Param id formData int true "ID do dispositivo"
// @Param has_photo formData bool false "Anexar referência da foto"
// @Success 200 {object} domain.Envelope "Dispositivo encontrado"
// @Failure 400 {object} domain.ErrorResponse "ID ausente ou inválido"
// @Failure 404 {object} domain.ErrorResponse "Dispositivo não encontrado"
// @Router /search [post]
func (h *Handler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.PostFormValue("id"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		h.handleServiceResponse(w, r, domain.Envelope{}, deviceservice.Outcome{}, apperror.NewValidationError("Informe um ID numérico válido."), http.StatusOK)
		return
	}
	hasPhoto, _ := strconv.ParseBool(r.PostFormValue("has_photo"))

	found, outcome, err := h.Service.Search(r.Context(), domain.SearchQuery{ID: id, IncludePhotoReference: hasPhoto})
	h.handleServiceResponse(w, r, domain.Envelope{
		Data:   domain.NewDeviceView(found),
		Notice: noticeRead,
	}, outcome, err, http.StatusOK)
}
