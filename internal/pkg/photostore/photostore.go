package photostore

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	apperror "goinventory/internal/errors"
)

// DefaultExtension é usada quando o arquivo enviado não tem extensão.
const DefaultExtension = ".jpg"

// DirName é o subdiretório de fotos dentro do diretório de cache.
const DirName = "photos"

// Manager guarda as fotos dos dispositivos em <cache>/photos.
type Manager struct {
	dir   string
	locks *keyedMutex
}

// NewManager garante a existência de <cacheDir> e <cacheDir>/photos.
// Um erro aqui deve interromper a inicialização.
func NewManager(cacheDir string) (*Manager, error) {
	dir := filepath.Join(cacheDir, DirName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de fotos %s: %w", dir, err)
	}
	return &Manager{dir: dir, locks: newKeyedMutex()}, nil
}

// Dir devolve o diretório absoluto ou relativo onde as fotos são gravadas.
func (m *Manager) Dir() string { return m.dir }

// FilenameFor aplica a regra de nomeação: ID do registro + extensão original (padrão .jpg).
// Um namespace não vazio vira prefixo ("cache-7.png"), separando backends cujos IDs se repetem.
func FilenameFor(namespace string, id int64, originalFilename string) string {
	ext := filepath.Ext(filepath.Base(originalFilename))
	if ext == "" || ext == "." {
		ext = DefaultExtension
	}
	name := strconv.FormatInt(id, 10) + ext
	if namespace != "" {
		name = filepath.Base(namespace) + "-" + name
	}
	return name
}

// Store grava (sobrescrevendo) a foto do registro e devolve o nome armazenado.
func (m *Manager) Store(namespace string, id int64, originalFilename string, data []byte) (string, error) {
	name := FilenameFor(namespace, id, originalFilename)
	if err := os.WriteFile(m.path(name), data, 0o644); err != nil {
		return "", apperror.NewInternalError("falha ao gravar foto", err)
	}
	return name, nil
}

// Replace grava a nova foto, chama attach com o nome gravado e só então apaga a anterior.
// Se attach falhar, o arquivo novo é descartado e a foto anterior continua no disco.
// Um nome devolvido junto com erro indica que attach teve sucesso e apenas a remoção
// da foto anterior falhou.
func (m *Manager) Replace(namespace string, id int64, oldFilename, originalFilename string, data []byte, attach func(filename string) error) (string, error) {
	name, err := m.Store(namespace, id, originalFilename, data)
	if err != nil {
		return "", err
	}

	if err := attach(name); err != nil {
		if name != oldFilename {
			_ = m.Remove(name)
		}
		return "", err
	}

	if oldFilename != "" && oldFilename != name {
		if err := m.Remove(oldFilename); err != nil {
			return name, err
		}
	}
	return name, nil
}

// Remove apaga o arquivo; arquivo inexistente não é erro.
func (m *Manager) Remove(filename string) error {
	err := os.Remove(m.path(filename))
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return apperror.NewInternalError("falha ao remover foto", err)
}

// Read devolve o conteúdo da foto ou NotFoundError se o arquivo não existir.
func (m *Manager) Read(filename string) ([]byte, error) {
	data, err := os.ReadFile(m.path(filename))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperror.NewNotFoundError("Arquivo da foto não encontrado.")
	}
	if err != nil {
		return nil, apperror.NewInternalError("falha ao ler foto", err)
	}
	return data, nil
}

// Lock serializa substituição e exclusão de foto por ID de registro.
// Devolve a função de liberação.
func (m *Manager) Lock(id int64) func() {
	return m.locks.lock(id)
}

// ContentType deduz o tipo pela extensão e, se desconhecida, pelo conteúdo.
func ContentType(filename string, data []byte) string {
	if ct := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

// path impede que um nome vindo do registro escape do diretório de fotos.
func (m *Manager) path(filename string) string {
	return filepath.Join(m.dir, filepath.Base(filename))
}

type keyedMutex struct {
	mu    sync.Mutex
	locks map[int64]*refMutex
}

type refMutex struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[int64]*refMutex)}
}

func (k *keyedMutex) lock(id int64) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refMutex{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
