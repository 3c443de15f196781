package photostore_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperror "goinventory/internal/errors"
	"goinventory/internal/pkg/photostore"
)

func newTestManager(t *testing.T) (*photostore.Manager, string) {
	t.Helper()
	cacheDir := filepath.Join(t.TempDir(), "cache")
	m, err := photostore.NewManager(cacheDir)
	require.NoError(t, err)
	return m, cacheDir
}

func TestNewManager_CreatesDirectories(t *testing.T) {
	_, cacheDir := newTestManager(t)

	info, err := os.Stat(filepath.Join(cacheDir, photostore.DirName))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewManager_Fail_PathIsFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "arquivo")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))

	_, err := photostore.NewManager(file)

	assert.Error(t, err)
}

func TestFilenameFor(t *testing.T) {
	assert.Equal(t, "7.png", photostore.FilenameFor("", 7, "device.png"))
	assert.Equal(t, "7.jpg", photostore.FilenameFor("", 7, "semextensao"))
	assert.Equal(t, "7.jpg", photostore.FilenameFor("", 7, ""))
	assert.Equal(t, "12.gif", photostore.FilenameFor("", 12, "../../etc/passwd.gif"))
	assert.Equal(t, "cache-7.png", photostore.FilenameFor("cache", 7, "device.png"))
}

func TestStore_NamespacesDoNotCollide(t *testing.T) {
	m, _ := newTestManager(t)

	primary, err := m.Store("", 1, "a.jpg", []byte("banco"))
	require.NoError(t, err)
	cached, err := m.Store("cache", 1, "b.jpg", []byte("cache"))
	require.NoError(t, err)
	require.NotEqual(t, primary, cached)

	require.NoError(t, m.Remove(cached))
	data, err := m.Read(primary)
	require.NoError(t, err)
	assert.Equal(t, []byte("banco"), data)
}

func TestStoreReadRemove(t *testing.T) {
	m, _ := newTestManager(t)

	name, err := m.Store("", 7, "device.png", []byte("png-bytes"))
	require.NoError(t, err)
	assert.Equal(t, "7.png", name)

	data, err := m.Read(name)
	require.NoError(t, err)
	assert.Equal(t, []byte("png-bytes"), data)

	require.NoError(t, m.Remove(name))
	require.NoError(t, m.Remove(name), "remover arquivo inexistente não é erro")

	_, err = m.Read(name)
	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func attachOK(string) error { return nil }

func TestReplace_DeletesOldFile(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Store("", 3, "old.png", []byte("old"))
	require.NoError(t, err)

	var attached string
	name, err := m.Replace("", 3, "3.png", "new.webp", []byte("new"), func(n string) error {
		attached = n
		// O arquivo novo já existe quando o registro é atualizado.
		_, statErr := os.Stat(filepath.Join(m.Dir(), n))
		return statErr
	})
	require.NoError(t, err)
	assert.Equal(t, "3.webp", name)
	assert.Equal(t, "3.webp", attached)

	_, err = os.Stat(filepath.Join(m.Dir(), "3.png"))
	assert.True(t, os.IsNotExist(err))

	// Foto anterior já ausente também é aceita.
	_, err = m.Replace("", 3, "sumiu.png", "again.webp", []byte("again"), attachOK)
	assert.NoError(t, err)
}

func TestReplace_AttachFails_KeepsOldFile(t *testing.T) {
	m, _ := newTestManager(t)
	_, err := m.Store("", 3, "old.png", []byte("old"))
	require.NoError(t, err)

	attachErr := apperror.NewBackendUnavailableError("postgres", "fora do ar", nil)
	name, err := m.Replace("", 3, "3.png", "new.webp", []byte("new"), func(string) error { return attachErr })

	assert.ErrorIs(t, err, attachErr)
	assert.Empty(t, name)
	data, readErr := m.Read("3.png")
	require.NoError(t, readErr)
	assert.Equal(t, []byte("old"), data)
	_, statErr := os.Stat(filepath.Join(m.Dir(), "3.webp"))
	assert.True(t, os.IsNotExist(statErr), "arquivo novo descartado")
}

func TestRead_CannotEscapeDirectory(t *testing.T) {
	m, cacheDir := newTestManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(cacheDir, "inventory.json"), []byte("[]"), 0o644))

	_, err := m.Read("../inventory.json")

	assert.IsType(t, &apperror.NotFoundError{}, err)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", photostore.ContentType("7.png", nil))
	assert.Equal(t, "image/jpeg", photostore.ContentType("7.JPG", nil))
	assert.Equal(t, "image/png", photostore.ContentType("7.zzz", []byte("\x89PNG\r\n\x1a\n0000")))
}

func TestLock_SerializesPerID(t *testing.T) {
	m, _ := newTestManager(t)

	unlock := m.Lock(1)
	acquired := make(chan struct{})
	go func() {
		release := m.Lock(1)
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("segundo lock do mesmo ID não deveria ser obtido")
	case <-time.After(50 * time.Millisecond):
	}

	// Outro ID não bloqueia.
	other := m.Lock(2)
	other()

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock não foi liberado")
	}
}

func TestLock_ConcurrentReplaceKeepsOneFile(t *testing.T) {
	m, _ := newTestManager(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release := m.Lock(5)
			defer release()
			_, err := m.Replace("", 5, "5.png", "x.png", []byte("x"), attachOK)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
