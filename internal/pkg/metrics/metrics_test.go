package metrics_test

import (
	"io"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"goinventory/internal/pkg/metrics"
)

func TestRecorder_ExposesCounters(t *testing.T) {
	rec := metrics.NewRecorder()
	rec.ObserveOperation("create", "postgres", "backend_unavailable")
	rec.ObserveOperation("create", "cache", "ok")
	rec.ObserveFallback("create")

	w := httptest.NewRecorder()
	rec.Handler().ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `goinventory_store_fallbacks_total{operation="create"} 1`)
	assert.Contains(t, string(body), `goinventory_store_operations_total{backend="cache",operation="create",result="ok"} 1`)
}

func TestRecorder_NilIsNoop(t *testing.T) {
	var rec *metrics.Recorder
	assert.NotPanics(t, func() {
		rec.ObserveOperation("list", "cache", "ok")
		rec.ObserveFallback("list")
	})
}
