package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder concentra os contadores da camada de persistência.
// Um *Recorder nil é válido e não registra nada.
type Recorder struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	fallbacks  *prometheus.CounterVec
}

// NewRecorder cria um registro próprio com os coletores de processo e Go.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	r := &Recorder{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goinventory",
			Name:      "store_operations_total",
			Help:      "Operações de persistência por backend e resultado.",
		}, []string{"operation", "backend", "result"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "goinventory",
			Name:      "store_fallbacks_total",
			Help:      "Operações desviadas para o cache por indisponibilidade do banco.",
		}, []string{"operation"}),
	}
	reg.MustRegister(r.operations, r.fallbacks)
	return r
}

// ObserveOperation contabiliza uma tentativa num backend.
func (r *Recorder) ObserveOperation(operation, backend, result string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(operation, backend, result).Inc()
}

// ObserveFallback contabiliza um desvio para o cache.
func (r *Recorder) ObserveFallback(operation string) {
	if r == nil {
		return
	}
	r.fallbacks.WithLabelValues(operation).Inc()
}

// Handler expõe o registro no formato de exposição do Prometheus.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer permite inspecionar o registro (usado nos testes).
func (r *Recorder) Gatherer() prometheus.Gatherer {
	return r.registry
}
