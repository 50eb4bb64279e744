package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Resultados de consulta de caché.
const (
	ResultHit  = "hit"
	ResultMiss = "miss"
)

// Resultados de una mutación optimista.
const (
	OutcomeSuccess    = "success"
	OutcomeValidation = "validation"
	OutcomeRolledBack = "rolled_back"
	OutcomeRejected   = "rejected"
)

// Metrics contadores Prometheus de la capa de sincronización.
// Todos los métodos aceptan receptor nil para que los tests no necesiten registry.
type Metrics struct {
	registry       *prometheus.Registry
	handler        http.Handler
	cacheRequests  *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	superseded     *prometheus.CounterVec
	remoteDuration *prometheus.HistogramVec
}

// New crea un registry propio con los colectores de la aplicación.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	cacheRequests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventario_sync_cache_requests_total",
		Help: "Consultas a la caché por dominio y resultado (hit/miss).",
	}, []string{"domain", "result"})
	mutations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventario_sync_mutations_total",
		Help: "Mutaciones optimistas por entidad, operación y resultado.",
	}, []string{"entity", "op", "outcome"})
	superseded := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "inventario_sync_superseded_requests_total",
		Help: "Respuestas descartadas porque una petición más reciente las reemplazó.",
	}, []string{"channel"})
	remoteDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "inventario_sync_remote_request_duration_seconds",
		Help:    "Duración de las llamadas al servicio remoto.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "code"})
	registry.MustRegister(cacheRequests, mutations, superseded, remoteDuration)
	return &Metrics{
		registry:       registry,
		handler:        promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		cacheRequests:  cacheRequests,
		mutations:      mutations,
		superseded:     superseded,
		remoteDuration: remoteDuration,
	}
}

// Handler para /metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registerer expone el registry para colectores adicionales.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

// CacheRequest cuenta un hit o miss del dominio de caché.
func (m *Metrics) CacheRequest(domain, result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(domain, result).Inc()
}

// Mutation cuenta el resultado de una mutación optimista.
func (m *Metrics) Mutation(entity, op, outcome string) {
	if m == nil {
		return
	}
	m.mutations.WithLabelValues(entity, op, outcome).Inc()
}

// Superseded cuenta una respuesta descartada en el canal.
func (m *Metrics) Superseded(channel string) {
	if m == nil {
		return
	}
	m.superseded.WithLabelValues(channel).Inc()
}

// ObserveRemote registra la duración de una llamada remota. code 0 = fallo de transporte.
func (m *Metrics) ObserveRemote(method, code string, seconds float64) {
	if m == nil {
		return
	}
	m.remoteDuration.WithLabelValues(method, code).Observe(seconds)
}
