package catalog

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jhoicas/inventario-sync/internal/application/lifecycle"
	"github.com/jhoicas/inventario-sync/internal/application/optimistic"
	"github.com/jhoicas/inventario-sync/internal/application/validation"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

const defaultPageSize = 20

// Resource CRUD remoto de una colección del catálogo.
type Resource[T any] interface {
	List(ctx context.Context, q entity.ListQuery) (entity.Page[T], error)
	Get(ctx context.Context, id string) (T, error)
	Create(ctx context.Context, v T) (T, error)
	Update(ctx context.Context, id string, v T) (T, error)
	Delete(ctx context.Context, id string) error
}

// Config dependencias de un Manager.
type Config[T optimistic.Entity] struct {
	// Entity nombre en métricas, logs, claves de caché y canal de búsqueda.
	Entity    string
	Resource  Resource[T]
	Lifecycle *lifecycle.Lifecycle
	// Cache dominio catalog; se invalida completo tras cada mutación confirmada.
	Cache    *cache.Cache
	WithID   func(v T, id string) T
	Quiet    time.Duration
	PageSize int
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

// Manager lista de una entidad del catálogo: lecturas en caché, búsqueda con
// debounce y mutaciones optimistas.
type Manager[T optimistic.Entity] struct {
	cfg      Config[T]
	channel  string
	store    *optimistic.Store[T]
	searcher *lifecycle.Searcher[listing[T]]
	log      *logger.Logger

	mu    sync.RWMutex
	query entity.ListQuery
	page  entity.Page[T]
}

// listing página junto con la consulta que la produjo; se aplican juntas.
type listing[T any] struct {
	query entity.ListQuery
	page  entity.Page[T]
}

// New construye el manager.
func New[T optimistic.Entity](cfg Config[T]) *Manager[T] {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	m := &Manager[T]{
		cfg:     cfg,
		channel: "catalog." + cfg.Entity,
		log:     cfg.Log.Component("catalog." + cfg.Entity),
		query:   entity.ListQuery{Size: cfg.PageSize},
		page:    entity.EmptyPage[T](),
	}
	m.store = optimistic.New(optimistic.Config[T]{
		Entity:   cfg.Entity,
		WithID:   cfg.WithID,
		Validate: func(v T) error { return validation.Struct(v) },
		Cache:    cfg.Cache,
		Metrics:  cfg.Metrics,
		Log:      m.log,
	})
	m.searcher = lifecycle.NewSearcher(cfg.Lifecycle, m.channel, cfg.Quiet,
		func(ctx context.Context, search string) (listing[T], error) {
			return m.fetch(ctx, entity.ListQuery{Size: cfg.PageSize, Search: search})
		},
		m.apply,
	).OnError(func(err error) {
		m.log.Warn().Err(err).Str("channel", m.channel).Msg("búsqueda fallida")
	})
	return m
}

// Channel canal de lifecycle de las lecturas de la lista.
func (m *Manager[T]) Channel() string { return m.channel }

// Load carga una página y reemplaza la lista. Una carga más nueva en el mismo canal
// anula esta (domain.ErrSuperseded); si falla, la lista anterior se conserva.
func (m *Manager[T]) Load(ctx context.Context, q entity.ListQuery) (entity.Page[T], error) {
	return m.LoadFor(ctx, "", q)
}

// LoadFor como Load, en el canal de owner: cargas de dueños distintos no se anulan.
func (m *Manager[T]) LoadFor(ctx context.Context, owner string, q entity.ListQuery) (entity.Page[T], error) {
	if q.Size <= 0 {
		q.Size = m.cfg.PageSize
	}
	if q.Page < 0 {
		q.Page = 0
	}
	q.Search = strings.TrimSpace(q.Search)
	channel := lifecycle.Scoped(m.channel, owner)
	m.cfg.Lifecycle.StopDebounce(channel)
	l, err := lifecycle.Do(ctx, m.cfg.Lifecycle, channel,
		func(ctx context.Context) (listing[T], error) { return m.fetch(ctx, q) },
		m.apply)
	return l.page, err
}

// Search programa la búsqueda (primera página) tras el silencio del debounce.
func (m *Manager[T]) Search(search string) error {
	return m.searcher.Search(strings.TrimSpace(search))
}

// SearchNow busca de inmediato y anula la búsqueda diferida.
func (m *Manager[T]) SearchNow(ctx context.Context, search string) (entity.Page[T], error) {
	l, err := m.searcher.SearchNow(ctx, strings.TrimSpace(search))
	return l.page, err
}

// Get lee un registro; pasa por la caché del catálogo.
func (m *Manager[T]) Get(ctx context.Context, id string) (T, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		var zero T
		return zero, domain.NewValidationError("el identificador es obligatorio")
	}
	return cache.Fetch(ctx, m.cfg.Cache, cache.Key(m.cfg.Entity+".get", id),
		func(ctx context.Context) (T, error) { return m.cfg.Resource.Get(ctx, id) })
}

// Items lista vigente, con las marcas de registros aún no confirmados.
func (m *Manager[T]) Items() []optimistic.Item[T] { return m.store.Items() }

// Page metadatos de la última página aplicada.
func (m *Manager[T]) Page() entity.Page[T] {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.page
}

// Query última consulta aplicada.
func (m *Manager[T]) Query() entity.ListQuery {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.query
}

// Create alta optimista.
func (m *Manager[T]) Create(ctx context.Context, v T) optimistic.Result[T] {
	res := m.store.Create(ctx, v, m.cfg.Resource.Create)
	m.logResult("create", res)
	return res
}

// Update modificación optimista. Si el registro no está en la lista se lee primero
// del servidor; un valor inválido se rechaza antes de esa lectura.
func (m *Manager[T]) Update(ctx context.Context, v T) optimistic.Result[T] {
	if err := validation.Struct(v); err != nil {
		return m.unavailable(v, err)
	}
	id := v.EntityID()
	if err := m.ensure(ctx, id); err != nil {
		return m.unavailable(v, err)
	}
	res := m.store.Update(ctx, v, func(ctx context.Context, next T) (T, error) {
		return m.cfg.Resource.Update(ctx, id, next)
	})
	m.logResult("update", res)
	return res
}

// Delete baja optimista.
func (m *Manager[T]) Delete(ctx context.Context, id string) optimistic.Result[T] {
	id = strings.TrimSpace(id)
	if err := m.ensure(ctx, id); err != nil {
		var zero T
		return m.unavailable(zero, err)
	}
	res := m.store.Delete(ctx, id, m.cfg.Resource.Delete)
	m.logResult("delete", res)
	return res
}

// Close anula la carga en vuelo y la búsqueda pendiente.
func (m *Manager[T]) Close() {
	m.cfg.Lifecycle.StopDebounce(m.channel)
	m.cfg.Lifecycle.Cancel(m.channel)
}

func (m *Manager[T]) fetch(ctx context.Context, q entity.ListQuery) (listing[T], error) {
	page, err := cache.Fetch(ctx, m.cfg.Cache, cache.Key(m.cfg.Entity+".list", q),
		func(ctx context.Context) (entity.Page[T], error) { return m.cfg.Resource.List(ctx, q) })
	if err != nil {
		return listing[T]{query: q, page: entity.EmptyPage[T]()}, err
	}
	return listing[T]{query: q, page: page}, nil
}

func (m *Manager[T]) apply(l listing[T]) {
	m.store.Replace(l.page.Content)
	m.mu.Lock()
	m.query = l.query
	m.page = l.page
	m.mu.Unlock()
}

// ensure garantiza que el registro esté en la lista antes de mutarlo.
func (m *Manager[T]) ensure(ctx context.Context, id string) error {
	if id == "" {
		return domain.NewValidationError("el identificador es obligatorio")
	}
	if _, ok := m.store.Get(id); ok {
		return nil
	}
	v, err := m.cfg.Resource.Get(ctx, id)
	if err != nil {
		return err
	}
	m.store.Upsert(v)
	return nil
}

func (m *Manager[T]) unavailable(v T, err error) optimistic.Result[T] {
	outcome := optimistic.OutcomeFailed
	if errors.Is(err, domain.ErrValidation) {
		outcome = optimistic.OutcomeValidation
	}
	return optimistic.Result[T]{Value: v, Outcome: outcome, Err: err}
}

func (m *Manager[T]) logResult(op string, res optimistic.Result[T]) {
	if !res.OK() {
		return
	}
	m.log.Info().Str("op", op).Str("id", res.Value.EntityID()).Msg("catálogo actualizado")
}
