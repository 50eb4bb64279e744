package optimistic

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// TempIDPrefix prefijo de los identificadores sintetizados localmente.
const TempIDPrefix = "tmp-"

// Operaciones registradas en métricas y logs.
const (
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// Entity lo mínimo que necesita el store: un identificador estable.
type Entity interface {
	EntityID() string
}

// Item elemento de la lista. Optimistic indica que aún no fue confirmado por el servidor.
type Item[T Entity] struct {
	Value      T
	Optimistic bool
}

// Outcome resultado tri-estado de una mutación.
type Outcome int

const (
	OutcomeSuccess    Outcome = iota
	OutcomeValidation         // rechazada localmente; no hubo cambio ni llamada
	OutcomeFailed             // fallo operativo; el cambio local se revirtió
)

// Result resultado de una mutación. Nunca se lanza un error a través del store:
// los fallos vienen aquí junto con el rollback ya aplicado.
type Result[T any] struct {
	Value   T
	Outcome Outcome
	Err     error
}

// OK éxito confirmado por el servidor.
func (r Result[T]) OK() bool { return r.Outcome == OutcomeSuccess }

// Config dependencias de un Store.
type Config[T Entity] struct {
	// Entity nombre para métricas y logs (product, party, bill...).
	Entity string
	// WithID devuelve una copia de v con el identificador dado (para registros temporales).
	WithID func(v T, id string) T
	// Validate validación local previa; nil = sin validación.
	Validate func(v T) error
	// Cache dominio a invalidar tras cada mutación confirmada; nil = ninguno.
	Cache   *cache.Cache
	Metrics *metrics.Metrics
	Log     *logger.Logger
}

// Store colección en memoria de un tipo de entidad. Es el único componente que
// modifica la lista: aplica cada cambio localmente antes de la llamada remota y lo
// revierte si falla. La lista es copy-on-write: cada cambio publica un slice nuevo,
// así que la instantánea previa sirve para el rollback.
type Store[T Entity] struct {
	cfg Config[T]

	mu       sync.Mutex
	items    []Item[T]
	version  uint64
	inflight map[string]string // id -> operación en curso
}

// New crea un store vacío.
func New[T Entity](cfg Config[T]) *Store[T] {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.Entity == "" {
		cfg.Entity = "entity"
	}
	return &Store[T]{cfg: cfg, items: []Item[T]{}, inflight: make(map[string]string)}
}

// Items instantánea de la lista; el llamador no puede modificar el estado del store.
func (s *Store[T]) Items() []Item[T] {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item[T], len(s.items))
	copy(out, s.items)
	return out
}

// Values solo los valores, en orden.
func (s *Store[T]) Values() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	for i, it := range s.items {
		out[i] = it.Value
	}
	return out
}

// Get busca por identificador.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := indexOf(s.items, id); i >= 0 {
		return s.items[i].Value, true
	}
	var zero T
	return zero, false
}

// Busy indica si hay una mutación en curso sobre el identificador.
func (s *Store[T]) Busy(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[id]
	return ok
}

// Replace reemplaza la lista con la respuesta autoritativa de una lectura.
// Las mutaciones en curso se conservan encima: los creados temporales siguen al
// final, los actualizados muestran su valor local y los borrados no reaparecen.
func (s *Store[T]) Replace(values []T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := make(map[string]Item[T], len(s.inflight))
	for _, it := range s.items {
		if _, ok := s.inflight[it.Value.EntityID()]; ok {
			local[it.Value.EntityID()] = it
		}
	}

	next := make([]Item[T], 0, len(values)+len(local))
	seen := make(map[string]bool, len(values))
	for _, v := range values {
		id := v.EntityID()
		seen[id] = true
		switch s.inflight[id] {
		case OpDelete:
			continue
		case OpUpdate:
			if it, ok := local[id]; ok {
				next = append(next, it)
				continue
			}
		}
		next = append(next, Item[T]{Value: v})
	}
	for _, it := range s.items {
		id := it.Value.EntityID()
		if s.inflight[id] == OpCreate && !seen[id] {
			next = append(next, it)
		}
	}
	s.publish(next)
}

// Upsert incorpora registros ya confirmados por el servidor fuera de Create (p. ej.
// filas creadas en lote): sustituye en su lugar los existentes y agrega el resto al
// final. Los que tienen una mutación en curso se omiten.
func (s *Store[T]) Upsert(values ...T) {
	if len(values) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.items
	for _, v := range values {
		id := v.EntityID()
		if _, busy := s.inflight[id]; busy {
			continue
		}
		next = replaceOrAppend(next, id, Item[T]{Value: v})
	}
	s.publish(next)
}

// Create agrega un registro temporal, llama al servidor y lo sustituye en su lugar por
// el registro autoritativo. Si falla, el registro temporal desaparece y la lista
// vuelve a ser exactamente la anterior.
func (s *Store[T]) Create(ctx context.Context, draft T, call func(context.Context, T) (T, error)) Result[T] {
	if err := s.validate(draft); err != nil {
		s.cfg.Metrics.Mutation(s.cfg.Entity, OpCreate, metrics.OutcomeValidation)
		return Result[T]{Outcome: OutcomeValidation, Err: err}
	}

	tempID := TempIDPrefix + uuid.NewString()
	temp := draft
	if s.cfg.WithID != nil {
		temp = s.cfg.WithID(draft, tempID)
	}

	s.mu.Lock()
	before := s.items
	s.inflight[tempID] = OpCreate
	next := make([]Item[T], len(before), len(before)+1)
	copy(next, before)
	s.publish(append(next, Item[T]{Value: temp, Optimistic: true}))
	applied := s.version
	s.mu.Unlock()

	saved, err := call(ctx, draft)

	s.mu.Lock()
	delete(s.inflight, tempID)
	if err != nil {
		if s.version == applied {
			s.restore(before)
		} else {
			s.publish(without(s.items, tempID))
		}
		s.mu.Unlock()
		return s.failed(OpCreate, tempID, err)
	}
	s.publish(replaceOrAppend(s.items, tempID, Item[T]{Value: saved}))
	s.mu.Unlock()
	return s.succeeded(ctx, OpCreate, saved)
}

// Update aplica next localmente, guardando el valor previo exacto para el rollback.
func (s *Store[T]) Update(ctx context.Context, next T, call func(context.Context, T) (T, error)) Result[T] {
	return s.Mutate(ctx, next.EntityID(), func(T) (T, error) { return next, nil }, call)
}

// Mutate como Update, pero el nuevo valor se calcula a partir del actual (p. ej. marcar
// procesado). Una segunda mutación del mismo registro mientras la primera está en
// vuelo se rechaza con domain.ErrMutationInProgress.
func (s *Store[T]) Mutate(ctx context.Context, id string, change func(current T) (T, error),
	call func(context.Context, T) (T, error)) Result[T] {
	s.mu.Lock()
	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		return s.rejected(OpUpdate, id)
	}
	i := indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		s.cfg.Metrics.Mutation(s.cfg.Entity, OpUpdate, metrics.OutcomeRejected)
		return Result[T]{Outcome: OutcomeFailed, Err: domain.ErrNotFound}
	}
	snapshot := s.items[i]

	// change y Validate son locales y puros: se evalúan con el candado tomado para
	// que la instantánea no quede obsoleta antes de aplicar.
	next, err := change(snapshot.Value)
	if err == nil {
		err = s.validate(next)
	}
	if err != nil {
		s.mu.Unlock()
		s.cfg.Metrics.Mutation(s.cfg.Entity, OpUpdate, metrics.OutcomeValidation)
		return Result[T]{Value: snapshot.Value, Outcome: OutcomeValidation, Err: err}
	}

	before := s.items
	s.inflight[id] = OpUpdate
	s.publish(replaceOrAppend(before, id, Item[T]{Value: next, Optimistic: true}))
	applied := s.version
	s.mu.Unlock()

	saved, err := call(ctx, next)

	s.mu.Lock()
	delete(s.inflight, id)
	if err != nil {
		if s.version == applied {
			s.restore(before)
		} else if indexOf(s.items, id) >= 0 {
			s.publish(replaceOrAppend(s.items, id, snapshot))
		}
		s.mu.Unlock()
		return s.failed(OpUpdate, id, err)
	}
	s.publish(replaceOrAppend(s.items, id, Item[T]{Value: saved}))
	s.mu.Unlock()
	return s.succeeded(ctx, OpUpdate, saved)
}

// Delete quita el registro de inmediato. Si el servidor falla, vuelve a su posición
// original cuando la lista no cambió entretanto; si cambió, se inserta en orden de
// identificador.
func (s *Store[T]) Delete(ctx context.Context, id string, call func(context.Context, string) error) Result[T] {
	s.mu.Lock()
	if _, busy := s.inflight[id]; busy {
		s.mu.Unlock()
		return s.rejected(OpDelete, id)
	}
	i := indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		s.cfg.Metrics.Mutation(s.cfg.Entity, OpDelete, metrics.OutcomeRejected)
		return Result[T]{Outcome: OutcomeFailed, Err: domain.ErrNotFound}
	}
	before := s.items
	snapshot := before[i]
	s.inflight[id] = OpDelete
	s.publish(without(before, id))
	applied := s.version
	s.mu.Unlock()

	err := call(ctx, id)

	s.mu.Lock()
	delete(s.inflight, id)
	if err != nil {
		if s.version == applied {
			s.restore(before)
		} else if indexOf(s.items, id) < 0 {
			s.publish(insertSorted(s.items, snapshot))
		}
		s.mu.Unlock()
		return s.failed(OpDelete, id, err)
	}
	s.mu.Unlock()
	return s.succeeded(ctx, OpDelete, snapshot.Value)
}

func (s *Store[T]) validate(v T) error {
	if s.cfg.Validate == nil {
		return nil
	}
	return s.cfg.Validate(v)
}

// publish instala un slice nuevo; llamar con el candado tomado.
func (s *Store[T]) publish(items []Item[T]) {
	s.items = items
	s.version++
}

// restore vuelve a la instantánea previa (intercambio de puntero). La versión
// sigue creciendo para que otras mutaciones en vuelo no la confundan con la suya.
func (s *Store[T]) restore(items []Item[T]) {
	s.items = items
	s.version++
}

func (s *Store[T]) succeeded(ctx context.Context, op string, v T) Result[T] {
	s.cfg.Metrics.Mutation(s.cfg.Entity, op, metrics.OutcomeSuccess)
	if s.cfg.Cache != nil {
		if err := s.cfg.Cache.InvalidateAll(ctx); err != nil {
			s.cfg.Log.Warn().Err(err).Str("entity", s.cfg.Entity).Str("op", op).
				Msg("caché sin invalidar, vence por TTL")
		}
	}
	return Result[T]{Value: v, Outcome: OutcomeSuccess}
}

func (s *Store[T]) failed(op, id string, err error) Result[T] {
	s.cfg.Metrics.Mutation(s.cfg.Entity, op, metrics.OutcomeRolledBack)
	s.cfg.Log.Warn().Err(err).
		Str("entity", s.cfg.Entity).Str("op", op).Str("id", id).
		Msg("mutación revertida")
	outcome := OutcomeFailed
	if errors.Is(err, domain.ErrValidation) {
		outcome = OutcomeValidation
	}
	return Result[T]{Outcome: outcome, Err: err}
}

func (s *Store[T]) rejected(op, id string) Result[T] {
	s.cfg.Metrics.Mutation(s.cfg.Entity, op, metrics.OutcomeRejected)
	s.cfg.Log.Debug().Str("entity", s.cfg.Entity).Str("op", op).Str("id", id).
		Msg("mutación rechazada: hay otra en curso")
	return Result[T]{Outcome: OutcomeFailed, Err: domain.ErrMutationInProgress}
}

func indexOf[T Entity](items []Item[T], id string) int {
	for i, it := range items {
		if it.Value.EntityID() == id {
			return i
		}
	}
	return -1
}

// without copia sin el id.
func without[T Entity](items []Item[T], id string) []Item[T] {
	out := make([]Item[T], 0, len(items))
	for _, it := range items {
		if it.Value.EntityID() != id {
			out = append(out, it)
		}
	}
	return out
}

// replaceOrAppend copia sustituyendo el id en su lugar, o agregando al final si no está.
func replaceOrAppend[T Entity](items []Item[T], id string, item Item[T]) []Item[T] {
	out := make([]Item[T], len(items), len(items)+1)
	copy(out, items)
	if i := indexOf(out, id); i >= 0 {
		out[i] = item
		return out
	}
	return append(out, item)
}

// insertSorted copia insertando antes del primer elemento con identificador mayor.
func insertSorted[T Entity](items []Item[T], item Item[T]) []Item[T] {
	id := item.Value.EntityID()
	pos := len(items)
	for i, it := range items {
		if it.Value.EntityID() > id {
			pos = i
			break
		}
	}
	out := make([]Item[T], 0, len(items)+1)
	out = append(out, items[:pos]...)
	out = append(out, item)
	return append(out, items[pos:]...)
}
