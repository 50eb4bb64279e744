package lifecycle

import (
	"context"
	"errors"
	"time"

	"github.com/jhoicas/inventario-sync/internal/domain"
)

// Searcher búsqueda mientras se escribe sobre un canal: Search espera el silencio
// antes de consultar, SearchNow consulta de inmediato y anula la espera pendiente.
type Searcher[T any] struct {
	lc      *Lifecycle
	channel string
	quiet   time.Duration
	load    func(ctx context.Context, query string) (T, error)
	apply   func(T)
	onError func(error)
}

// NewSearcher crea el buscador. apply recibe solo resultados vigentes.
func NewSearcher[T any](lc *Lifecycle, channel string, quiet time.Duration,
	load func(ctx context.Context, query string) (T, error), apply func(T)) *Searcher[T] {
	if quiet <= 0 {
		quiet = DefaultQuiet
	}
	return &Searcher[T]{lc: lc, channel: channel, quiet: quiet, load: load, apply: apply}
}

// OnError callback para errores de búsquedas diferidas (las reemplazadas no llegan aquí).
func (s *Searcher[T]) OnError(fn func(error)) *Searcher[T] {
	s.onError = fn
	return s
}

// Channel nombre del canal.
func (s *Searcher[T]) Channel() string { return s.channel }

// Search programa la consulta tras el silencio configurado.
func (s *Searcher[T]) Search(query string) error {
	return s.lc.Debounce(s.channel, s.quiet, func() {
		_, err := s.run(s.lc.Context(), query)
		if err != nil && !errors.Is(err, domain.ErrSuperseded) && s.onError != nil {
			s.onError(err)
		}
	})
}

// SearchNow consulta ya, descartando la búsqueda diferida pendiente.
func (s *Searcher[T]) SearchNow(ctx context.Context, query string) (T, error) {
	s.lc.StopDebounce(s.channel)
	return s.run(ctx, query)
}

func (s *Searcher[T]) run(ctx context.Context, query string) (T, error) {
	return Do(ctx, s.lc, s.channel, func(ctx context.Context) (T, error) {
		return s.load(ctx, query)
	}, s.apply)
}
