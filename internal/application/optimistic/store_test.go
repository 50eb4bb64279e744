package optimistic_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sync/internal/application/optimistic"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

type party struct {
	ID   string
	Name string
}

func (p party) EntityID() string { return p.ID }

var errRemote = &domain.RemoteError{Kind: domain.ErrServer, Status: 500, Message: "falló el servidor"}

func newStore(t *testing.T, c *cache.Cache) *optimistic.Store[party] {
	t.Helper()
	s := optimistic.New(optimistic.Config[party]{
		Entity: "party",
		WithID: func(p party, id string) party { p.ID = id; return p },
		Validate: func(p party) error {
			if strings.TrimSpace(p.Name) == "" {
				return domain.NewValidationError("name es obligatorio")
			}
			return nil
		},
		Cache:   c,
		Metrics: metrics.New(),
		Log:     logger.Nop(),
	})
	s.Replace([]party{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Beto"}, {ID: "p3", Name: "Caro"}})
	return s
}

func fail[T any](context.Context, T) (T, error) {
	var zero T
	return zero, errRemote
}

// ──────────────────────────────────────────────────────────────────────────────
// Create
// ──────────────────────────────────────────────────────────────────────────────

func TestCreate_ExitoSustituyeElTemporalEnSuLugar(t *testing.T) {
	s := newStore(t, nil)
	inCall := make(chan struct{})
	release := make(chan struct{})

	done := make(chan optimistic.Result[party])
	go func() {
		done <- s.Create(context.Background(), party{Name: "Dora"}, func(_ context.Context, p party) (party, error) {
			close(inCall)
			<-release
			p.ID = "p9"
			return p, nil
		})
	}()
	<-inCall

	items := s.Items()
	require.Len(t, items, 4, "el registro aparece antes de la respuesta remota")
	assert.True(t, items[3].Optimistic)
	assert.True(t, strings.HasPrefix(items[3].Value.ID, optimistic.TempIDPrefix))

	close(release)
	res := <-done
	require.True(t, res.OK())
	assert.Equal(t, "p9", res.Value.ID)

	items = s.Items()
	require.Len(t, items, 4)
	assert.Equal(t, party{ID: "p9", Name: "Dora"}, items[3].Value)
	assert.False(t, items[3].Optimistic)
}

func TestCreate_FalloDejaLaListaIdentica(t *testing.T) {
	s := newStore(t, nil)
	before := s.Items()

	res := s.Create(context.Background(), party{Name: "Dora"}, fail[party])

	assert.Equal(t, optimistic.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrServer)
	assert.Equal(t, before, s.Items(), "la lista debe quedar exactamente como antes")
}

func TestCreate_ValidacionNoLlamaAlServidor(t *testing.T) {
	s := newStore(t, nil)
	before := s.Items()
	var calls int32

	res := s.Create(context.Background(), party{}, func(_ context.Context, p party) (party, error) {
		atomic.AddInt32(&calls, 1)
		return p, nil
	})

	assert.Equal(t, optimistic.OutcomeValidation, res.Outcome)
	assert.ErrorIs(t, res.Err, domain.ErrValidation)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Equal(t, before, s.Items())
}

func TestCreate_FalloConListaModificadaQuitaSoloElTemporal(t *testing.T) {
	s := newStore(t, nil)
	inCall := make(chan struct{})
	release := make(chan struct{})
	done := make(chan optimistic.Result[party])
	go func() {
		done <- s.Create(context.Background(), party{Name: "Dora"}, func(context.Context, party) (party, error) {
			close(inCall)
			<-release
			return party{}, errRemote
		})
	}()
	<-inCall

	// otra mutación confirmada mientras tanto
	res := s.Update(context.Background(), party{ID: "p2", Name: "Beto B."}, func(_ context.Context, p party) (party, error) { return p, nil })
	require.True(t, res.OK())

	close(release)
	require.False(t, (<-done).OK())

	assert.Equal(t, []party{{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Beto B."}, {ID: "p3", Name: "Caro"}}, s.Values())
}

// ──────────────────────────────────────────────────────────────────────────────
// Update
// ──────────────────────────────────────────────────────────────────────────────

func TestUpdate_FalloRestauraElValorExacto(t *testing.T) {
	s := newStore(t, nil)
	before := s.Items()
	inCall := make(chan struct{})
	release := make(chan struct{})
	done := make(chan optimistic.Result[party])

	go func() {
		done <- s.Update(context.Background(), party{ID: "p2", Name: "Roberto"}, func(context.Context, party) (party, error) {
			close(inCall)
			<-release
			return party{}, errRemote
		})
	}()
	<-inCall
	got, _ := s.Get("p2")
	assert.Equal(t, "Roberto", got.Name, "el cambio se ve antes de la respuesta")

	close(release)
	res := <-done
	assert.Equal(t, optimistic.OutcomeFailed, res.Outcome)
	assert.Equal(t, before, s.Items())
}

func TestUpdate_ErrorDeValidacionRemotoEsTriEstado(t *testing.T) {
	s := newStore(t, nil)
	res := s.Update(context.Background(), party{ID: "p1", Name: "Ana María"}, func(context.Context, party) (party, error) {
		return party{}, &domain.RemoteError{Kind: domain.ErrValidation, Status: 400, Message: "nit inválido"}
	})
	assert.Equal(t, optimistic.OutcomeValidation, res.Outcome)
	got, _ := s.Get("p1")
	assert.Equal(t, "Ana", got.Name)
}

func TestUpdate_RegistroInexistente(t *testing.T) {
	s := newStore(t, nil)
	res := s.Update(context.Background(), party{ID: "zz", Name: "x"}, func(_ context.Context, p party) (party, error) { return p, nil })
	assert.ErrorIs(t, res.Err, domain.ErrNotFound)
}

func TestMutate_MismaEntidadSeRechazaDistintasNoSeBloquean(t *testing.T) {
	s := newStore(t, nil)
	inCall := make(chan struct{})
	release := make(chan struct{})
	done := make(chan optimistic.Result[party])
	go func() {
		done <- s.Update(context.Background(), party{ID: "p1", Name: "Ana 1"}, func(_ context.Context, p party) (party, error) {
			close(inCall)
			<-release
			return p, nil
		})
	}()
	<-inCall
	require.True(t, s.Busy("p1"))

	second := s.Update(context.Background(), party{ID: "p1", Name: "Ana 2"}, func(_ context.Context, p party) (party, error) { return p, nil })
	assert.ErrorIs(t, second.Err, domain.ErrMutationInProgress)

	del := s.Delete(context.Background(), "p1", func(context.Context, string) error { return nil })
	assert.ErrorIs(t, del.Err, domain.ErrMutationInProgress)

	other := s.Update(context.Background(), party{ID: "p3", Name: "Carolina"}, func(_ context.Context, p party) (party, error) { return p, nil })
	assert.True(t, other.OK(), "otra entidad no se bloquea")

	close(release)
	require.True(t, (<-done).OK())
	got, _ := s.Get("p1")
	assert.Equal(t, "Ana 1", got.Name)
}

// ──────────────────────────────────────────────────────────────────────────────
// Delete
// ──────────────────────────────────────────────────────────────────────────────

func TestDelete_FalloReinsertaEnSuPosicion(t *testing.T) {
	s := newStore(t, nil)
	before := s.Items()

	res := s.Delete(context.Background(), "p2", func(context.Context, string) error { return errRemote })

	assert.False(t, res.OK())
	assert.Equal(t, before, s.Items())
}

func TestDelete_FalloConListaModificadaReinsertaOrdenado(t *testing.T) {
	s := newStore(t, nil)
	inCall := make(chan struct{})
	release := make(chan struct{})
	done := make(chan optimistic.Result[party])
	go func() {
		done <- s.Delete(context.Background(), "p2", func(context.Context, string) error {
			close(inCall)
			<-release
			return errRemote
		})
	}()
	<-inCall
	require.Len(t, s.Items(), 2)

	s.Replace([]party{{ID: "p3", Name: "Caro"}, {ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Beto"}})
	assert.Len(t, s.Items(), 2, "un borrado en curso no reaparece al refrescar")

	close(release)
	require.False(t, (<-done).OK())
	ids := []string{}
	for _, p := range s.Values() {
		ids = append(ids, p.ID)
	}
	assert.Equal(t, []string{"p2", "p3", "p1"}, ids, "se inserta antes del primer id mayor")
}

func TestDelete_Exito(t *testing.T) {
	s := newStore(t, nil)
	res := s.Delete(context.Background(), "p1", func(context.Context, string) error { return nil })
	require.True(t, res.OK())
	assert.Equal(t, "p1", res.Value.ID)
	_, ok := s.Get("p1")
	assert.False(t, ok)
}

// ──────────────────────────────────────────────────────────────────────────────
// Replace y caché
// ──────────────────────────────────────────────────────────────────────────────

func TestReplace_ConservaCreacionesEnCurso(t *testing.T) {
	s := newStore(t, nil)
	inCall := make(chan struct{})
	release := make(chan struct{})
	done := make(chan optimistic.Result[party])
	go func() {
		done <- s.Create(context.Background(), party{Name: "Dora"}, func(_ context.Context, p party) (party, error) {
			close(inCall)
			<-release
			p.ID = "p4"
			return p, nil
		})
	}()
	<-inCall

	s.Replace([]party{{ID: "p1", Name: "Ana"}})
	items := s.Items()
	require.Len(t, items, 2)
	assert.True(t, items[1].Optimistic)

	close(release)
	require.True(t, (<-done).OK())
	assert.Equal(t, []party{{ID: "p1", Name: "Ana"}, {ID: "p4", Name: "Dora"}}, s.Values())
}

func TestExito_InvalidaLaCache(t *testing.T) {
	c := cache.New(cache.DomainCatalog, cache.NewMemoryStore(time.Minute), nil, nil)
	s := newStore(t, c)
	var loads int32
	load := func(context.Context) ([]string, error) {
		atomic.AddInt32(&loads, 1)
		return []string{"p1"}, nil
	}
	ctx := context.Background()

	_, _ = cache.Fetch(ctx, c, "parties", load)
	_, _ = cache.Fetch(ctx, c, "parties", load)
	require.Equal(t, int32(1), atomic.LoadInt32(&loads))

	res := s.Update(ctx, party{ID: "p1", Name: "Ana B."}, func(_ context.Context, p party) (party, error) { return p, nil })
	require.True(t, res.OK())
	_, _ = cache.Fetch(ctx, c, "parties", load)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads), "una mutación confirmada invalida el dominio")

	failed := s.Update(ctx, party{ID: "p1", Name: "x"}, fail[party])
	require.False(t, failed.OK())
	_, _ = cache.Fetch(ctx, c, "parties", load)
	assert.Equal(t, int32(2), atomic.LoadInt32(&loads), "una mutación revertida no invalida")
}

func TestResult_ErrorNoSeLanza(t *testing.T) {
	s := newStore(t, nil)
	assert.NotPanics(t, func() {
		res := s.Delete(context.Background(), "p1", func(context.Context, string) error { return errors.New("red") })
		assert.Equal(t, optimistic.OutcomeFailed, res.Outcome)
	})
}

func TestUpsert_SustituyeEnSuLugarYAgregaNuevos(t *testing.T) {
	s := newStore(t, nil)
	s.Upsert(party{ID: "p2", Name: "Beto B."}, party{ID: "p4", Name: "Dora"})

	assert.Equal(t, []party{
		{ID: "p1", Name: "Ana"}, {ID: "p2", Name: "Beto B."}, {ID: "p3", Name: "Caro"}, {ID: "p4", Name: "Dora"},
	}, s.Values())
	for _, it := range s.Items() {
		assert.False(t, it.Optimistic, "los registros confirmados no son optimistas")
	}
}
