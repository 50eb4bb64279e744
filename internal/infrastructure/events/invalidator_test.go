package events_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/events"
)

// loads cuenta cuántas veces se fue al origen para la clave k.
type loads struct{ n int }

func (l *loads) fetch(t *testing.T, c *cache.Cache, k string) {
	t.Helper()
	_, err := cache.Fetch(context.Background(), c, k, func(context.Context) (int, error) {
		l.n++
		return l.n, nil
	})
	require.NoError(t, err)
}

func caches() (*cache.Cache, *cache.Cache) {
	ledger := cache.New(cache.DomainLedger, cache.NewMemoryStore(time.Minute), nil, nil)
	lookup := cache.New(cache.DomainLookup, cache.NewMemoryStore(time.Minute), nil, nil)
	return ledger, lookup
}

func TestInvalidator_VentaSoloInvalidaElLibro(t *testing.T) {
	ledger, lookup := caches()
	inv := events.NewInvalidator(ledger, lookup, nil)
	var l, b loads
	l.fetch(t, ledger, "movs")
	b.fetch(t, lookup, "bills")

	ev, err := inv.Handle(context.Background(), []byte(`{"id":"9","productId":"P","movementType":"sale"}`))
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeSale, ev.MovementType, "el tipo se normaliza a mayúsculas")

	l.fetch(t, ledger, "movs")
	b.fetch(t, lookup, "bills")
	assert.Equal(t, 2, l.n, "el libro se vuelve a leer")
	assert.Equal(t, 1, b.n, "las facturas siguen en caché")
}

func TestInvalidator_DevolucionInvalidaAmbas(t *testing.T) {
	for _, mt := range []string{"RETURN", "RECEIPT"} {
		t.Run(mt, func(t *testing.T) {
			ledger, lookup := caches()
			inv := events.NewInvalidator(ledger, lookup, nil)
			var l, b loads
			l.fetch(t, ledger, "movs")
			b.fetch(t, lookup, "bills")

			_, err := inv.Handle(context.Background(), []byte(`{"productId":"P","movementType":"`+mt+`"}`))
			require.NoError(t, err)

			l.fetch(t, ledger, "movs")
			b.fetch(t, lookup, "bills")
			assert.Equal(t, 2, l.n)
			assert.Equal(t, 2, b.n)
		})
	}
}

func TestInvalidator_MensajeIlegibleIgualInvalidaElLibro(t *testing.T) {
	ledger, lookup := caches()
	inv := events.NewInvalidator(ledger, lookup, nil)
	var l, b loads
	l.fetch(t, ledger, "movs")
	b.fetch(t, lookup, "bills")

	_, err := inv.Handle(context.Background(), []byte(`no-es-json`))
	require.Error(t, err)

	l.fetch(t, ledger, "movs")
	b.fetch(t, lookup, "bills")
	assert.Equal(t, 2, l.n, "ante la duda el libro se descarta")
	assert.Equal(t, 1, b.n)
}

func TestInvalidator_SinCacheDeFacturas(t *testing.T) {
	ledger, _ := caches()
	inv := events.NewInvalidator(ledger, nil, nil)
	_, err := inv.Handle(context.Background(), []byte(`{"productId":"P","movementType":"RETURN"}`))
	assert.NoError(t, err)
}
