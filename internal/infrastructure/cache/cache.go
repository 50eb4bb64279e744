package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// Dominios de caché usados por la aplicación.
const (
	DomainLedger  = "ledger"
	DomainLookup  = "lookup"
	DomainCatalog = "catalog"
)

// Cache servicio de caché de un dominio: un Store más coalescencia de fallos
// concurrentes con la misma clave. Cada componente recibe su instancia.
type Cache struct {
	domain  string
	store   Store
	group   singleflight.Group
	gen     atomic.Uint64
	metrics *metrics.Metrics
	log     *logger.Logger
}

// New crea la caché del dominio sobre el almacén dado.
func New(domain string, store Store, m *metrics.Metrics, log *logger.Logger) *Cache {
	if log == nil {
		log = logger.Nop()
	}
	return &Cache{domain: domain, store: store, metrics: m, log: log}
}

// Domain nombre del dominio (para logs y métricas).
func (c *Cache) Domain() string { return c.domain }

// InvalidateAll descarta todo el dominio. Se llama después de cualquier mutación.
// Las cargas en vuelo iniciadas antes no guardan su resultado. La mutación ya ocurrió:
// la cancelación de ctx no detiene la invalidación.
func (c *Cache) InvalidateAll(ctx context.Context) error {
	c.gen.Add(1)
	if err := c.store.InvalidateAll(context.WithoutCancel(ctx)); err != nil {
		c.log.Error().Err(err).Str("cache_domain", c.domain).Msg("no se pudo invalidar la caché")
		return err
	}
	c.log.Debug().Str("cache_domain", c.domain).Msg("caché invalidada")
	return nil
}

// Fetch devuelve el valor de la clave o lo carga con load y lo guarda.
// Cargas concurrentes de la misma clave comparten una sola llamada.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return load(ctx)
	}

	if raw, ok, err := c.store.Get(ctx, key); err != nil {
		c.log.Warn().Err(err).Str("cache_domain", c.domain).Msg("lectura de caché fallida, se consulta el origen")
	} else if ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			c.metrics.CacheRequest(c.domain, metrics.ResultHit)
			return v, nil
		}
	}
	c.metrics.CacheRequest(c.domain, metrics.ResultMiss)

	gen := c.gen.Load()
	flightKey := fmt.Sprintf("%d|%s", gen, key)
	resCh := c.group.DoChan(flightKey, func() (interface{}, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("cache %s: serializar: %w", c.domain, err)
		}
		if c.gen.Load() == gen {
			if err := c.store.Set(ctx, key, raw); err != nil {
				c.log.Warn().Err(err).Str("cache_domain", c.domain).Msg("no se pudo guardar en caché")
			}
		}
		return raw, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-resCh:
	}

	// La llamada compartida pertenecía a otro llamador cuyo contexto se canceló;
	// este contexto sigue vivo, así que carga por su cuenta.
	if res.Err != nil && res.Shared && isContextErr(res.Err) && ctx.Err() == nil {
		return load(ctx)
	}
	if res.Err != nil {
		return zero, res.Err
	}
	var v T
	if err := json.Unmarshal(res.Val.([]byte), &v); err != nil {
		return zero, fmt.Errorf("cache %s: deserializar: %w", c.domain, err)
	}
	return v, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
