package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/jhoicas/inventario-sync/internal/application/catalog"
	"github.com/jhoicas/inventario-sync/internal/application/inventory"
	"github.com/jhoicas/inventario-sync/internal/application/lifecycle"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/events"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/remote"
	httpRouter "github.com/jhoicas/inventario-sync/internal/interfaces/http"
	"github.com/jhoicas/inventario-sync/pkg/config"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("remote", cfg.Remote.BaseURL).
		Msg("iniciando aplicación")

	// Las fechas sin zona que envía el servidor se leen en esta zona.
	loc, _ := cfg.Sync.Location()
	time.Local = loc

	m := metrics.New()
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	var rdb *redis.Client
	if cfg.Cache.UsesRedis() {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("conexión a Redis")
		}
		defer rdb.Close()
	}
	newCache := func(domain string, ttl time.Duration) *cache.Cache {
		var store cache.Store = cache.NewMemoryStore(ttl)
		if rdb != nil {
			store = cache.NewRedisStore(rdb, cfg.Cache.Namespace+":"+domain, ttl)
		}
		return cache.New(domain, store, m, log)
	}
	ledgerCache := newCache(cache.DomainLedger, cfg.Cache.LedgerTTL)
	lookupCache := newCache(cache.DomainLookup, cfg.Cache.LookupTTL)
	catalogCache := newCache(cache.DomainCatalog, cfg.Cache.CatalogTTL)

	lc := lifecycle.New(ctx, m, log)
	client := remote.New(remote.Config{
		BaseURL: cfg.Remote.BaseURL,
		Timeout: cfg.Remote.Timeout,
	}, remote.NewCredentials(cfg.Remote.Token), m, log)

	shared := catalog.Shared{
		Lifecycle: lc,
		Cache:     catalogCache,
		Quiet:     cfg.Sync.Quiet,
		PageSize:  cfg.Sync.PageSize,
		Metrics:   m,
		Log:       log,
	}
	products := catalog.NewProducts(client.Products(), shared)
	parties := catalog.NewParties(client.Parties(), shared)
	bills := catalog.NewBills(client.Bills(), shared)

	ledgerUC := inventory.NewLedgerUseCase(client, ledgerCache, log).WithProducts(products)
	stockCheckUC := inventory.NewStockCheckUseCase(client, ledgerUC, lc, m, log).WithLocation(loc)
	returnsUC := inventory.NewGoodsReturnUseCase(inventory.GoodsReturnConfig{
		Remote:    client,
		Lifecycle: lc,
		Lookup:    lookupCache,
		Ledger:    ledgerCache,
		Quiet:     cfg.Sync.Quiet,
		PageSize:  cfg.Sync.PageSize,
		Metrics:   m,
		Log:       log,
	})

	// Consumidor opcional: otros clientes agregan movimientos al mismo libro.
	if cfg.Kafka.Enabled() {
		consumer, err := events.NewConsumer(events.Config{
			Brokers: cfg.Kafka.Brokers,
			Topic:   cfg.Kafka.Topic,
			GroupID: cfg.Kafka.GroupID,
		}, events.NewInvalidator(ledgerCache, lookupCache, log), log)
		if err != nil {
			log.Error().Err(err).Msg("consumidor de movimientos deshabilitado")
		} else {
			consumer.Start(ctx)
			defer consumer.Close()
		}
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: cfg.Remote.Timeout + 5*time.Second,
		IdleTimeout:  time.Second * 60,
		// Parámetros y query terminan guardados en los stores optimistas y en la
		// búsqueda vigente; no pueden apuntar al buffer reutilizado de fasthttp.
		Immutable: true,
	})
	app.Use(recover.New())

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:     cfg.App.Name,
		Ledger:      ledgerUC,
		StockChecks: stockCheckUC,
		Returns:     returnsUC,
		Products:    products,
		Parties:     parties,
		Bills:       bills,
		Metrics:     m,
		Credentials: client.Credentials(),
		JWTSecret:   cfg.JWT.Secret,
		Location:    loc,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	// Cancela lecturas y búsquedas diferidas en vuelo; sus resultados ya no se aplican.
	returnsUC.Close()
	stockCheckUC.Close()
	for _, closer := range []func(){products.Close, parties.Close, bills.Close} {
		closer()
	}
	lc.Close()
	stop()

	log.Info().Msg("aplicación detenida")
}
