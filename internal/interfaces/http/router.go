package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/jhoicas/inventario-sync/internal/application/catalog"
	"github.com/jhoicas/inventario-sync/internal/application/inventory"
	"github.com/jhoicas/inventario-sync/internal/application/optimistic"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/remote"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName     string
	Ledger      *inventory.LedgerUseCase
	StockChecks *inventory.StockCheckUseCase
	Returns     *inventory.GoodsReturnUseCase
	Products    *catalog.Manager[entity.Product]
	Parties     *catalog.Manager[entity.Party]
	Bills       *catalog.Manager[entity.Bill]
	Metrics     *metrics.Metrics
	Credentials *remote.Credentials
	JWTSecret   string
	Location    *time.Location
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	// Públicas
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	// Rutas protegidas (requieren Bearer Token)
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))
	writers := RequireRole(RoleAdmin, RoleBodeguero)
	admins := RequireRole(RoleAdmin)

	// Libro de movimientos
	var products inventory.ProductReader
	if deps.Products != nil {
		products = deps.Products
	}
	stock := api.Group("/stock")
	inventoryHandler := NewInventoryHandler(deps.Ledger, products, deps.Location)
	stock.Get("/current/:productId", inventoryHandler.CurrentStock)
	stock.Get("/drift/:productId", inventoryHandler.Drift)
	stock.Get("/status/:productId", inventoryHandler.Status)
	stock.Get("/availability", inventoryHandler.Availability)
	stock.Get("/movements/product/:productId", inventoryHandler.History)
	stock.Get("/movements/date-range", inventoryHandler.ByDateRange)
	stock.Get("/movements/type/:type", inventoryHandler.ByType)
	stock.Post("/adjust", writers, inventoryHandler.Adjust)
	stock.Post("/goods-receipt", writers, inventoryHandler.GoodsReceipt)
	stock.Post("/disposals", writers, inventoryHandler.Disposal)

	// Conteos físicos
	checks := api.Group("/stock-checks")
	checkHandler := NewStockCheckHandler(deps.StockChecks, deps.Location)
	checks.Get("/", checkHandler.Grouped)
	checks.Get("/flat", checkHandler.Flat)
	checks.Get("/attention", checkHandler.Attention)
	checks.Post("/", writers, checkHandler.Submit)
	checks.Post("/:id/process", admins, checkHandler.Process)

	// Devoluciones a proveedor
	returns := api.Group("/goods-returns")
	returnHandler := NewGoodsReturnHandler(deps.Returns)
	returns.Get("/", returnHandler.List)
	returns.Get("/bills", returnHandler.Bills)
	returns.Get("/bills/:id/lines", returnHandler.Lines)
	returns.Post("/", writers, returnHandler.Submit)

	// Credencial del servicio remoto
	if deps.Credentials != nil {
		session := api.Group("/session", admins)
		authHandler := NewAuthHandler(deps.Credentials)
		session.Get("/remote-token", authHandler.RemoteToken)
		session.Put("/remote-token", authHandler.SetRemoteToken)
		session.Delete("/remote-token", authHandler.ClearRemoteToken)
	}

	// Catálogo
	if deps.Products != nil {
		registerCatalog(api.Group("/products"), NewCatalogHandler(deps.Products, catalog.WithProductID), admins)
	}
	if deps.Parties != nil {
		registerCatalog(api.Group("/parties"), NewCatalogHandler(deps.Parties, catalog.WithPartyID), admins)
	}
	if deps.Bills != nil {
		registerCatalog(api.Group("/bills"), NewCatalogHandler(deps.Bills, catalog.WithBillID), writers)
	}
}

func registerCatalog[T optimistic.Entity](g fiber.Router, h *CatalogHandler[T], write fiber.Handler) {
	g.Get("/", h.List)
	g.Get("/:id", h.GetByID)
	g.Post("/", write, h.Create)
	g.Put("/:id", write, h.Update)
	g.Delete("/:id", write, h.Delete)
}
