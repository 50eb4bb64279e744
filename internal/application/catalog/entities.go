package catalog

import (
	"time"

	"github.com/jhoicas/inventario-sync/internal/application/lifecycle"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// Nombres de entidad del catálogo.
const (
	EntityProduct = "product"
	EntityParty   = "party"
	EntityBill    = "bill"
)

// Shared dependencias comunes a los tres managers.
type Shared struct {
	Lifecycle *lifecycle.Lifecycle
	Cache     *cache.Cache
	Quiet     time.Duration
	PageSize  int
	Metrics   *metrics.Metrics
	Log       *logger.Logger
}

// NewProducts manager de productos.
func NewProducts(res Resource[entity.Product], d Shared) *Manager[entity.Product] {
	return New(Config[entity.Product]{
		Entity:   EntityProduct,
		Resource: res,
		WithID:   WithProductID,
	}.with(d))
}

// NewParties manager de terceros.
func NewParties(res Resource[entity.Party], d Shared) *Manager[entity.Party] {
	return New(Config[entity.Party]{
		Entity:   EntityParty,
		Resource: res,
		WithID:   WithPartyID,
	}.with(d))
}

// NewBills manager de facturas.
func NewBills(res Resource[entity.Bill], d Shared) *Manager[entity.Bill] {
	return New(Config[entity.Bill]{
		Entity:   EntityBill,
		Resource: res,
		WithID:   WithBillID,
	}.with(d))
}

// with completa la configuración con las dependencias compartidas.
func (cfg Config[T]) with(d Shared) Config[T] {
	cfg.Lifecycle = d.Lifecycle
	cfg.Cache = d.Cache
	cfg.Quiet = d.Quiet
	cfg.PageSize = d.PageSize
	cfg.Metrics = d.Metrics
	cfg.Log = d.Log
	return cfg
}

// WithProductID copia del producto con el identificador dado.
func WithProductID(p entity.Product, id string) entity.Product {
	p.ID = id
	return p
}

// WithPartyID copia del tercero con el identificador dado.
func WithPartyID(p entity.Party, id string) entity.Party {
	p.ID = id
	return p
}

// WithBillID copia de la factura con el identificador dado.
func WithBillID(b entity.Bill, id string) entity.Bill {
	b.ID = id
	return b
}
