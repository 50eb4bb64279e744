package entity

import (
	"github.com/shopspring/decimal"
)

// Product representa un producto o SKU del catálogo remoto.
// El stock no vive aquí: se deriva del libro de movimientos.
type Product struct {
	ID           string          `json:"id"`
	SKU          string          `json:"sku" validate:"required,max=100"`
	Name         string          `json:"name" validate:"required,max=200"`
	Description  string          `json:"description"`
	CategoryID   string          `json:"categoryId"`
	Unit         string          `json:"unit" validate:"required"`
	Price        decimal.Decimal `json:"price"`
	Cost         decimal.Decimal `json:"cost"`
	MinimumStock decimal.Decimal `json:"minimumStock"`
	MaximumStock decimal.Decimal `json:"maximumStock"`
	ReorderLevel decimal.Decimal `json:"reorderLevel"`
	Active       bool            `json:"active"`
	UpdatedAt    Timestamp       `json:"updatedAt"`
}

// EntityID identificador para el store optimista.
func (p Product) EntityID() string { return p.ID }

// StockStatus estado de stock de un producto según el servicio remoto.
type StockStatus struct {
	ProductID    string          `json:"productId"`
	CurrentStock decimal.Decimal `json:"currentStock"`
	MinimumStock decimal.Decimal `json:"minimumStock"`
	MaximumStock decimal.Decimal `json:"maximumStock"`
	ReorderLevel decimal.Decimal `json:"reorderLevel"`
	Status       string          `json:"status"`
}
