package dto

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// StockResponse stock de un producto derivado del libro de movimientos.
type StockResponse struct {
	ProductID    string          `json:"productId"`
	CurrentStock decimal.Decimal `json:"currentStock"`
}

// DriftResponse compara la suma local del libro contra lo que reporta el servidor.
type DriftResponse struct {
	ProductID string          `json:"productId"`
	Folded    decimal.Decimal `json:"folded"`
	Reported  decimal.Decimal `json:"reported"`
	Drift     decimal.Decimal `json:"drift"` // folded - reported; cero si son consistentes
}

// MovementResponse movimiento con su magnitud lista para mostrar.
type MovementResponse struct {
	entity.StockMovement
	Display entity.DisplayQuantity `json:"display"`
}

// HistoryResponse historial de un producto con totales por tipo.
type HistoryResponse struct {
	ProductID    string                                  `json:"productId"`
	CurrentStock decimal.Decimal                         `json:"currentStock"`
	Movements    []MovementResponse                      `json:"movements"`
	Totals       map[entity.MovementType]decimal.Decimal `json:"totals"`
}

// ReceiptResponse resultado de una recepción. ProjectedCost es el costo promedio
// ponderado esperado tras la entrada; nil si no se pudo calcular.
type ReceiptResponse struct {
	Movements     []entity.StockMovement `json:"movements"`
	ProjectedCost *decimal.Decimal       `json:"projectedCost,omitempty"`
}

// AvailabilityResponse resultado de GET /api/stock/availability.
type AvailabilityResponse struct {
	ProductID string          `json:"productId"`
	Required  decimal.Decimal `json:"required"`
	Available bool            `json:"available"`
}
