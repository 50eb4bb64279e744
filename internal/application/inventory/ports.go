package inventory

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/domain/inventory"
)

// LedgerGateway lecturas y escrituras del libro de movimientos en el servicio remoto.
// *remote.Client la implementa.
type LedgerGateway interface {
	CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error)
	CheckAvailability(ctx context.Context, productID string, required decimal.Decimal) (bool, error)
	MovementsByProduct(ctx context.Context, productID string) ([]entity.StockMovement, error)
	MovementsByDateRange(ctx context.Context, from, to time.Time) ([]entity.StockMovement, error)
	MovementsByType(ctx context.Context, t entity.MovementType, productID, categoryID string) ([]entity.StockMovement, error)
	Adjust(ctx context.Context, req entity.AdjustmentRequest) ([]entity.StockMovement, error)
	GoodsReceipt(ctx context.Context, req entity.GoodsReceiptRequest) ([]entity.StockMovement, error)
	Disposal(ctx context.Context, req entity.DisposalRequest) ([]entity.StockMovement, error)
	Status(ctx context.Context, productID string) (entity.StockStatus, error)
}

// StockCheckGateway conteos físicos en el servicio remoto.
type StockCheckGateway interface {
	StockChecks(ctx context.Context, f inventory.CheckFilter) ([]entity.StockCheckResult, error)
	SubmitStockCheck(ctx context.Context, sub entity.StockCheckSubmission) ([]entity.StockCheckResult, error)
	ProcessStockCheck(ctx context.Context, id, actor string) (entity.StockCheckResult, error)
}

// ReturnsGateway devoluciones a proveedor y el historial RETURN necesario para los techos.
type ReturnsGateway interface {
	ReturnableBills(ctx context.Context, query string, page, size int) (entity.Page[entity.ReturnableBill], error)
	ReturnableBill(ctx context.Context, billID string) (entity.ReturnableBill, error)
	CreateGoodsReturn(ctx context.Context, req entity.GoodsReturnRequest) ([]entity.GoodsReturn, error)
	MovementsByType(ctx context.Context, t entity.MovementType, productID, categoryID string) ([]entity.StockMovement, error)
}

// ProductReader lectura de un producto por id; la usa la proyección de costo de una
// recepción. *remote.Resource[entity.Product] la implementa.
type ProductReader interface {
	Get(ctx context.Context, id string) (entity.Product, error)
}
