package inventory

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-sync/internal/application/validation"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/domain/inventory"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// LedgerUseCase lecturas del libro de movimientos (con caché del dominio ledger) y
// escrituras que agregan movimientos. Toda escritura confirmada invalida la caché
// completa del dominio.
type LedgerUseCase struct {
	remote   LedgerGateway
	cache    *cache.Cache
	products ProductReader
	log      *logger.Logger
	now      func() time.Time
}

// NewLedgerUseCase construye el caso de uso. c puede ser nil (sin caché).
func NewLedgerUseCase(remote LedgerGateway, c *cache.Cache, log *logger.Logger) *LedgerUseCase {
	if log == nil {
		log = logger.Nop()
	}
	return &LedgerUseCase{remote: remote, cache: c, log: log, now: time.Now}
}

// WithProducts habilita la proyección del costo promedio en GoodsReceipt.
func (uc *LedgerUseCase) WithProducts(p ProductReader) *LedgerUseCase {
	uc.products = p
	return uc
}

// WithClock reemplaza el reloj (tests).
func (uc *LedgerUseCase) WithClock(now func() time.Time) *LedgerUseCase {
	uc.now = now
	return uc
}

// Cache caché del dominio ledger; otros casos de uso la invalidan cuando su mutación
// agrega movimientos.
func (uc *LedgerUseCase) Cache() *cache.Cache { return uc.cache }

// History movimientos del producto en orden cronológico. Un producto sin movimientos
// devuelve lista vacía; un fallo de lectura devuelve *domain.LedgerReadError.
func (uc *LedgerUseCase) History(ctx context.Context, productID string) ([]entity.StockMovement, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, domain.NewValidationError("productId es obligatorio")
	}
	movs, err := cache.Fetch(ctx, uc.cache, cache.Key("movements.product", productID),
		func(ctx context.Context) ([]entity.StockMovement, error) {
			return uc.remote.MovementsByProduct(ctx, productID)
		})
	if err != nil {
		return nil, &domain.LedgerReadError{ProductID: productID, Err: err}
	}
	if movs == nil {
		movs = []entity.StockMovement{}
	}
	return movs, nil
}

// CurrentStock suma con signo de todos los movimientos del producto hasta ahora.
func (uc *LedgerUseCase) CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	movs, err := uc.History(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return inventory.CurrentStock(movs, productID, uc.now()), nil
}

// ReportedStock stock que informa el servidor (/stock/current).
func (uc *LedgerUseCase) ReportedStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return decimal.Zero, domain.NewValidationError("productId es obligatorio")
	}
	return cache.Fetch(ctx, uc.cache, cache.Key("stock.current", productID),
		func(ctx context.Context) (decimal.Decimal, error) {
			return uc.remote.CurrentStock(ctx, productID)
		})
}

// Drift diferencia entre la suma local del libro y el stock reportado. Cero cuando
// ambos son consistentes.
type Drift struct {
	ProductID string
	Folded    decimal.Decimal
	Reported  decimal.Decimal
}

// Value folded - reported.
func (d Drift) Value() decimal.Decimal { return d.Folded.Sub(d.Reported) }

// Drift consulta ambas fuentes en paralelo.
func (uc *LedgerUseCase) Drift(ctx context.Context, productID string) (Drift, error) {
	d := Drift{ProductID: productID}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := uc.CurrentStock(gctx, productID)
		d.Folded = v
		return err
	})
	g.Go(func() error {
		v, err := uc.ReportedStock(gctx, productID)
		d.Reported = v
		return err
	})
	if err := g.Wait(); err != nil {
		return Drift{ProductID: productID}, err
	}
	if !d.Value().IsZero() {
		uc.log.Warn().Str("product_id", productID).
			Str("folded", d.Folded.String()).Str("reported", d.Reported.String()).
			Msg("el stock reportado no coincide con el libro")
	}
	return d, nil
}

// ByDateRange movimientos con fecha entre from y to, en orden cronológico.
func (uc *LedgerUseCase) ByDateRange(ctx context.Context, from, to time.Time) ([]entity.StockMovement, error) {
	var violations []string
	if from.IsZero() {
		violations = append(violations, "startDate es obligatorio")
	}
	if to.IsZero() {
		violations = append(violations, "endDate es obligatorio")
	}
	if !from.IsZero() && !to.IsZero() && to.Before(from) {
		violations = append(violations, "endDate no puede ser anterior a startDate")
	}
	if err := domain.NewValidationError(violations...); err != nil {
		return nil, err
	}
	params := struct {
		From time.Time `json:"from"`
		To   time.Time `json:"to"`
	}{from.UTC(), to.UTC()}
	movs, err := cache.Fetch(ctx, uc.cache, cache.Key("movements.range", params),
		func(ctx context.Context) ([]entity.StockMovement, error) {
			return uc.remote.MovementsByDateRange(ctx, from, to)
		})
	if err != nil {
		return nil, &domain.LedgerReadError{Err: err}
	}
	return inventory.FilterByRange(movs, time.Time{}, time.Time{}), nil
}

// ByType movimientos de un tipo; productID y categoryID son filtros opcionales.
func (uc *LedgerUseCase) ByType(ctx context.Context, t entity.MovementType, productID, categoryID string) ([]entity.StockMovement, error) {
	if !t.Valid() {
		return nil, domain.NewValidationError("tipo de movimiento inválido: " + string(t))
	}
	movs, err := cache.Fetch(ctx, uc.cache, movementsByTypeKey(t, productID, categoryID),
		func(ctx context.Context) ([]entity.StockMovement, error) {
			return uc.remote.MovementsByType(ctx, t, productID, categoryID)
		})
	if err != nil {
		return nil, &domain.LedgerReadError{ProductID: productID, Err: err}
	}
	return inventory.FilterByType(movs, t), nil
}

// Status estado de stock según el servidor.
func (uc *LedgerUseCase) Status(ctx context.Context, productID string) (entity.StockStatus, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return entity.StockStatus{}, domain.NewValidationError("productId es obligatorio")
	}
	return cache.Fetch(ctx, uc.cache, cache.Key("stock.status", productID),
		func(ctx context.Context) (entity.StockStatus, error) {
			return uc.remote.Status(ctx, productID)
		})
}

// CheckAvailability indica si hay al menos required unidades disponibles.
func (uc *LedgerUseCase) CheckAvailability(ctx context.Context, productID string, required decimal.Decimal) (bool, error) {
	var violations []string
	if strings.TrimSpace(productID) == "" {
		violations = append(violations, "productId es obligatorio")
	}
	if required.IsNegative() {
		violations = append(violations, "requiredQuantity no puede ser negativo")
	}
	if err := domain.NewValidationError(violations...); err != nil {
		return false, err
	}
	key := cache.Key("stock.availability", []string{productID, required.String()})
	return cache.Fetch(ctx, uc.cache, key, func(ctx context.Context) (bool, error) {
		return uc.remote.CheckAvailability(ctx, productID, required)
	})
}

// Adjust agrega un ADJUSTMENT con la cantidad con signo indicada.
func (uc *LedgerUseCase) Adjust(ctx context.Context, req entity.AdjustmentRequest) ([]entity.StockMovement, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	movs, err := uc.remote.Adjust(ctx, req)
	if err != nil {
		return nil, err
	}
	uc.written(ctx, "adjust", req.ProductID, req.Quantity)
	return movs, nil
}

// Receipt resultado de una recepción. ProjectedCost es el costo promedio ponderado
// esperado tras la entrada; Projected=false si no se pudo calcular.
type Receipt struct {
	Movements     []entity.StockMovement
	ProjectedCost decimal.Decimal
	Projected     bool
}

// GoodsReceipt registra una entrada de mercancía. La proyección de costo se calcula
// con el stock del libro antes de la entrada y no bloquea la operación si falla.
func (uc *LedgerUseCase) GoodsReceipt(ctx context.Context, req entity.GoodsReceiptRequest) (Receipt, error) {
	if err := validation.Struct(req); err != nil {
		return Receipt{}, err
	}
	var out Receipt
	out.ProjectedCost, out.Projected = uc.projectCost(ctx, req)

	movs, err := uc.remote.GoodsReceipt(ctx, req)
	if err != nil {
		return Receipt{}, err
	}
	out.Movements = movs
	uc.written(ctx, "goods_receipt", req.ProductID, req.Quantity)
	return out, nil
}

// Disposal da de baja mercancía (el servidor registra la salida).
func (uc *LedgerUseCase) Disposal(ctx context.Context, req entity.DisposalRequest) ([]entity.StockMovement, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	movs, err := uc.remote.Disposal(ctx, req)
	if err != nil {
		return nil, err
	}
	uc.written(ctx, "disposal", req.ProductID, req.Quantity.Neg())
	return movs, nil
}

func (uc *LedgerUseCase) projectCost(ctx context.Context, req entity.GoodsReceiptRequest) (decimal.Decimal, bool) {
	if uc.products == nil {
		return decimal.Zero, false
	}
	stock, err := uc.CurrentStock(ctx, req.ProductID)
	if err != nil {
		uc.log.Debug().Err(err).Str("product_id", req.ProductID).Msg("sin proyección de costo: stock ilegible")
		return decimal.Zero, false
	}
	product, err := uc.products.Get(ctx, req.ProductID)
	if err != nil {
		uc.log.Debug().Err(err).Str("product_id", req.ProductID).Msg("sin proyección de costo: producto ilegible")
		return decimal.Zero, false
	}
	return inventory.ProjectedCost(stock, product.Cost, req.Quantity, req.UnitCost), true
}

// written invalida la caché del libro tras una escritura confirmada.
func (uc *LedgerUseCase) written(ctx context.Context, op, productID string, delta decimal.Decimal) {
	if uc.cache != nil {
		if err := uc.cache.InvalidateAll(ctx); err != nil {
			uc.log.Warn().Err(err).Str("op", op).Str("product_id", productID).Msg("libro sin invalidar, vence por TTL")
		}
	}
	uc.log.Info().Str("op", op).Str("product_id", productID).Str("quantity", delta.String()).
		Msg("movimiento registrado")
}

func movementsByTypeKey(t entity.MovementType, productID, categoryID string) string {
	return cache.Key("movements.type", []string{string(t), productID, categoryID})
}
