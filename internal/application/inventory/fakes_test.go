package inventory_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-sync/internal/domain/inventory"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Servicio remoto falso
// ──────────────────────────────────────────────────────────────────────────────

// fakeRemote implementa los gateways del paquete sobre datos en memoria y cuenta
// las llamadas por método.
type fakeRemote struct {
	mu sync.Mutex

	movements []entity.StockMovement
	reported  map[string]decimal.Decimal
	checks    []entity.StockCheckResult
	bills     map[string]entity.ReturnableBill
	products  map[string]entity.Product

	// errores forzados por método
	fail map[string]error
	// bloqueos opcionales por método (se cierra para liberar)
	block map[string]chan struct{}

	calls map[string]int

	submitted []entity.StockCheckSubmission
	returns   []entity.GoodsReturnRequest
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		reported: map[string]decimal.Decimal{},
		bills:    map[string]entity.ReturnableBill{},
		products: map[string]entity.Product{},
		fail:     map[string]error{},
		block:    map[string]chan struct{}{},
		calls:    map[string]int{},
	}
}

func (f *fakeRemote) enter(ctx context.Context, method string) error {
	f.mu.Lock()
	f.calls[method]++
	err := f.fail[method]
	ch := f.block[method]
	f.mu.Unlock()
	if ch != nil {
		select {
		case <-ch:
		case <-ctx.Done():
			return &domain.RemoteError{Kind: domain.ErrNetwork, Message: "petición cancelada", Err: ctx.Err()}
		}
	}
	return err
}

// hold bloquea method hasta que se llame la función devuelta. Solo las llamadas que
// entren mientras está activo quedan retenidas.
func (f *fakeRemote) hold(method string) (release func()) {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block[method] = ch
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.block, method)
		f.mu.Unlock()
		close(ch)
	}
}

// unhold deja de retener llamadas nuevas sin liberar las ya retenidas.
func (f *fakeRemote) unhold(method string) {
	f.mu.Lock()
	delete(f.block, method)
	f.mu.Unlock()
}

func (f *fakeRemote) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[method]
}

func (f *fakeRemote) setFail(method string, err error) {
	f.mu.Lock()
	f.fail[method] = err
	f.mu.Unlock()
}

func (f *fakeRemote) addMovement(m entity.StockMovement) {
	f.mu.Lock()
	f.movements = append(f.movements, m)
	f.mu.Unlock()
}

func (f *fakeRemote) CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	if err := f.enter(ctx, "CurrentStock"); err != nil {
		return decimal.Zero, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reported[productID], nil
}

func (f *fakeRemote) CheckAvailability(ctx context.Context, productID string, required decimal.Decimal) (bool, error) {
	if err := f.enter(ctx, "CheckAvailability"); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return domaininv.CurrentStock(f.movements, productID, time.Now()).GreaterThanOrEqual(required), nil
}

func (f *fakeRemote) MovementsByProduct(ctx context.Context, productID string) ([]entity.StockMovement, error) {
	if err := f.enter(ctx, "MovementsByProduct"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.StockMovement{}
	for _, m := range f.movements {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	domaininv.SortChronological(out)
	return out, nil
}

func (f *fakeRemote) MovementsByDateRange(ctx context.Context, from, to time.Time) ([]entity.StockMovement, error) {
	if err := f.enter(ctx, "MovementsByDateRange"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return domaininv.FilterByRange(f.movements, from, to), nil
}

func (f *fakeRemote) MovementsByType(ctx context.Context, t entity.MovementType, productID, _ string) ([]entity.StockMovement, error) {
	if err := f.enter(ctx, "MovementsByType"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []entity.StockMovement{}
	for _, m := range f.movements {
		if m.MovementType == t && (productID == "" || m.ProductID == productID) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeRemote) appendMovement(productID string, t entity.MovementType, qty decimal.Decimal) []entity.StockMovement {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := entity.StockMovement{
		ID:             "m-" + time.Now().Format("150405.000000000"),
		ProductID:      productID,
		MovementType:   t,
		Quantity:       qty,
		EventTimestamp: entity.NewTimestamp(time.Now().Add(-time.Second)),
	}
	f.movements = append(f.movements, m)
	return []entity.StockMovement{m}
}

func (f *fakeRemote) Adjust(ctx context.Context, req entity.AdjustmentRequest) ([]entity.StockMovement, error) {
	if err := f.enter(ctx, "Adjust"); err != nil {
		return nil, err
	}
	return f.appendMovement(req.ProductID, entity.MovementTypeAdjustment, req.Quantity), nil
}

func (f *fakeRemote) GoodsReceipt(ctx context.Context, req entity.GoodsReceiptRequest) ([]entity.StockMovement, error) {
	if err := f.enter(ctx, "GoodsReceipt"); err != nil {
		return nil, err
	}
	return f.appendMovement(req.ProductID, entity.MovementTypeReceipt, req.Quantity), nil
}

func (f *fakeRemote) Disposal(ctx context.Context, req entity.DisposalRequest) ([]entity.StockMovement, error) {
	if err := f.enter(ctx, "Disposal"); err != nil {
		return nil, err
	}
	return f.appendMovement(req.ProductID, entity.MovementTypeDisposal, req.Quantity.Neg()), nil
}

func (f *fakeRemote) Status(ctx context.Context, productID string) (entity.StockStatus, error) {
	if err := f.enter(ctx, "Status"); err != nil {
		return entity.StockStatus{}, err
	}
	return entity.StockStatus{ProductID: productID, Status: "OK"}, nil
}

func (f *fakeRemote) StockChecks(ctx context.Context, _ domaininv.CheckFilter) ([]entity.StockCheckResult, error) {
	if err := f.enter(ctx, "StockChecks"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.StockCheckResult, len(f.checks))
	copy(out, f.checks)
	return out, nil
}

func (f *fakeRemote) SubmitStockCheck(ctx context.Context, sub entity.StockCheckSubmission) ([]entity.StockCheckResult, error) {
	if err := f.enter(ctx, "SubmitStockCheck"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, sub)
	out := make([]entity.StockCheckResult, len(sub.Items))
	for i, r := range sub.Items {
		r.ID = sub.CheckReference + "-" + r.ProductID
		out[i] = r
		f.checks = append(f.checks, r)
	}
	return out, nil
}

func (f *fakeRemote) ProcessStockCheck(ctx context.Context, id, actor string) (entity.StockCheckResult, error) {
	if err := f.enter(ctx, "ProcessStockCheck"); err != nil {
		return entity.StockCheckResult{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, r := range f.checks {
		if r.ID == id {
			r = domaininv.MarkProcessed(r, actor, time.Now())
			f.checks[i] = r
			return r, nil
		}
	}
	return entity.StockCheckResult{}, &domain.RemoteError{Kind: domain.ErrNotFound, Status: 404, Message: "conteo no encontrado"}
}

func (f *fakeRemote) ReturnableBills(ctx context.Context, query string, page, size int) (entity.Page[entity.ReturnableBill], error) {
	if err := f.enter(ctx, "ReturnableBills"); err != nil {
		return entity.EmptyPage[entity.ReturnableBill](), err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p := entity.EmptyPage[entity.ReturnableBill]()
	for _, b := range f.bills {
		if query == "" || b.BillNumber == query {
			p.Content = append(p.Content, b)
		}
	}
	p.Number, p.Size, p.TotalElements = page, size, int64(len(p.Content))
	return p, nil
}

func (f *fakeRemote) ReturnableBill(ctx context.Context, billID string) (entity.ReturnableBill, error) {
	if err := f.enter(ctx, "ReturnableBill"); err != nil {
		return entity.ReturnableBill{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bills[billID]
	if !ok {
		return entity.ReturnableBill{}, &domain.RemoteError{Kind: domain.ErrNotFound, Status: 404, Message: "factura no encontrada"}
	}
	return b, nil
}

func (f *fakeRemote) CreateGoodsReturn(ctx context.Context, req entity.GoodsReturnRequest) ([]entity.GoodsReturn, error) {
	if err := f.enter(ctx, "CreateGoodsReturn"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.returns = append(f.returns, req)
	g := entity.GoodsReturn{ID: "GR-1", ReturnNumber: "DEV-0001", BillID: req.BillID, Status: "CREATED"}
	for _, l := range req.Lines {
		g.Lines = append(g.Lines, entity.GoodsReturnLine{LineID: l.LineID, ProductID: l.ProductID, Quantity: l.QuantityToReturn, Reason: l.Reason})
	}
	return []entity.GoodsReturn{g}, nil
}

// Get implementa ProductReader.
func (f *fakeRemote) Get(ctx context.Context, id string) (entity.Product, error) {
	if err := f.enter(ctx, "GetProduct"); err != nil {
		return entity.Product{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return entity.Product{}, &domain.RemoteError{Kind: domain.ErrNotFound, Status: 404, Message: "producto no encontrado"}
	}
	return p, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var day = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func mov(id, product string, t entity.MovementType, qty string, at time.Time) entity.StockMovement {
	return entity.StockMovement{
		ID:             id,
		ProductID:      product,
		MovementType:   t,
		Quantity:       d(qty),
		EventTimestamp: entity.NewTimestamp(at),
	}
}

func newCache(t *testing.T, domainName string, ttl time.Duration) *cache.Cache {
	t.Helper()
	return cache.New(domainName, cache.NewMemoryStore(ttl), metrics.New(), logger.Nop())
}

var errServer = &domain.RemoteError{Kind: domain.ErrServer, Status: 500, Message: "falló el servidor"}
