package inventory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-sync/internal/application/lifecycle"
	"github.com/jhoicas/inventario-sync/internal/application/optimistic"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/domain/inventory"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/cache"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// ChannelReturnableBills canal de la búsqueda de facturas devolvibles.
const ChannelReturnableBills = "returnable-bills"

const (
	defaultBillPageSize = 20
	returnHistoryLimit  = 4
	statusPending       = "PENDING"
)

// GoodsReturnUseCase devoluciones a proveedor: búsqueda de facturas con debounce,
// líneas con su techo de devolución y envío validado con creación optimista.
type GoodsReturnUseCase struct {
	remote      ReturnsGateway
	lc          *lifecycle.Lifecycle
	lookup      *cache.Cache
	ledgerCache *cache.Cache
	store       *optimistic.Store[entity.GoodsReturn]
	searcher    *lifecycle.Searcher[entity.Page[entity.ReturnableBill]]
	pageSize    int
	log         *logger.Logger
	now         func() time.Time

	mu       sync.RWMutex
	bills    entity.Page[entity.ReturnableBill]
	query    string
	selected string
}

// GoodsReturnConfig dependencias del caso de uso.
type GoodsReturnConfig struct {
	Remote    ReturnsGateway
	Lifecycle *lifecycle.Lifecycle
	// Lookup caché de facturas devolvibles (TTL largo); se invalida tras cada devolución.
	Lookup *cache.Cache
	// Ledger caché del libro; una devolución agrega movimientos RETURN.
	Ledger   *cache.Cache
	Quiet    time.Duration
	PageSize int
	Metrics  *metrics.Metrics
	Log      *logger.Logger
}

// NewGoodsReturnUseCase construye el caso de uso.
func NewGoodsReturnUseCase(cfg GoodsReturnConfig) *GoodsReturnUseCase {
	if cfg.Log == nil {
		cfg.Log = logger.Nop()
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultBillPageSize
	}
	uc := &GoodsReturnUseCase{
		remote:      cfg.Remote,
		lc:          cfg.Lifecycle,
		lookup:      cfg.Lookup,
		ledgerCache: cfg.Ledger,
		pageSize:    cfg.PageSize,
		log:         cfg.Log,
		now:         time.Now,
		bills:       entity.EmptyPage[entity.ReturnableBill](),
	}
	uc.store = optimistic.New(optimistic.Config[entity.GoodsReturn]{
		Entity: "goods_return",
		WithID: func(g entity.GoodsReturn, id string) entity.GoodsReturn {
			g.ID = id
			return g
		},
		Cache:   cfg.Lookup,
		Metrics: cfg.Metrics,
		Log:     cfg.Log,
	})
	uc.searcher = lifecycle.NewSearcher(cfg.Lifecycle, ChannelReturnableBills, cfg.Quiet,
		func(ctx context.Context, query string) (entity.Page[entity.ReturnableBill], error) {
			return uc.fetchBills(ctx, query, 0)
		},
		uc.setBills,
	).OnError(func(err error) {
		uc.log.Warn().Err(err).Str("channel", ChannelReturnableBills).Msg("búsqueda de facturas fallida")
	})
	return uc
}

// WithClock reemplaza el reloj (tests).
func (uc *GoodsReturnUseCase) WithClock(now func() time.Time) *GoodsReturnUseCase {
	uc.now = now
	return uc
}

// Search programa la búsqueda tras el silencio del debounce; el resultado vigente
// queda en Bills.
func (uc *GoodsReturnUseCase) Search(query string) error {
	uc.setQuery(query)
	return uc.searcher.Search(query)
}

// SearchNow busca de inmediato (primera página) y anula la búsqueda diferida.
func (uc *GoodsReturnUseCase) SearchNow(ctx context.Context, query string) (entity.Page[entity.ReturnableBill], error) {
	uc.setQuery(query)
	return uc.searcher.SearchNow(ctx, query)
}

// LoadPage carga otra página de la búsqueda actual en el mismo canal.
func (uc *GoodsReturnUseCase) LoadPage(ctx context.Context, page int) (entity.Page[entity.ReturnableBill], error) {
	uc.lc.StopDebounce(ChannelReturnableBills)
	query := uc.Query()
	return lifecycle.Do(ctx, uc.lc, ChannelReturnableBills,
		func(ctx context.Context) (entity.Page[entity.ReturnableBill], error) {
			return uc.fetchBills(ctx, query, page)
		},
		uc.setBills)
}

// BillsFor busca una página de facturas devolvibles en el canal de owner. Cada
// llamada trae su propia consulta; solo una búsqueda más nueva del mismo dueño la anula.
func (uc *GoodsReturnUseCase) BillsFor(ctx context.Context, owner, query string, page int) (entity.Page[entity.ReturnableBill], error) {
	query = strings.TrimSpace(query)
	if page < 0 {
		page = 0
	}
	channel := lifecycle.Scoped(ChannelReturnableBills, owner)
	uc.lc.StopDebounce(channel)
	return lifecycle.Do(ctx, uc.lc, channel,
		func(ctx context.Context) (entity.Page[entity.ReturnableBill], error) {
			return uc.fetchBills(ctx, query, page)
		},
		func(p entity.Page[entity.ReturnableBill]) {
			uc.setQuery(query)
			uc.setBills(p)
		})
}

// Bills página vigente de facturas devolvibles.
func (uc *GoodsReturnUseCase) Bills() entity.Page[entity.ReturnableBill] {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.bills
}

// Query texto de la última búsqueda.
func (uc *GoodsReturnUseCase) Query() string {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.query
}

// Select fija la factura seleccionada; Submit la usa cuando la solicitud no trae billId.
func (uc *GoodsReturnUseCase) Select(billID string) {
	uc.mu.Lock()
	uc.selected = strings.TrimSpace(billID)
	uc.mu.Unlock()
}

// Selected factura seleccionada.
func (uc *GoodsReturnUseCase) Selected() string {
	uc.mu.RLock()
	defer uc.mu.RUnlock()
	return uc.selected
}

// Returns devoluciones creadas en esta sesión (incluye las que están en vuelo).
func (uc *GoodsReturnUseCase) Returns() []optimistic.Item[entity.GoodsReturn] { return uc.store.Items() }

// ReturnableLines líneas de la factura con su techo. Si el detalle no trae lo ya
// devuelto, se suma desde los movimientos RETURN que referencian la factura.
func (uc *GoodsReturnUseCase) ReturnableLines(ctx context.Context, billID string) ([]entity.ReturnableLine, error) {
	billID = strings.TrimSpace(billID)
	if billID == "" {
		return nil, domain.NewValidationError("debe seleccionar una factura")
	}
	bill, err := cache.Fetch(ctx, uc.lookup, cache.Key("returnable-bill", billID),
		func(ctx context.Context) (entity.ReturnableBill, error) {
			return uc.remote.ReturnableBill(ctx, billID)
		})
	if err != nil {
		return nil, err
	}
	if !needsReturnHistory(bill.Lines) {
		return inventory.ComputeCaps(bill.Lines), nil
	}
	returned, err := uc.returnedFor(ctx, billID, bill.Lines)
	if err != nil {
		return nil, err
	}
	return inventory.ApplyReturned(bill.Lines, returned), nil
}

// Submit valida la devolución contra los techos y la crea de forma optimista. Las
// reglas que no dependen de la factura se revisan antes de cualquier llamada remota.
// Un 409 (devolución duplicada) llega como fallo con domain.ErrConflict y no se reintenta.
func (uc *GoodsReturnUseCase) Submit(ctx context.Context, req entity.GoodsReturnRequest, selectedBillID string) optimistic.Result[entity.GoodsReturn] {
	if strings.TrimSpace(selectedBillID) == "" {
		selectedBillID = uc.Selected()
	}
	req.BillID = inventory.EffectiveBillID(req.BillID, selectedBillID)
	if err := inventory.PrecheckReturn(req); err != nil {
		return invalid(err)
	}

	lines, err := uc.ReturnableLines(ctx, req.BillID)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return invalid(err)
		}
		return optimistic.Result[entity.GoodsReturn]{Outcome: optimistic.OutcomeFailed, Err: err}
	}
	if err := inventory.ValidateReturn(req, lines); err != nil {
		return invalid(err)
	}

	req.Lines = qualifyingLines(req.Lines)
	draft := entity.GoodsReturn{
		BillID:    req.BillID,
		Status:    statusPending,
		Notes:     req.Notes,
		Lines:     make([]entity.GoodsReturnLine, len(req.Lines)),
		CreatedAt: entity.NewTimestamp(uc.now()),
	}
	for i, l := range req.Lines {
		draft.Lines[i] = entity.GoodsReturnLine{LineID: l.LineID, ProductID: l.ProductID, Quantity: l.QuantityToReturn, Reason: l.Reason}
	}

	var extra []entity.GoodsReturn
	res := uc.store.Create(ctx, draft, func(ctx context.Context, d entity.GoodsReturn) (entity.GoodsReturn, error) {
		created, err := uc.remote.CreateGoodsReturn(ctx, req)
		if err != nil {
			return d, err
		}
		if len(created) == 0 {
			return d, nil
		}
		extra = created[1:]
		return created[0], nil
	})
	if !res.OK() {
		return res
	}
	uc.store.Upsert(extra...)
	if uc.ledgerCache != nil {
		if err := uc.ledgerCache.InvalidateAll(ctx); err != nil {
			uc.log.Warn().Err(err).Str("bill_id", req.BillID).Msg("libro sin invalidar, vence por TTL")
		}
	}
	uc.log.Info().Str("bill_id", req.BillID).Str("return_id", res.Value.ID).
		Int("lines", len(req.Lines)).Msg("devolución registrada")
	return res
}

// Close cancela la búsqueda en curso y la diferida.
func (uc *GoodsReturnUseCase) Close() { uc.lc.Cancel(ChannelReturnableBills) }

func (uc *GoodsReturnUseCase) fetchBills(ctx context.Context, query string, page int) (entity.Page[entity.ReturnableBill], error) {
	params := struct {
		Query string `json:"query"`
		Page  int    `json:"page"`
		Size  int    `json:"size"`
	}{strings.TrimSpace(query), page, uc.pageSize}
	return cache.Fetch(ctx, uc.lookup, cache.Key("returnable-bills", params),
		func(ctx context.Context) (entity.Page[entity.ReturnableBill], error) {
			return uc.remote.ReturnableBills(ctx, params.Query, params.Page, params.Size)
		})
}

func (uc *GoodsReturnUseCase) setBills(p entity.Page[entity.ReturnableBill]) {
	uc.mu.Lock()
	uc.bills = p
	uc.mu.Unlock()
}

func (uc *GoodsReturnUseCase) setQuery(q string) {
	uc.mu.Lock()
	uc.query = q
	uc.mu.Unlock()
}

// returnedFor suma los RETURN de la factura consultando cada producto en paralelo.
func (uc *GoodsReturnUseCase) returnedFor(ctx context.Context, billID string, lines []entity.ReturnableLine) (map[string]decimal.Decimal, error) {
	products := make([]string, 0, len(lines))
	seen := make(map[string]bool, len(lines))
	for _, l := range lines {
		if !seen[l.ProductID] {
			seen[l.ProductID] = true
			products = append(products, l.ProductID)
		}
	}

	var (
		mu  sync.Mutex
		all []entity.StockMovement
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(returnHistoryLimit)
	for _, productID := range products {
		g.Go(func() error {
			movs, err := cache.Fetch(gctx, uc.ledgerCache, movementsByTypeKey(entity.MovementTypeReturn, productID, ""),
				func(ctx context.Context) ([]entity.StockMovement, error) {
					return uc.remote.MovementsByType(ctx, entity.MovementTypeReturn, productID, "")
				})
			if err != nil {
				return &domain.LedgerReadError{ProductID: productID, Err: err}
			}
			mu.Lock()
			all = append(all, movs...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return inventory.ReturnedByProduct(all, billID), nil
}

// needsReturnHistory el servidor no calculó lo devuelto: hay recibido pero ni
// devuelto ni techo.
func needsReturnHistory(lines []entity.ReturnableLine) bool {
	for _, l := range lines {
		if l.ReceivedQuantity.IsPositive() && l.ReturnedQuantity.IsZero() && l.MaxQuantity.IsZero() {
			return true
		}
	}
	return false
}

func qualifyingLines(lines []entity.ReturnLineRequest) []entity.ReturnLineRequest {
	out := make([]entity.ReturnLineRequest, 0, len(lines))
	for _, l := range lines {
		if l.QuantityToReturn.IsPositive() {
			out = append(out, l)
		}
	}
	return out
}

func invalid(err error) optimistic.Result[entity.GoodsReturn] {
	return optimistic.Result[entity.GoodsReturn]{Outcome: optimistic.OutcomeValidation, Err: err}
}
