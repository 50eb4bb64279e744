package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/inventario-sync/internal/application/dto"
	"github.com/jhoicas/inventario-sync/internal/application/lifecycle"
	"github.com/jhoicas/inventario-sync/internal/application/optimistic"
	"github.com/jhoicas/inventario-sync/internal/application/validation"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/domain/inventory"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// ChannelStockChecks canal del listado de conteos.
const ChannelStockChecks = "stock-checks"

// lecturas del libro en paralelo al armar una sesión de conteo
const expectedFetchLimit = 4

var errAlreadyProcessed = errors.New("varianza ya procesada")

// StockCheckUseCase conteos físicos: carga, agrupación por sesión, envío de una sesión
// nueva y procesamiento de varianzas. La lista vive en un store optimista; procesar
// una varianza agrega un ADJUSTMENT en el servidor, así que invalida la caché del libro.
type StockCheckUseCase struct {
	remote StockCheckGateway
	ledger *LedgerUseCase
	lc     *lifecycle.Lifecycle
	store  *optimistic.Store[entity.StockCheckResult]
	loc    *time.Location
	log    *logger.Logger
	now    func() time.Time
}

// NewStockCheckUseCase construye el caso de uso.
func NewStockCheckUseCase(
	remote StockCheckGateway,
	ledger *LedgerUseCase,
	lc *lifecycle.Lifecycle,
	m *metrics.Metrics,
	log *logger.Logger,
) *StockCheckUseCase {
	if log == nil {
		log = logger.Nop()
	}
	store := optimistic.New(optimistic.Config[entity.StockCheckResult]{
		Entity: "stock_check",
		WithID: func(r entity.StockCheckResult, id string) entity.StockCheckResult {
			r.ID = id
			return r
		},
		Cache:   ledger.Cache(),
		Metrics: m,
		Log:     log,
	})
	return &StockCheckUseCase{
		remote: remote,
		ledger: ledger,
		lc:     lc,
		store:  store,
		loc:    time.Local,
		log:    log,
		now:    time.Now,
	}
}

// WithLocation zona horaria de los filtros por fecha.
func (uc *StockCheckUseCase) WithLocation(loc *time.Location) *StockCheckUseCase {
	if loc != nil {
		uc.loc = loc
	}
	return uc
}

// WithClock reemplaza el reloj (tests).
func (uc *StockCheckUseCase) WithClock(now func() time.Time) *StockCheckUseCase {
	uc.now = now
	return uc
}

// Refresh recarga los conteos. Una recarga nueva cancela la anterior y solo la última
// reemplaza la lista.
func (uc *StockCheckUseCase) Refresh(ctx context.Context, f inventory.CheckFilter) ([]entity.StockCheckResult, error) {
	return uc.RefreshFor(ctx, "", f)
}

// RefreshFor como Refresh, en el canal de owner: solo una recarga más nueva del mismo
// dueño la reemplaza.
func (uc *StockCheckUseCase) RefreshFor(ctx context.Context, owner string, f inventory.CheckFilter) ([]entity.StockCheckResult, error) {
	f = uc.withLocation(f)
	return lifecycle.Do(ctx, uc.lc, lifecycle.Scoped(ChannelStockChecks, owner),
		func(ctx context.Context) ([]entity.StockCheckResult, error) {
			rows, err := uc.remote.StockChecks(ctx, f)
			if err != nil {
				return nil, err
			}
			out := make([]entity.StockCheckResult, len(rows))
			for i, r := range rows {
				out[i] = inventory.Reconcile(r)
			}
			return out, nil
		},
		uc.store.Replace)
}

// Rows todas las filas cargadas, en el orden del servidor.
func (uc *StockCheckUseCase) Rows() []entity.StockCheckResult { return uc.store.Values() }

// Row fila cargada por identificador.
func (uc *StockCheckUseCase) Row(id string) (entity.StockCheckResult, bool) { return uc.store.Get(id) }

// Flat vista plana: filtro por fecha y estado, luego texto por producto o referencia.
func (uc *StockCheckUseCase) Flat(f inventory.CheckFilter, query string) []entity.StockCheckResult {
	return uc.FlatOf(uc.Rows(), f, query)
}

// FlatOf vista plana sobre rows (p. ej. las que devolvió RefreshFor).
func (uc *StockCheckUseCase) FlatOf(rows []entity.StockCheckResult, f inventory.CheckFilter, query string) []entity.StockCheckResult {
	return inventory.SearchFlat(inventory.Filter(rows, uc.withLocation(f)), query)
}

// Summaries vista agrupada por sesión; el texto conserva o descarta grupos completos.
func (uc *StockCheckUseCase) Summaries(f inventory.CheckFilter, query string) []entity.StockCheckSummary {
	return uc.SummariesOf(uc.Rows(), f, query)
}

// SummariesOf vista agrupada sobre rows.
func (uc *StockCheckUseCase) SummariesOf(rows []entity.StockCheckResult, f inventory.CheckFilter, query string) []entity.StockCheckSummary {
	return inventory.SearchGroups(inventory.Group(inventory.Filter(rows, uc.withLocation(f))), query)
}

// RequiresAttention filas con diferencia sin procesar.
func (uc *StockCheckUseCase) RequiresAttention() []entity.StockCheckResult {
	return inventory.RequiresAttention(uc.Rows())
}

// UnprocessedCount cantidad de filas que requieren atención.
func (uc *StockCheckUseCase) UnprocessedCount() int { return len(uc.RequiresAttention()) }

// SubmitCount arma una sesión de conteo: lo esperado sale del libro, la varianza y el
// estado se calculan localmente y las filas se envían al servidor.
func (uc *StockCheckUseCase) SubmitCount(ctx context.Context, in dto.SubmitCountRequest) ([]entity.StockCheckResult, error) {
	if err := validation.Merge(validation.Struct(in), duplicatedProducts(in.Counts)); err != nil {
		return nil, err
	}
	ref := strings.TrimSpace(in.CheckReference)
	now := uc.now()
	if ref == "" {
		ref = fmt.Sprintf("SC-%d", now.UnixMilli())
	}

	expected := make([]decimal.Decimal, len(in.Counts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(expectedFetchLimit)
	for i, c := range in.Counts {
		g.Go(func() error {
			v, err := uc.ledger.CurrentStock(gctx, c.ProductID)
			expected[i] = v
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	rows := make([]entity.StockCheckResult, len(in.Counts))
	for i, c := range in.Counts {
		rows[i] = inventory.Reconcile(entity.StockCheckResult{
			CheckReference:   ref,
			ProductID:        c.ProductID,
			ProductName:      c.ProductName,
			ExpectedQuantity: expected[i],
			ActualQuantity:   c.ActualQuantity,
			CheckedBy:        in.CheckedBy,
			CheckTimestamp:   entity.NewTimestamp(now),
		})
	}

	saved, err := uc.remote.SubmitStockCheck(ctx, entity.StockCheckSubmission{
		CheckReference: ref,
		CheckedBy:      in.CheckedBy,
		Items:          rows,
	})
	if err != nil {
		return nil, err
	}
	if len(saved) == 0 {
		return rows, nil
	}
	confirmed := make([]entity.StockCheckResult, 0, len(saved))
	for i, r := range saved {
		saved[i] = inventory.Reconcile(r)
		if saved[i].ID != "" {
			confirmed = append(confirmed, saved[i])
		}
	}
	uc.store.Upsert(confirmed...)
	uc.log.Info().Str("check_reference", ref).Int("items", len(saved)).
		Int("with_variance", len(inventory.RequiresAttention(saved))).
		Msg("conteo registrado")
	return saved, nil
}

// ProcessVariance marca la fila como procesada y pide al servidor el ajuste. Es
// idempotente: una fila ya procesada se devuelve tal cual sin llamar al servidor.
func (uc *StockCheckUseCase) ProcessVariance(ctx context.Context, id, actor string) optimistic.Result[entity.StockCheckResult] {
	if strings.TrimSpace(actor) == "" {
		return optimistic.Result[entity.StockCheckResult]{
			Outcome: optimistic.OutcomeValidation,
			Err:     domain.NewValidationError("processedBy es obligatorio"),
		}
	}
	if cur, ok := uc.store.Get(id); ok && cur.Processed {
		return optimistic.Result[entity.StockCheckResult]{Value: cur, Outcome: optimistic.OutcomeSuccess}
	}

	now := uc.now()
	res := uc.store.Mutate(ctx, id,
		func(cur entity.StockCheckResult) (entity.StockCheckResult, error) {
			if cur.Processed {
				return cur, errAlreadyProcessed
			}
			return inventory.MarkProcessed(cur, actor, now), nil
		},
		func(ctx context.Context, next entity.StockCheckResult) (entity.StockCheckResult, error) {
			saved, err := uc.remote.ProcessStockCheck(ctx, id, actor)
			if err != nil {
				return next, err
			}
			if saved.ID == "" {
				return next, nil
			}
			return inventory.MarkProcessed(inventory.Reconcile(saved), actor, now), nil
		})
	if errors.Is(res.Err, errAlreadyProcessed) {
		return optimistic.Result[entity.StockCheckResult]{Value: res.Value, Outcome: optimistic.OutcomeSuccess}
	}
	if res.OK() {
		uc.log.Info().Str("id", id).Str("processed_by", actor).
			Str("variance", res.Value.Variance.String()).Msg("varianza procesada")
	}
	return res
}

// Close cancela la recarga en curso.
func (uc *StockCheckUseCase) Close() { uc.lc.Cancel(ChannelStockChecks) }

func (uc *StockCheckUseCase) withLocation(f inventory.CheckFilter) inventory.CheckFilter {
	if f.Location == nil {
		f.Location = uc.loc
	}
	return f
}

func duplicatedProducts(counts []entity.StockCount) error {
	seen := make(map[string]bool, len(counts))
	var violations []string
	for i, c := range counts {
		if c.ProductID == "" {
			continue
		}
		if seen[c.ProductID] {
			violations = append(violations, fmt.Sprintf("counts[%d]: el producto %s ya fue contado en esta sesión", i, c.ProductID))
		}
		seen[c.ProductID] = true
	}
	return domain.NewValidationError(violations...)
}
