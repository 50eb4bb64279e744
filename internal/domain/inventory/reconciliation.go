package inventory

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// Classify compara lo esperado con lo contado: MATCH si son iguales, SHORTAGE si
// falta mercancía y OVERAGE si sobra.
func Classify(expected, actual decimal.Decimal) entity.CheckStatus {
	switch actual.Sub(expected).Sign() {
	case 0:
		return entity.CheckStatusMatch
	case -1:
		return entity.CheckStatusShortage
	default:
		return entity.CheckStatusOverage
	}
}

// Reconcile completa Variance y CheckStatus a partir de las cantidades de la fila.
func Reconcile(r entity.StockCheckResult) entity.StockCheckResult {
	r.Variance = r.ActualQuantity.Sub(r.ExpectedQuantity)
	r.CheckStatus = Classify(r.ExpectedQuantity, r.ActualQuantity)
	return r
}

// GroupKey referencia de sesión; las filas sin referencia caen en "unknown".
func GroupKey(r entity.StockCheckResult) string {
	if strings.TrimSpace(r.CheckReference) == "" {
		return entity.UnknownCheckReference
	}
	return r.CheckReference
}

// Group agrupa por sesión conservando el orden de aparición de las sesiones y de los
// ítems. Fecha y responsable de la sesión son los de la primera fila vista.
func Group(results []entity.StockCheckResult) []entity.StockCheckSummary {
	index := make(map[string]int)
	summaries := make([]entity.StockCheckSummary, 0)
	for _, r := range results {
		key := GroupKey(r)
		i, ok := index[key]
		if !ok {
			i = len(summaries)
			index[key] = i
			summaries = append(summaries, entity.StockCheckSummary{
				CheckReference: key,
				CheckTimestamp: r.CheckTimestamp,
				CheckedBy:      r.CheckedBy,
				Items:          make([]entity.StockCheckResult, 0, 1),
			})
		}
		s := &summaries[i]
		s.TotalItems++
		if r.CheckStatus != entity.CheckStatusMatch {
			s.ItemsWithVariance++
		}
		s.Items = append(s.Items, r)
	}
	return summaries
}

// Flatten concatena los ítems de los grupos en orden.
func Flatten(summaries []entity.StockCheckSummary) []entity.StockCheckResult {
	out := make([]entity.StockCheckResult, 0)
	for _, s := range summaries {
		out = append(out, s.Items...)
	}
	return out
}

// CheckFilter filtros de la vista de conteos. Fechas cero no restringen; Status vacío
// no restringe. To es inclusivo hasta las 23:59:59.999 del día en Location.
type CheckFilter struct {
	From     time.Time
	To       time.Time
	Status   entity.CheckStatus
	Location *time.Location
}

// Filter aplica primero el rango de fechas y luego el estado. No modifica la entrada.
func Filter(results []entity.StockCheckResult, f CheckFilter) []entity.StockCheckResult {
	loc := f.Location
	if loc == nil {
		loc = time.Local
	}
	var start, end time.Time
	if !f.From.IsZero() {
		start = startOfDay(f.From, loc)
	}
	if !f.To.IsZero() {
		end = startOfDay(f.To, loc).AddDate(0, 0, 1).Add(-time.Millisecond)
	}

	byDate := make([]entity.StockCheckResult, 0, len(results))
	for _, r := range results {
		ts := r.CheckTimestamp.Time
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		byDate = append(byDate, r)
	}
	if f.Status == "" {
		return byDate
	}
	out := make([]entity.StockCheckResult, 0, len(byDate))
	for _, r := range byDate {
		if r.CheckStatus == f.Status {
			out = append(out, r)
		}
	}
	return out
}

// MatchesQuery búsqueda sin distinguir mayúsculas por nombre de producto o referencia.
func MatchesQuery(r entity.StockCheckResult, query string) bool {
	q := fold(strings.TrimSpace(query))
	if q == "" {
		return true
	}
	return strings.Contains(fold(r.ProductName), q) || strings.Contains(fold(r.CheckReference), q)
}

// SearchFlat filtra la lista plana por texto.
func SearchFlat(results []entity.StockCheckResult, query string) []entity.StockCheckResult {
	out := make([]entity.StockCheckResult, 0, len(results))
	for _, r := range results {
		if MatchesQuery(r, query) {
			out = append(out, r)
		}
	}
	return out
}

// SearchGroups conserva un grupo completo si al menos uno de sus ítems coincide.
// Los ítems del grupo no se filtran.
func SearchGroups(summaries []entity.StockCheckSummary, query string) []entity.StockCheckSummary {
	if strings.TrimSpace(query) == "" {
		return summaries
	}
	out := make([]entity.StockCheckSummary, 0, len(summaries))
	for _, s := range summaries {
		for _, item := range s.Items {
			if MatchesQuery(item, query) {
				out = append(out, s)
				break
			}
		}
	}
	return out
}

// RequiresAttention filas con diferencia que aún no se procesaron.
func RequiresAttention(results []entity.StockCheckResult) []entity.StockCheckResult {
	out := make([]entity.StockCheckResult, 0)
	for _, r := range results {
		if r.RequiresAttention() {
			out = append(out, r)
		}
	}
	return out
}

// MarkProcessed transición idempotente: una fila ya procesada no cambia.
func MarkProcessed(r entity.StockCheckResult, actor string, at time.Time) entity.StockCheckResult {
	if r.Processed {
		return r
	}
	r.Processed = true
	r.ProcessedBy = actor
	r.ProcessedAt = entity.NewTimestamp(at)
	return r
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// fold crea un Caser por llamada: un Caser no se puede compartir entre goroutines.
func fold(s string) string {
	return cases.Fold().String(s)
}
