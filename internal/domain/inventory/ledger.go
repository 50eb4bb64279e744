package inventory

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// NormalizeMovement convierte la forma cruda del servidor en el movimiento canónico.
// Notas y referencia de documento ausentes quedan como cadena vacía; la cantidad
// ausente cuenta como cero para no alterar la suma.
func NormalizeMovement(p entity.MovementPayload) entity.StockMovement {
	m := entity.StockMovement{
		ID:                deref(p.ID),
		ProductID:         deref(p.ProductID),
		MovementType:      entity.MovementType(strings.ToUpper(strings.TrimSpace(deref(p.MovementType)))),
		DocumentReference: deref(p.DocumentReference),
		ReferenceType:     deref(p.ReferenceType),
		ReferenceID:       deref(p.ReferenceID),
		Notes:             deref(p.Notes),
	}
	if p.Quantity.Valid {
		m.Quantity = p.Quantity.Decimal
	}
	if p.EventTimestamp != nil {
		m.EventTimestamp = *p.EventTimestamp
	}
	return m
}

// NormalizeMovements normaliza y ordena cronológicamente.
func NormalizeMovements(payloads []entity.MovementPayload) []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, NormalizeMovement(p))
	}
	SortChronological(out)
	return out
}

// CurrentStock suma con signo de todos los movimientos del producto con fecha <= now.
// Un instante cero (sin fecha) se considera anterior a now.
func CurrentStock(movements []entity.StockMovement, productID string, now time.Time) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		if m.ProductID != productID {
			continue
		}
		if m.EventTimestamp.After(now) {
			continue
		}
		total = total.Add(m.Quantity)
	}
	return total
}

// StockByProduct aplica CurrentStock a cada producto presente en la lista.
func StockByProduct(movements []entity.StockMovement, now time.Time) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, m := range movements {
		if m.EventTimestamp.After(now) {
			continue
		}
		out[m.ProductID] = out[m.ProductID].Add(m.Quantity)
	}
	return out
}

// SortChronological ordena por fecha del evento; empates por ID para que sea estable.
func SortChronological(movements []entity.StockMovement) {
	sort.SliceStable(movements, func(i, j int) bool {
		a, b := movements[i], movements[j]
		if !a.EventTimestamp.Equal(b.EventTimestamp.Time) {
			return a.EventTimestamp.Before(b.EventTimestamp.Time)
		}
		return a.ID < b.ID
	})
}

// FilterByRange devuelve, en una lista nueva y en orden cronológico, los movimientos
// con from <= fecha <= to. Un límite cero no restringe.
func FilterByRange(movements []entity.StockMovement, from, to time.Time) []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(movements))
	for _, m := range movements {
		if !from.IsZero() && m.EventTimestamp.Before(from) {
			continue
		}
		if !to.IsZero() && m.EventTimestamp.After(to) {
			continue
		}
		out = append(out, m)
	}
	SortChronological(out)
	return out
}

// FilterByType devuelve los movimientos del tipo indicado en orden cronológico.
func FilterByType(movements []entity.StockMovement, t entity.MovementType) []entity.StockMovement {
	out := make([]entity.StockMovement, 0, len(movements))
	for _, m := range movements {
		if m.MovementType == t {
			out = append(out, m)
		}
	}
	SortChronological(out)
	return out
}

// IsInbound clasifica por signo: cantidades positivas aumentan el stock.
func IsInbound(m entity.StockMovement) bool {
	return m.Quantity.IsPositive()
}

// Display magnitud sin signo con la unidad del producto. El signo se conserva en
// el movimiento almacenado para la agregación.
func Display(m entity.StockMovement, unit string) entity.DisplayQuantity {
	return entity.DisplayQuantity{
		Magnitude: m.Quantity.Abs(),
		Unit:      unit,
		Inbound:   IsInbound(m),
	}
}

// TotalsByType suma cantidades con signo agrupadas por tipo (para resúmenes de historial).
func TotalsByType(movements []entity.StockMovement) map[entity.MovementType]decimal.Decimal {
	out := make(map[entity.MovementType]decimal.Decimal, len(entity.MovementTypes))
	for _, m := range movements {
		out[m.MovementType] = out[m.MovementType].Add(m.Quantity)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
