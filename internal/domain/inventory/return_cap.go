package inventory

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// MaxQuantity techo de devolución de una línea: max(0, recibido - devuelto).
func MaxQuantity(received, returned decimal.Decimal) decimal.Decimal {
	m := received.Sub(returned)
	if m.IsNegative() {
		return decimal.Zero
	}
	return m
}

// ComputeCaps recalcula MaxQuantity de cada línea. Devuelve una lista nueva.
func ComputeCaps(lines []entity.ReturnableLine) []entity.ReturnableLine {
	out := make([]entity.ReturnableLine, len(lines))
	for i, l := range lines {
		l.MaxQuantity = MaxQuantity(l.ReceivedQuantity, l.ReturnedQuantity)
		out[i] = l
	}
	return out
}

// ReturnedByProduct suma, por producto, la magnitud de los movimientos RETURN que
// referencian la factura. El signo almacenado de RETURN no es uniforme, por eso abs().
func ReturnedByProduct(movements []entity.StockMovement, billID string) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal)
	for _, m := range movements {
		if m.MovementType != entity.MovementTypeReturn || m.ReferenceID != billID {
			continue
		}
		out[m.ProductID] = out[m.ProductID].Add(m.Quantity.Abs())
	}
	return out
}

// ApplyReturned reparte lo ya devuelto de cada producto entre sus líneas en orden,
// sin superar lo recibido por línea (el excedente queda en la última línea del producto),
// y recalcula los techos.
func ApplyReturned(lines []entity.ReturnableLine, returned map[string]decimal.Decimal) []entity.ReturnableLine {
	remaining := make(map[string]decimal.Decimal, len(returned))
	for k, v := range returned {
		remaining[k] = v
	}
	last := make(map[string]int)
	for i, l := range lines {
		last[l.ProductID] = i
	}

	out := make([]entity.ReturnableLine, len(lines))
	for i, l := range lines {
		rest := remaining[l.ProductID]
		take := decimal.Min(rest, l.ReceivedQuantity)
		if last[l.ProductID] == i {
			take = rest
		}
		if take.IsNegative() {
			take = decimal.Zero
		}
		remaining[l.ProductID] = rest.Sub(take)
		l.ReturnedQuantity = take
		l.MaxQuantity = MaxQuantity(l.ReceivedQuantity, take)
		out[i] = l
	}
	return out
}

// ClampQuantity ajusta una cantidad digitada al rango [0, max]. Solo para la captura;
// la validación de envío es independiente.
func ClampQuantity(q, max decimal.Decimal) decimal.Decimal {
	if q.IsNegative() {
		return decimal.Zero
	}
	if max.IsNegative() {
		return decimal.Zero
	}
	if q.GreaterThan(max) {
		return max
	}
	return q
}

// EffectiveBillID usa el billId explícito y, si viene vacío, el de la factura seleccionada.
func EffectiveBillID(explicit, selected string) string {
	if strings.TrimSpace(explicit) != "" {
		return strings.TrimSpace(explicit)
	}
	return strings.TrimSpace(selected)
}

// ValidateReturn revisa la solicitud contra las líneas devolvibles y reporta todas las
// reglas violadas a la vez. No recorta cantidades: si algo excede el techo, falla.
func ValidateReturn(req entity.GoodsReturnRequest, lines []entity.ReturnableLine) error {
	return validateReturn(req, lines, true)
}

// PrecheckReturn solo las reglas que no necesitan las líneas de la factura (factura,
// cantidades, motivos). Permite rechazar una solicitud antes de consultar el servidor.
func PrecheckReturn(req entity.GoodsReturnRequest) error {
	return validateReturn(req, nil, false)
}

func validateReturn(req entity.GoodsReturnRequest, lines []entity.ReturnableLine, checkLines bool) error {
	var violations []string
	if strings.TrimSpace(req.BillID) == "" {
		violations = append(violations, "debe seleccionar una factura")
	}

	byLine := make(map[string]entity.ReturnableLine, len(lines))
	byProduct := make(map[string]entity.ReturnableLine, len(lines))
	for _, l := range lines {
		byLine[l.LineID] = l
		if _, ok := byProduct[l.ProductID]; !ok {
			byProduct[l.ProductID] = l
		}
	}

	// Entradas que apuntan a la misma línea se suman antes de comparar con el techo.
	type requested struct {
		line    entity.ReturnableLine
		label   string
		total   decimal.Decimal
		entries int
	}
	var order []string
	totals := make(map[string]*requested)

	qualifying := 0
	for i, rl := range req.Lines {
		label := lineLabel(i, rl)
		if rl.QuantityToReturn.IsNegative() {
			violations = append(violations, fmt.Sprintf("%s: la cantidad no puede ser negativa", label))
			continue
		}
		if !rl.QuantityToReturn.IsPositive() {
			continue
		}
		qualifying++

		var (
			line entity.ReturnableLine
			ok   bool
		)
		if rl.LineID != "" {
			line, ok = byLine[rl.LineID]
		} else {
			line, ok = byProduct[rl.ProductID]
		}
		if strings.TrimSpace(rl.Reason) == "" {
			violations = append(violations, fmt.Sprintf("%s: el motivo es obligatorio", label))
		}
		if !checkLines {
			continue
		}
		if !ok {
			violations = append(violations, fmt.Sprintf("%s: la línea no pertenece a la factura", label))
			continue
		}
		acc, seen := totals[line.LineID]
		if !seen {
			acc = &requested{line: line, label: label}
			totals[line.LineID] = acc
			order = append(order, line.LineID)
		}
		acc.total = acc.total.Add(rl.QuantityToReturn)
		acc.entries++
	}
	for _, id := range order {
		acc := totals[id]
		if !acc.total.GreaterThan(acc.line.MaxQuantity) {
			continue
		}
		if acc.entries == 1 {
			violations = append(violations, fmt.Sprintf("%s: la cantidad %s supera el máximo devolvible %s",
				acc.label, acc.total.String(), acc.line.MaxQuantity.String()))
			continue
		}
		violations = append(violations, fmt.Sprintf("línea %s: la cantidad total %s en %d entradas supera el máximo devolvible %s",
			id, acc.total.String(), acc.entries, acc.line.MaxQuantity.String()))
	}
	if qualifying == 0 {
		violations = append(violations, "debe indicar al menos una línea con cantidad a devolver")
	}
	return domain.NewValidationError(violations...)
}

func lineLabel(i int, rl entity.ReturnLineRequest) string {
	if rl.ProductID != "" {
		return fmt.Sprintf("línea %d (producto %s)", i+1, rl.ProductID)
	}
	return fmt.Sprintf("línea %d", i+1)
}
