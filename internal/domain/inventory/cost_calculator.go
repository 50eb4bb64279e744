package inventory

import "github.com/shopspring/decimal"

// ProjectedCost costo promedio ponderado que quedaría tras recibir qty unidades a
// unitCost sobre el stock plegado del libro. Un stock negativo (ventas aún sin
// recepción registrada) no pondera: el costo pasa a ser el de la entrada.
func ProjectedCost(stock, cost, qty, unitCost decimal.Decimal) decimal.Decimal {
	if stock.IsNegative() {
		stock = decimal.Zero
	}
	total := stock.Add(qty)
	if !total.IsPositive() {
		return decimal.Zero
	}
	return stock.Mul(cost).Add(qty.Mul(unitCost)).Div(total)
}
