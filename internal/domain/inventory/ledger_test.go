package inventory_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/domain/inventory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

var base = time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

func mov(id, product string, t entity.MovementType, qty string, at time.Time) entity.StockMovement {
	return entity.StockMovement{
		ID:             id,
		ProductID:      product,
		MovementType:   t,
		Quantity:       decimal.RequireFromString(qty),
		EventTimestamp: entity.NewTimestamp(at),
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Agregación del libro
// ──────────────────────────────────────────────────────────────────────────────

// Escenario: RECEIPT +100, SALE -30, RETURN -5 → stock 65.
func TestCurrentStock_RecepcionVentaDevolucion(t *testing.T) {
	movements := []entity.StockMovement{
		mov("m1", "P", entity.MovementTypeReceipt, "100", base),
		mov("m2", "P", entity.MovementTypeSale, "-30", base.Add(time.Hour)),
		mov("m3", "P", entity.MovementTypeReturn, "-5", base.Add(2*time.Hour)),
		mov("m4", "Q", entity.MovementTypeReceipt, "7", base),
	}

	got := inventory.CurrentStock(movements, "P", base.Add(24*time.Hour))
	assert.True(t, decimal.NewFromInt(65).Equal(got), "stock esperado 65, obtenido %s", got)
}

func TestCurrentStock_AgregarMovimientoCambiaSoloSuCantidad(t *testing.T) {
	now := base.Add(48 * time.Hour)
	movements := []entity.StockMovement{
		mov("m1", "P", entity.MovementTypeReceipt, "12.5", base),
		mov("m2", "P", entity.MovementTypeSale, "-2.25", base.Add(time.Minute)),
	}
	before := inventory.CurrentStock(movements, "P", now)

	adj := mov("m3", "P", entity.MovementTypeAdjustment, "-0.75", base.Add(time.Hour))
	after := inventory.CurrentStock(append(movements, adj), "P", now)

	assert.True(t, after.Sub(before).Equal(adj.Quantity),
		"la diferencia debe ser exactamente la cantidad del movimiento agregado")
}

func TestCurrentStock_IgnoraMovimientosFuturos(t *testing.T) {
	movements := []entity.StockMovement{
		mov("m1", "P", entity.MovementTypeReceipt, "10", base),
		mov("m2", "P", entity.MovementTypeReceipt, "5", base.Add(time.Hour)),
	}
	got := inventory.CurrentStock(movements, "P", base.Add(30*time.Minute))
	assert.True(t, decimal.NewFromInt(10).Equal(got), "un movimiento posterior a now no cuenta")
}

func TestCurrentStock_SinMovimientosEsCero(t *testing.T) {
	got := inventory.CurrentStock(nil, "P", base)
	assert.True(t, got.IsZero())
}

func TestStockByProduct(t *testing.T) {
	movements := []entity.StockMovement{
		mov("m1", "P", entity.MovementTypeReceipt, "10", base),
		mov("m2", "Q", entity.MovementTypeReceipt, "3", base),
		mov("m3", "P", entity.MovementTypeSale, "-4", base),
	}
	got := inventory.StockByProduct(movements, base)
	require.Len(t, got, 2)
	assert.True(t, decimal.NewFromInt(6).Equal(got["P"]))
	assert.True(t, decimal.NewFromInt(3).Equal(got["Q"]))
}

// ──────────────────────────────────────────────────────────────────────────────
// Normalización y filtros
// ──────────────────────────────────────────────────────────────────────────────

func TestNormalizeMovement_CamposAusentes(t *testing.T) {
	raw := `[
		{"id":"b","productId":"P","movementType":" sale ","quantity":"-3","eventTimestamp":"2024-03-10T11:00:00Z"},
		{"id":"a","productId":"P","movementType":"RECEIPT","quantity":10,"eventTimestamp":"2024-03-09T10:00:00","notes":null}
	]`
	var payloads []entity.MovementPayload
	require.NoError(t, json.Unmarshal([]byte(raw), &payloads))

	got := inventory.NormalizeMovements(payloads)
	require.Len(t, got, 2)

	assert.Equal(t, "a", got[0].ID, "debe quedar en orden cronológico")
	assert.Equal(t, entity.MovementTypeSale, got[1].MovementType, "el tipo se normaliza a mayúsculas")
	assert.Equal(t, "", got[0].Notes, "notas ausentes quedan vacías")
	assert.Equal(t, "", got[0].DocumentReference, "referencia ausente queda vacía")
	assert.True(t, decimal.NewFromInt(-3).Equal(got[1].Quantity))
}

func TestNormalizeMovement_CantidadAusenteEsCero(t *testing.T) {
	id := "x"
	got := inventory.NormalizeMovement(entity.MovementPayload{ID: &id})
	assert.True(t, got.Quantity.IsZero())
	assert.True(t, got.EventTimestamp.IsZero())
}

func TestFilterByRange_OrdenadoYSinMutar(t *testing.T) {
	movements := []entity.StockMovement{
		mov("m3", "P", entity.MovementTypeSale, "-1", base.Add(3*time.Hour)),
		mov("m1", "P", entity.MovementTypeReceipt, "5", base.Add(time.Hour)),
		mov("m2", "P", entity.MovementTypeSale, "-2", base.Add(2*time.Hour)),
		mov("m0", "P", entity.MovementTypeReceipt, "9", base),
	}
	original := append([]entity.StockMovement(nil), movements...)

	got := inventory.FilterByRange(movements, base.Add(time.Hour), base.Add(3*time.Hour))
	require.Len(t, got, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, []string{got[0].ID, got[1].ID, got[2].ID})
	assert.Equal(t, original, movements, "la lista de entrada no debe modificarse")
}

func TestFilterByType(t *testing.T) {
	movements := []entity.StockMovement{
		mov("m2", "P", entity.MovementTypeSale, "-2", base.Add(time.Hour)),
		mov("m1", "P", entity.MovementTypeSale, "-1", base),
		mov("m3", "P", entity.MovementTypeReceipt, "5", base),
	}
	got := inventory.FilterByType(movements, entity.MovementTypeSale)
	require.Len(t, got, 2)
	assert.Equal(t, "m1", got[0].ID)
	assert.Equal(t, "m2", got[1].ID)
}

func TestSortChronological_EmpatePorID(t *testing.T) {
	movements := []entity.StockMovement{
		mov("b", "P", entity.MovementTypeSale, "-1", base),
		mov("a", "P", entity.MovementTypeSale, "-1", base),
	}
	inventory.SortChronological(movements)
	assert.Equal(t, "a", movements[0].ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Presentación
// ──────────────────────────────────────────────────────────────────────────────

func TestDisplay_MagnitudSinSigno(t *testing.T) {
	m := mov("m1", "P", entity.MovementTypeReturn, "-5", base)
	d := inventory.Display(m, "und")

	assert.True(t, decimal.NewFromInt(5).Equal(d.Magnitude), "la magnitud se muestra sin signo")
	assert.Equal(t, "und", d.Unit)
	assert.False(t, d.Inbound)
	assert.True(t, decimal.NewFromInt(-5).Equal(m.Quantity), "el movimiento conserva el signo")
}

func TestTotalsByType(t *testing.T) {
	movements := []entity.StockMovement{
		mov("m1", "P", entity.MovementTypeReceipt, "10", base),
		mov("m2", "Q", entity.MovementTypeReceipt, "5", base),
		mov("m3", "P", entity.MovementTypeSale, "-4", base),
	}
	got := inventory.TotalsByType(movements)
	assert.True(t, decimal.NewFromInt(15).Equal(got[entity.MovementTypeReceipt]))
	assert.True(t, decimal.NewFromInt(-4).Equal(got[entity.MovementTypeSale]))
}

func TestProjectedCost_PromedioPonderado(t *testing.T) {
	got := inventory.ProjectedCost(
		decimal.NewFromInt(10), decimal.NewFromInt(100),
		decimal.NewFromInt(10), decimal.NewFromInt(200),
	)
	assert.True(t, decimal.NewFromInt(150).Equal(got), "costo promedio esperado 150, obtenido %s", got)
	assert.True(t, inventory.ProjectedCost(decimal.Zero, decimal.Zero, decimal.Zero, decimal.NewFromInt(5)).IsZero())
}

func TestProjectedCost_StockNegativoNoPondera(t *testing.T) {
	got := inventory.ProjectedCost(
		decimal.NewFromInt(-4), decimal.NewFromInt(100),
		decimal.NewFromInt(10), decimal.NewFromInt(80),
	)
	assert.True(t, decimal.NewFromInt(80).Equal(got), "obtenido %s", got)
}
