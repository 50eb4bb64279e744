package entity

import (
	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del libro de inventario.
type MovementType string

// Tipos de movimiento reconocidos por el servicio remoto.
const (
	MovementTypeReceipt    MovementType = "RECEIPT"    // entrada por recepción de mercancía
	MovementTypeSale       MovementType = "SALE"       // salida por venta
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // corrección (conteo físico, ajuste manual)
	MovementTypeTransfer   MovementType = "TRANSFER"   // traslado
	MovementTypeDisposal   MovementType = "DISPOSAL"   // baja
	MovementTypeReturn     MovementType = "RETURN"     // devolución
)

// MovementTypes lista en el orden en que se muestran.
var MovementTypes = []MovementType{
	MovementTypeReceipt,
	MovementTypeSale,
	MovementTypeAdjustment,
	MovementTypeTransfer,
	MovementTypeDisposal,
	MovementTypeReturn,
}

// Valid indica si el tipo es uno de los reconocidos.
func (t MovementType) Valid() bool {
	for _, mt := range MovementTypes {
		if mt == t {
			return true
		}
	}
	return false
}

// StockMovement movimiento inmutable del libro. Nunca se edita ni se borra localmente;
// las correcciones se hacen agregando un nuevo movimiento (ADJUSTMENT).
type StockMovement struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"productId"`
	MovementType      MovementType    `json:"movementType"`
	Quantity          decimal.Decimal `json:"quantity"` // con signo: positivo entra, negativo sale
	EventTimestamp    Timestamp       `json:"eventTimestamp"`
	DocumentReference string          `json:"documentReference"`
	ReferenceType     string          `json:"referenceType"`
	ReferenceID       string          `json:"referenceId"`
	Notes             string          `json:"notes"`
}

// MovementPayload forma cruda de un movimiento tal como llega del servicio remoto.
// Los campos opcionales son punteros para distinguir "ausente" de "vacío".
type MovementPayload struct {
	ID                *string             `json:"id"`
	ProductID         *string             `json:"productId"`
	MovementType      *string             `json:"movementType"`
	Quantity          decimal.NullDecimal `json:"quantity"`
	EventTimestamp    *Timestamp          `json:"eventTimestamp"`
	DocumentReference *string             `json:"documentReference"`
	ReferenceType     *string             `json:"referenceType"`
	ReferenceID       *string             `json:"referenceId"`
	Notes             *string             `json:"notes"`
}

// DisplayQuantity magnitud de un movimiento para presentación (sin signo) y su unidad.
type DisplayQuantity struct {
	Magnitude decimal.Decimal `json:"magnitude"`
	Unit      string          `json:"unit"`
	Inbound   bool            `json:"inbound"`
}
