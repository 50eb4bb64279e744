package entity

import (
	"github.com/shopspring/decimal"
)

// ReturnableBill factura/orden de compra con líneas recibidas que aún admiten devolución.
type ReturnableBill struct {
	ID              string           `json:"id"`
	BillNumber      string           `json:"billNumber"`
	PurchaseOrderID string           `json:"purchaseOrderId"`
	PartyID         string           `json:"partyId"`
	PartyName       string           `json:"partyName"`
	BillDate        Timestamp        `json:"billDate"`
	Lines           []ReturnableLine `json:"lines"`
}

// ReturnableLine línea recibida con su techo de devolución.
// MaxQuantity = max(0, ReceivedQuantity - ReturnedQuantity).
type ReturnableLine struct {
	LineID           string          `json:"lineId"`
	ProductID        string          `json:"productId"`
	ProductName      string          `json:"productName"`
	Unit             string          `json:"unit"`
	UnitPrice        decimal.Decimal `json:"unitPrice"`
	ReceivedQuantity decimal.Decimal `json:"receivedQuantity"`
	ReturnedQuantity decimal.Decimal `json:"returnedQuantity"`
	MaxQuantity      decimal.Decimal `json:"maxQuantity"`
}

// GoodsReturnRequest solicitud de devolución al proveedor.
type GoodsReturnRequest struct {
	BillID string              `json:"billId"`
	Lines  []ReturnLineRequest `json:"lines"`
	Notes  string              `json:"notes"`
}

// ReturnLineRequest cantidad a devolver de una línea recibida.
type ReturnLineRequest struct {
	LineID           string          `json:"lineId"`
	ProductID        string          `json:"productId"`
	QuantityToReturn decimal.Decimal `json:"quantityToReturn"`
	Reason           string          `json:"reason"`
}

// GoodsReturn devolución registrada (o sintetizada localmente mientras viaja al servidor).
type GoodsReturn struct {
	ID              string            `json:"id"`
	ReturnNumber    string            `json:"returnNumber"`
	BillID          string            `json:"billId"`
	PurchaseOrderID string            `json:"purchaseOrderId"`
	Status          string            `json:"status"`
	Notes           string            `json:"notes"`
	Lines           []GoodsReturnLine `json:"lines"`
	CreatedAt       Timestamp         `json:"createdAt"`
}

// EntityID identificador para el store optimista.
func (g GoodsReturn) EntityID() string { return g.ID }

// GoodsReturnLine línea de una devolución registrada.
type GoodsReturnLine struct {
	LineID    string          `json:"lineId"`
	ProductID string          `json:"productId"`
	Quantity  decimal.Decimal `json:"quantity"`
	Reason    string          `json:"reason"`
}
