package entity

import (
	"github.com/shopspring/decimal"
)

// Tipos de factura.
const (
	BillTypePurchase = "PURCHASE" // compra: genera RECEIPT
	BillTypeSale     = "SALE"     // venta: genera SALE
)

// Bill cabecera de una factura de compra o venta.
type Bill struct {
	ID              string          `json:"id"`
	BillNumber      string          `json:"billNumber" validate:"required"`
	BillType        string          `json:"billType" validate:"required,oneof=PURCHASE SALE"`
	PartyID         string          `json:"partyId" validate:"required"`
	PurchaseOrderID string          `json:"purchaseOrderId"`
	BillDate        Timestamp       `json:"billDate"`
	Status          string          `json:"status"`
	NetTotal        decimal.Decimal `json:"netTotal"`
	TaxTotal        decimal.Decimal `json:"taxTotal"`
	GrandTotal      decimal.Decimal `json:"grandTotal"`
	Lines           []BillLine      `json:"lines" validate:"required,min=1,dive"`
}

// EntityID identificador para el store optimista.
func (b Bill) EntityID() string { return b.ID }

// BillLine línea de detalle de una factura.
type BillLine struct {
	ID        string          `json:"id"`
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}
