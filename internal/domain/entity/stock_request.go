package entity

import (
	"github.com/shopspring/decimal"
)

// AdjustmentRequest ajuste manual de stock (cantidad con signo).
type AdjustmentRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"ne=0"`
	Reason    string          `json:"reason" validate:"required,max=500"`
	Notes     string          `json:"notes,omitempty"`
}

// GoodsReceiptRequest entrada de mercancía (cantidad positiva).
type GoodsReceiptRequest struct {
	ProductID         string          `json:"productId" validate:"required"`
	Quantity          decimal.Decimal `json:"quantity" validate:"gt=0"`
	UnitCost          decimal.Decimal `json:"unitCost" validate:"gte=0"`
	DocumentReference string          `json:"documentReference,omitempty"`
	ReferenceType     string          `json:"referenceType,omitempty"`
	ReferenceID       string          `json:"referenceId,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// DisposalRequest baja de mercancía; la cantidad se envía positiva y el servidor
// registra el movimiento negativo.
type DisposalRequest struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"gt=0"`
	Reason    string          `json:"reason" validate:"required,max=500"`
	Notes     string          `json:"notes,omitempty"`
}

// StockCount cantidad contada de un producto en una sesión.
type StockCount struct {
	ProductID      string          `json:"productId" validate:"required"`
	ProductName    string          `json:"productName"`
	ActualQuantity decimal.Decimal `json:"actualQuantity" validate:"gte=0"`
}

// StockCheckSubmission sesión de conteo enviada al servidor, ya reconciliada.
type StockCheckSubmission struct {
	CheckReference string             `json:"checkReference"`
	CheckedBy      string             `json:"checkedBy"`
	Items          []StockCheckResult `json:"items"`
}

// ProcessVarianceRequest pide al servidor registrar el ajuste de una varianza.
type ProcessVarianceRequest struct {
	ProcessedBy string `json:"processedBy"`
}
