package entity

import (
	"github.com/shopspring/decimal"
)

// CheckStatus resultado de comparar lo esperado contra lo contado.
type CheckStatus string

const (
	CheckStatusMatch    CheckStatus = "MATCH"
	CheckStatusShortage CheckStatus = "SHORTAGE"
	CheckStatusOverage  CheckStatus = "OVERAGE"
)

// UnknownCheckReference agrupa las filas sin referencia de sesión (históricas).
const UnknownCheckReference = "unknown"

// StockCheckResult una fila por (producto, sesión de conteo).
type StockCheckResult struct {
	ID               string          `json:"id"`
	CheckReference   string          `json:"checkReference"`
	ProductID        string          `json:"productId"`
	ProductName      string          `json:"productName"`
	ExpectedQuantity decimal.Decimal `json:"expectedQuantity"`
	ActualQuantity   decimal.Decimal `json:"actualQuantity"`
	Variance         decimal.Decimal `json:"variance"` // actual - expected
	CheckStatus      CheckStatus     `json:"checkStatus"`
	CheckedBy        string          `json:"checkedBy"`
	CheckTimestamp   Timestamp       `json:"checkTimestamp"`
	Processed        bool            `json:"processed"`
	ProcessedBy      string          `json:"processedBy,omitempty"`
	ProcessedAt      Timestamp       `json:"processedAt"`
}

// EntityID identificador para el store optimista.
func (r StockCheckResult) EntityID() string { return r.ID }

// RequiresAttention fila con diferencia aún no procesada.
func (r StockCheckResult) RequiresAttention() bool {
	return r.CheckStatus != CheckStatusMatch && !r.Processed
}

// StockCheckSummary agrupación derivada (no persistida) por CheckReference.
type StockCheckSummary struct {
	CheckReference    string             `json:"checkReference"`
	CheckTimestamp    Timestamp          `json:"checkTimestamp"`
	CheckedBy         string             `json:"checkedBy"`
	TotalItems        int                `json:"totalItems"`
	ItemsWithVariance int                `json:"itemsWithVariance"`
	Items             []StockCheckResult `json:"items"`
}
