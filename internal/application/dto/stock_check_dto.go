package dto

import "github.com/jhoicas/inventario-sync/internal/domain/entity"

// SubmitCountRequest body para POST /api/stock-checks. Sin referencia se genera una.
type SubmitCountRequest struct {
	CheckReference string              `json:"checkReference"`
	CheckedBy      string              `json:"checkedBy" validate:"required"`
	Counts         []entity.StockCount `json:"counts" validate:"required,min=1,dive"`
}

// StockCheckQuery filtros de la vista de conteos (fechas YYYY-MM-DD).
type StockCheckQuery struct {
	From   string `query:"from"`
	To     string `query:"to"`
	Status string `query:"status" validate:"omitempty,oneof=MATCH SHORTAGE OVERAGE"`
	Search string `query:"search"`
}

// StockCheckOverview vista agrupada con el contador de pendientes.
type StockCheckOverview struct {
	Summaries        []entity.StockCheckSummary `json:"summaries"`
	UnprocessedCount int                        `json:"unprocessedCount"`
}
