package dto

import "github.com/jhoicas/inventario-sync/internal/domain/entity"

// SubmitReturnRequest body para POST /api/goods-returns. SelectedBillID es la factura
// elegida en la vista; se usa cuando billId viene vacío.
type SubmitReturnRequest struct {
	entity.GoodsReturnRequest
	SelectedBillID string `json:"selectedBillId"`
}

// ReturnableLinesResponse líneas de una factura con su techo de devolución.
type ReturnableLinesResponse struct {
	BillID string                  `json:"billId"`
	Lines  []entity.ReturnableLine `json:"lines"`
}
