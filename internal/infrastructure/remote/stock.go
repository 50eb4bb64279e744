package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/domain/inventory"
)

// CurrentStock GET /stock/current. Acepta un número suelto o {"currentStock": n}.
func (c *Client) CurrentStock(ctx context.Context, productID string) (decimal.Decimal, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, "/stock/current", url.Values{"productId": {productID}}, nil)
	if err != nil {
		return decimal.Zero, err
	}
	var d decimal.Decimal
	if err := json.Unmarshal(raw, &d); err == nil {
		return d, nil
	}
	var wrapped struct {
		CurrentStock decimal.NullDecimal `json:"currentStock"`
		Quantity     decimal.NullDecimal `json:"quantity"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return decimal.Zero, unreadable(err)
	}
	if wrapped.CurrentStock.Valid {
		return wrapped.CurrentStock.Decimal, nil
	}
	return wrapped.Quantity.Decimal, nil
}

// CheckAvailability GET /stock/check-availability. Acepta true/false o {"available": b}.
func (c *Client) CheckAvailability(ctx context.Context, productID string, required decimal.Decimal) (bool, error) {
	q := url.Values{"productId": {productID}, "requiredQuantity": {required.String()}}
	raw, err := c.doRaw(ctx, http.MethodGet, "/stock/check-availability", q, nil)
	if err != nil {
		return false, err
	}
	var ok bool
	if err := json.Unmarshal(raw, &ok); err == nil {
		return ok, nil
	}
	var wrapped struct {
		Available bool `json:"available"`
	}
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return false, unreadable(err)
	}
	return wrapped.Available, nil
}

// MovementsByProduct GET /stock/movements/product/{id}.
func (c *Client) MovementsByProduct(ctx context.Context, productID string) ([]entity.StockMovement, error) {
	return c.movements(ctx, "/stock/movements/product/"+escape(productID), nil)
}

// MovementsByDateRange GET /stock/movements/date-range.
func (c *Client) MovementsByDateRange(ctx context.Context, from, to time.Time) ([]entity.StockMovement, error) {
	q := url.Values{
		"startDate": {from.Format(time.RFC3339)},
		"endDate":   {to.Format(time.RFC3339)},
	}
	return c.movements(ctx, "/stock/movements/date-range", q)
}

// MovementsByType GET /stock/movements/type/{type}; productID y categoryID son opcionales.
func (c *Client) MovementsByType(ctx context.Context, t entity.MovementType, productID, categoryID string) ([]entity.StockMovement, error) {
	q := url.Values{}
	if productID != "" {
		q.Set("productId", productID)
	}
	if categoryID != "" {
		q.Set("categoryId", categoryID)
	}
	return c.movements(ctx, "/stock/movements/type/"+escape(string(t)), q)
}

// movements lee una lista de movimientos (arreglo o envoltorio paginado) y la normaliza.
func (c *Client) movements(ctx context.Context, path string, q url.Values) ([]entity.StockMovement, error) {
	raw, err := c.doRaw(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return nil, err
	}
	// Un cuerpo ilegible no es "sin movimientos": el stock calculado sería falso.
	page, err := ParsePage[entity.MovementPayload](raw)
	if err != nil {
		return nil, unreadable(err)
	}
	return inventory.NormalizeMovements(page.Content), nil
}

// Adjust POST /stock/adjust.
func (c *Client) Adjust(ctx context.Context, req entity.AdjustmentRequest) ([]entity.StockMovement, error) {
	return c.postMovements(ctx, "/stock/adjust", req)
}

// GoodsReceipt POST /stock/goods-receipt.
func (c *Client) GoodsReceipt(ctx context.Context, req entity.GoodsReceiptRequest) ([]entity.StockMovement, error) {
	return c.postMovements(ctx, "/stock/goods-receipt", req)
}

// Disposal POST /stock/disposals.
func (c *Client) Disposal(ctx context.Context, req entity.DisposalRequest) ([]entity.StockMovement, error) {
	return c.postMovements(ctx, "/stock/disposals", req)
}

// postMovements la respuesta puede ser un arreglo de movimientos o uno solo.
func (c *Client) postMovements(ctx context.Context, path string, body any) ([]entity.StockMovement, error) {
	raw, err := c.doRaw(ctx, http.MethodPost, path, nil, body)
	if err != nil {
		return nil, err
	}
	payloads, err := oneOrMany[entity.MovementPayload](raw)
	if err != nil {
		return nil, unreadable(err)
	}
	return inventory.NormalizeMovements(payloads), nil
}

// Status GET /stock/status.
func (c *Client) Status(ctx context.Context, productID string) (entity.StockStatus, error) {
	var st entity.StockStatus
	err := c.do(ctx, http.MethodGet, "/stock/status", url.Values{"productId": {productID}}, nil, &st)
	if st.ProductID == "" {
		st.ProductID = productID
	}
	return st, err
}

// StockChecks GET /stock/checks. Los filtros en cero no se envían; el servidor puede
// ignorarlos, así que el llamador vuelve a filtrar localmente.
func (c *Client) StockChecks(ctx context.Context, q inventory.CheckFilter) ([]entity.StockCheckResult, error) {
	params := url.Values{}
	if !q.From.IsZero() {
		params.Set("startDate", q.From.Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("endDate", q.To.Format(time.RFC3339))
	}
	if q.Status != "" {
		params.Set("status", string(q.Status))
	}
	raw, err := c.doRaw(ctx, http.MethodGet, "/stock/checks", params, nil)
	if err != nil {
		return nil, err
	}
	return DecodePage[entity.StockCheckResult](raw).Content, nil
}

// SubmitStockCheck POST /stock/checks.
func (c *Client) SubmitStockCheck(ctx context.Context, sub entity.StockCheckSubmission) ([]entity.StockCheckResult, error) {
	raw, err := c.doRaw(ctx, http.MethodPost, "/stock/checks", nil, sub)
	if err != nil {
		return nil, err
	}
	results, err := oneOrMany[entity.StockCheckResult](raw)
	if err != nil {
		return nil, unreadable(err)
	}
	return results, nil
}

// ProcessStockCheck POST /stock/checks/{id}/process. El servidor agrega el ADJUSTMENT
// y devuelve la fila actualizada.
func (c *Client) ProcessStockCheck(ctx context.Context, id, actor string) (entity.StockCheckResult, error) {
	var r entity.StockCheckResult
	err := c.do(ctx, http.MethodPost, "/stock/checks/"+escape(id)+"/process", nil,
		entity.ProcessVarianceRequest{ProcessedBy: actor}, &r)
	return r, err
}

// oneOrMany decodifica un arreglo o un objeto suelto como lista.
func oneOrMany[T any](raw []byte) ([]T, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []T{}, nil
	}
	if raw[0] == '[' {
		var many []T
		if err := json.Unmarshal(raw, &many); err != nil {
			return nil, err
		}
		return many, nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return nil, err
	}
	return []T{one}, nil
}

func unreadable(err error) error {
	return &domain.RemoteError{Kind: domain.ErrServer, Status: http.StatusOK,
		Message: "respuesta del servidor ilegible", Err: err}
}

func pageQuery(page, size int, extra url.Values) url.Values {
	q := url.Values{}
	for k, v := range extra {
		q[k] = v
	}
	if page >= 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if size > 0 {
		q.Set("size", strconv.Itoa(size))
	}
	return q
}
