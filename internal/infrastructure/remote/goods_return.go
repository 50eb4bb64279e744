package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// ReturnableBills GET /goods-returns/returnable-bills, o /search cuando hay texto.
func (c *Client) ReturnableBills(ctx context.Context, query string, page, size int) (entity.Page[entity.ReturnableBill], error) {
	path := "/goods-returns/returnable-bills"
	var extra url.Values
	if query != "" {
		path += "/search"
		extra = url.Values{"query": {query}}
	}
	raw, err := c.doRaw(ctx, http.MethodGet, path, pageQuery(page, size, extra), nil)
	if err != nil {
		return entity.EmptyPage[entity.ReturnableBill](), err
	}
	return DecodePage[entity.ReturnableBill](raw), nil
}

// ReturnableBill GET /goods-returns/returnable-bills/{billId}. Un 404 es "no encontrada",
// distinto de una lista vacía.
func (c *Client) ReturnableBill(ctx context.Context, billID string) (entity.ReturnableBill, error) {
	var b entity.ReturnableBill
	err := c.do(ctx, http.MethodGet, "/goods-returns/returnable-bills/"+escape(billID), nil, nil, &b)
	return b, err
}

// CreateGoodsReturn POST /goods-returns. Un 409 (devolución duplicada) llega como
// RemoteError de tipo ErrConflict y no se reintenta.
func (c *Client) CreateGoodsReturn(ctx context.Context, req entity.GoodsReturnRequest) ([]entity.GoodsReturn, error) {
	raw, err := c.doRaw(ctx, http.MethodPost, "/goods-returns", nil, req)
	if err != nil {
		return nil, err
	}
	returns, err := oneOrMany[entity.GoodsReturn](raw)
	if err != nil {
		return nil, unreadable(err)
	}
	return returns, nil
}
