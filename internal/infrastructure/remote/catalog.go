package remote

import (
	"context"
	"net/http"
	"net/url"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// Resource CRUD REST genérico sobre una colección (/products, /parties, /bills).
type Resource[T any] struct {
	c    *Client
	path string
}

// NewResource crea el recurso sobre la ruta base dada.
func NewResource[T any](c *Client, path string) *Resource[T] {
	return &Resource[T]{c: c, path: path}
}

// Products recurso /products.
func (c *Client) Products() *Resource[entity.Product] { return NewResource[entity.Product](c, "/products") }

// Parties recurso /parties.
func (c *Client) Parties() *Resource[entity.Party] { return NewResource[entity.Party](c, "/parties") }

// Bills recurso /bills.
func (c *Client) Bills() *Resource[entity.Bill] { return NewResource[entity.Bill](c, "/bills") }

// List GET {path}?page&size&search.
func (r *Resource[T]) List(ctx context.Context, q entity.ListQuery) (entity.Page[T], error) {
	var extra url.Values
	if q.Search != "" {
		extra = url.Values{"search": {q.Search}}
	}
	raw, err := r.c.doRaw(ctx, http.MethodGet, r.path, pageQuery(q.Page, q.Size, extra), nil)
	if err != nil {
		return entity.EmptyPage[T](), err
	}
	return DecodePage[T](raw), nil
}

// Get GET {path}/{id}.
func (r *Resource[T]) Get(ctx context.Context, id string) (T, error) {
	var v T
	err := r.c.do(ctx, http.MethodGet, r.path+"/"+escape(id), nil, nil, &v)
	return v, err
}

// Create POST {path}. Si el servidor responde sin cuerpo se devuelve v.
func (r *Resource[T]) Create(ctx context.Context, v T) (T, error) {
	out := v
	err := r.c.do(ctx, http.MethodPost, r.path, nil, v, &out)
	return out, err
}

// Update PUT {path}/{id}. Si el servidor responde sin cuerpo se devuelve v.
func (r *Resource[T]) Update(ctx context.Context, id string, v T) (T, error) {
	out := v
	err := r.c.do(ctx, http.MethodPut, r.path+"/"+escape(id), nil, v, &out)
	return out, err
}

// Delete DELETE {path}/{id}.
func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.c.do(ctx, http.MethodDelete, r.path+"/"+escape(id), nil, nil, nil)
}
