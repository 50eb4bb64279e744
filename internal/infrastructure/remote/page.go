package remote

import (
	"bytes"
	"encoding/json"

	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// pageEnvelope forma opcional del envoltorio: cada campo puede faltar.
type pageEnvelope[T any] struct {
	Content       *[]T   `json:"content"`
	Number        *int   `json:"number"`
	Size          *int   `json:"size"`
	TotalElements *int64 `json:"totalElements"`
	TotalPages    *int   `json:"totalPages"`
	First         *bool  `json:"first"`
	Last          *bool  `json:"last"`
}

// DecodePage interpreta una respuesta paginada. Un envoltorio ausente, parcial o
// ilegible produce una página vacía o completada con valores por defecto, nunca un error.
// Un arreglo JSON suelto se toma como una página única.
func DecodePage[T any](raw []byte) entity.Page[T] {
	page, err := ParsePage[T](raw)
	if err != nil {
		return entity.EmptyPage[T]()
	}
	return page
}

// ParsePage como DecodePage, pero un cuerpo que no es JSON válido (o cuyo contenido
// no encaja en T) es un error. Los campos faltantes del envoltorio siguen siendo tolerados.
func ParsePage[T any](raw []byte) (entity.Page[T], error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return entity.EmptyPage[T](), nil
	}
	if raw[0] == '[' {
		var items []T
		if err := json.Unmarshal(raw, &items); err != nil {
			return entity.EmptyPage[T](), err
		}
		return singlePage(items), nil
	}

	var env pageEnvelope[T]
	if err := json.Unmarshal(raw, &env); err != nil {
		return entity.EmptyPage[T](), err
	}
	page := entity.EmptyPage[T]()
	if env.Content != nil && *env.Content != nil {
		page.Content = *env.Content
	}
	n := len(page.Content)
	page.Number = valueOr(env.Number, 0)
	page.Size = valueOr(env.Size, n)
	page.TotalElements = valueOr(env.TotalElements, int64(n))
	defaultPages := 0
	if page.TotalElements > 0 {
		defaultPages = 1
		if page.Size > 0 {
			defaultPages = int((page.TotalElements + int64(page.Size) - 1) / int64(page.Size))
		}
	}
	page.TotalPages = valueOr(env.TotalPages, defaultPages)
	page.First = valueOr(env.First, page.Number == 0)
	page.Last = valueOr(env.Last, page.Number >= page.TotalPages-1)
	return page, nil
}

func singlePage[T any](items []T) entity.Page[T] {
	if items == nil {
		items = []T{}
	}
	pages := 0
	if len(items) > 0 {
		pages = 1
	}
	return entity.Page[T]{
		Content:       items,
		Size:          len(items),
		TotalElements: int64(len(items)),
		TotalPages:    pages,
		First:         true,
		Last:          true,
	}
}

func valueOr[V any](p *V, def V) V {
	if p == nil {
		return def
	}
	return *p
}
