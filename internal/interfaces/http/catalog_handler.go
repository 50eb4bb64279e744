package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-sync/internal/application/catalog"
	"github.com/jhoicas/inventario-sync/internal/application/dto"
	"github.com/jhoicas/inventario-sync/internal/application/optimistic"
	"github.com/jhoicas/inventario-sync/internal/application/validation"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

// CatalogHandler CRUD de una entidad del catálogo (productos, terceros, facturas).
type CatalogHandler[T optimistic.Entity] struct {
	m      *catalog.Manager[T]
	withID func(v T, id string) T
}

// NewCatalogHandler construye el handler. withID fija el identificador de la ruta en el cuerpo.
func NewCatalogHandler[T optimistic.Entity](m *catalog.Manager[T], withID func(v T, id string) T) *CatalogHandler[T] {
	return &CatalogHandler[T]{m: m, withID: withID}
}

// List godoc
// @Summary      Listar productos, terceros o facturas
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        search  query  string  false  "Texto libre"
// @Param        page    query  int     false  "Página (desde 0)"
// @Param        size    query  int     false  "Tamaño de página"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/products [get]
// @Router       /api/parties [get]
// @Router       /api/bills [get]
func (h *CatalogHandler[T]) List(c *fiber.Ctx) error {
	var q dto.PageRequest
	if err := c.QueryParser(&q); err != nil {
		return badBody(c)
	}
	if err := validation.Struct(q); err != nil {
		return writeError(c, err)
	}
	q.DefaultPage()
	page, err := h.m.LoadFor(c.UserContext(), GetUserID(c), entity.ListQuery{Page: q.Page, Size: q.Size, Search: q.Search})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// GetByID godoc
// @Summary      Leer un registro del catálogo
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del registro"
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [get]
// @Router       /api/parties/{id} [get]
// @Router       /api/bills/{id} [get]
func (h *CatalogHandler[T]) GetByID(c *fiber.Ctx) error {
	v, err := h.m.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(v)
}

// Create godoc
// @Summary      Crear un registro del catálogo
// @Description  Productos y terceros: admin. Facturas: admin o bodeguero.
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  object  true  "Registro"
// @Success      201  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/products [post]
// @Router       /api/parties [post]
// @Router       /api/bills [post]
func (h *CatalogHandler[T]) Create(c *fiber.Ctx) error {
	var in T
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return writeResult(c, fiber.StatusCreated, h.m.Create(c.UserContext(), in))
}

// Update godoc
// @Summary      Modificar un registro del catálogo
// @Tags         catalog
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string  true  "ID del registro"
// @Param        body  body  object  true  "Registro"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [put]
// @Router       /api/parties/{id} [put]
// @Router       /api/bills/{id} [put]
func (h *CatalogHandler[T]) Update(c *fiber.Ctx) error {
	var in T
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in = h.withID(in, c.Params("id"))
	return writeResult(c, fiber.StatusOK, h.m.Update(c.UserContext(), in))
}

// Delete godoc
// @Summary      Eliminar un registro del catálogo
// @Tags         catalog
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del registro"
// @Success      204
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/products/{id} [delete]
// @Router       /api/parties/{id} [delete]
// @Router       /api/bills/{id} [delete]
func (h *CatalogHandler[T]) Delete(c *fiber.Ctx) error {
	res := h.m.Delete(c.UserContext(), c.Params("id"))
	if !res.OK() {
		return writeError(c, res.Err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
