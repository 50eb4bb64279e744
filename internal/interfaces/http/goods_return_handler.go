package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-sync/internal/application/dto"
	"github.com/jhoicas/inventario-sync/internal/application/inventory"
)

// GoodsReturnHandler devoluciones a proveedor.
type GoodsReturnHandler struct {
	uc *inventory.GoodsReturnUseCase
}

// NewGoodsReturnHandler construye el handler.
func NewGoodsReturnHandler(uc *inventory.GoodsReturnUseCase) *GoodsReturnHandler {
	return &GoodsReturnHandler{uc: uc}
}

// Bills godoc
// @Summary      Buscar facturas devolvibles
// @Description  Cada usuario busca en su propio canal; la respuesta es la página de su consulta.
// @Tags         goods-returns
// @Security     Bearer
// @Produce      json
// @Param        search  query  string  false  "Número de factura o proveedor"
// @Param        page    query  int     false  "Página (desde 0)"
// @Success      200  {object}  entity.Page[entity.ReturnableBill]
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/goods-returns/bills [get]
func (h *GoodsReturnHandler) Bills(c *fiber.Ctx) error {
	var q dto.PageRequest
	if err := c.QueryParser(&q); err != nil {
		return badBody(c)
	}
	q.DefaultPage()
	page, err := h.uc.BillsFor(c.UserContext(), GetUserID(c), q.Search, q.Page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(page)
}

// Lines godoc
// @Summary      Líneas devolvibles de una factura
// @Description  Cantidad recibida, ya devuelta y techo de devolución por línea.
// @Tags         goods-returns
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la factura"
// @Success      200  {object}  dto.ReturnableLinesResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/goods-returns/bills/{id}/lines [get]
func (h *GoodsReturnHandler) Lines(c *fiber.Ctx) error {
	billID := c.Params("id")
	lines, err := h.uc.ReturnableLines(c.UserContext(), billID)
	if err != nil {
		return writeError(c, err)
	}
	h.uc.Select(billID)
	return c.JSON(dto.ReturnableLinesResponse{BillID: billID, Lines: lines})
}

// Submit godoc
// @Summary      Registrar una devolución
// @Description  400 con todas las reglas violadas; 409 si el servidor la rechaza por duplicada.
// @Tags         goods-returns
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SubmitReturnRequest  true  "billId, lines (lineId, productId, quantityToReturn, reason)"
// @Success      201  {object}  entity.GoodsReturn
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/goods-returns [post]
func (h *GoodsReturnHandler) Submit(c *fiber.Ctx) error {
	var in dto.SubmitReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	return writeResult(c, fiber.StatusCreated, h.uc.Submit(c.UserContext(), in.GoodsReturnRequest, in.SelectedBillID))
}

// List godoc
// @Summary      Devoluciones creadas por este servicio
// @Tags         goods-returns
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  map[string]interface{}
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/goods-returns [get]
func (h *GoodsReturnHandler) List(c *fiber.Ctx) error {
	items := h.uc.Returns()
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = fiber.Map{"return": it.Value, "pending": it.Optimistic}
	}
	return c.JSON(out)
}
