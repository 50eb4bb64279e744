package http

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sync/internal/application/dto"
	"github.com/jhoicas/inventario-sync/internal/application/inventory"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-sync/internal/domain/inventory"
)

// InventoryHandler maneja las peticiones HTTP del libro de movimientos (protegido).
type InventoryHandler struct {
	uc       *inventory.LedgerUseCase
	products inventory.ProductReader // opcional: unidad para mostrar cantidades
	loc      *time.Location
}

// NewInventoryHandler construye el handler. products puede ser nil.
func NewInventoryHandler(uc *inventory.LedgerUseCase, products inventory.ProductReader, loc *time.Location) *InventoryHandler {
	if loc == nil {
		loc = time.Local
	}
	return &InventoryHandler{uc: uc, products: products, loc: loc}
}

// CurrentStock godoc
// @Summary      Stock actual de un producto
// @Description  Suma de los movimientos del libro hasta ahora.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.StockResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/current/{productId} [get]
func (h *InventoryHandler) CurrentStock(c *fiber.Ctx) error {
	productID := c.Params("productId")
	stock, err := h.uc.CurrentStock(c.UserContext(), productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockResponse{ProductID: productID, CurrentStock: stock})
}

// Drift godoc
// @Summary      Diferencia entre libro y stock reportado
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.DriftResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/drift/{productId} [get]
func (h *InventoryHandler) Drift(c *fiber.Ctx) error {
	d, err := h.uc.Drift(c.UserContext(), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.DriftResponse{
		ProductID: d.ProductID,
		Folded:    d.Folded,
		Reported:  d.Reported,
		Drift:     d.Value(),
	})
}

// History godoc
// @Summary      Historial de movimientos de un producto
// @Description  Orden cronológico, magnitudes para mostrar y totales por tipo.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.HistoryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/product/{productId} [get]
func (h *InventoryHandler) History(c *fiber.Ctx) error {
	ctx := c.UserContext()
	productID := c.Params("productId")
	movs, err := h.uc.History(ctx, productID)
	if err != nil {
		return writeError(c, err)
	}
	stock, err := h.uc.CurrentStock(ctx, productID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.HistoryResponse{
		ProductID:    productID,
		CurrentStock: stock,
		Movements:    h.display(ctx, productID, movs),
		Totals:       domaininv.TotalsByType(movs),
	})
}

// ByDateRange godoc
// @Summary      Movimientos por rango de fechas
// @Description  Acepta YYYY-MM-DD (día completo) o RFC3339.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        startDate  query  string  false  "Desde"
// @Param        endDate    query  string  false  "Hasta (inclusive)"
// @Success      200  {array}  entity.StockMovement
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/date-range [get]
func (h *InventoryHandler) ByDateRange(c *fiber.Ctx) error {
	from, err := parseDate(c.Query("startDate"), h.loc, false)
	if err != nil {
		return writeError(c, domain.NewValidationError("startDate: "+err.Error()))
	}
	to, err := parseDate(c.Query("endDate"), h.loc, true)
	if err != nil {
		return writeError(c, domain.NewValidationError("endDate: "+err.Error()))
	}
	movs, err := h.uc.ByDateRange(c.UserContext(), from, to)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(movs)
}

// ByType godoc
// @Summary      Movimientos por tipo
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        type        path   string  true   "RECEIPT, SALE, ADJUSTMENT, RETURN, DISPOSAL..."
// @Param        productId   query  string  false  "Filtrar por producto"
// @Param        categoryId  query  string  false  "Filtrar por categoría"
// @Success      200  {array}  entity.StockMovement
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/movements/type/{type} [get]
func (h *InventoryHandler) ByType(c *fiber.Ctx) error {
	t := entity.MovementType(strings.ToUpper(c.Params("type")))
	movs, err := h.uc.ByType(c.UserContext(), t, c.Query("productId"), c.Query("categoryId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(movs)
}

// Status godoc
// @Summary      Estado de stock de un producto
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  entity.StockStatus
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/status/{productId} [get]
func (h *InventoryHandler) Status(c *fiber.Ctx) error {
	st, err := h.uc.Status(c.UserContext(), c.Params("productId"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(st)
}

// Availability godoc
// @Summary      Disponibilidad para una cantidad
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        productId  query  string  true  "ID del producto"
// @Param        quantity   query  string  true  "Cantidad requerida"
// @Success      200  {object}  dto.AvailabilityResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/availability [get]
func (h *InventoryHandler) Availability(c *fiber.Ctx) error {
	productID := c.Query("productId")
	qty, err := decimal.NewFromString(c.Query("quantity", "0"))
	if err != nil {
		return writeError(c, domain.NewValidationError("quantity: debe ser un número"))
	}
	ok, err := h.uc.CheckAvailability(c.UserContext(), productID, qty)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.AvailabilityResponse{ProductID: productID, Required: qty, Available: ok})
}

// Adjust godoc
// @Summary      Ajuste de inventario
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  entity.AdjustmentRequest  true  "productId, quantity (con signo), reason"
// @Success      201  {array}  entity.StockMovement
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in entity.AdjustmentRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	movs, err := h.uc.Adjust(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(movs)
}

// GoodsReceipt godoc
// @Summary      Entrada de mercancía
// @Description  Incluye el costo promedio proyectado cuando se pudo calcular.
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  entity.GoodsReceiptRequest  true  "productId, quantity, unitCost"
// @Success      201  {object}  dto.ReceiptResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/goods-receipt [post]
func (h *InventoryHandler) GoodsReceipt(c *fiber.Ctx) error {
	var in entity.GoodsReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	r, err := h.uc.GoodsReceipt(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	resp := dto.ReceiptResponse{Movements: r.Movements}
	if r.Projected {
		cost := r.ProjectedCost
		resp.ProjectedCost = &cost
	}
	return c.Status(fiber.StatusCreated).JSON(resp)
}

// Disposal godoc
// @Summary      Baja de inventario
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  entity.DisposalRequest  true  "productId, quantity, reason"
// @Success      201  {array}  entity.StockMovement
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock/disposals [post]
func (h *InventoryHandler) Disposal(c *fiber.Ctx) error {
	var in entity.DisposalRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	movs, err := h.uc.Disposal(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(movs)
}

func (h *InventoryHandler) display(ctx context.Context, productID string, movs []entity.StockMovement) []dto.MovementResponse {
	unit := ""
	if h.products != nil {
		// la unidad es solo presentación: si el catálogo falla se muestra sin ella
		if p, err := h.products.Get(ctx, productID); err == nil {
			unit = p.Unit
		}
	}
	out := make([]dto.MovementResponse, len(movs))
	for i, m := range movs {
		out[i] = dto.MovementResponse{StockMovement: m, Display: domaininv.Display(m, unit)}
	}
	return out
}

var errDateFormat = errors.New("formato esperado YYYY-MM-DD o RFC3339")

// parseDate lee YYYY-MM-DD en loc o RFC3339. Con endOfDay, una fecha sin hora cubre
// el día completo. Vacío devuelve la fecha cero.
func parseDate(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		if endOfDay {
			return t.AddDate(0, 0, 1).Add(-time.Millisecond), nil
		}
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, errDateFormat
	}
	return t, nil
}
