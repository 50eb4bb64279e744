package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-sync/internal/application/dto"
	"github.com/jhoicas/inventario-sync/internal/application/inventory"
	"github.com/jhoicas/inventario-sync/internal/application/validation"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	domaininv "github.com/jhoicas/inventario-sync/internal/domain/inventory"
)

// StockCheckHandler conteos físicos: vistas, envío de sesiones y procesamiento de varianzas.
type StockCheckHandler struct {
	uc  *inventory.StockCheckUseCase
	loc *time.Location
}

// NewStockCheckHandler construye el handler.
func NewStockCheckHandler(uc *inventory.StockCheckUseCase, loc *time.Location) *StockCheckHandler {
	if loc == nil {
		loc = time.Local
	}
	return &StockCheckHandler{uc: uc, loc: loc}
}

// Grouped godoc
// @Summary      Conteos agrupados por sesión
// @Description  Recarga del servidor en el canal del usuario; la vista sale de esa misma recarga.
// @Tags         stock-checks
// @Security     Bearer
// @Produce      json
// @Param        from    query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to      query  string  false  "Hasta (YYYY-MM-DD, inclusive)"
// @Param        status  query  string  false  "MATCH, SHORTAGE u OVERAGE"
// @Param        search  query  string  false  "Texto en producto o referencia"
// @Success      200  {object}  dto.StockCheckOverview
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock-checks [get]
func (h *StockCheckHandler) Grouped(c *fiber.Ctx) error {
	f, search, err := h.filter(c)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := h.uc.RefreshFor(c.UserContext(), GetUserID(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(dto.StockCheckOverview{
		Summaries:        h.uc.SummariesOf(rows, f, search),
		UnprocessedCount: len(domaininv.RequiresAttention(rows)),
	})
}

// Flat godoc
// @Summary      Conteos en lista plana
// @Tags         stock-checks
// @Security     Bearer
// @Produce      json
// @Param        from    query  string  false  "Desde (YYYY-MM-DD)"
// @Param        to      query  string  false  "Hasta (YYYY-MM-DD, inclusive)"
// @Param        status  query  string  false  "MATCH, SHORTAGE u OVERAGE"
// @Param        search  query  string  false  "Texto en producto o referencia"
// @Success      200  {array}  entity.StockCheckResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock-checks/flat [get]
func (h *StockCheckHandler) Flat(c *fiber.Ctx) error {
	f, search, err := h.filter(c)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := h.uc.RefreshFor(c.UserContext(), GetUserID(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(h.uc.FlatOf(rows, f, search))
}

// Attention godoc
// @Summary      Conteos con diferencia sin procesar
// @Tags         stock-checks
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  entity.StockCheckResult
// @Failure      401  {object}  dto.ErrorResponse
// @Router       /api/stock-checks/attention [get]
func (h *StockCheckHandler) Attention(c *fiber.Ctx) error {
	return c.JSON(h.uc.RequiresAttention())
}

// Submit godoc
// @Summary      Registrar una sesión de conteo
// @Description  Sin checkedBy se usa el usuario del token.
// @Tags         stock-checks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SubmitCountRequest  true  "checkReference, counts"
// @Success      201  {array}  entity.StockCheckResult
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock-checks [post]
func (h *StockCheckHandler) Submit(c *fiber.Ctx) error {
	var in dto.SubmitCountRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	if strings.TrimSpace(in.CheckedBy) == "" {
		in.CheckedBy = GetUserID(c)
	}
	rows, err := h.uc.SubmitCount(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rows)
}

// Process godoc
// @Summary      Procesar la varianza de un conteo
// @Description  Idempotente: una fila ya procesada responde 200 sin volver al servidor.
// @Tags         stock-checks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del conteo"
// @Success      200  {object}  entity.StockCheckResult
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/stock-checks/{id}/process [post]
func (h *StockCheckHandler) Process(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, ok := h.uc.Row(id); !ok {
		if _, err := h.uc.Refresh(c.UserContext(), domaininv.CheckFilter{}); err != nil {
			return writeError(c, err)
		}
	}
	return writeResult(c, fiber.StatusOK, h.uc.ProcessVariance(c.UserContext(), id, GetUserID(c)))
}

func (h *StockCheckHandler) filter(c *fiber.Ctx) (domaininv.CheckFilter, string, error) {
	var q dto.StockCheckQuery
	if err := c.QueryParser(&q); err != nil {
		return domaininv.CheckFilter{}, "", domain.NewValidationError("parámetros de consulta inválidos")
	}
	if err := validation.Struct(q); err != nil {
		return domaininv.CheckFilter{}, "", err
	}
	from, errFrom := parseDate(q.From, h.loc, false)
	to, errTo := parseDate(q.To, h.loc, false)
	var violations []string
	if errFrom != nil {
		violations = append(violations, "from: "+errFrom.Error())
	}
	if errTo != nil {
		violations = append(violations, "to: "+errTo.Error())
	}
	if err := domain.NewValidationError(violations...); err != nil {
		return domaininv.CheckFilter{}, "", err
	}
	return domaininv.CheckFilter{
		From:     from,
		To:       to,
		Status:   entity.CheckStatus(q.Status),
		Location: h.loc,
	}, q.Search, nil
}
