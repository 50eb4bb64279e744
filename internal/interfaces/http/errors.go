package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-sync/internal/application/dto"
	"github.com/jhoicas/inventario-sync/internal/application/optimistic"
	"github.com/jhoicas/inventario-sync/internal/domain"
)

// errorStatus traduce un error de dominio a código HTTP y código de error.
// El orden importa: un LedgerReadError envuelve al error remoto que lo causó.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrUnauthorized):
		return fiber.StatusUnauthorized, "REMOTE_UNAUTHORIZED"
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrMutationInProgress):
		return fiber.StatusConflict, "MUTATION_IN_PROGRESS"
	case errors.Is(err, domain.ErrSuperseded):
		return fiber.StatusConflict, "SUPERSEDED"
	case errors.Is(err, domain.ErrLifecycleClosed):
		return fiber.StatusServiceUnavailable, "SHUTTING_DOWN"
	case errors.Is(err, domain.ErrNetwork):
		return fiber.StatusServiceUnavailable, "REMOTE_UNAVAILABLE"
	case errors.Is(err, domain.ErrLedgerRead):
		return fiber.StatusBadGateway, "LEDGER_READ"
	case errors.Is(err, domain.ErrServer):
		return fiber.StatusBadGateway, "REMOTE_ERROR"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

// writeError responde con dto.ErrorResponse. Los errores de validación llevan todas
// las reglas violadas en Details.
func writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	resp := dto.ErrorResponse{Code: code, Message: domain.Message(err)}
	var ve *domain.ValidationError
	if errors.As(err, &ve) {
		resp.Message = "datos inválidos"
		resp.Details = ve.Violations
	}
	return c.Status(status).JSON(resp)
}

// writeResult responde el valor confirmado de una mutación optimista o su error.
func writeResult[T any](c *fiber.Ctx, status int, res optimistic.Result[T]) error {
	if !res.OK() {
		return writeError(c, res.Err)
	}
	return c.Status(status).JSON(res.Value)
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
