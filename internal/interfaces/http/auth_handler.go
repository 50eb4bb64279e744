package http

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/inventario-sync/internal/application/dto"
	"github.com/jhoicas/inventario-sync/internal/application/validation"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/remote"
	pkgjwt "github.com/jhoicas/inventario-sync/pkg/jwt"
)

// AuthHandler administra la credencial del servicio remoto. El servidor la invalida
// con un 401; aquí se instala una nueva sin reiniciar el proceso.
type AuthHandler struct {
	creds *remote.Credentials
	now   func() time.Time
}

// NewAuthHandler construye el handler sobre las credenciales del cliente remoto.
func NewAuthHandler(creds *remote.Credentials) *AuthHandler {
	return &AuthHandler{creds: creds, now: time.Now}
}

// RemoteToken godoc
// @Summary      Estado de la credencial del servicio remoto
// @Tags         session
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.RemoteTokenResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/session/remote-token [get]
func (h *AuthHandler) RemoteToken(c *fiber.Ctx) error {
	return c.JSON(h.status(h.creds.Token()))
}

// SetRemoteToken godoc
// @Summary      Instalar la credencial del servicio remoto
// @Description  Un JWT ya vencido se rechaza; un token opaco se acepta tal cual.
// @Tags         session
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RemoteTokenRequest  true  "token (con o sin prefijo Bearer)"
// @Success      200  {object}  dto.RemoteTokenResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/session/remote-token [put]
func (h *AuthHandler) SetRemoteToken(c *fiber.Ctx) error {
	var in dto.RemoteTokenRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	in.Token = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(in.Token), "Bearer "))
	if err := validation.Struct(in); err != nil {
		return writeError(c, err)
	}
	if pkgjwt.Expired(in.Token, h.now()) {
		return writeError(c, domain.NewValidationError("token: ya está vencido"))
	}
	h.creds.Set(in.Token)
	return c.JSON(h.status(in.Token))
}

// ClearRemoteToken godoc
// @Summary      Borrar la credencial del servicio remoto
// @Tags         session
// @Security     Bearer
// @Produce      json
// @Success      204
// @Failure      401  {object}  dto.ErrorResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/session/remote-token [delete]
func (h *AuthHandler) ClearRemoteToken(c *fiber.Ctx) error {
	h.creds.Clear()
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuthHandler) status(token string) dto.RemoteTokenResponse {
	out := dto.RemoteTokenResponse{HasToken: token != ""}
	if exp, ok, err := pkgjwt.ExpiresAt(token); err == nil && ok {
		out.ExpiresAt = &exp
	}
	return out
}
