package domain

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Errores de dominio. Los tipos concretos de más abajo implementan Is para
// que los llamadores puedan usar errors.Is contra estos valores.
var (
	ErrNotFound           = errors.New("recurso no encontrado")
	ErrValidation         = errors.New("entrada inválida")
	ErrUnauthorized       = errors.New("no autorizado")
	ErrForbidden          = errors.New("acceso denegado")
	ErrConflict           = errors.New("conflicto con el estado actual")
	ErrNetwork            = errors.New("error de red")
	ErrServer             = errors.New("error del servidor")
	ErrLedgerRead         = errors.New("no se pudo leer el libro de movimientos")
	ErrSuperseded         = errors.New("petición reemplazada por una más reciente")
	ErrMutationInProgress = errors.New("ya hay una modificación en curso para este registro")
	ErrLifecycleClosed    = errors.New("el contexto de peticiones fue cerrado")
)

// ValidationError agrupa todas las reglas violadas de una entrada; nunca llega a la red.
type ValidationError struct {
	Violations []string
}

// NewValidationError construye el error; devuelve nil si no hay violaciones.
func NewValidationError(violations ...string) error {
	if len(violations) == 0 {
		return nil
	}
	return &ValidationError{Violations: violations}
}

func (e *ValidationError) Error() string {
	return "validación: " + strings.Join(e.Violations, "; ")
}

// Is permite errors.Is(err, ErrValidation).
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// RemoteError describe un fallo operativo devuelto por el servicio remoto o por el transporte.
// Message es el mensaje más específico disponible (cuerpo → texto de estado → genérico).
type RemoteError struct {
	Kind    error // uno de ErrConflict, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrNetwork, ErrServer
	Status  int   // 0 para fallos de transporte
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("remoto HTTP %d: %s", e.Status, e.Message)
	}
	return "remoto: " + e.Message
}

// Is compara contra la categoría del error.
func (e *RemoteError) Is(target error) bool { return target == e.Kind }

// Unwrap expone la causa (p. ej. context.Canceled en peticiones abortadas).
func (e *RemoteError) Unwrap() error { return e.Err }

// KindForStatus traduce un código HTTP a la categoría de error del dominio.
func KindForStatus(status int) error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUnauthorized
	case status == http.StatusForbidden:
		return ErrForbidden
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusConflict:
		return ErrConflict
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return ErrValidation
	default:
		return ErrServer
	}
}

// LedgerReadError distingue un fallo de lectura del libro de "sin movimientos".
type LedgerReadError struct {
	ProductID string
	Err       error
}

func (e *LedgerReadError) Error() string {
	if e.ProductID != "" {
		return fmt.Sprintf("%s (producto %s): %v", ErrLedgerRead.Error(), e.ProductID, e.Err)
	}
	return fmt.Sprintf("%s: %v", ErrLedgerRead.Error(), e.Err)
}

// Is permite errors.Is(err, ErrLedgerRead).
func (e *LedgerReadError) Is(target error) bool { return target == ErrLedgerRead }

func (e *LedgerReadError) Unwrap() error { return e.Err }

// IsAuth indica un error terminal para la credencial actual (401 o 403).
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrForbidden)
}

// IsRetryable indica si el usuario puede reintentar explícitamente. Nunca se reintenta solo.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrNetwork) && !errors.Is(err, ErrSuperseded)
}

// Message devuelve el texto más específico para mostrar al usuario.
func Message(err error) string {
	var re *RemoteError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		return strings.Join(ve.Violations, "; ")
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
