package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/inventario-sync/internal/domain"
)

var (
	once     sync.Once
	validate *validator.Validate
)

// instance validador compartido (es seguro para uso concurrente y cachea las estructuras).
func instance() *validator.Validate {
	once.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
		// Los decimales se validan como números: gt=0, gte=0, ne=0 funcionan igual que en float64.
		v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
			if d, ok := field.Interface().(decimal.Decimal); ok {
				return d.InexactFloat64()
			}
			return nil
		}, decimal.Decimal{})
		validate = v
	})
	return validate
}

// Struct valida v según sus etiquetas `validate` y devuelve un *domain.ValidationError
// con todas las reglas violadas, o nil.
func Struct(v any) error {
	err := instance().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return domain.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, message(fe))
	}
	return domain.NewValidationError(msgs...)
}

// Merge une varios resultados de validación en uno solo; nil si todos son nil.
// Errores que no son de validación se devuelven tal cual.
func Merge(errs ...error) error {
	var msgs []string
	for _, err := range errs {
		if err == nil {
			continue
		}
		var ve *domain.ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		msgs = append(msgs, ve.Violations...)
	}
	return domain.NewValidationError(msgs...)
}

func message(fe validator.FieldError) string {
	field := fieldPath(fe)
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s es obligatorio", field)
	case "max":
		return fmt.Sprintf("%s admite como máximo %s caracteres", field, fe.Param())
	case "min":
		return fmt.Sprintf("%s requiere al menos %s elementos", field, fe.Param())
	case "email":
		return fmt.Sprintf("%s no es un correo válido", field)
	case "oneof":
		return fmt.Sprintf("%s debe ser uno de: %s", field, fe.Param())
	case "gt":
		if fe.Param() == "0" {
			return fmt.Sprintf("%s debe ser mayor que cero", field)
		}
		return fmt.Sprintf("%s debe ser mayor que %s", field, fe.Param())
	case "gte":
		if fe.Param() == "0" {
			return fmt.Sprintf("%s no puede ser negativo", field)
		}
		return fmt.Sprintf("%s debe ser al menos %s", field, fe.Param())
	case "ne":
		return fmt.Sprintf("%s no puede ser %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s no cumple la regla %s", field, fe.Tag())
	}
}

// fieldPath ruta sin el nombre del tipo raíz (lines[0].productId en vez de Bill.lines[0].productId).
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}
