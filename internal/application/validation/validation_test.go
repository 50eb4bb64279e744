package validation_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sync/internal/application/validation"
	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
)

type adjustInput struct {
	ProductID string          `json:"productId" validate:"required"`
	Quantity  decimal.Decimal `json:"quantity" validate:"ne=0"`
	Cost      decimal.Decimal `json:"cost" validate:"gte=0"`
}

func TestStruct_ReportaTodasLasViolaciones(t *testing.T) {
	err := validation.Struct(entity.Party{Email: "no-es-correo"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrValidation))

	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Len(t, ve.Violations, 4, "partyType, name, taxId y email: %v", ve.Violations)
	assert.Contains(t, ve.Violations, "name es obligatorio")
}

func TestStruct_Valido(t *testing.T) {
	p := entity.Party{PartyType: entity.PartyTypeSupplier, Name: "Ferretería", TaxID: "900123456"}
	assert.NoError(t, validation.Struct(p))
}

func TestStruct_ReglasDecimales(t *testing.T) {
	err := validation.Struct(adjustInput{Cost: decimal.NewFromInt(-1)})
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.ElementsMatch(t, []string{
		"productId es obligatorio",
		"quantity no puede ser 0",
		"cost no puede ser negativo",
	}, ve.Violations)

	assert.NoError(t, validation.Struct(adjustInput{ProductID: "P", Quantity: decimal.NewFromInt(-3)}))
}

func TestStruct_LineasAnidadas(t *testing.T) {
	b := entity.Bill{
		BillNumber: "FC-1",
		BillType:   entity.BillTypePurchase,
		PartyID:    "S1",
		Lines:      []entity.BillLine{{}},
	}
	err := validation.Struct(b)
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"lines[0].productId es obligatorio"}, ve.Violations)
}

func TestMerge(t *testing.T) {
	err := validation.Merge(nil, domain.NewValidationError("a"), domain.NewValidationError("b", "c"))
	var ve *domain.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, []string{"a", "b", "c"}, ve.Violations)

	assert.NoError(t, validation.Merge(nil, nil))

	other := errors.New("otro")
	assert.Equal(t, other, validation.Merge(domain.NewValidationError("a"), other))
}
