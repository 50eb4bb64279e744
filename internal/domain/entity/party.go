package entity

// Tipos de tercero.
const (
	PartyTypeCustomer = "CUSTOMER"
	PartyTypeSupplier = "SUPPLIER"
)

// Party representa un tercero (cliente o proveedor).
type Party struct {
	ID        string    `json:"id"`
	PartyType string    `json:"partyType" validate:"required,oneof=CUSTOMER SUPPLIER"`
	Name      string    `json:"name" validate:"required,max=200"`
	TaxID     string    `json:"taxId" validate:"required"` // NIT o documento
	Email     string    `json:"email" validate:"omitempty,email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	UpdatedAt Timestamp `json:"updatedAt"`
}

// EntityID identificador para el store optimista.
func (p Party) EntityID() string { return p.ID }
