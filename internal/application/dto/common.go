package dto

// PageRequest paginación y búsqueda para listados.
type PageRequest struct {
	Page   int    `query:"page" validate:"min=0"`
	Size   int    `query:"size" validate:"min=0,max=200"`
	Search string `query:"search"`
}

// DefaultPage aplica valores por defecto si Size es cero o Page negativo.
func (p *PageRequest) DefaultPage() {
	if p.Size <= 0 {
		p.Size = 20
	}
	if p.Page < 0 {
		p.Page = 0
	}
}

// ErrorResponse cuerpo de error HTTP. Details lista todas las reglas violadas
// cuando el error es de validación.
type ErrorResponse struct {
	Code    string   `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details,omitempty"`
}
