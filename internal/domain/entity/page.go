package entity

// Page envoltorio paginado del servicio remoto
// ({content, number, size, totalElements, totalPages, first, last}).
type Page[T any] struct {
	Content       []T   `json:"content"`
	Number        int   `json:"number"`
	Size          int   `json:"size"`
	TotalElements int64 `json:"totalElements"`
	TotalPages    int   `json:"totalPages"`
	First         bool  `json:"first"`
	Last          bool  `json:"last"`
}

// EmptyPage página vacía válida; se usa cuando el envoltorio falta o viene incompleto.
func EmptyPage[T any]() Page[T] {
	return Page[T]{Content: []T{}, First: true, Last: true}
}

// ListQuery paginación y búsqueda de los listados del catálogo.
type ListQuery struct {
	Page   int    `json:"page"`
	Size   int    `json:"size"`
	Search string `json:"search"`
}
