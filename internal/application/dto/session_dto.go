package dto

import "time"

// RemoteTokenRequest body para PUT /api/session/remote-token.
type RemoteTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// RemoteTokenResponse estado de la credencial con la que se habla al servidor.
// ExpiresAt es nil para tokens opacos o sin exp.
type RemoteTokenResponse struct {
	HasToken  bool       `json:"hasToken"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}
