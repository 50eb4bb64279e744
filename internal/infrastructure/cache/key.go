package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Key clave determinista a partir de la operación y sus parámetros serializados.
// Dos lecturas con los mismos filtros producen la misma clave (json ordena los mapas).
func Key(op string, params any) string {
	raw, err := json.Marshal(params)
	if err != nil {
		raw = []byte(fmt.Sprintf("%#v", params))
	}
	sum := sha256.Sum256(raw)
	return op + ":" + hex.EncodeToString(sum[:])
}
