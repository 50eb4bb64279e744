package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// Formatos aceptados; el servicio remoto a veces omite la zona horaria.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// Timestamp instante tolerante a los formatos del servicio remoto.
// Sin zona se interpreta en hora local.
type Timestamp struct {
	time.Time
}

// NewTimestamp envuelve un time.Time.
func NewTimestamp(t time.Time) Timestamp { return Timestamp{Time: t} }

// UnmarshalJSON acepta string ISO-8601 (con o sin zona) o null.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if s == "" {
		t.Time = time.Time{}
		return nil
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// MarshalJSON serializa en RFC3339; el instante cero sale como null.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Time.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// ParseTimestamp interpreta s con los formatos aceptados.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return parsed, nil
		}
	}
	return time.Time{}, fmt.Errorf("timestamp: formato no reconocido %q", s)
}
