package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-sync/pkg/jwt"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

const genericMessage = "no se pudo completar la operación"

// Credentials token Bearer del servicio remoto. Un 401 lo borra y obliga a
// autenticarse de nuevo; nunca se reintenta con el mismo token.
type Credentials struct {
	mu    sync.RWMutex
	token string
}

// NewCredentials crea el contenedor con un token inicial (puede ser vacío).
func NewCredentials(token string) *Credentials {
	return &Credentials{token: token}
}

func (c *Credentials) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Credentials) Set(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

func (c *Credentials) Clear() { c.Set("") }

// Config parámetros del cliente remoto.
type Config struct {
	BaseURL string
	Timeout time.Duration
	// HTTPClient opcional (tests); si es nil se crea uno con transporte instrumentado.
	HTTPClient *http.Client
}

// Client cliente REST del servicio de inventario/facturación.
type Client struct {
	baseURL string
	http    *http.Client
	creds   *Credentials
	metrics *metrics.Metrics
	log     *logger.Logger
	now     func() time.Time
}

// New crea el cliente. Las trazas de cada llamada salen por otelhttp.
func New(cfg Config, creds *Credentials, m *metrics.Metrics, log *logger.Logger) *Client {
	if creds == nil {
		creds = NewCredentials("")
	}
	if log == nil {
		log = logger.Nop()
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    hc,
		creds:   creds,
		metrics: m,
		log:     log,
		now:     time.Now,
	}
}

// Credentials contenedor del token usado por el cliente.
func (c *Client) Credentials() *Credentials { return c.creds }

// do ejecuta la petición y decodifica la respuesta JSON en out (si no es nil).
// Todo error devuelto es *domain.RemoteError salvo fallos de serialización local.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	raw, err := c.doRaw(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &domain.RemoteError{Kind: domain.ErrServer, Status: http.StatusOK,
			Message: "respuesta del servidor ilegible", Err: err}
	}
	return nil
}

func (c *Client) doRaw(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	token := c.creds.Token()
	if token != "" && jwt.Expired(token, c.now()) {
		c.creds.Clear()
		c.log.Warn().Str("path", path).Msg("token vencido: se descarta la credencial")
		return nil, &domain.RemoteError{Kind: domain.ErrUnauthorized, Message: "la sesión expiró, inicie sesión de nuevo"}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("remote: serializar cuerpo: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("remote: construir petición: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveRemote(method, "0", time.Since(start).Seconds())
		msg := "no hay conexión con el servidor"
		if errors.Is(err, context.Canceled) {
			msg = "petición cancelada"
		}
		return nil, &domain.RemoteError{Kind: domain.ErrNetwork, Message: msg, Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	c.metrics.ObserveRemote(method, strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, &domain.RemoteError{Kind: domain.ErrNetwork, Status: resp.StatusCode,
			Message: "respuesta incompleta del servidor", Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		rerr := &domain.RemoteError{
			Kind:    domain.KindForStatus(resp.StatusCode),
			Status:  resp.StatusCode,
			Message: errorMessage(raw, resp.StatusCode),
		}
		if resp.StatusCode == http.StatusUnauthorized {
			c.creds.Clear()
			c.log.Warn().Str("path", path).Msg("401 del servidor: se descarta la credencial")
		}
		c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).
			Str("message", rerr.Message).Msg("error remoto")
		return nil, rerr
	}
	return raw, nil
}

// errorMessage mensaje más específico: cuerpo (message, error, detail) → texto de
// estado HTTP → genérico.
func errorMessage(raw []byte, status int) string {
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err == nil {
		for _, k := range []string{"message", "error", "detail"} {
			if s, ok := body[k].(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	if text := http.StatusText(status); text != "" {
		return text
	}
	return genericMessage
}

func escape(s string) string { return url.PathEscape(s) }
