package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/inventario-sync/internal/domain"
	"github.com/jhoicas/inventario-sync/internal/domain/entity"
	"github.com/jhoicas/inventario-sync/internal/infrastructure/remote"
	pkgjwt "github.com/jhoicas/inventario-sync/pkg/jwt"
	"github.com/jhoicas/inventario-sync/pkg/logger"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newClient(t *testing.T, h http.HandlerFunc, token string) (*remote.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := remote.New(remote.Config{BaseURL: srv.URL, HTTPClient: srv.Client()},
		remote.NewCredentials(token), nil, logger.Nop())
	return c, srv
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

// ──────────────────────────────────────────────────────────────────────────────
// Autenticación
// ──────────────────────────────────────────────────────────────────────────────

func TestClient_EnviaBearerSoloConToken(t *testing.T) {
	var got atomic.Value
	h := func(w http.ResponseWriter, r *http.Request) {
		got.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `65`)
	}

	c, _ := newClient(t, h, "abc")
	_, err := c.CurrentStock(context.Background(), "P")
	require.NoError(t, err)
	assert.Equal(t, "Bearer abc", got.Load())

	c2, _ := newClient(t, h, "")
	_, err = c2.CurrentStock(context.Background(), "P")
	require.NoError(t, err)
	assert.Equal(t, "", got.Load(), "sin token no se envía cabecera")
}

func TestClient_401BorraLaCredencial(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"token inválido"}`)
	}, "abc")

	_, err := c.CurrentStock(context.Background(), "P")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.True(t, domain.IsAuth(err))
	assert.Equal(t, "token inválido", domain.Message(err))
	assert.Empty(t, c.Credentials().Token(), "un 401 obliga a autenticarse de nuevo")
}

func TestClient_TokenVencidoNoLlegaALaRed(t *testing.T) {
	var calls int32
	tok, err := pkgjwt.Generate("otro-servicio", "u", "c", "admin", "remoto", -1)
	require.NoError(t, err)
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		writeJSON(w, http.StatusOK, `1`)
	}, tok)

	_, err = c.CurrentStock(context.Background(), "P")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
	assert.Zero(t, atomic.LoadInt32(&calls))
	assert.Empty(t, c.Credentials().Token())
}

func TestClient_403NoBorraLaCredencial(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusForbidden, `{}`)
	}, "abc")
	_, err := c.Status(context.Background(), "P")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, "Forbidden", domain.Message(err), "sin mensaje en el cuerpo se usa el texto de estado")
	assert.Equal(t, "abc", c.Credentials().Token())
}

// ──────────────────────────────────────────────────────────────────────────────
// Errores
// ──────────────────────────────────────────────────────────────────────────────

func TestClient_MensajeDeErrorPorPrioridad(t *testing.T) {
	cases := []struct {
		body string
		want string
	}{
		{`{"message":"m","error":"e","detail":"d"}`, "m"},
		{`{"error":"e","detail":"d"}`, "e"},
		{`{"detail":"d"}`, "d"},
		{`no es json`, "Internal Server Error"},
	}
	for _, tc := range cases {
		body := tc.body
		c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusInternalServerError, body)
		}, "")
		_, err := c.Status(context.Background(), "P")
		assert.ErrorIs(t, err, domain.ErrServer)
		assert.Equal(t, tc.want, domain.Message(err), "cuerpo %s", tc.body)
	}
}

func TestClient_409EsConflicto(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusConflict, `{"message":"ya existe una devolución para este producto"}`)
	}, "")
	_, err := c.CreateGoodsReturn(context.Background(), entity.GoodsReturnRequest{BillID: "B1"})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.False(t, domain.IsRetryable(err))
}

func TestClient_404EnBusquedaPorID(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, `{"message":"factura no encontrada"}`)
	}, "")
	_, err := c.ReturnableBill(context.Background(), "B404")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_FalloDeRedEsReintentable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()
	c := remote.New(remote.Config{BaseURL: url, Timeout: time.Second}, nil, nil, nil)

	_, err := c.CurrentStock(context.Background(), "P")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.True(t, domain.IsRetryable(err))
}

func TestClient_CancelacionEsErrorDeRed(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}, "")
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.CurrentStock(ctx, "P")
	assert.ErrorIs(t, err, domain.ErrNetwork)
	assert.ErrorIs(t, err, context.Canceled)
}

// ──────────────────────────────────────────────────────────────────────────────
// Endpoints
// ──────────────────────────────────────────────────────────────────────────────

func TestMovementsByProduct_NormalizaYOrdena(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/stock/movements/product/P-1", r.URL.Path)
		writeJSON(w, http.StatusOK, `[
			{"id":"2","productId":"P-1","movementType":"SALE","quantity":-30,"eventTimestamp":"2024-01-02T10:00:00Z"},
			{"id":"1","productId":"P-1","movementType":"RECEIPT","quantity":100,"eventTimestamp":"2024-01-01T10:00:00Z","notes":null}
		]`)
	}, "")

	got, err := c.MovementsByProduct(context.Background(), "P-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "", got[0].Notes)
	assert.True(t, decimal.NewFromInt(-30).Equal(got[1].Quantity))
}

func TestMovementsByProduct_CuerpoTruncadoNoEsListaVacia(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"content": [{"productId": "P", "quantity": 100}`)
	}, "")

	got, err := c.MovementsByProduct(context.Background(), "P")
	require.Error(t, err, "un cuerpo ilegible no equivale a cero movimientos")
	assert.Nil(t, got)
	assert.ErrorIs(t, err, domain.ErrServer)
}

func TestCurrentStock_NumeroUObjeto(t *testing.T) {
	body := `65.5`
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "P", r.URL.Query().Get("productId"))
		writeJSON(w, http.StatusOK, body)
	}, "")
	got, err := c.CurrentStock(context.Background(), "P")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("65.5").Equal(got))

	body = `{"currentStock": 12}`
	got, err = c.CurrentStock(context.Background(), "P")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(12).Equal(got))
}

func TestCheckAvailability(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "5", r.URL.Query().Get("requiredQuantity"))
		writeJSON(w, http.StatusOK, `true`)
	}, "")
	ok, err := c.CheckAvailability(context.Background(), "P", decimal.NewFromInt(5))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAdjust_EnviaCuerpoYAceptaUnSoloMovimiento(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "P", body["productId"])
		writeJSON(w, http.StatusOK, `{"id":"m9","productId":"P","movementType":"ADJUSTMENT","quantity":"-5"}`)
	}, "")

	got, err := c.Adjust(context.Background(), entity.AdjustmentRequest{ProductID: "P", Quantity: decimal.NewFromInt(-5), Reason: "conteo"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.MovementTypeAdjustment, got[0].MovementType)
}

func TestReturnableBills_BusquedaUsaSearch(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/goods-returns/returnable-bills/search", r.URL.Path)
		assert.Equal(t, "FC-1", r.URL.Query().Get("query"))
		writeJSON(w, http.StatusOK, `{"content":[{"id":"B1","billNumber":"FC-1"}],"totalElements":1}`)
	}, "")
	page, err := c.ReturnableBills(context.Background(), "FC-1", 0, 20)
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	assert.Equal(t, int64(1), page.TotalElements)
	assert.True(t, page.Last)
}

func TestResource_CRUD(t *testing.T) {
	c, _ := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/parties":
			assert.Equal(t, "ana", r.URL.Query().Get("search"))
			writeJSON(w, http.StatusOK, `{"content":[{"id":"p1","name":"Ana"}],"number":0,"size":20,"totalElements":1,"totalPages":1,"first":true,"last":true}`)
		case r.Method == http.MethodPost && r.URL.Path == "/parties":
			writeJSON(w, http.StatusCreated, `{"id":"p2","name":"Beto","partyType":"SUPPLIER"}`)
		case r.Method == http.MethodPut && r.URL.Path == "/parties/p2":
			w.WriteHeader(http.StatusNoContent)
		case r.Method == http.MethodDelete && r.URL.Path == "/parties/p2":
			w.WriteHeader(http.StatusNoContent)
		default:
			writeJSON(w, http.StatusNotFound, `{}`)
		}
	}, "")
	ctx := context.Background()
	parties := c.Parties()

	page, err := parties.List(ctx, entity.ListQuery{Page: 0, Size: 20, Search: "ana"})
	require.NoError(t, err)
	assert.Equal(t, "Ana", page.Content[0].Name)

	created, err := parties.Create(ctx, entity.Party{Name: "Beto"})
	require.NoError(t, err)
	assert.Equal(t, "p2", created.ID)

	updated, err := parties.Update(ctx, "p2", entity.Party{ID: "p2", Name: "Beto B."})
	require.NoError(t, err)
	assert.Equal(t, "Beto B.", updated.Name, "sin cuerpo se conserva el valor enviado")

	require.NoError(t, parties.Delete(ctx, "p2"))
	_, err = parties.Get(ctx, "p3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
