package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gofinances/internal/dashboard"
	"gofinances/internal/events"
	"gofinances/internal/format"
	"gofinances/internal/services"
	"gofinances/internal/storage"
)

const seed = `[
	{"id":"1","type":"positive","title":"Desenvolvimento de site","amount":"12000","category":{"name":"Vendas","icon":"dollar-sign"},"date":"2020-04-13"},
	{"id":"2","type":"negative","title":"Hamburgueria Pizzy","amount":"59","category":{"name":"Alimentação","icon":"coffee"},"date":"2020-04-10"}
]`

type testEnv struct {
	srv    *Server
	store  *storage.Memory
	bus    *events.Bus
	screen *dashboard.Screen
}

func newTestEnv(t *testing.T, payload string) *testEnv {
	t.Helper()
	ctx := context.Background()

	store := storage.NewMemory()
	if payload != "" {
		require.NoError(t, store.Set(ctx, storage.DefaultKey, []byte(payload)))
	}
	repo := storage.NewTransactionRepository(store, "")
	bus := events.NewBus()
	loader := dashboard.NewLoader(repo, format.PortugueseBR)
	screen := dashboard.NewScreen(loader, bus, time.Second, nil)
	_ = screen.Mount(ctx)
	t.Cleanup(screen.Unmount)

	srv := NewServer(":0", Deps{
		Bus:          bus,
		Screen:       screen,
		Loader:       loader,
		Transactions: services.NewTransactionService(repo, bus, nil, nil),
		Profile:      Profile{DisplayName: "Rodrigo", Lang: "pt-BR"},
	})
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	return &testEnv{srv: srv, store: store, bus: bus, screen: screen}
}

func (e *testEnv) do(method, path, body, contentType string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", contentType)
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rr := httptest.NewRecorder()
	e.srv.Handler.ServeHTTP(rr, req)
	return rr
}

func TestIndex(t *testing.T) {
	env := newTestEnv(t, seed)

	visible := 0
	env.bus.Subscribe(events.Visible, func(context.Context, events.Event) { visible++ })

	rr := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, visible, "rendering the page should announce visibility")

	body := rr.Body.String()
	assert.Contains(t, body, "Rodrigo")
	assert.Contains(t, body, "R$ 12.000,00")
	assert.Contains(t, body, "R$ 59,00")
	assert.Contains(t, body, "R$ 11.941,00")
	assert.Contains(t, body, "13 de abril")
	assert.Contains(t, body, "10/04/2020 - 13/04/2020")
	assert.Contains(t, body, "Hamburgueria Pizzy")
	assert.NotContains(t, body, "spinner\"></div>")
	assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
}

func TestIndex_ReflectsChangesOnNextVisit(t *testing.T) {
	env := newTestEnv(t, "")

	rr := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "Nenhuma transação cadastrada.")

	// written behind the server's back, e.g. by another process
	require.NoError(t, env.store.Set(context.Background(), storage.DefaultKey, []byte(seed)))

	rr = env.do(http.MethodGet, "/", "", "")
	assert.Contains(t, rr.Body.String(), "Desenvolvimento de site")
}

type loadingScreen struct{}

func (loadingScreen) Snapshot() dashboard.State {
	return dashboard.State{Status: dashboard.Loading}
}

func TestIndex_Loading(t *testing.T) {
	srv := NewServer(":0", Deps{Bus: events.NewBus(), Screen: loadingScreen{}})
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `class="spinner"`)
	assert.NotContains(t, rr.Body.String(), "Entradas")
}

func TestIndex_LoadError(t *testing.T) {
	env := newTestEnv(t, `[{"id":"1","title":"x","amount":"abc","date":"2020-01-01"}]`)

	rr := env.do(http.MethodGet, "/", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `role="alert"`)
	assert.Contains(t, rr.Body.String(), "Nenhuma transação cadastrada.")
}

func TestDashboardAPI(t *testing.T) {
	env := newTestEnv(t, seed)

	rr := env.do(http.MethodGet, "/api/dashboard", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var view struct {
		Transactions []map[string]any `json:"transactions"`
		Highlight    struct {
			Entries  struct{ Amount string } `json:"entries"`
			Expenses struct{ Amount string } `json:"expensives"`
			Total    struct {
				Amount          string `json:"amount"`
				LastTransaction string `json:"lastTransaction"`
			} `json:"total"`
		} `json:"highlightData"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &view))
	assert.Len(t, view.Transactions, 2)
	assert.Equal(t, "R$ 12.000,00", view.Highlight.Entries.Amount)
	assert.Equal(t, "R$ 59,00", view.Highlight.Expenses.Amount)
	assert.Equal(t, "R$ 11.941,00", view.Highlight.Total.Amount)
	assert.Equal(t, "10/04/2020 - 13/04/2020", view.Highlight.Total.LastTransaction)
}

func TestDashboardAPI_Malformed(t *testing.T) {
	env := newTestEnv(t, `{"not":"a list"}`)

	rr := env.do(http.MethodGet, "/api/dashboard", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestCreateTransaction(t *testing.T) {
	env := newTestEnv(t, seed)

	rr := env.do(http.MethodPost, "/api/transactions",
		`{"type":"negative","title":"Aluguel do apartamento","amount":1200,"category":{"name":"Casa","icon":"shopping-bag"},"date":"2020-03-27"}`,
		"application/json")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var created transactionJSON
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "1200.00", created.Amount)
	assert.Equal(t, "2020-03-27", created.Date)

	// the write reloads the screen through the change event
	state := env.screen.Snapshot()
	assert.Equal(t, dashboard.Ready, state.Status)
	assert.Len(t, state.View.Transactions, 3)
	assert.Equal(t, "R$ 1.259,00", state.View.Highlight.Expenses.Amount)
}

func TestCreateTransaction_Form(t *testing.T) {
	env := newTestEnv(t, "")

	rr := env.do(http.MethodPost, "/api/transactions",
		"type=positive&title=Sal%C3%A1rio&amount=5000%2C50&category=Sal%C3%A1rio&icon=dollar-sign",
		"application/x-www-form-urlencoded")
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	assert.Equal(t, "R$ 5.000,50", env.screen.Snapshot().View.Highlight.Entries.Amount)
}

func TestCreateTransaction_Validation(t *testing.T) {
	env := newTestEnv(t, "")

	tests := map[string]string{
		"zero amount": `{"type":"positive","title":"x","amount":"0","category":{"name":"c"}}`,
		"bad type":    `{"type":"income","title":"x","amount":"1","category":{"name":"c"}}`,
		"no title":    `{"type":"positive","amount":"1","category":{"name":"c"}}`,
		"bad date":    `{"type":"positive","title":"x","amount":"1","category":{"name":"c"},"date":"13/04/2020"}`,
		"no category": `{"type":"positive","title":"x","amount":"1"}`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			rr := env.do(http.MethodPost, "/api/transactions", body, "application/json")
			assert.Equal(t, http.StatusUnprocessableEntity, rr.Code, rr.Body.String())
		})
	}

	rr := env.do(http.MethodPost, "/api/transactions", `{"broken`, "application/json")
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t, seed)

	rr := env.do(http.MethodDelete, "/api/transactions/2", "", "")
	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Len(t, env.screen.Snapshot().View.Transactions, 1)

	rr = env.do(http.MethodDelete, "/api/transactions/2", "", "")
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestWrites_CorruptStoredListIsServerError(t *testing.T) {
	env := newTestEnv(t, `[{"id":"1","type":"positive","title":"x","amount":"lots","date":"2020-04-10"}]`)

	rr := env.do(http.MethodPost, "/api/transactions",
		`{"type":"positive","title":"ok","amount":"1","category":{"name":"c"}}`, "application/json")
	assert.Equal(t, http.StatusInternalServerError, rr.Code, rr.Body.String())

	rr = env.do(http.MethodDelete, "/api/transactions/1", "", "")
	assert.Equal(t, http.StatusInternalServerError, rr.Code, rr.Body.String())
}

func TestWriteRateLimitIgnoresClientPort(t *testing.T) {
	env := newTestEnv(t, "")

	post := func(remoteAddr string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/transactions", strings.NewReader(`{"broken`))
		req.Header.Set("Content-Type", "application/json")
		req.RemoteAddr = remoteAddr
		rr := httptest.NewRecorder()
		env.srv.Handler.ServeHTTP(rr, req)
		return rr.Code
	}

	for i := 0; i < 60; i++ {
		code := post(fmt.Sprintf("203.0.113.7:%d", 40000+i))
		require.NotEqual(t, http.StatusTooManyRequests, code, "request %d", i)
	}
	assert.Equal(t, http.StatusTooManyRequests, post("203.0.113.7:50000"))
	assert.NotEqual(t, http.StatusTooManyRequests, post("198.51.100.9:40000"))
}

func TestClientKey(t *testing.T) {
	tests := map[string]string{
		"203.0.113.7:52100": "203.0.113.7",
		"[2001:db8::1]:443": "2001:db8::1",
		"203.0.113.7":       "203.0.113.7",
	}
	for remote, want := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		assert.Equal(t, want, clientKey(req), remote)
	}
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, "")
	for _, path := range []string{"/healthz", "/readyz"} {
		rr := env.do(http.MethodGet, path, "", "")
		assert.Equal(t, http.StatusOK, rr.Code, path)
	}

	srv := NewServer(":0", Deps{
		Bus:    events.NewBus(),
		Screen: loadingScreen{},
		Ready:  func(context.Context) error { return errors.New("redis down") },
	})
	defer srv.Shutdown(context.Background())

	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestStaticAssets(t *testing.T) {
	env := newTestEnv(t, "")
	rr := env.do(http.MethodGet, "/static/dashboard.css", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}

func TestRequestBodyParser_Get(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"title":" a\u0007b ","amount":12.5,"category":{"name":"Casa"}}`))
	p := NewRequestBodyParser(req)
	require.NoError(t, p.Parse())
	assert.True(t, p.IsJSON())
	assert.Equal(t, "ab", p.Get("title"))
	assert.Equal(t, "12.5", p.Get("amount"))
	assert.Equal(t, "Casa", p.Get("category.name"))
	assert.Equal(t, "", p.Get("category.icon"))
	assert.Equal(t, "", p.Get("title.nested"))
}
