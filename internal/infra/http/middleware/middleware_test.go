package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeResolver map[string]string

func (f fakeResolver) Authenticate(_ context.Context, token string) (string, error) {
	if token == "explode" {
		return "", errors.New("storage down")
	}
	id, ok := f[token]
	if !ok {
		return "", domain.ErrInvalidToken
	}
	return id, nil
}

func TestSessionAuth(t *testing.T) {
	r := chi.NewRouter()
	r.With(SessionAuth(fakeResolver{"tok-a": "alice"})).Get("/dashboard/{token}", func(w http.ResponseWriter, r *http.Request) {
		id, ok := AccountIDFromContext(r.Context())
		require.True(t, ok)
		_, _ = w.Write([]byte(id))
	})

	tests := []struct {
		path   string
		status int
		body   string
	}{
		{"/dashboard/tok-a", http.StatusOK, "alice"},
		{"/dashboard/unknown", http.StatusUnauthorized, ""},
		{"/dashboard/explode", http.StatusInternalServerError, ""},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tt.path, nil))
		assert.Equal(t, tt.status, w.Code, tt.path)
		if tt.body != "" {
			assert.Equal(t, tt.body, w.Body.String())
		}
	}
}

type memIdempotency struct {
	mu        sync.Mutex
	saved     map[string]gateway.CachedResponse
	reserved  map[string]bool
	failGet   bool
	releases  int
	lastSaved string
}

func newMemIdempotency() *memIdempotency {
	return &memIdempotency{saved: map[string]gateway.CachedResponse{}, reserved: map[string]bool{}}
}

func (m *memIdempotency) Get(_ context.Context, key string) (*gateway.CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failGet {
		return nil, errors.New("redis down")
	}
	if resp, ok := m.saved[key]; ok {
		return &resp, nil
	}
	return nil, nil
}

func (m *memIdempotency) Reserve(_ context.Context, key string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.reserved[key] {
		return false, nil
	}
	m.reserved[key] = true
	return true, nil
}

func (m *memIdempotency) Release(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.reserved, key)
	m.releases++
	return nil
}

func (m *memIdempotency) Save(_ context.Context, key string, resp gateway.CachedResponse, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[key] = resp
	delete(m.reserved, key)
	m.lastSaved = key
	return nil
}

func idempotentRouter(store gateway.IdempotencyRepository, status int, calls *int) http.Handler {
	r := chi.NewRouter()
	r.With(SessionAuth(fakeResolver{"tok-a": "alice", "tok-b": "bob"}), Idempotency(store)).
		Post("/dashboard/{token}/transfers", func(w http.ResponseWriter, r *http.Request) {
			*calls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"n":1}`))
		})
	return r
}

func post(router http.Handler, path, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{}`))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotencyReplaysResponse(t *testing.T) {
	store := newMemIdempotency()
	calls := 0
	router := idempotentRouter(store, http.StatusCreated, &calls)

	first := post(router, "/dashboard/tok-a/transfers", "k1")
	second := post(router, "/dashboard/tok-a/transfers", "k1")

	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
	assert.Equal(t, "true", second.Header().Get("X-Idempotency-Hit"))
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "alice:k1", store.lastSaved)
}

func TestIdempotencyKeyIsScopedPerAccount(t *testing.T) {
	store := newMemIdempotency()
	calls := 0
	router := idempotentRouter(store, http.StatusCreated, &calls)

	post(router, "/dashboard/tok-a/transfers", "same")
	w := post(router, "/dashboard/tok-b/transfers", "same")

	assert.Equal(t, 2, calls)
	assert.Empty(t, w.Header().Get("X-Idempotency-Hit"))
}

func TestIdempotencyDoesNotCacheServerErrors(t *testing.T) {
	store := newMemIdempotency()
	calls := 0
	router := idempotentRouter(store, http.StatusInternalServerError, &calls)

	post(router, "/dashboard/tok-a/transfers", "k1")
	post(router, "/dashboard/tok-a/transfers", "k1")

	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, store.releases)
}

func TestIdempotencyInFlightConflict(t *testing.T) {
	store := newMemIdempotency()
	store.reserved["alice:k1"] = true
	calls := 0

	w := post(idempotentRouter(store, http.StatusCreated, &calls), "/dashboard/tok-a/transfers", "k1")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyFailsOpen(t *testing.T) {
	store := newMemIdempotency()
	store.failGet = true
	calls := 0
	router := idempotentRouter(store, http.StatusCreated, &calls)

	post(router, "/dashboard/tok-a/transfers", "k1")
	post(router, "/dashboard/tok-a/transfers", "k1")
	assert.Equal(t, 2, calls)

	// sem chave ou sem store, segue direto
	calls = 0
	post(idempotentRouter(nil, http.StatusCreated, &calls), "/dashboard/tok-a/transfers", "k1")
	post(router, "/dashboard/tok-a/transfers", "")
	assert.Equal(t, 2, calls)
}
