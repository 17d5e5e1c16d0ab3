package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/middleware"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- mocks ----

type mockAuthenticator struct {
	loginFn  func(id, credential string) (string, error)
	logoutFn func(token string) error
}

func (m *mockAuthenticator) Login(_ context.Context, id, credential string) (string, error) {
	if m.loginFn != nil {
		return m.loginFn(id, credential)
	}
	return "", fmt.Errorf("not configured")
}

func (m *mockAuthenticator) Logout(_ context.Context, token string) error {
	if m.logoutFn != nil {
		return m.logoutFn(token)
	}
	return fmt.Errorf("not configured")
}

type mockTransfer struct {
	executeFn func(usecase.TransferMoneyInput) (*usecase.TransactionOutput, error)
	last      usecase.TransferMoneyInput
}

func (m *mockTransfer) Execute(_ context.Context, in usecase.TransferMoneyInput) (*usecase.TransactionOutput, error) {
	m.last = in
	if m.executeFn != nil {
		return m.executeFn(in)
	}
	return nil, fmt.Errorf("not configured")
}

type mockDashboard struct {
	executeFn func(id string) (*usecase.DashboardOutput, error)
	notes     []usecase.NotificationOutput
}

func (m *mockDashboard) Execute(_ context.Context, id string) (*usecase.DashboardOutput, error) {
	if m.executeFn != nil {
		return m.executeFn(id)
	}
	return nil, fmt.Errorf("not configured")
}

func (m *mockDashboard) Notifications(string) []usecase.NotificationOutput { return m.notes }

type mockLinker struct{}

func (mockLinker) Execute(_ context.Context, id, amount string) (string, error) {
	if id == "ghost" {
		return "", domain.ErrRecipientNotFound
	}
	return "gpi://pay?to=" + id, nil
}

// ---- helpers ----

func fakeSession(accountID string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithAccountID(r.Context(), accountID)))
		})
	}
}

func doRequest(router http.Handler, method, url, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, url, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	msg, _ := body["error"].(string)
	return msg
}

// ---- tests ----

func TestLogin(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		loginFn        func(id, credential string) (string, error)
		expectedStatus int
	}{
		{
			name:           "success",
			body:           `{"accountId":"test@gpi","credential":"1234"}`,
			loginFn:        func(id, c string) (string, error) { return "tok-123", nil },
			expectedStatus: http.StatusOK,
		},
		{
			name:           "wrong credential",
			body:           `{"accountId":"test@gpi","credential":"nope"}`,
			loginFn:        func(id, c string) (string, error) { return "", domain.ErrInvalidCredentials },
			expectedStatus: http.StatusUnauthorized,
		},
		{name: "missing credential", body: `{"accountId":"test@gpi"}`, expectedStatus: http.StatusBadRequest},
		{name: "malformed json", body: `{"accountId":`, expectedStatus: http.StatusBadRequest},
		{
			name:           "storage failure",
			body:           `{"accountId":"a","credential":"b"}`,
			loginFn:        func(id, c string) (string, error) { return "", errors.New("disk") },
			expectedStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			r.Post("/login", NewAuthHandler(&mockAuthenticator{loginFn: tt.loginFn}).Login)

			w := doRequest(r, http.MethodPost, "/login", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedStatus == http.StatusOK {
				assert.JSONEq(t, `{"token":"tok-123"}`, w.Body.String())
			}
		})
	}
}

func TestLogout(t *testing.T) {
	var got string
	r := chi.NewRouter()
	r.Post("/logout/{token}", NewAuthHandler(&mockAuthenticator{logoutFn: func(token string) error {
		got = token
		if token == "bad" {
			return domain.ErrInvalidToken
		}
		return nil
	}}).Logout)

	w := doRequest(r, http.MethodPost, "/logout/tok-1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "tok-1", got)

	w = doRequest(r, http.MethodPost, "/logout/bad", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateTransferStatusMapping(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{"success", nil, http.StatusCreated},
		{"invalid amount", domain.ErrInvalidAmount, http.StatusBadRequest},
		{"invalid precision", domain.ErrInvalidPrecision, http.StatusBadRequest},
		{"below minimum", domain.ErrBelowMinimum, http.StatusBadRequest},
		{"self transfer", domain.ErrSelfTransfer, http.StatusBadRequest},
		{"recipient not found", domain.ErrRecipientNotFound, http.StatusNotFound},
		{"insufficient balance", domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{"wrapped storage error", fmt.Errorf("falha no débito: %w", errors.New("io")), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := &mockTransfer{executeFn: func(in usecase.TransferMoneyInput) (*usecase.TransactionOutput, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &usecase.TransactionOutput{ID: "tx-1", FromID: in.FromAccountID, ToID: in.ToAccountID, Amount: "250.00"}, nil
			}}
			r := chi.NewRouter()
			r.With(fakeSession("alice")).Post("/transfers", NewTransferHandler(uc).Create)

			w := doRequest(r, http.MethodPost, "/transfers", `{"recipientId":"bob","amount":"250.00"}`)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, "alice", uc.last.FromAccountID)
			assert.Equal(t, "bob", uc.last.ToAccountID)
			assert.Equal(t, "250.00", uc.last.RawAmount)
			if tt.err == nil {
				assert.JSONEq(t, `{"id":"tx-1","fromId":"alice","toId":"bob","amount":250.00,"timestamp":""}`, w.Body.String())
			} else {
				assert.NotEmpty(t, errorMessage(t, w))
			}
		})
	}
}

func TestCreateTransferRejectsBadPayload(t *testing.T) {
	uc := &mockTransfer{}
	r := chi.NewRouter()
	r.With(fakeSession("alice")).Post("/transfers", NewTransferHandler(uc).Create)

	for _, body := range []string{`{"recipientId":"bob"}`, `{"amount":"1.00"}`, `not json`, `{"recipientId":"bob","amount":1}`} {
		w := doRequest(r, http.MethodPost, "/transfers", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
	assert.Empty(t, uc.last.FromAccountID, "use case must not run")
}

func TestCreateTransferForwardsIdempotencyKey(t *testing.T) {
	uc := &mockTransfer{executeFn: func(in usecase.TransferMoneyInput) (*usecase.TransactionOutput, error) {
		return &usecase.TransactionOutput{ID: "tx"}, nil
	}}
	r := chi.NewRouter()
	r.With(fakeSession("alice")).Post("/transfers", NewTransferHandler(uc).Create)

	req := httptest.NewRequest(http.MethodPost, "/transfers", strings.NewReader(`{"recipientId":"bob","amount":"1"}`))
	req.Header.Set(middleware.IdempotencyHeader, "k-1")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, uc.last.IdempotencyKey)
	assert.Equal(t, "k-1", *uc.last.IdempotencyKey)
}

func TestTransferWithoutSessionIsUnauthorized(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/transfers", NewTransferHandler(&mockTransfer{}).Create)
	w := doRequest(r, http.MethodPost, "/transfers", `{"recipientId":"bob","amount":"1"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDashboardEndpoints(t *testing.T) {
	dash := &mockDashboard{
		executeFn: func(id string) (*usecase.DashboardOutput, error) {
			return &usecase.DashboardOutput{
				Account:      usecase.AccountOutput{ID: id, DisplayName: "Alice", Balance: "10.00"},
				Transactions: []usecase.TransactionOutput{},
			}, nil
		},
		notes: []usecase.NotificationOutput{{Message: "Logged in successfully.", Timestamp: "t"}},
	}
	h := NewDashboardHandler(dash, mockLinker{})
	r := chi.NewRouter()
	r.With(fakeSession("alice")).Get("/dashboard", h.Get)
	r.With(fakeSession("alice")).Get("/notifications", h.Notifications)
	r.Get("/pay/{accountId}", h.PaymentLink)

	w := doRequest(r, http.MethodGet, "/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"balance":10.00`)
	assert.NotContains(t, w.Body.String(), "credential")

	w = doRequest(r, http.MethodGet, "/notifications", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"notifications":[{"message":"Logged in successfully.","timestamp":"t"}]}`, w.Body.String())

	w = doRequest(r, http.MethodGet, "/pay/bob", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uri":"gpi://pay?to=bob"}`, w.Body.String())

	w = doRequest(r, http.MethodGet, "/pay/ghost", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
