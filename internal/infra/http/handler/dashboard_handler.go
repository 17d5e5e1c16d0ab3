package handler

import (
	"context"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/middleware"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/go-chi/chi/v5"
)

type DashboardReader interface {
	Execute(ctx context.Context, accountID string) (*usecase.DashboardOutput, error)
	Notifications(accountID string) []usecase.NotificationOutput
}

type PaymentLinker interface {
	Execute(ctx context.Context, accountID, rawAmount string) (string, error)
}

type DashboardHandler struct {
	dashboard DashboardReader
	links     PaymentLinker
}

func NewDashboardHandler(dashboard DashboardReader, links PaymentLinker) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard, links: links}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Sessão inválida ou expirada")
		return
	}
	out, err := h.dashboard.Execute(r.Context(), accountID)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *DashboardHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Sessão inválida ou expirada")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"notifications": h.dashboard.Notifications(accountID),
	})
}

// PaymentLink responde o URI gpi://pay usado pelos QR codes.
func (h *DashboardHandler) PaymentLink(w http.ResponseWriter, r *http.Request) {
	link, err := h.links.Execute(r.Context(), chi.URLParam(r, "accountId"), r.URL.Query().Get("amount"))
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"uri": link})
}
