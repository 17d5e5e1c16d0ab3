package handler

import (
	"context"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/middleware"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
)

type TransferExecutor interface {
	Execute(ctx context.Context, input usecase.TransferMoneyInput) (*usecase.TransactionOutput, error)
}

// TransferHandler expõe as operações de transferência via HTTP
type TransferHandler struct {
	transferUseCase TransferExecutor
}

func NewTransferHandler(uc TransferExecutor) *TransferHandler {
	return &TransferHandler{transferUseCase: uc}
}

// CreateTransferRequest: amount é string de propósito, para não perder precisão
// num float antes da validação de casas decimais.
type CreateTransferRequest struct {
	RecipientID string `json:"recipientId" validate:"required,max=128"`
	Amount      string `json:"amount" validate:"required,max=32"`
}

// Create processa a requisição de transferência. A origem é sempre a conta da sessão.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	fromID, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "Sessão inválida ou expirada")
		return
	}

	var req CreateTransferRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	input := usecase.TransferMoneyInput{
		FromAccountID: fromID,
		ToAccountID:   req.RecipientID,
		RawAmount:     req.Amount,
	}
	if key := r.Header.Get(middleware.IdempotencyHeader); key != "" {
		input.IdempotencyKey = &key
	}

	output, err := h.transferUseCase.Execute(r.Context(), input)
	if err != nil {
		respondDomainError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, output)
}
