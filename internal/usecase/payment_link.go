package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
)

// PaymentLinkUseCase monta o URI gpi://pay que os apps leem (o QR code é só a imagem disso).
type PaymentLinkUseCase struct {
	accountRepository gateway.AccountRepository
}

func NewPaymentLink(accountRepo gateway.AccountRepository) *PaymentLinkUseCase {
	return &PaymentLinkUseCase{accountRepository: accountRepo}
}

// Execute valida o destinatário e, se vier, o valor (mesmas regras da transferência).
func (u *PaymentLinkUseCase) Execute(ctx context.Context, accountID, rawAmount string) (string, error) {
	if _, err := u.accountRepository.GetByID(ctx, accountID); err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.ErrRecipientNotFound
		}
		return "", fmt.Errorf("erro ao buscar conta: %w", err)
	}

	query := url.Values{}
	query.Set("to", accountID)
	if strings.TrimSpace(rawAmount) != "" {
		amount, err := domain.ParseAmount(rawAmount)
		if err != nil {
			return "", err
		}
		query.Set("amount", amount.StringFixed(domain.AmountScale))
	}
	return (&url.URL{Scheme: "gpi", Host: "pay", RawQuery: query.Encode()}).String(), nil
}
