package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/security"
	"github.com/shopspring/decimal"
)

type RegisterAccountInput struct {
	ID          string
	DisplayName string
	Credential  string
	// InitialBalance aceita "" (zero) ou um valor com no máximo 2 casas.
	InitialBalance string
}

// ErrInvalidAccountInput cobre id/credencial vazios ou saldo inicial inválido.
var ErrInvalidAccountInput = errors.New("invalid account input")

type RegisterAccountUseCase struct {
	accountRepository gateway.AccountRepository
}

func NewRegisterAccount(accountRepo gateway.AccountRepository) *RegisterAccountUseCase {
	return &RegisterAccountUseCase{accountRepository: accountRepo}
}

// Execute cadastra uma conta. É um insert simples, então não abrimos uma transação (UoW) aqui.
func (uc *RegisterAccountUseCase) Execute(ctx context.Context, input RegisterAccountInput) (*AccountOutput, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" || input.Credential == "" {
		return nil, fmt.Errorf("%w: id and credential are required", ErrInvalidAccountInput)
	}

	balance := decimal.Zero
	if raw := strings.TrimSpace(input.InitialBalance); raw != "" {
		parsed, err := domain.ParseDecimal(raw)
		if err != nil || parsed.IsNegative() || !domain.IsWholeCents(parsed) {
			return nil, fmt.Errorf("%w: initial balance %q", ErrInvalidAccountInput, raw)
		}
		balance = parsed
	}

	hashed, err := security.HashCredential(input.Credential)
	if err != nil {
		return nil, err
	}

	name := input.DisplayName
	if name == "" {
		name = id
	}
	account := &domain.Account{
		ID:          id,
		DisplayName: name,
		Balance:     balance,
		Credential:  hashed,
	}
	if err := uc.accountRepository.Create(ctx, account); err != nil {
		return nil, err
	}

	out := toAccountOutput(account)
	return &out, nil
}

// EnsureSeedAccount cria a conta inicial só quando o storage não tem nenhuma conta.
// Devolve true se criou.
func (uc *RegisterAccountUseCase) EnsureSeedAccount(ctx context.Context, input RegisterAccountInput) (bool, error) {
	if input.ID == "" {
		return false, nil
	}
	existing, err := uc.accountRepository.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to load accounts: %w", err)
	}
	if len(existing) > 0 {
		return false, nil
	}
	if _, err := uc.Execute(ctx, input); err != nil {
		return false, err
	}
	return true, nil
}
