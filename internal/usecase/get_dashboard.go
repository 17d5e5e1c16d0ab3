package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
)

// DashboardOutput é a visão da conta logada: saldo + histórico em que ela participa.
type DashboardOutput struct {
	Account      AccountOutput       `json:"account"`
	Transactions []TransactionOutput `json:"transactions"`
}

type GetDashboardUseCase struct {
	accountRepository     gateway.AccountRepository
	transactionRepository gateway.TransactionRepository
	notifications         gateway.NotificationReader
}

func NewGetDashboard(
	accountRepo gateway.AccountRepository,
	transactionRepo gateway.TransactionRepository,
	notifications gateway.NotificationReader,
) *GetDashboardUseCase {
	return &GetDashboardUseCase{
		accountRepository:     accountRepo,
		transactionRepository: transactionRepo,
		notifications:         notifications,
	}
}

func (u *GetDashboardUseCase) Execute(ctx context.Context, accountID string) (*DashboardOutput, error) {
	account, err := u.accountRepository.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar conta: %w", err)
	}
	history, err := u.transactionRepository.ListByParticipant(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("erro ao buscar histórico: %w", err)
	}
	return &DashboardOutput{
		Account:      toAccountOutput(account),
		Transactions: toTransactionOutputs(history),
	}, nil
}

// Notifications lê o log em memória da conta (vazio depois de um restart).
func (u *GetDashboardUseCase) Notifications(accountID string) []NotificationOutput {
	out := []NotificationOutput{}
	if u.notifications == nil {
		return out
	}
	for _, n := range u.notifications.List(accountID) {
		out = append(out, NotificationOutput{Message: n.Message, Timestamp: n.CreatedAt.Format(time.RFC3339Nano)})
	}
	return out
}
