package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/security"
	"github.com/rs/zerolog/log"
)

// AuthSession emite, resolve e revoga tokens de sessão.
// Cada conta tem no máximo um token vivo: um novo login invalida o anterior.
type AuthSession struct {
	accountRepository gateway.AccountRepository
	notifier          gateway.Notifier
}

func NewAuthSession(accountRepo gateway.AccountRepository, notifier gateway.Notifier) *AuthSession {
	return &AuthSession{accountRepository: accountRepo, notifier: notifier}
}

// Login devolve o token em texto puro; só o hash dele é persistido.
func (a *AuthSession) Login(ctx context.Context, accountID, credential string) (string, error) {
	account, err := a.accountRepository.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			// mesmo custo de um bcrypt real, para não vazar quais ids existem
			security.CheckCredential(dummyCredentialHash(), credential)
			return "", domain.ErrInvalidCredentials
		}
		return "", fmt.Errorf("failed to load account: %w", err)
	}
	if !security.CheckCredential(account.Credential, credential) {
		return "", domain.ErrInvalidCredentials
	}

	token := security.NewToken()
	if err := a.accountRepository.SetTokenHash(ctx, accountID, security.HashToken(token)); err != nil {
		return "", fmt.Errorf("failed to store session: %w", err)
	}

	if a.notifier != nil {
		a.notifier.Record(accountID, "Logged in successfully.")
	}
	log.Info().Str("account_id", accountID).Msg("Login efetuado")
	return token, nil
}

func (a *AuthSession) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", domain.ErrInvalidToken
	}
	account, err := a.accountRepository.FindByTokenHash(ctx, security.HashToken(token))
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return "", domain.ErrInvalidToken
		}
		return "", fmt.Errorf("failed to resolve session: %w", err)
	}
	return account.ID, nil
}

func (a *AuthSession) Logout(ctx context.Context, token string) error {
	accountID, err := a.Authenticate(ctx, token)
	if err != nil {
		return err
	}
	if err := a.accountRepository.SetTokenHash(ctx, accountID, ""); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	log.Info().Str("account_id", accountID).Msg("Logout efetuado")
	return nil
}

var (
	dummyOnce sync.Once
	dummyHash string
)

// dummyCredentialHash é o hash de uma senha descartável, usado quando a conta não existe.
func dummyCredentialHash() string {
	dummyOnce.Do(func() {
		dummyHash, _ = security.HashCredential(security.NewToken())
	})
	return dummyHash
}
