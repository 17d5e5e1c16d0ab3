package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type contextKey string

const accountIDKey contextKey = "account_id"

// SessionResolver resolve o token opaco para o id da conta dona dele.
type SessionResolver interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// SessionAuth lê o token do segmento {token} da URL (compatível com os clientes antigos,
// que não mandam header) e coloca o id da conta no contexto.
func SessionAuth(resolver SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			accountID, err := resolver.Authenticate(r.Context(), chi.URLParam(r, "token"))
			if err != nil {
				if errors.Is(err, domain.ErrInvalidToken) {
					writeError(w, http.StatusUnauthorized, "Sessão inválida ou expirada")
					return
				}
				log.Error().Err(err).Msg("Falha ao validar sessão")
				writeError(w, http.StatusInternalServerError, "Erro interno do servidor")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), accountID)))
		})
	}
}

func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

func AccountIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		log.Error().Err(err).Msg("Falha ao codificar resposta JSON")
	}
}
