package middleware

import (
	"bytes"
	"net/http"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/rs/zerolog/log"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	idempotencyTTL    = 24 * time.Hour
	reservationTTL    = 30 * time.Second
)

// responseRecorder é um "espião" que grava o que o handler escreve
type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

// Idempotency devolve a resposta gravada quando a mesma Idempotency-Key se repete.
// A chave é escopada pela conta da sessão: a chave de um usuário não colide com a de outro.
// Redis fora do ar não trava a API (fail open).
func Idempotency(store gateway.IdempotencyRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get(IdempotencyHeader)
			if key == "" || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			if accountID, ok := AccountIDFromContext(r.Context()); ok {
				key = accountID + ":" + key
			}
			ctx := r.Context()

			cached, err := store.Get(ctx, key)
			if err != nil {
				log.Error().Err(err).Msg("Falha ao buscar chave de idempotência")
				next.ServeHTTP(w, r)
				return
			}
			if cached != nil {
				log.Info().Str("key", key).Msg("Idempotency cache hit")
				replay(w, cached)
				return
			}

			reserved, err := store.Reserve(ctx, key, reservationTTL)
			if err != nil {
				log.Error().Err(err).Msg("Falha ao reservar chave de idempotência")
				next.ServeHTTP(w, r)
				return
			}
			if !reserved {
				writeError(w, http.StatusConflict, "Requisição com esta Idempotency-Key ainda em processamento")
				return
			}

			recorder := &responseRecorder{ResponseWriter: w, statusCode: http.StatusOK, body: &bytes.Buffer{}}
			next.ServeHTTP(recorder, r)

			// 5xx não é cacheado para permitir retry
			if recorder.statusCode >= http.StatusInternalServerError {
				if err := store.Release(ctx, key); err != nil {
					log.Error().Err(err).Msg("Falha ao liberar chave de idempotência")
				}
				return
			}
			err = store.Save(ctx, key, gateway.CachedResponse{
				StatusCode: recorder.statusCode,
				Body:       recorder.body.Bytes(),
				Headers:    map[string][]string{"Content-Type": w.Header().Values("Content-Type")},
			}, idempotencyTTL)
			if err != nil {
				log.Error().Err(err).Msg("Falha ao salvar chave de idempotência")
			}
		})
	}
}

func replay(w http.ResponseWriter, cached *gateway.CachedResponse) {
	for name, values := range cached.Headers {
		for _, v := range values {
			w.Header().Add(name, v)
		}
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.Header().Set("X-Idempotency-Hit", "true")
	w.WriteHeader(cached.StatusCode)
	if _, err := w.Write(cached.Body); err != nil {
		log.Error().Err(err).Msg("Falha ao escrever resposta cacheada")
	}
}
