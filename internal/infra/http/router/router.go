// Package router monta as rotas chi da API.
package router

import (
	"net/http"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/handler"
	internalMiddleware "github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Deps struct {
	Sessions    internalMiddleware.SessionResolver
	Idempotency gateway.IdempotencyRepository // nil desliga

	Auth      *handler.AuthHandler
	Transfer  *handler.TransferHandler
	Dashboard *handler.DashboardHandler
	Realtime  *handler.RealtimeHandler
}

func New(d Deps) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer) // Evita crash se der panic

	// Health check (para o Docker saber se estamos vivos)
	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("Falha ao escrever resposta de health check")
		}
	})

	sessionAuth := internalMiddleware.SessionAuth(d.Sessions)

	router.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))

		r.Post("/login", d.Auth.Login)
		r.Post("/logout/{token}", d.Auth.Logout)
		r.Get("/pay/{accountId}", d.Dashboard.PaymentLink)

		r.Route("/dashboard/{token}", func(r chi.Router) {
			r.Use(sessionAuth)
			r.Get("/", d.Dashboard.Get)
			r.Get("/notifications", d.Dashboard.Notifications)
			r.With(internalMiddleware.Idempotency(d.Idempotency)).Post("/transfers", d.Transfer.Create)
		})
	})

	// Websocket fica fora do Timeout: a conexão vive enquanto o cliente estiver ligado.
	router.With(sessionAuth).Get("/ws/{token}", d.Realtime.Serve)

	return router
}
