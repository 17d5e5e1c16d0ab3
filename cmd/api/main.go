package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/config"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/gateway"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/filestore"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/handler"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/http/router"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/postgres"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/rabbitmq"
	redisInfra "github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/redis"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/notification"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/realtime"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/rs/zerolog/log"
)

// storage agrupa o que muda entre os drivers de arquivo e Postgres.
type storage struct {
	accounts     gateway.AccountRepository
	transactions gateway.TransactionRepository
	uow          gateway.TransactionManager
	closer       io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func main() {
	cfg := config.Load()
	config.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("Não foi possível abrir o storage")
	}
	defer func() {
		if err := store.closer.Close(); err != nil {
			log.Error().Err(err).Msg("Falha ao fechar o storage")
		}
	}()

	// Redis é opcional: sem ele a API funciona, só sem idempotência
	var idempotencyRepo gateway.IdempotencyRepository
	if cfg.RedisAddr != "" {
		redisClient, err := redisInfra.NewClient(ctx, cfg.RedisAddr)
		if err != nil {
			log.Warn().Err(err).Msg("Não foi possível conectar ao Redis (Idempotência desabilitada)")
		} else {
			defer redisClient.Close()
			idempotencyRepo = redisInfra.NewIdempotencyRepository(redisClient)
			log.Info().Msg("✅ Conectado ao Redis!")
		}
	}

	// RabbitMQ também: sem ele os eventos de auditoria não saem
	var eventPublisher gateway.EventPublisher
	if cfg.RabbitMQURL != "" {
		conn, ch, err := rabbitmq.Dial(cfg.RabbitMQURL, "GPILedgerAPI_Publisher", usecase.EventsExchange)
		if err != nil {
			log.Warn().Err(err).Msg("Falha ao conectar no RabbitMQ (Eventos não serão enviados)")
		} else {
			defer conn.Close()
			defer ch.Close()
			eventPublisher = rabbitmq.NewRabbitMQPublisher(ch)
			log.Info().Msg("✅ Conectado ao RabbitMQ!")
		}
	}

	hub := notification.NewHub()
	defer hub.Close()
	broadcaster := realtime.NewBroadcaster(16)
	defer broadcaster.Close()

	// Camada de UseCase (Regras de Negócio)
	authSession := usecase.NewAuthSession(store.accounts, hub)
	registerAccount := usecase.NewRegisterAccount(store.accounts)
	transferUseCase := usecase.NewTransferMoney(store.accounts, store.transactions, store.uow, hub, broadcaster, eventPublisher)
	dashboardUseCase := usecase.NewGetDashboard(store.accounts, store.transactions, hub)

	created, err := registerAccount.EnsureSeedAccount(ctx, usecase.RegisterAccountInput{
		ID:             cfg.Seed.ID,
		DisplayName:    cfg.Seed.Name,
		Credential:     cfg.Seed.Credential,
		InitialBalance: cfg.Seed.Balance,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Falha ao criar conta inicial")
	}
	if created {
		log.Info().Str("account_id", cfg.Seed.ID).Msg("Conta inicial criada")
	}

	httpHandler := router.New(router.Deps{
		Sessions:    authSession,
		Idempotency: idempotencyRepo,
		Auth:        handler.NewAuthHandler(authSession),
		Transfer:    handler.NewTransferHandler(transferUseCase),
		Dashboard:   handler.NewDashboardHandler(dashboardUseCase, usecase.NewPaymentLink(store.accounts)),
		Realtime:    handler.NewRealtimeHandler(broadcaster, authSession),
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Msgf("🚀 Servidor rodando na porta %s (storage: %s)", cfg.Port, cfg.StoreDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Falha ao iniciar servidor HTTP")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Desligando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown forçado")
	}
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("✅ Conectado ao PostgreSQL com sucesso!")
		return &storage{
			accounts:     postgres.NewAccountRepository(pool),
			transactions: postgres.NewTransactionRepository(pool),
			uow:          postgres.NewUow(pool),
			closer:       closerFunc(func() error { pool.Close(); return nil }),
		}, nil

	case config.DriverFile:
		fs, err := filestore.Open(cfg.DataDir, filestore.Options{InitFresh: cfg.InitFresh})
		if err != nil {
			return nil, err
		}
		log.Info().Str("dir", cfg.DataDir).Msg("✅ Storage em arquivo carregado")
		return &storage{
			accounts:     filestore.NewAccountRepository(fs),
			transactions: filestore.NewTransactionRepository(fs),
			uow:          filestore.NewUow(fs),
			closer:       fs,
		}, nil

	default:
		return nil, errors.New("unknown STORE_DRIVER " + cfg.StoreDriver + " (use file or postgres)")
	}
}
