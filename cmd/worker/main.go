package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/config"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/mongodb"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/rabbitmq"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Load()
	config.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.RabbitMQURL == "" {
		log.Fatal().Msg("RABBITMQ_URL não definido")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mongoClient, err := mongodb.Connect(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao conectar no MongoDB")
	}
	defer func() {
		if err := mongoClient.Disconnect(context.Background()); err != nil {
			log.Error().Err(err).Msg("Erro ao desconectar Mongo")
		}
	}()
	log.Info().Msg("✅ Conectado ao MongoDB!")
	auditRepo := mongodb.NewAuditRepository(mongoClient, cfg.MongoDB)

	conn, ch, err := rabbitmq.Dial(cfg.RabbitMQURL, "AuditWorker_Consumer", usecase.EventsExchange)
	if err != nil {
		log.Fatal().Err(err).Msg("Erro ao conectar no RabbitMQ")
	}
	defer func() {
		if err := ch.Close(); err != nil {
			log.Error().Err(err).Msg("Erro ao fechar canal RabbitMQ")
		}
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Msg("Erro ao fechar conexão RabbitMQ")
		}
	}()

	binding := rabbitmq.QueueBinding{
		Exchange:   usecase.EventsExchange,
		Queue:      "audit_queue",
		RoutingKey: "transaction.#",
		Consumer:   "audit_worker",
	}

	// Consume bloqueia até o sinal ou a queda do canal; nesse caso saímos com erro
	// para o orquestrador reiniciar o worker.
	if err := rabbitmq.Consume(ctx, ch, binding, newAuditHandler(auditRepo, 5*time.Second)); err != nil {
		log.Error().Err(err).Msg("🔴 Consumo interrompido")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("Shutting down worker...")
}
