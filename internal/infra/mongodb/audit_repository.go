package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const AuditCollection = "audit_logs"

// AuditLog é o documento salvo no Mongo (tags bson, não json).
// O _id é o id da transação: reentregas do RabbitMQ não duplicam o registro.
type AuditLog struct {
	TransactionID  string    `bson:"_id"`
	FromAccount    string    `bson:"from_account"`
	ToAccount      string    `bson:"to_account"`
	AmountCents    int64     `bson:"amount_cents"`
	Amount         string    `bson:"amount"`
	IdempotencyKey string    `bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time `bson:"created_at"`
	ProcessedAt    time.Time `bson:"processed_at"`
}

type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(client *mongo.Client, dbName string) *AuditRepository {
	return &AuditRepository{collection: client.Database(dbName).Collection(AuditCollection)}
}

// Connect cria o client e faz ping com timeout curto.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to create mongo client: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

// Save é um upsert pelo id da transação.
func (r *AuditRepository) Save(ctx context.Context, log AuditLog) error {
	log.ProcessedAt = time.Now().UTC()

	_, err := r.collection.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: log.TransactionID}},
		log,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert audit log: %w", err)
	}
	return nil
}

// ByAccount lista o histórico auditado de uma conta, do mais antigo ao mais novo.
func (r *AuditRepository) ByAccount(ctx context.Context, accountID string) ([]AuditLog, error) {
	filter := bson.D{{Key: "$or", Value: bson.A{
		bson.D{{Key: "from_account", Value: accountID}},
		bson.D{{Key: "to_account", Value: accountID}},
	}}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	var logs []AuditLog
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, fmt.Errorf("failed to decode audit logs: %w", err)
	}
	return logs, nil
}
