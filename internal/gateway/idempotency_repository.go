package gateway

import (
	"context"
	"time"
)

// CachedResponse é a resposta HTTP guardada para uma Idempotency-Key
type CachedResponse struct {
	StatusCode int
	Body       []byte
	Headers    map[string][]string
}

type IdempotencyRepository interface {
	// Get retorna a resposta cacheada se existir, ou (nil, nil) num cache miss.
	Get(ctx context.Context, key string) (*CachedResponse, error)

	// Reserve marca a chave como "em processamento". Retorna false se outra
	// requisição com a mesma chave já reservou (evita transferência em dobro).
	Reserve(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release desfaz a reserva quando a resposta não deve ser cacheada (ex: 5xx).
	Release(ctx context.Context, key string) error

	// Save armazena a resposta com um TTL (Time To Live)
	Save(ctx context.Context, key string, response CachedResponse, ttl time.Duration) error
}
