package gateway

import "context"

// TransactionObject é o "crachá" opaco que carrega a transação do storage
// (pgx.Tx no Postgres, *filestore.Batch no driver de arquivos).
type TransactionObject interface{}

// TransactionManager define quem sabe iniciar/comitar transações (UoW).
// Tudo que fn fizer através de repositórios WithTx é aplicado junto, ou nada é aplicado.
type TransactionManager interface {
	Run(ctx context.Context, fn func(ctx context.Context) error) error
}

// TransactionKeyType evita colisão de chaves no contexto
type TransactionKeyType string

const TransactionKey TransactionKeyType = "transaction"

// TxFromContext recupera o crachá injetado por TransactionManager.Run (nil fora de uma transação).
func TxFromContext(ctx context.Context) TransactionObject {
	return ctx.Value(TransactionKey)
}
