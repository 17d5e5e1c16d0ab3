package filestore_test

import (
	"context"
	"sync"
	"testing"

	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/domain"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/infra/filestore"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/notification"
	"github.com/Guilherme-G-Cadilhe/gpi-ledger/internal/usecase"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConcurrentTransfersAgainstFileStore(t *testing.T) {
	dir := t.TempDir()
	store, err := filestore.Open(dir, filestore.Options{InitFresh: true})
	require.NoError(t, err)

	accounts := filestore.NewAccountRepository(store)
	ledger := filestore.NewTransactionRepository(store)
	ctx := context.Background()

	register := usecase.NewRegisterAccount(accounts)
	for id, bal := range map[string]string{"A": "50.00", "B": "0.00"} {
		_, err := register.Execute(ctx, usecase.RegisterAccountInput{ID: id, Credential: "pw", InitialBalance: bal})
		require.NoError(t, err)
	}

	hub := notification.NewHub()
	transfer := usecase.NewTransferMoney(accounts, ledger, filestore.NewUow(store), hub, nil, nil)

	var wg sync.WaitGroup
	results := make(chan error, 20)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := transfer.Execute(ctx, usecase.TransferMoneyInput{FromAccountID: "A", ToAccountID: "B", RawAmount: "3.00"})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	}
	assert.Equal(t, 16, successes)
	assert.Len(t, hub.List("B"), 16)
	require.NoError(t, store.Close())

	// o estado reaberto do disco bate com o que foi comitado
	reopened, err := filestore.Open(dir, filestore.Options{})
	require.NoError(t, err)
	defer reopened.Close()

	all, err := filestore.NewAccountRepository(reopened).Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2.00", all["A"].Balance.StringFixed(2))
	assert.Equal(t, "48.00", all["B"].Balance.StringFixed(2))
	assert.True(t, all["A"].Balance.Add(all["B"].Balance).Equal(decimal.RequireFromString("50")))

	history, err := filestore.NewTransactionRepository(reopened).List(ctx)
	require.NoError(t, err)
	assert.Len(t, history, successes)
}
