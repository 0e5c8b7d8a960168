//go:build integration

package postgres

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/migrations"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
)

func startPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("settlement"),
		tcpostgres.WithUsername("settlement"),
		tcpostgres.WithPassword("settlement"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	require.NoError(t, err)

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(ctx, dsn, "up"))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func seedManager(t *testing.T, pool *pgxpool.Pool) domain.Manager {
	t.Helper()
	m := domain.Manager{ID: uuid.New(), FullName: "Mary Otieno", Phone: "0711000000", CreatedAt: time.Now()}
	require.NoError(t, NewPartyRepo(pool).CreateManager(context.Background(), &m))
	return m
}

func TestIntegration_LastCertificateGoesToOneSettlement(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()
	m := seedManager(t, pool)

	stock := NewStockRepo(pool)
	key := domain.StockKey{ManagerID: m.ID, InsurerID: uuid.New(), ProductClass: "MOTOR_PRIVATE"}
	_, err := stock.Replenish(ctx, key, 1)
	require.NoError(t, err)

	const workers = 8
	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tx, err := pool.Begin(ctx)
			if err != nil {
				results <- err
				return
			}
			defer tx.Rollback(ctx) //nolint:errcheck
			if _, err := stock.DecrementOne(ctx, tx, key); err != nil {
				results <- err
				return
			}
			results <- tx.Commit(ctx)
		}()
	}
	wg.Wait()
	close(results)

	var ok, empty int
	for err := range results {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ports.ErrStockEmpty):
			empty++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, workers-1, empty)

	row, err := stock.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, 0, row.Quantity)
}

func TestIntegration_WalletBalanceCannotGoNegative(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	wallets := NewWalletRepo(pool)
	w := &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Balance: decimal.NewFromInt(10), CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, wallets.Create(ctx, w))

	tx, err := pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx) //nolint:errcheck

	err = wallets.UpdateBalance(ctx, tx, w.ID, decimal.NewFromInt(-1))
	assert.Error(t, err)
}

func TestIntegration_CorrelationIDIsUnique(t *testing.T) {
	pool := startPostgres(t)
	ctx := context.Background()

	wallets := NewWalletRepo(pool)
	ledger := NewLedgerRepo(pool)
	w := &domain.Wallet{ID: uuid.New(), OwnerID: uuid.New(), Balance: decimal.Zero, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	require.NoError(t, wallets.Create(ctx, w))

	newHold := func() *domain.LedgerEntry {
		e := &domain.LedgerEntry{ID: uuid.New(), WalletID: w.ID, Amount: decimal.NewFromInt(-5),
			Kind: domain.EntryKindWithdrawalProcessing, Status: domain.EntryStatusPending,
			CreatedAt: time.Now(), UpdatedAt: time.Now()}
		tx, err := pool.Begin(ctx)
		require.NoError(t, err)
		require.NoError(t, ledger.Create(ctx, tx, e))
		require.NoError(t, tx.Commit(ctx))
		return e
	}
	first, second := newHold(), newHold()

	require.NoError(t, ledger.SetCorrelationID(ctx, first.ID, "AG_1"))
	require.NoError(t, ledger.SetCorrelationID(ctx, first.ID, "AG_1"))
	assert.ErrorIs(t, ledger.SetCorrelationID(ctx, second.ID, "AG_1"), ports.ErrCorrelationTaken)
	assert.ErrorIs(t, ledger.SetCorrelationID(ctx, first.ID, "AG_2"), ports.ErrCorrelationTaken)

	got, err := ledger.GetByCorrelationID(ctx, "AG_1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, got.ID)
}
