package service

import (
	"context"
	"testing"

	"insurance-settlement/internal/core/domain"
	"insurance-settlement/internal/core/ports"
	"insurance-settlement/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWalletService_ListEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		f.fund(t, "10")
	}
	f.withdraw(t, "5", "")

	entries, total, err := f.wallets.ListEntries(ctx, f.agent.ID, ports.LedgerListParams{PageSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, entries, 2)
	assert.Equal(t, domain.EntryKindWithdrawalRequested, entries[0].Kind, "newest first")

	kind := domain.EntryKindCommissionEarned
	entries, total, err = f.wallets.ListEntries(ctx, f.agent.ID, ports.LedgerListParams{Kind: &kind})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, entries, 3)

	entries, _, err = f.wallets.ListEntries(ctx, f.agent.ID, ports.LedgerListParams{Page: 9})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWalletService_ListEntries_BadRange(t *testing.T) {
	f := newFixture(t)
	from, to := int64(200), int64(100)

	_, _, err := f.wallets.ListEntries(context.Background(), f.agent.ID, ports.LedgerListParams{From: &from, To: &to})
	assert.True(t, apperror.HasCode(err, apperror.CodeInvalidAmount))
}

func TestWalletService_UnknownOwner(t *testing.T) {
	f := newFixture(t)

	_, err := f.wallets.GetWallet(context.Background(), uuid.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
	_, err = f.wallets.GetStats(context.Background(), uuid.New())
	assert.True(t, apperror.HasCode(err, apperror.CodeNotFound))
}

func TestWalletService_Stats(t *testing.T) {
	f := newFixture(t)
	f.fund(t, "700")
	f.fund(t, "300")
	f.withdraw(t, "250", "")

	stats, err := f.wallets.GetStats(context.Background(), f.agent.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.EntryCount)
	assert.True(t, stats.CommissionEarned.Equal(dec("1000")))
	assert.True(t, stats.PendingHolds.Equal(dec("250")))
	assert.True(t, stats.Withdrawn.IsZero())
}
