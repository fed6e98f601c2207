package services

import (
	"context"
	"testing"

	"inkwellAPI/internal/types/currency"
	"inkwellAPI/internal/types/user"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddInkDropsAndBalance(t *testing.T) {
	db := testPool(t)
	svc := NewInkDropService(db, NewNotificationService(db))
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	balance, err := svc.AddInkDrops(ctx, userID, 100, currency.SourceAdminGrant)
	require.NoError(t, err)
	assert.Equal(t, 100, balance)

	balance, err = svc.AddInkDrops(ctx, userID, -30, currency.SourceStreakRestore)
	require.NoError(t, err)
	assert.Equal(t, 70, balance)

	got, err := svc.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 70, got)

	assert.Equal(t, 70, ledgerSum(t, db, userID))
}

func TestOverdraftRejected(t *testing.T) {
	db := testPool(t)
	svc := NewInkDropService(db, NewNotificationService(db))
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	_, err := svc.AddInkDrops(ctx, userID, -10, currency.SourceStreakRestore)
	assert.ErrorIs(t, err, currency.ErrInsufficientInkDrops)

	// a rejected debit must leave no trace
	balance, err := svc.GetBalance(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
	assert.Equal(t, 0, ledgerSum(t, db, userID))
}

func TestAddInkDropsUnknownUser(t *testing.T) {
	db := testPool(t)
	svc := NewInkDropService(db, NewNotificationService(db))
	ctx := context.Background()

	_, err := svc.AddInkDrops(ctx, uuid.New(), 10, currency.SourceAdminGrant)
	assert.ErrorIs(t, err, user.ErrNotFound)
}

func TestTip(t *testing.T) {
	db := testPool(t)
	svc := NewInkDropService(db, NewNotificationService(db))
	senderID, senderClerkID := createTestUser(t, db)
	recipientID, recipientClerkID := createTestUser(t, db)
	ctx := context.Background()

	_, err := svc.AddInkDrops(ctx, senderID, 100, currency.SourcePurchase)
	require.NoError(t, err)

	result, err := svc.Tip(ctx, senderClerkID, recipientID.String(), 100)
	require.NoError(t, err)

	assert.Equal(t, 0, result.SenderBalance)
	assert.Equal(t, 25, result.ServiceFee)
	assert.Equal(t, 75, result.AuthorReceived)

	recipientBalance, err := svc.GetBalance(ctx, recipientClerkID)
	require.NoError(t, err)
	assert.Equal(t, 75, recipientBalance)

	assert.Equal(t, 0, ledgerSum(t, db, senderID))
	assert.Equal(t, 75, ledgerSum(t, db, recipientID))
}

func TestTipInsufficientBalance(t *testing.T) {
	db := testPool(t)
	svc := NewInkDropService(db, NewNotificationService(db))
	senderID, senderClerkID := createTestUser(t, db)
	recipientID, recipientClerkID := createTestUser(t, db)
	ctx := context.Background()

	_, err := svc.AddInkDrops(ctx, senderID, 50, currency.SourcePurchase)
	require.NoError(t, err)

	_, err = svc.Tip(ctx, senderClerkID, recipientID.String(), 100)
	assert.ErrorIs(t, err, currency.ErrInsufficientInkDrops)

	// neither side of the failed tip may land
	senderBalance, err := svc.GetBalance(ctx, senderClerkID)
	require.NoError(t, err)
	assert.Equal(t, 50, senderBalance)

	recipientBalance, err := svc.GetBalance(ctx, recipientClerkID)
	require.NoError(t, err)
	assert.Equal(t, 0, recipientBalance)
}

func TestTipSelfRejected(t *testing.T) {
	db := testPool(t)
	svc := NewInkDropService(db, NewNotificationService(db))
	senderID, senderClerkID := createTestUser(t, db)
	ctx := context.Background()

	_, err := svc.AddInkDrops(ctx, senderID, 100, currency.SourcePurchase)
	require.NoError(t, err)

	_, err = svc.Tip(ctx, senderClerkID, senderID.String(), 10)
	assert.Error(t, err)
}

func TestGetTransactionsNewestFirst(t *testing.T) {
	db := testPool(t)
	svc := NewInkDropService(db, NewNotificationService(db))
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	_, err := svc.AddInkDrops(ctx, userID, 10, currency.SourceStreakCheckIn)
	require.NoError(t, err)
	_, err = svc.AddInkDrops(ctx, userID, 20, currency.SourceChallengeCompleted)
	require.NoError(t, err)

	transactions, err := svc.GetTransactions(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, transactions, 2)

	assert.Equal(t, 20, transactions[0].Amount)
	assert.Equal(t, currency.SourceChallengeCompleted, transactions[0].Source)
	assert.Equal(t, 10, transactions[1].Amount)
}
