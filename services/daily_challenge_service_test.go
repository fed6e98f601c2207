package services

import (
	"context"
	"testing"

	"inkwellAPI/internal/types/challenge"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChallengeService(db *pgxpool.Pool) *DailyChallengeService {
	notifications := NewNotificationService(db)
	return NewDailyChallengeService(db, NewInkDropService(db, notifications), notifications)
}

func TestGetOrCreateTodayChallengeStable(t *testing.T) {
	db := testPool(t)
	svc := newChallengeService(db)
	_, clerkID := createTestUser(t, db)
	ctx := context.Background()

	first, err := svc.GetOrCreateTodayChallenge(ctx, clerkID)
	require.NoError(t, err)

	assert.Equal(t, challenge.StatusActive, first.Status)
	assert.True(t, challenge.IsValidType(first.ChallengeType))
	assert.Equal(t, 0, first.CurrentProgress)

	def := challenge.Catalog[first.ChallengeType]
	assert.Equal(t, def.Target, first.TargetCount)
	assert.Equal(t, def.Reward, first.RewardInkDrops)

	// repeated reads return the same record, not a new one
	second, err := svc.GetOrCreateTodayChallenge(ctx, clerkID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ChallengeType, second.ChallengeType)
}

func TestTrackProgressCompletesChallenge(t *testing.T) {
	db := testPool(t)
	svc := newChallengeService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	ch, err := svc.GetOrCreateTodayChallenge(ctx, clerkID)
	require.NoError(t, err)

	for i := 1; i < ch.TargetCount; i++ {
		result, err := svc.TrackProgress(ctx, clerkID, ch.ChallengeType)
		require.NoError(t, err)
		assert.True(t, result.ProgressUpdated)
		assert.Equal(t, i, result.CurrentProgress)
		assert.False(t, result.ChallengeCompleted)
	}

	final, err := svc.TrackProgress(ctx, clerkID, ch.ChallengeType)
	require.NoError(t, err)
	assert.True(t, final.ChallengeCompleted)
	assert.Equal(t, ch.TargetCount, final.CurrentProgress)
	assert.Equal(t, ch.RewardInkDrops, final.InkDropsEarned)
	assert.Equal(t, ch.RewardInkDrops, ledgerSum(t, db, userID))

	// progress past completion is ignored and never pays again
	after, err := svc.TrackProgress(ctx, clerkID, ch.ChallengeType)
	require.NoError(t, err)
	assert.False(t, after.ProgressUpdated)
	assert.False(t, after.ChallengeCompleted)
	assert.Equal(t, ch.RewardInkDrops, ledgerSum(t, db, userID))
}

func TestTrackProgressWrongActionType(t *testing.T) {
	db := testPool(t)
	svc := newChallengeService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	ch, err := svc.GetOrCreateTodayChallenge(ctx, clerkID)
	require.NoError(t, err)

	var other challenge.ChallengeType
	for _, typ := range challenge.AllTypes {
		if typ != ch.ChallengeType {
			other = typ
			break
		}
	}

	result, err := svc.TrackProgress(ctx, clerkID, other)
	require.NoError(t, err)

	assert.False(t, result.ProgressUpdated)
	assert.Equal(t, 0, result.CurrentProgress)
	assert.Equal(t, 0, ledgerSum(t, db, userID))
}
