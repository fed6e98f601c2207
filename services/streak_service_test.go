package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"inkwellAPI/internal/types/currency"
	"inkwellAPI/internal/types/streak"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStreakService(db *pgxpool.Pool) *StreakService {
	notifications := NewNotificationService(db)
	inkDrops := NewInkDropService(db, notifications)
	achievements := NewAchievementService(db, inkDrops, notifications)
	return NewStreakService(db, inkDrops, achievements, notifications)
}

// seedStreak plants a streak row in a known state, bypassing the service.
func seedStreak(t *testing.T, db *pgxpool.Pool, userID uuid.UUID, current, longest int, lastCheckIn time.Time) {
	t.Helper()

	_, err := db.Exec(context.Background(), `
		INSERT INTO streaks (id, user_id, current_streak, current_streak_start_date,
		                     last_check_in_date, longest_streak, total_check_ins)
		VALUES ($1, $2, $3, $4, $4, $5, $3)
	`, uuid.New(), userID, current, lastCheckIn, longest)
	require.NoError(t, err)
}

func TestCheckInFirstTime(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	_, clerkID := createTestUser(t, db)
	ctx := context.Background()

	result, err := svc.CheckIn(ctx, clerkID)
	require.NoError(t, err)

	assert.True(t, result.IsFirstCheckInToday)
	assert.Equal(t, 1, result.Streak.CurrentStreak)
	assert.Equal(t, 1, result.Streak.LongestStreak)
	assert.Equal(t, 1, result.Streak.TotalCheckIns)
	assert.Equal(t, 5, result.InkDropsEarned)
	assert.Nil(t, result.MilestoneAchieved)
}

func TestCheckInIdempotentWithinDay(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	first, err := svc.CheckIn(ctx, clerkID)
	require.NoError(t, err)
	require.True(t, first.IsFirstCheckInToday)

	second, err := svc.CheckIn(ctx, clerkID)
	require.NoError(t, err)

	assert.False(t, second.IsFirstCheckInToday)
	assert.Equal(t, 0, second.InkDropsEarned)
	assert.Equal(t, 1, second.Streak.CurrentStreak)
	assert.Equal(t, 1, second.Streak.TotalCheckIns)

	// exactly one payout in the ledger
	assert.Equal(t, 5, ledgerSum(t, db, userID))
}

func TestCheckInConcurrentSameDay(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	const callers = 8
	results := make(chan *streak.CheckInResult, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := svc.CheckIn(ctx, clerkID)
			if err != nil {
				t.Error(err)
				return
			}
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	// all callers serialize on the streak row: one wins the payout, the
	// rest land on the same-day no-op path
	firstOfDay := 0
	for result := range results {
		assert.Equal(t, 1, result.Streak.CurrentStreak)
		if result.IsFirstCheckInToday {
			firstOfDay++
			assert.Equal(t, 5, result.InkDropsEarned)
		} else {
			assert.Equal(t, 0, result.InkDropsEarned)
		}
	}
	assert.Equal(t, 1, firstOfDay)
	assert.Equal(t, 5, ledgerSum(t, db, userID))
}

func TestCheckInContinuesStreak(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	seedStreak(t, db, userID, 4, 4, yesterday)

	result, err := svc.CheckIn(ctx, clerkID)
	require.NoError(t, err)

	assert.True(t, result.IsFirstCheckInToday)
	assert.Equal(t, 5, result.Streak.CurrentStreak)
	assert.Equal(t, 5, result.Streak.LongestStreak)
	assert.Equal(t, 5, result.InkDropsEarned)
}

func TestCheckInReachesMilestone(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	seedStreak(t, db, userID, 6, 6, yesterday)

	result, err := svc.CheckIn(ctx, clerkID)
	require.NoError(t, err)

	assert.Equal(t, 7, result.Streak.CurrentStreak)
	require.NotNil(t, result.MilestoneAchieved)
	assert.Equal(t, 7, *result.MilestoneAchieved)
	// 50 milestone bonus plus the 10 per-day reward at length 7
	assert.Equal(t, 60, result.InkDropsEarned)
}

func TestBrokenStreakDetectedOnRead(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	threeDaysAgo := time.Now().UTC().AddDate(0, 0, -3)
	seedStreak(t, db, userID, 5, 5, threeDaysAgo)

	resp, err := svc.GetStreak(ctx, clerkID)
	require.NoError(t, err)

	assert.Equal(t, 0, resp.CurrentStreak)
	assert.Equal(t, 5, resp.LongestStreak)
	assert.True(t, resp.CanRestore)
	assert.Equal(t, 200, resp.NextRestoreCost)
}

func TestRestoreStreak(t *testing.T) {
	db := testPool(t)
	notifications := NewNotificationService(db)
	inkDrops := NewInkDropService(db, notifications)
	achievements := NewAchievementService(db, inkDrops, notifications)
	svc := NewStreakService(db, inkDrops, achievements, notifications)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	threeDaysAgo := time.Now().UTC().AddDate(0, 0, -3)
	seedStreak(t, db, userID, 5, 5, threeDaysAgo)

	_, err := inkDrops.AddInkDrops(ctx, userID, 500, currency.SourcePurchase)
	require.NoError(t, err)

	// trigger break detection
	_, err = svc.GetStreak(ctx, clerkID)
	require.NoError(t, err)

	result, err := svc.RestoreStreak(ctx, clerkID)
	require.NoError(t, err)

	assert.Equal(t, 5, result.NewStreakCount)
	assert.Equal(t, 200, result.InkDropsDeducted)
	assert.Equal(t, 300, result.Balance)

	// the restore consumed the one-shot flag
	_, err = svc.RestoreStreak(ctx, clerkID)
	assert.ErrorIs(t, err, streak.ErrAlreadyRestored)
}

func TestRestoreStreakInsufficientBalance(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	threeDaysAgo := time.Now().UTC().AddDate(0, 0, -3)
	seedStreak(t, db, userID, 5, 5, threeDaysAgo)

	_, err := svc.GetStreak(ctx, clerkID)
	require.NoError(t, err)

	_, err = svc.RestoreStreak(ctx, clerkID)
	assert.ErrorIs(t, err, currency.ErrInsufficientInkDrops)

	// the failed restore must not burn the restore window
	resp, err := svc.GetStreak(ctx, clerkID)
	require.NoError(t, err)
	assert.True(t, resp.CanRestore)
	assert.Equal(t, 0, ledgerSum(t, db, userID))
}

func TestRestoreStreakWithoutBreak(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	_, clerkID := createTestUser(t, db)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, clerkID)
	require.NoError(t, err)

	_, err = svc.RestoreStreak(ctx, clerkID)
	assert.ErrorIs(t, err, streak.ErrAlreadyRestored)
}

func TestGetLeaderboard(t *testing.T) {
	db := testPool(t)
	svc := newStreakService(db)
	_, clerkID := createTestUser(t, db)
	ctx := context.Background()

	_, err := svc.CheckIn(ctx, clerkID)
	require.NoError(t, err)

	lb, err := svc.GetLeaderboard(ctx, clerkID, "global", 10, 0)
	require.NoError(t, err)

	assert.Equal(t, "global", lb.Period)
	assert.NotEmpty(t, lb.Leaderboard)
	assert.Positive(t, lb.CurrentUserRank)
	assert.Positive(t, lb.TotalUsers)
}
