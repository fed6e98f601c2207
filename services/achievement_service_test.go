package services

import (
	"context"
	"testing"

	"inkwellAPI/internal/types/achievement"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAchievementService(db *pgxpool.Pool) *AchievementService {
	notifications := NewNotificationService(db)
	return NewAchievementService(db, NewInkDropService(db, notifications), notifications)
}

func insertPost(t *testing.T, db *pgxpool.Pool, userID uuid.UUID) uuid.UUID {
	t.Helper()

	postID := uuid.New()
	_, err := db.Exec(context.Background(), `INSERT INTO posts (id, user_id) VALUES ($1, $2)`, postID, userID)
	require.NoError(t, err)
	return postID
}

func TestProgressStrategiesCoverCatalog(t *testing.T) {
	for achType := range achievement.Catalog {
		strategy, ok := progressStrategies[achType]
		assert.True(t, ok, "no progress strategy for %s", achType)
		assert.NotNil(t, strategy, "nil progress strategy for %s", achType)
	}
}

func TestCheckAchievementUnlocksOnce(t *testing.T) {
	db := testPool(t)
	svc := newAchievementService(db)
	userID, _ := createTestUser(t, db)
	ctx := context.Background()

	insertPost(t, db, userID)

	result, err := svc.CheckAchievement(ctx, userID, achievement.TypeFirstPost)
	require.NoError(t, err)

	assert.True(t, result.Unlocked)
	assert.Equal(t, 1, result.Progress)
	assert.Equal(t, 10, result.Points)

	var points, level int
	err = db.QueryRow(ctx, `SELECT points, level FROM users WHERE id = $1`, userID).Scan(&points, &level)
	require.NoError(t, err)
	assert.Equal(t, 10, points)
	assert.Equal(t, 1, level)

	// re-checking an unlocked achievement never pays again
	again, err := svc.CheckAchievement(ctx, userID, achievement.TypeFirstPost)
	require.NoError(t, err)
	assert.True(t, again.Unlocked)
	assert.Equal(t, 0, again.Points)

	err = db.QueryRow(ctx, `SELECT points FROM users WHERE id = $1`, userID).Scan(&points)
	require.NoError(t, err)
	assert.Equal(t, 10, points)
}

func TestCheckAchievementBelowTarget(t *testing.T) {
	db := testPool(t)
	svc := newAchievementService(db)
	userID, _ := createTestUser(t, db)
	ctx := context.Background()

	insertPost(t, db, userID)
	insertPost(t, db, userID)

	result, err := svc.CheckAchievement(ctx, userID, achievement.TypeCommenter10)
	require.NoError(t, err)

	assert.False(t, result.Unlocked)
	assert.Equal(t, 0, result.Progress)
	assert.Equal(t, 10, result.Target)
}

func TestCheckAchievementUnknownType(t *testing.T) {
	db := testPool(t)
	svc := newAchievementService(db)
	userID, _ := createTestUser(t, db)
	ctx := context.Background()

	result, err := svc.CheckAchievement(ctx, userID, achievement.Type("time_traveler"))
	require.NoError(t, err)
	assert.False(t, result.Unlocked)
}

func TestAwardPointsLevelsUp(t *testing.T) {
	db := testPool(t)
	svc := newAchievementService(db)
	userID, _ := createTestUser(t, db)
	ctx := context.Background()

	result, err := svc.AwardPoints(ctx, userID, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, result.Points)
	assert.Equal(t, 1, result.Level)
	assert.False(t, result.LeveledUp)

	result, err = svc.AwardPoints(ctx, userID, 60)
	require.NoError(t, err)
	assert.Equal(t, 110, result.Points)
	assert.Equal(t, 2, result.Level)
	assert.True(t, result.LeveledUp)
}

func TestGetAchievementsCoversCatalog(t *testing.T) {
	db := testPool(t)
	svc := newAchievementService(db)
	userID, clerkID := createTestUser(t, db)
	ctx := context.Background()

	insertPost(t, db, userID)
	_, err := svc.CheckAchievement(ctx, userID, achievement.TypeFirstPost)
	require.NoError(t, err)

	list, err := svc.GetAchievements(ctx, clerkID)
	require.NoError(t, err)
	require.Len(t, list, len(achievement.AllTypes))

	// unlocked entries sort first
	assert.True(t, list[0].Unlocked)
	assert.Equal(t, achievement.TypeFirstPost, list[0].Type)

	for _, entry := range list[1:] {
		assert.False(t, entry.Unlocked)
	}
}
