package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"inkwellAPI/internal/notification"
	"inkwellAPI/internal/types/achievement"
	"inkwellAPI/internal/types/currency"
	"inkwellAPI/internal/types/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AchievementService struct {
	db            *pgxpool.Pool
	inkDrops      *InkDropService
	notifications *NotificationService
}

func NewAchievementService(db *pgxpool.Pool, inkDrops *InkDropService, notifications *NotificationService) *AchievementService {
	return &AchievementService{db: db, inkDrops: inkDrops, notifications: notifications}
}

type progressFunc func(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error)

func countQuery(query string) progressFunc {
	return func(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
		var n int
		err := tx.QueryRow(ctx, query, userID).Scan(&n)
		return n, err
	}
}

// streakProgress reads the streak engine's current value instead of
// mutating it, so the mutual triggering between the two services stays
// acyclic.
func streakProgress(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (int, error) {
	var n int
	err := tx.QueryRow(ctx, `SELECT current_streak FROM streaks WHERE user_id = $1`, userID).Scan(&n)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	return n, err
}

// progressStrategies is total over the catalog: every achievement type maps
// to exactly one counting strategy.
var progressStrategies = map[achievement.Type]progressFunc{
	achievement.TypeFirstPost:         countQuery(`SELECT COUNT(*) FROM posts WHERE user_id = $1`),
	achievement.TypeBookLover5:        countQuery(`SELECT COUNT(*) FROM bookshelf_items WHERE user_id = $1`),
	achievement.TypeBookLover10:       countQuery(`SELECT COUNT(*) FROM bookshelf_items WHERE user_id = $1`),
	achievement.TypeBookLover25:       countQuery(`SELECT COUNT(*) FROM bookshelf_items WHERE user_id = $1`),
	achievement.TypeBookLover50:       countQuery(`SELECT COUNT(*) FROM bookshelf_items WHERE user_id = $1`),
	achievement.TypeSocialButterfly10: countQuery(`SELECT COUNT(*) FROM post_likes WHERE user_id = $1`),
	achievement.TypeSocialButterfly25: countQuery(`SELECT COUNT(*) FROM post_likes WHERE user_id = $1`),
	achievement.TypeStreak3:           streakProgress,
	achievement.TypeStreak7:           streakProgress,
	achievement.TypeStreak30:          streakProgress,
	achievement.TypePopularPost10: countQuery(`
		SELECT COALESCE(MAX(like_count), 0) FROM (
			SELECT COUNT(*) AS like_count
			FROM post_likes pl
			JOIN posts p ON p.id = pl.post_id
			WHERE p.user_id = $1
			GROUP BY pl.post_id
		) per_post`),
	achievement.TypePopularPost50: countQuery(`
		SELECT COALESCE(MAX(like_count), 0) FROM (
			SELECT COUNT(*) AS like_count
			FROM post_likes pl
			JOIN posts p ON p.id = pl.post_id
			WHERE p.user_id = $1
			GROUP BY pl.post_id
		) per_post`),
	achievement.TypeCommenter10: countQuery(`SELECT COUNT(*) FROM comments WHERE user_id = $1`),
	achievement.TypeCommenter50: countQuery(`SELECT COUNT(*) FROM comments WHERE user_id = $1`),
	achievement.TypeExplorer: countQuery(`
		SELECT COUNT(DISTINCT p.user_id)
		FROM post_likes pl
		JOIN posts p ON p.id = pl.post_id
		WHERE pl.user_id = $1`),
	achievement.TypeTrendsetter: countQuery(`
		SELECT COUNT(*)
		FROM post_likes pl
		JOIN posts p ON p.id = pl.post_id
		WHERE p.user_id = $1`),
}

// CheckAchievement recomputes progress for one achievement type and unlocks
// it exactly once when the target is crossed. An unknown type is a no-op,
// never an error; so is a type that is already unlocked.
func (s *AchievementService) CheckAchievement(ctx context.Context, userID uuid.UUID, achType achievement.Type) (*achievement.CheckResult, error) {
	def, known := achievement.Catalog[achType]
	if !known {
		return &achievement.CheckResult{Type: achType}, nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO user_achievements (id, user_id, achievement_type, progress, unlocked, updated_at)
		VALUES ($1, $2, $3, 0, false, NOW())
		ON CONFLICT (user_id, achievement_type) DO NOTHING
	`, uuid.New(), userID, achType)
	if err != nil {
		return nil, fmt.Errorf("failed to create achievement record: %w", err)
	}

	var recordID uuid.UUID
	var progress int
	var unlocked bool
	err = tx.QueryRow(ctx, `
		SELECT id, progress, unlocked FROM user_achievements
		WHERE user_id = $1 AND achievement_type = $2
		FOR UPDATE
	`, userID, achType).Scan(&recordID, &progress, &unlocked)
	if err != nil {
		return nil, fmt.Errorf("failed to load achievement record: %w", err)
	}

	if unlocked {
		return &achievement.CheckResult{Type: achType, Progress: progress, Target: def.Target, Unlocked: true}, nil
	}

	strategy, ok := progressStrategies[achType]
	if !ok {
		return &achievement.CheckResult{Type: achType, Progress: progress, Target: def.Target}, nil
	}
	progress, err = strategy(ctx, tx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute progress for %s: %w", achType, err)
	}

	result := &achievement.CheckResult{Type: achType, Progress: progress, Target: def.Target}

	if progress >= def.Target {
		now := time.Now()
		_, err = tx.Exec(ctx, `
			UPDATE user_achievements
			SET progress = $1, unlocked = true, unlocked_at = $2, updated_at = NOW()
			WHERE id = $3
		`, progress, now, recordID)
		if err != nil {
			return nil, fmt.Errorf("failed to unlock achievement: %w", err)
		}

		if _, err = s.inkDrops.appendEntry(ctx, tx, userID, def.Points, currency.SourceMilestoneAchieved, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to pay achievement reward: %w", err)
		}

		if _, err = s.awardPointsTx(ctx, tx, userID, def.Points); err != nil {
			return nil, err
		}

		result.Unlocked = true
		result.Points = def.Points
	} else {
		_, err = tx.Exec(ctx, `UPDATE user_achievements SET progress = $1, updated_at = NOW() WHERE id = $2`, progress, recordID)
		if err != nil {
			return nil, fmt.Errorf("failed to save progress: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if result.Unlocked {
		achievementsUnlocked.WithLabelValues(string(achType)).Inc()
		log.Printf("Achievement unlocked: user=%s type=%s points=%d", userID, achType, def.Points)
		s.notifications.Notify(userID, notification.NotificationAchievementUnlocked,
			map[string]any{"type": string(achType), "points": def.Points}, def.Name, def.Points)
	}

	return result, nil
}

// AwardPoints adds account-leveling points (independent of Ink Drops) and
// recomputes the level from the new total.
func (s *AchievementService) AwardPoints(ctx context.Context, userID uuid.UUID, delta int) (*achievement.AwardResult, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	result, err := s.awardPointsTx(ctx, tx, userID, delta)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, nil
}

func (s *AchievementService) awardPointsTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, delta int) (*achievement.AwardResult, error) {
	var points, level int
	err := tx.QueryRow(ctx, `SELECT points, level FROM users WHERE id = $1 FOR UPDATE`, userID).Scan(&points, &level)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read points: %w", err)
	}

	newPoints := points + delta
	newLevel := achievement.LevelForPoints(newPoints)

	_, err = tx.Exec(ctx, `UPDATE users SET points = $1, level = $2, updated_at = NOW() WHERE id = $3`, newPoints, newLevel, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to save points: %w", err)
	}

	return &achievement.AwardResult{
		Points:    newPoints,
		Level:     newLevel,
		LeveledUp: newLevel > level,
	}, nil
}

// GetAchievements returns the whole catalog with the user's unlock state,
// unlocked first.
func (s *AchievementService) GetAchievements(ctx context.Context, clerkID string) ([]*achievement.WithStatus, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, user.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	rows, err := s.db.Query(ctx, `
		SELECT achievement_type, progress, unlocked, unlocked_at
		FROM user_achievements
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch achievements: %w", err)
	}
	defer rows.Close()

	records := make(map[achievement.Type]*achievement.UserAchievement)
	for rows.Next() {
		rec := &achievement.UserAchievement{}
		if err := rows.Scan(&rec.Type, &rec.Progress, &rec.Unlocked, &rec.UnlockedAt); err != nil {
			return nil, fmt.Errorf("failed to scan achievement: %w", err)
		}
		records[rec.Type] = rec
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating achievements: %w", err)
	}

	var unlockedList, lockedList []*achievement.WithStatus
	for _, t := range achievement.AllTypes {
		status := &achievement.WithStatus{Type: t, Definition: achievement.Catalog[t]}
		if rec, ok := records[t]; ok {
			status.Progress = rec.Progress
			status.Unlocked = rec.Unlocked
			status.UnlockedAt = rec.UnlockedAt
		}
		if status.Unlocked {
			unlockedList = append(unlockedList, status)
		} else {
			lockedList = append(lockedList, status)
		}
	}

	return append(unlockedList, lockedList...), nil
}
