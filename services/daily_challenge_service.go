package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"inkwellAPI/internal/notification"
	"inkwellAPI/internal/types/challenge"
	"inkwellAPI/internal/types/currency"
	"inkwellAPI/internal/types/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DailyChallengeService hands every user one challenge per UTC day. Records
// are created lazily on first access and expired lazily on read; no
// background job is involved.
type DailyChallengeService struct {
	db            *pgxpool.Pool
	inkDrops      *InkDropService
	notifications *NotificationService
}

func NewDailyChallengeService(db *pgxpool.Pool, inkDrops *InkDropService, notifications *NotificationService) *DailyChallengeService {
	return &DailyChallengeService{db: db, inkDrops: inkDrops, notifications: notifications}
}

// GetOrCreateTodayChallenge returns the caller's challenge for the current
// UTC day, creating it deterministically on first access.
func (s *DailyChallengeService) GetOrCreateTodayChallenge(ctx context.Context, clerkID string) (*challenge.DailyChallenge, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ch, err := s.getOrCreateTodayTx(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return ch, nil
}

// TrackProgress reports one qualifying action. If today's challenge does not
// match the action type, is already completed or has expired, the call is a
// no-op with ProgressUpdated=false. Reaching the target completes the
// challenge and pays the reward exactly once, in the same transaction.
func (s *DailyChallengeService) TrackProgress(ctx context.Context, clerkID string, actionType challenge.ChallengeType) (*challenge.TrackProgressResult, error) {
	userID, err := s.resolveUserID(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ch, err := s.getOrCreateTodayTx(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	if ch.Status != challenge.StatusActive || ch.ChallengeType != actionType {
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &challenge.TrackProgressResult{CurrentProgress: ch.CurrentProgress}, nil
	}

	if ch.CurrentProgress < ch.TargetCount {
		ch.CurrentProgress++
	}

	result := &challenge.TrackProgressResult{
		ProgressUpdated: true,
		CurrentProgress: ch.CurrentProgress,
	}

	if ch.CurrentProgress >= ch.TargetCount {
		ch.Status = challenge.StatusCompleted
		ch.CompletedAt = &now

		if _, err = s.inkDrops.appendEntry(ctx, tx, userID, ch.RewardInkDrops, currency.SourceChallengeCompleted, nil, nil); err != nil {
			return nil, fmt.Errorf("failed to pay challenge reward: %w", err)
		}

		result.ChallengeCompleted = true
		result.InkDropsEarned = ch.RewardInkDrops
	}

	_, err = tx.Exec(ctx, `
		UPDATE daily_challenges
		SET current_progress = $1, status = $2, completed_at = $3
		WHERE id = $4
	`, ch.CurrentProgress, ch.Status, ch.CompletedAt, ch.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to save challenge progress: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if result.ChallengeCompleted {
		log.Printf("Challenge completed: user=%s type=%s reward=%d", userID, ch.ChallengeType, ch.RewardInkDrops)
		s.notifications.Notify(userID, notification.NotificationChallengeCompleted,
			map[string]any{"type": string(ch.ChallengeType), "reward": ch.RewardInkDrops}, ch.RewardInkDrops)
	}

	return result, nil
}

// getOrCreateTodayTx upserts and locks today's record, then applies lazy
// expiry: an active record read past its expiresAt flips to expired and can
// never complete afterwards. Completed and expired records are final; a new
// UTC day gets a fresh record.
func (s *DailyChallengeService) getOrCreateTodayTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, now time.Time) (*challenge.DailyChallenge, error) {
	dayKey := challenge.DayKeyUTC(now)
	chType := challenge.TypeForUser(userID.String(), dayKey)
	def := challenge.Catalog[chType]

	// Sweep the user's stale records: an active challenge read past its
	// expiry flips to expired and is never resurrected.
	_, err := tx.Exec(ctx, `
		UPDATE daily_challenges SET status = $1
		WHERE user_id = $2 AND status = $3 AND expires_at < $4
	`, challenge.StatusExpired, userID, challenge.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("failed to expire stale challenges: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO daily_challenges (id, user_id, challenge_date, challenge_type, description,
		                              target_count, current_progress, reward_ink_drops, status, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10)
		ON CONFLICT (user_id, challenge_date) DO NOTHING
	`, uuid.New(), userID, dayKey, chType, def.Description, def.Target, def.Reward,
		challenge.StatusActive, challenge.EndOfDayUTC(now), now)
	if err != nil {
		return nil, fmt.Errorf("failed to create daily challenge: %w", err)
	}

	ch := &challenge.DailyChallenge{}
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, challenge_date::text, challenge_type, description, target_count,
		       current_progress, reward_ink_drops, status, completed_at, expires_at, created_at
		FROM daily_challenges
		WHERE user_id = $1 AND challenge_date = $2
		FOR UPDATE
	`, userID, dayKey).Scan(
		&ch.ID, &ch.UserID, &ch.ChallengeDate, &ch.ChallengeType, &ch.Description, &ch.TargetCount,
		&ch.CurrentProgress, &ch.RewardInkDrops, &ch.Status, &ch.CompletedAt, &ch.ExpiresAt, &ch.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily challenge: %w", err)
	}

	if ch.Status == challenge.StatusActive && now.After(ch.ExpiresAt) {
		ch.Status = challenge.StatusExpired
		_, err = tx.Exec(ctx, `UPDATE daily_challenges SET status = $1 WHERE id = $2`, ch.Status, ch.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to expire challenge: %w", err)
		}
	}

	return ch, nil
}

func (s *DailyChallengeService) resolveUserID(ctx context.Context, clerkID string) (uuid.UUID, error) {
	var userID uuid.UUID
	err := s.db.QueryRow(ctx, `SELECT id FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, user.ErrNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to find user: %w", err)
	}
	return userID, nil
}
