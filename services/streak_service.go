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
	"inkwellAPI/internal/types/leaderboard"
	"inkwellAPI/internal/types/streak"
	"inkwellAPI/internal/types/user"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StreakService owns the daily check-in state machine. Break detection is
// lazy and read-triggered: every entry point runs maintenance first, so
// correctness never depends on a scheduler.
type StreakService struct {
	db            *pgxpool.Pool
	inkDrops      *InkDropService
	achievements  *AchievementService
	notifications *NotificationService
}

func NewStreakService(db *pgxpool.Pool, inkDrops *InkDropService, achievements *AchievementService, notifications *NotificationService) *StreakService {
	return &StreakService{db: db, inkDrops: inkDrops, achievements: achievements, notifications: notifications}
}

// GetStreak returns the caller's streak snapshot, creating a zeroed record
// on first access and applying lazy break maintenance before the caller
// sees the result.
func (s *StreakService) GetStreak(ctx context.Context, clerkID string) (*streak.StreakResponse, error) {
	userID, _, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	st, err := s.getOrCreateStreakTx(ctx, tx, userID, time.Now())
	if err != nil {
		return nil, err
	}

	milestones, err := s.loadMilestonesTx(ctx, tx, userID)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return &streak.StreakResponse{
		CurrentStreak:   st.CurrentStreak,
		LongestStreak:   st.LongestStreak,
		LastCheckIn:     st.LastCheckInDate,
		CanRestore:      st.CanRestoreStreak,
		TotalCheckIns:   st.TotalCheckIns,
		Milestones:      milestones,
		RestoresUsed:    st.StreakRestoresUsed,
		NextRestoreCost: streak.RestoreCost(st.StreakRestoresUsed),
		StreakStartDate: st.CurrentStreakStartDate,
	}, nil
}

// CheckIn performs the once-per-UTC-day check-in. A repeat call on the same
// day is a no-op returning IsFirstCheckInToday=false, never an error. The
// whole read-advance-credit sequence holds the streak row lock, so two
// devices checking in at once serialize and the loser lands on the no-op
// path.
func (s *StreakService) CheckIn(ctx context.Context, clerkID string) (*streak.CheckInResult, error) {
	userID, isPro, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	st, err := s.getOrCreateStreakTx(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	if st.HasCheckedInToday(now) {
		if err = tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit transaction: %w", err)
		}
		return &streak.CheckInResult{Streak: st, IsFirstCheckInToday: false}, nil
	}

	if st.IsActive(now) {
		st.CurrentStreak++
	} else {
		st.CurrentStreak = 1
		st.CurrentStreakStartDate = &now
	}
	st.LastCheckInDate = &now
	st.CanRestoreStreak = false
	st.TotalCheckIns++

	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
		st.LongestStreakStartDate = st.CurrentStreakStartDate
		st.LongestStreakEndDate = &now
	}

	earned := 0
	var milestoneDay *int

	if streak.IsMilestone(st.CurrentStreak) {
		achieved, err := s.markMilestoneTx(ctx, tx, userID, st.CurrentStreak, now)
		if err != nil {
			return nil, err
		}
		if achieved {
			reward, _ := streak.MilestoneReward(st.CurrentStreak, isPro)
			if _, err = s.inkDrops.appendEntry(ctx, tx, userID, reward, currency.SourceMilestoneAchieved, nil, nil); err != nil {
				return nil, fmt.Errorf("failed to pay milestone reward: %w", err)
			}
			day := st.CurrentStreak
			milestoneDay = &day
			earned += reward
		}
	}

	baseReward := streak.CheckInReward(st.CurrentStreak, isPro)
	if _, err = s.inkDrops.appendEntry(ctx, tx, userID, baseReward, currency.SourceStreakCheckIn, nil, nil); err != nil {
		return nil, fmt.Errorf("failed to pay check-in reward: %w", err)
	}
	earned += baseReward

	if err = s.persistStreakTx(ctx, tx, st); err != nil {
		return nil, err
	}
	if err = s.mirrorUserCountersTx(ctx, tx, st); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	checkInsTotal.Inc()
	log.Printf("CheckIn: user=%s streak=%d earned=%d", userID, st.CurrentStreak, earned)

	if milestoneDay != nil {
		reward, _ := streak.MilestoneReward(*milestoneDay, isPro)
		s.notifications.Notify(userID, notification.NotificationStreakMilestone,
			map[string]any{"day": *milestoneDay, "reward": reward}, *milestoneDay, reward)
	}

	if achType, ok := achievement.StreakTypeFor(st.CurrentStreak); ok {
		if _, err := s.achievements.CheckAchievement(ctx, userID, achType); err != nil {
			log.Printf("CheckIn: achievement check %s failed for user %s: %v", achType, userID, err)
		}
	}

	return &streak.CheckInResult{
		Streak:              st,
		IsFirstCheckInToday: true,
		InkDropsEarned:      earned,
		MilestoneAchieved:   milestoneDay,
	}, nil
}

// RestoreStreak pays to bring a broken streak back to its prior longest
// value. The debit and the state change commit together; an insufficient
// balance leaves both untouched.
func (s *StreakService) RestoreStreak(ctx context.Context, clerkID string) (*streak.RestoreResult, error) {
	userID, _, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	now := time.Now()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	st, err := s.getOrCreateStreakTx(ctx, tx, userID, now)
	if err != nil {
		return nil, err
	}

	if !st.CanRestoreStreak {
		return nil, streak.ErrAlreadyRestored
	}
	if st.IsActive(now) {
		return nil, streak.ErrNoBrokenStreak
	}

	cost := streak.RestoreCost(st.StreakRestoresUsed)

	balance, err := s.inkDrops.appendEntry(ctx, tx, userID, -cost, currency.SourceStreakRestore, nil, nil)
	if err != nil {
		return nil, err
	}

	st.CurrentStreak = st.LongestStreak
	st.CurrentStreakStartDate = &now
	st.LastCheckInDate = &now
	st.CanRestoreStreak = false
	st.StreakRestoresUsed++

	if err = s.persistStreakTx(ctx, tx, st); err != nil {
		return nil, err
	}
	if err = s.mirrorUserCountersTx(ctx, tx, st); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("RestoreStreak: user=%s restored to %d for %d ink drops", userID, st.CurrentStreak, cost)

	return &streak.RestoreResult{
		NewStreakCount:   st.CurrentStreak,
		InkDropsDeducted: cost,
		Balance:          balance,
	}, nil
}

// GetLeaderboard ranks streaks by current length. The monthly period keeps
// only users whose last check-in falls inside the current UTC calendar
// month. Ties break on user id so pagination is deterministic.
func (s *StreakService) GetLeaderboard(ctx context.Context, clerkID string, period string, limit, offset int) (*leaderboard.Leaderboard, error) {
	userID, _, err := s.resolveUser(ctx, clerkID)
	if err != nil {
		return nil, err
	}

	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	periodFilter := ""
	if period == "monthly" {
		periodFilter = `WHERE s.last_check_in_date >= DATE_TRUNC('month', (NOW() AT TIME ZONE 'utc'))`
	} else {
		period = "global"
	}

	query := fmt.Sprintf(`
	SELECT
		RANK() OVER (ORDER BY s.current_streak DESC) AS rank,
		u.id AS user_id,
		u.username,
		u.image_url,
		s.current_streak AS streak_count
	FROM streaks s
	JOIN users u ON u.id = s.user_id
	%s
	ORDER BY s.current_streak DESC, u.id
	LIMIT $1 OFFSET $2
	`, periodFilter)

	rows, err := s.db.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch leaderboard: %w", err)
	}
	defer rows.Close()

	entries := []*leaderboard.Entry{}
	for rows.Next() {
		e := &leaderboard.Entry{}
		if err := rows.Scan(&e.Rank, &e.UserID, &e.Username, &e.ImageURL, &e.StreakCount); err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		entries = append(entries, e)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaderboard: %w", err)
	}

	rankQuery := fmt.Sprintf(`
	SELECT rank, total FROM (
		SELECT
			s.user_id,
			RANK() OVER (ORDER BY s.current_streak DESC) AS rank,
			COUNT(*) OVER () AS total
		FROM streaks s
		%s
	) ranked
	WHERE user_id = $1
	`, periodFilter)

	var currentUserRank, totalUsers int
	err = s.db.QueryRow(ctx, rankQuery, userID).Scan(&currentUserRank, &totalUsers)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to compute caller rank: %w", err)
	}

	return &leaderboard.Leaderboard{
		Period:          period,
		Leaderboard:     entries,
		CurrentUserRank: currentUserRank,
		TotalUsers:      totalUsers,
	}, nil
}

// getOrCreateStreakTx upserts and locks the user's streak row, then runs
// lazy break maintenance: a positive streak whose last check-in is neither
// today nor yesterday is zeroed at read time and flagged restorable.
func (s *StreakService) getOrCreateStreakTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, now time.Time) (*streak.Streak, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO streaks (id, user_id) VALUES ($1, $2)
		ON CONFLICT (user_id) DO NOTHING
	`, uuid.New(), userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create streak record: %w", err)
	}

	st := &streak.Streak{}
	err = tx.QueryRow(ctx, `
		SELECT id, user_id, current_streak, current_streak_start_date, last_check_in_date,
		       longest_streak, longest_streak_start_date, longest_streak_end_date,
		       total_check_ins, can_restore_streak, streak_restores_used, last_break_date,
		       created_at, updated_at
		FROM streaks
		WHERE user_id = $1
		FOR UPDATE
	`, userID).Scan(
		&st.ID, &st.UserID, &st.CurrentStreak, &st.CurrentStreakStartDate, &st.LastCheckInDate,
		&st.LongestStreak, &st.LongestStreakStartDate, &st.LongestStreakEndDate,
		&st.TotalCheckIns, &st.CanRestoreStreak, &st.StreakRestoresUsed, &st.LastBreakDate,
		&st.CreatedAt, &st.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load streak record: %w", err)
	}

	if st.IsBrokenAt(now) {
		st.CurrentStreak = 0
		st.CanRestoreStreak = true
		st.LastBreakDate = &now

		if err = s.persistStreakTx(ctx, tx, st); err != nil {
			return nil, err
		}
		if err = s.mirrorUserCountersTx(ctx, tx, st); err != nil {
			return nil, err
		}
		log.Printf("Streak break detected at read time: user=%s", userID)
	}

	return st, nil
}

func (s *StreakService) persistStreakTx(ctx context.Context, tx pgx.Tx, st *streak.Streak) error {
	_, err := tx.Exec(ctx, `
		UPDATE streaks SET
			current_streak = $1,
			current_streak_start_date = $2,
			last_check_in_date = $3,
			longest_streak = $4,
			longest_streak_start_date = $5,
			longest_streak_end_date = $6,
			total_check_ins = $7,
			can_restore_streak = $8,
			streak_restores_used = $9,
			last_break_date = $10,
			updated_at = NOW()
		WHERE id = $11
	`, st.CurrentStreak, st.CurrentStreakStartDate, st.LastCheckInDate,
		st.LongestStreak, st.LongestStreakStartDate, st.LongestStreakEndDate,
		st.TotalCheckIns, st.CanRestoreStreak, st.StreakRestoresUsed, st.LastBreakDate,
		st.ID)
	if err != nil {
		return fmt.Errorf("failed to save streak: %w", err)
	}
	return nil
}

// mirrorUserCountersTx keeps the denormalized counters on the user
// aggregate in step with the streak record.
func (s *StreakService) mirrorUserCountersTx(ctx context.Context, tx pgx.Tx, st *streak.Streak) error {
	_, err := tx.Exec(ctx, `
		UPDATE users SET current_streak = $1, longest_streak = $2, updated_at = NOW()
		WHERE id = $3
	`, st.CurrentStreak, st.LongestStreak, st.UserID)
	if err != nil {
		return fmt.Errorf("failed to mirror streak counters: %w", err)
	}
	return nil
}

// markMilestoneTx records a milestone exactly once; the unique constraint on
// (user_id, milestone_day) makes the reward unrepeatable.
func (s *StreakService) markMilestoneTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, day int, now time.Time) (bool, error) {
	result, err := tx.Exec(ctx, `
		INSERT INTO streak_milestones (id, user_id, milestone_day, achieved_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, milestone_day) DO NOTHING
	`, uuid.New(), userID, day, now)
	if err != nil {
		return false, fmt.Errorf("failed to record milestone: %w", err)
	}
	return result.RowsAffected() == 1, nil
}

func (s *StreakService) loadMilestonesTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID) (map[int]streak.MilestoneStatus, error) {
	milestones := make(map[int]streak.MilestoneStatus, len(streak.MilestoneDays))
	for _, day := range streak.MilestoneDays {
		milestones[day] = streak.MilestoneStatus{}
	}

	rows, err := tx.Query(ctx, `SELECT milestone_day, achieved_at FROM streak_milestones WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch milestones: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var day int
		var achievedAt time.Time
		if err := rows.Scan(&day, &achievedAt); err != nil {
			return nil, fmt.Errorf("failed to scan milestone: %w", err)
		}
		milestones[day] = streak.MilestoneStatus{Achieved: true, Date: &achievedAt}
	}
	return milestones, rows.Err()
}

func (s *StreakService) resolveUser(ctx context.Context, clerkID string) (uuid.UUID, bool, error) {
	var userID uuid.UUID
	var isPro bool
	err := s.db.QueryRow(ctx, `SELECT id, is_pro FROM users WHERE clerk_id = $1`, clerkID).Scan(&userID, &isPro)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, false, user.ErrNotFound
		}
		return uuid.Nil, false, fmt.Errorf("failed to find user: %w", err)
	}
	return userID, isPro, nil
}
