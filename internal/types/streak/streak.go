package streak

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyRestored = errors.New("streak restore not available")
	ErrNoBrokenStreak  = errors.New("streak is not broken")
)

// MilestoneDays are the streak lengths that pay a one-time bonus.
var MilestoneDays = []int{7, 30, 100, 365}

var milestoneRewards = map[int]int{
	7:   50,
	30:  200,
	100: 500,
	365: 1000,
}

// proMultiplier is applied to every streak payout for pro readers, floored.
const proMultiplier = 1.5

const baseRestoreCost = 200

type Streak struct {
	ID                     uuid.UUID  `json:"id" db:"id"`
	UserID                 uuid.UUID  `json:"user_id" db:"user_id"`
	CurrentStreak          int        `json:"current_streak" db:"current_streak"`
	CurrentStreakStartDate *time.Time `json:"current_streak_start_date" db:"current_streak_start_date"`
	LastCheckInDate        *time.Time `json:"last_check_in_date" db:"last_check_in_date"`
	LongestStreak          int        `json:"longest_streak" db:"longest_streak"`
	LongestStreakStartDate *time.Time `json:"longest_streak_start_date" db:"longest_streak_start_date"`
	LongestStreakEndDate   *time.Time `json:"longest_streak_end_date" db:"longest_streak_end_date"`
	TotalCheckIns          int        `json:"total_check_ins" db:"total_check_ins"`
	CanRestoreStreak       bool       `json:"can_restore_streak" db:"can_restore_streak"`
	StreakRestoresUsed     int        `json:"streak_restores_used" db:"streak_restores_used"`
	LastBreakDate          *time.Time `json:"last_break_date" db:"last_break_date"`
	CreatedAt              time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at" db:"updated_at"`
}

type MilestoneStatus struct {
	Achieved bool       `json:"achieved"`
	Date     *time.Time `json:"date,omitempty"`
}

type CheckInResult struct {
	Streak              *Streak `json:"streak"`
	IsFirstCheckInToday bool    `json:"is_first_check_in_today"`
	InkDropsEarned      int     `json:"ink_drops_earned"`
	MilestoneAchieved   *int    `json:"milestone_achieved,omitempty"`
}

type RestoreResult struct {
	NewStreakCount   int `json:"new_streak_count"`
	InkDropsDeducted int `json:"ink_drops_deducted"`
	Balance          int `json:"balance"`
}

type StreakResponse struct {
	CurrentStreak   int                     `json:"current_streak"`
	LongestStreak   int                     `json:"longest_streak"`
	LastCheckIn     *time.Time              `json:"last_check_in"`
	CanRestore      bool                    `json:"can_restore"`
	TotalCheckIns   int                     `json:"total_check_ins"`
	Milestones      map[int]MilestoneStatus `json:"milestones"`
	RestoresUsed    int                     `json:"streak_restores_used"`
	NextRestoreCost int                     `json:"next_restore_cost"`
	StreakStartDate *time.Time              `json:"current_streak_start_date,omitempty"`
}

// DayUTC truncates t to midnight UTC. Every day comparison in the engine
// goes through this; "a day" is contractually a UTC day.
func DayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

func SameUTCDay(a, b time.Time) bool {
	return DayUTC(a).Equal(DayUTC(b))
}

func (s *Streak) HasCheckedInToday(now time.Time) bool {
	if s.LastCheckInDate == nil {
		return false
	}
	return SameUTCDay(*s.LastCheckInDate, now)
}

// IsActive reports whether the streak is still alive: the last valid
// check-in was today or yesterday in UTC.
func (s *Streak) IsActive(now time.Time) bool {
	if s.LastCheckInDate == nil {
		return false
	}
	last := DayUTC(*s.LastCheckInDate)
	today := DayUTC(now)
	return last.Equal(today) || last.Equal(today.AddDate(0, 0, -1))
}

// IsBrokenAt reports whether lazy break maintenance should fire: the user
// holds a positive streak but missed at least one full UTC day.
func (s *Streak) IsBrokenAt(now time.Time) bool {
	return s.CurrentStreak > 0 && !s.IsActive(now)
}

// CheckInReward is the base payout for the first check-in of the day, a
// step function of the streak length.
func CheckInReward(currentStreak int, isPro bool) int {
	reward := 5
	if currentStreak >= 7 {
		reward += 5
	}
	if currentStreak >= 30 {
		reward += 10
	}
	if currentStreak >= 100 {
		reward += 20
	}
	return applyPro(reward, isPro)
}

// MilestoneReward returns the one-time bonus for reaching day, or false if
// day is not a milestone.
func MilestoneReward(day int, isPro bool) (int, bool) {
	base, ok := milestoneRewards[day]
	if !ok {
		return 0, false
	}
	return applyPro(base, isPro), true
}

func IsMilestone(day int) bool {
	_, ok := milestoneRewards[day]
	return ok
}

// RestoreCost grows 2.5x with every restore already consumed: 200, 500, 1250, ...
func RestoreCost(restoresUsed int) int {
	return int(math.Floor(float64(baseRestoreCost) * math.Pow(2.5, float64(restoresUsed))))
}

func applyPro(amount int, isPro bool) int {
	if !isPro {
		return amount
	}
	return int(math.Floor(float64(amount) * proMultiplier))
}
