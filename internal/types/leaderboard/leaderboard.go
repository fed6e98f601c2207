package leaderboard

import "github.com/google/uuid"

type Entry struct {
	Rank        int       `json:"rank" db:"rank"`
	UserID      uuid.UUID `json:"user_id" db:"user_id"`
	Username    string    `json:"username" db:"username"`
	ImageURL    *string   `json:"image_url,omitempty" db:"image_url"`
	StreakCount int       `json:"streak_count" db:"streak_count"`
}

type Leaderboard struct {
	Period          string   `json:"period"`
	Leaderboard     []*Entry `json:"leaderboard"`
	CurrentUserRank int      `json:"current_user_rank"`
	TotalUsers      int      `json:"total_users"`
}
