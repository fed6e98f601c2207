package achievement

import (
	"math"
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeFirstPost         Type = "first_post"
	TypeBookLover5        Type = "book_lover_5"
	TypeBookLover10       Type = "book_lover_10"
	TypeBookLover25       Type = "book_lover_25"
	TypeBookLover50       Type = "book_lover_50"
	TypeSocialButterfly10 Type = "social_butterfly_10"
	TypeSocialButterfly25 Type = "social_butterfly_25"
	TypeStreak3           Type = "streak_3"
	TypeStreak7           Type = "streak_7"
	TypeStreak30          Type = "streak_30"
	TypePopularPost10     Type = "popular_post_10"
	TypePopularPost50     Type = "popular_post_50"
	TypeCommenter10       Type = "commenter_10"
	TypeCommenter50       Type = "commenter_50"
	TypeExplorer          Type = "explorer"
	TypeTrendsetter       Type = "trendsetter"
)

type Definition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Points      int    `json:"points"`
	Target      int    `json:"target"`
}

// AllTypes fixes the display order of the catalog.
var AllTypes = []Type{
	TypeFirstPost,
	TypeBookLover5,
	TypeBookLover10,
	TypeBookLover25,
	TypeBookLover50,
	TypeSocialButterfly10,
	TypeSocialButterfly25,
	TypeStreak3,
	TypeStreak7,
	TypeStreak30,
	TypePopularPost10,
	TypePopularPost50,
	TypeCommenter10,
	TypeCommenter50,
	TypeExplorer,
	TypeTrendsetter,
}

var Catalog = map[Type]Definition{
	TypeFirstPost:         {Name: "First Post", Description: "Share your first book post", Points: 10, Target: 1},
	TypeBookLover5:        {Name: "Book Lover", Description: "Add 5 books to your shelves", Points: 25, Target: 5},
	TypeBookLover10:       {Name: "Avid Reader", Description: "Add 10 books to your shelves", Points: 50, Target: 10},
	TypeBookLover25:       {Name: "Bookworm", Description: "Add 25 books to your shelves", Points: 100, Target: 25},
	TypeBookLover50:       {Name: "Librarian", Description: "Add 50 books to your shelves", Points: 250, Target: 50},
	TypeSocialButterfly10: {Name: "Social Butterfly", Description: "Like 10 posts", Points: 20, Target: 10},
	TypeSocialButterfly25: {Name: "Community Spirit", Description: "Like 25 posts", Points: 50, Target: 25},
	TypeStreak3:           {Name: "Getting Started", Description: "Read 3 days in a row", Points: 15, Target: 3},
	TypeStreak7:           {Name: "One Week Strong", Description: "Read 7 days in a row", Points: 50, Target: 7},
	TypeStreak30:          {Name: "Habit Formed", Description: "Read 30 days in a row", Points: 200, Target: 30},
	TypePopularPost10:     {Name: "Popular Post", Description: "Get 10 likes on a single post", Points: 30, Target: 10},
	TypePopularPost50:     {Name: "Viral Post", Description: "Get 50 likes on a single post", Points: 150, Target: 50},
	TypeCommenter10:       {Name: "Conversationalist", Description: "Leave 10 comments", Points: 20, Target: 10},
	TypeCommenter50:       {Name: "Discussion Leader", Description: "Leave 50 comments", Points: 100, Target: 50},
	TypeExplorer:          {Name: "Explorer", Description: "Like posts from 10 different readers", Points: 40, Target: 10},
	TypeTrendsetter:       {Name: "Trendsetter", Description: "Collect 100 likes across your posts", Points: 200, Target: 100},
}

// StreakTypeFor maps a freshly reached streak length to the achievement the
// Streak Engine should trigger, if any.
func StreakTypeFor(currentStreak int) (Type, bool) {
	switch currentStreak {
	case 3:
		return TypeStreak3, true
	case 7:
		return TypeStreak7, true
	case 30:
		return TypeStreak30, true
	}
	return "", false
}

type UserAchievement struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"user_id" db:"user_id"`
	Type       Type       `json:"type" db:"achievement_type"`
	Progress   int        `json:"progress" db:"progress"`
	Unlocked   bool       `json:"unlocked" db:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty" db:"unlocked_at"`
	UpdatedAt  time.Time  `json:"updated_at" db:"updated_at"`
}

type WithStatus struct {
	Type Type `json:"type"`
	Definition
	Progress   int        `json:"progress"`
	Unlocked   bool       `json:"unlocked"`
	UnlockedAt *time.Time `json:"unlocked_at,omitempty"`
}

type CheckResult struct {
	Type     Type `json:"type"`
	Progress int  `json:"progress"`
	Target   int  `json:"target"`
	Unlocked bool `json:"unlocked"`
	Points   int  `json:"points_awarded"`
}

type CheckRequest struct {
	UserID string `json:"user_id"`
	Type   Type   `json:"type"`
}

type AwardResult struct {
	Points    int  `json:"points"`
	Level     int  `json:"level"`
	LeveledUp bool `json:"leveled_up"`
}

// LevelForPoints recomputes the account level from the points total, so the
// level can never drift from the points it is derived from.
func LevelForPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return int(math.Floor(math.Sqrt(float64(points)/100))) + 1
}
