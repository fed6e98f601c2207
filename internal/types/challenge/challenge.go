package challenge

import (
	"hash/fnv"
	"time"

	"github.com/google/uuid"
)

type ChallengeType string

const (
	TypeReadPosts     ChallengeType = "read_posts"
	TypeLikePosts     ChallengeType = "like_posts"
	TypeComment       ChallengeType = "comment"
	TypeRecommendBook ChallengeType = "recommend_book"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusExpired   Status = "expired"
)

type Definition struct {
	Description string `json:"description"`
	Target      int    `json:"target"`
	Reward      int    `json:"reward"`
}

// AllTypes fixes the order the deterministic picker indexes into.
var AllTypes = []ChallengeType{
	TypeReadPosts,
	TypeLikePosts,
	TypeComment,
	TypeRecommendBook,
}

var Catalog = map[ChallengeType]Definition{
	TypeReadPosts:     {Description: "Read 5 posts from the community", Target: 5, Reward: 15},
	TypeLikePosts:     {Description: "Like 3 posts", Target: 3, Reward: 10},
	TypeComment:       {Description: "Leave 2 comments", Target: 2, Reward: 15},
	TypeRecommendBook: {Description: "Recommend a book to the community", Target: 1, Reward: 20},
}

func IsValidType(t ChallengeType) bool {
	_, ok := Catalog[t]
	return ok
}

// TypeForUser assigns every user a stable pseudo-random challenge type for a
// given UTC day. The same (user, day) pair always maps to the same type, so
// a record lost and recreated within the day cannot change shape.
func TypeForUser(userID string, dayKey string) ChallengeType {
	h := fnv.New32a()
	h.Write([]byte(userID))
	h.Write([]byte(dayKey))
	return AllTypes[int(h.Sum32())%len(AllTypes)]
}

// DayKeyUTC is the UTC YYYY-MM-DD key a daily challenge is unique on.
func DayKeyUTC(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// EndOfDayUTC is the instant a challenge created at t expires.
func EndOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 23, 59, 59, 999999999, time.UTC)
}

type DailyChallenge struct {
	ID              uuid.UUID     `json:"id" db:"id"`
	UserID          uuid.UUID     `json:"user_id" db:"user_id"`
	ChallengeDate   string        `json:"challenge_date" db:"challenge_date"`
	ChallengeType   ChallengeType `json:"type" db:"challenge_type"`
	Description     string        `json:"description" db:"description"`
	TargetCount     int           `json:"target_count" db:"target_count"`
	CurrentProgress int           `json:"current_progress" db:"current_progress"`
	RewardInkDrops  int           `json:"reward_ink_drops" db:"reward_ink_drops"`
	Status          Status        `json:"status" db:"status"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty" db:"completed_at"`
	ExpiresAt       time.Time     `json:"expires_at" db:"expires_at"`
	CreatedAt       time.Time     `json:"created_at" db:"created_at"`
}

func (c *DailyChallenge) Completed() bool {
	return c.Status == StatusCompleted
}

// TodayResponse is the wire shape for the today's-challenge endpoint; it
// flattens the status enum into the completed flag clients key off.
type TodayResponse struct {
	*DailyChallenge
	Completed bool `json:"completed"`
}

func NewTodayResponse(c *DailyChallenge) *TodayResponse {
	return &TodayResponse{DailyChallenge: c, Completed: c.Completed()}
}

type TrackProgressRequest struct {
	ActionType ChallengeType `json:"action_type"`
}

type TrackProgressResult struct {
	ProgressUpdated    bool `json:"progress_updated"`
	CurrentProgress    int  `json:"current_progress"`
	ChallengeCompleted bool `json:"challenge_completed"`
	InkDropsEarned     int  `json:"ink_drops_earned"`
}
