package notification

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationStreakMilestone     NotificationType = "streak_milestone"
	NotificationStreakRisk          NotificationType = "streak_risk"
	NotificationAchievementUnlocked NotificationType = "achievement_unlocked"
	NotificationChallengeCompleted  NotificationType = "challenge_completed"
	NotificationTipReceived         NotificationType = "tip_received"
)

type Notification struct {
	ID        uuid.UUID        `json:"id" db:"id"`
	UserID    uuid.UUID        `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Message   string           `json:"message" db:"message"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	Data      map[string]any   `json:"data" db:"data"`
	CreatedAt time.Time        `json:"created_at" db:"created_at"`
}

type DeviceToken struct {
	Token    string `json:"token" db:"token"`
	Platform string `json:"platform" db:"platform"`
}

type RegisterDeviceRequest struct {
	Token    string `json:"token" validate:"required"`
	Platform string `json:"platform" validate:"required,oneof=ios android web"`
}

type ListResponse struct {
	Notifications []*Notification `json:"notifications"`
	UnreadCount   int             `json:"unread_count"`
}

type template struct {
	title string
	body  string
}

var templates = map[NotificationType]template{
	NotificationStreakMilestone:     {title: "Milestone reached!", body: "You hit a %v-day reading streak. %v Ink Drops are yours."},
	NotificationStreakRisk:          {title: "Your streak is at risk", body: "Check in before midnight UTC to keep your %v-day streak alive."},
	NotificationAchievementUnlocked: {title: "Achievement unlocked", body: "%v: %v points earned."},
	NotificationChallengeCompleted:  {title: "Daily challenge complete", body: "You earned %v Ink Drops."},
	NotificationTipReceived:         {title: "You received a tip", body: "%v Ink Drops landed in your account."},
}

// Render fills the canned template for a notification type. Unknown types
// render a bare title so a new type can never break the dispatch path.
func Render(t NotificationType, args ...any) (title, body string) {
	tpl, ok := templates[t]
	if !ok {
		return string(t), ""
	}
	return tpl.title, fmt.Sprintf(tpl.body, args...)
}
