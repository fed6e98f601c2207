package challenge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTypeForUserDeterministic(t *testing.T) {
	userID := "c0a80121-7ac0-4e1c-9d5a-3a1b2c3d4e5f"

	first := TypeForUser(userID, "2026-03-10")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, TypeForUser(userID, "2026-03-10"))
	}

	_, ok := Catalog[first]
	assert.True(t, ok)
}

func TestTypeForUserVariesAcrossDays(t *testing.T) {
	userID := "c0a80121-7ac0-4e1c-9d5a-3a1b2c3d4e5f"

	seen := map[ChallengeType]bool{}
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 60; i++ {
		seen[TypeForUser(userID, DayKeyUTC(day))] = true
		day = day.AddDate(0, 0, 1)
	}

	// over two months every challenge type should come up
	assert.Len(t, seen, len(AllTypes))
}

func TestDayKeyUTC(t *testing.T) {
	assert.Equal(t, "2026-03-10", DayKeyUTC(time.Date(2026, 3, 10, 23, 59, 0, 0, time.UTC)))

	// 01:30 in UTC+2 belongs to the previous UTC day
	loc := time.FixedZone("EET", 2*3600)
	assert.Equal(t, "2026-03-09", DayKeyUTC(time.Date(2026, 3, 10, 1, 30, 0, 0, loc)))
}

func TestEndOfDayUTC(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 15, 0, 0, time.UTC)
	end := EndOfDayUTC(at)

	assert.Equal(t, "2026-03-10", DayKeyUTC(end))
	assert.True(t, end.After(at))
	assert.True(t, end.Before(time.Date(2026, 3, 11, 0, 0, 0, 0, time.UTC)))
}

func TestIsValidType(t *testing.T) {
	for _, typ := range AllTypes {
		assert.True(t, IsValidType(typ))
	}
	assert.False(t, IsValidType("watch_paint_dry"))
	assert.False(t, IsValidType(""))
}

func TestTodayResponseCompleted(t *testing.T) {
	active := &DailyChallenge{Status: StatusActive}
	done := &DailyChallenge{Status: StatusCompleted}

	raw, err := json.Marshal(NewTodayResponse(active))
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"completed":false`)

	raw, err = json.Marshal(NewTodayResponse(done))
	assert.NoError(t, err)
	assert.Contains(t, string(raw), `"completed":true`)
}

func TestCatalogTargetsAndRewards(t *testing.T) {
	for typ, def := range Catalog {
		assert.Positive(t, def.Target, "%s", typ)
		assert.Positive(t, def.Reward, "%s", typ)
		assert.NotEmpty(t, def.Description, "%s", typ)
	}
}
