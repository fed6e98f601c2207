package achievement

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCatalogCoversAllTypes(t *testing.T) {
	assert.Len(t, Catalog, len(AllTypes))
	for _, typ := range AllTypes {
		def, ok := Catalog[typ]
		assert.True(t, ok, "missing catalog entry for %s", typ)
		assert.NotEmpty(t, def.Name, "%s", typ)
		assert.Positive(t, def.Points, "%s", typ)
		assert.Positive(t, def.Target, "%s", typ)
	}
}

func TestStreakTypeFor(t *testing.T) {
	typ, ok := StreakTypeFor(3)
	assert.True(t, ok)
	assert.Equal(t, TypeStreak3, typ)

	typ, ok = StreakTypeFor(7)
	assert.True(t, ok)
	assert.Equal(t, TypeStreak7, typ)

	typ, ok = StreakTypeFor(30)
	assert.True(t, ok)
	assert.Equal(t, TypeStreak30, typ)

	for _, n := range []int{0, 1, 2, 4, 8, 29, 31, 100} {
		_, ok := StreakTypeFor(n)
		assert.False(t, ok, "streak %d", n)
	}
}

func TestLevelForPoints(t *testing.T) {
	assert.Equal(t, 1, LevelForPoints(0))
	assert.Equal(t, 1, LevelForPoints(99))
	assert.Equal(t, 2, LevelForPoints(100))
	assert.Equal(t, 2, LevelForPoints(399))
	assert.Equal(t, 3, LevelForPoints(400))
	assert.Equal(t, 4, LevelForPoints(900))
	assert.Equal(t, 11, LevelForPoints(10000))

	// negative totals clamp instead of panicking
	assert.Equal(t, 1, LevelForPoints(-50))
}

func TestLevelForPointsMonotonic(t *testing.T) {
	prev := LevelForPoints(0)
	for p := 1; p <= 5000; p++ {
		cur := LevelForPoints(p)
		assert.GreaterOrEqual(t, cur, prev, "points %d", p)
		prev = cur
	}
}
