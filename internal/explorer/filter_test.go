package explorer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/explorer"
)

func entry(name, bio string, level int, tags ...string) domain.DirectoryEntry {
	return domain.DirectoryEntry{
		ProfileID: "0x" + name,
		Name:      name,
		Bio:       bio,
		Level:     level,
		GameCount: level - 1,
		Tags:      tags,
	}
}

func names(entries []domain.DirectoryEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

func TestFilter_LevelBandBoundaries(t *testing.T) {
	all := []domain.DirectoryEntry{
		entry("zero", "", 0),
		entry("one", "", 1),
		entry("five", "", 5),
		entry("ten", "", 10),
		entry("eleven", "", 11),
	}

	got := explorer.Filter(all, explorer.Query{Level: explorer.Level1To10})
	assert.Equal(t, []string{"one", "five", "ten"}, names(got))
}

func TestFilter_AllBands(t *testing.T) {
	cases := []struct {
		band  explorer.LevelRange
		level int
		in    bool
	}{
		{explorer.Level11To20, 11, true},
		{explorer.Level11To20, 20, true},
		{explorer.Level11To20, 21, false},
		{explorer.Level21To30, 30, true},
		{explorer.Level21To30, 31, false},
		{explorer.Level31AndUp, 31, true},
		{explorer.Level31AndUp, 30, false},
		{explorer.LevelAll, 0, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.in, tc.band.Contains(tc.level), "band %s level %d", tc.band, tc.level)
	}
}

func TestFilter_QueryMatchesNameOrBioCaseInsensitively(t *testing.T) {
	all := []domain.DirectoryEntry{
		entry("Nova", "pixel art wizard", 3),
		entry("Orbit", "Builds ROGUELIKES", 2),
		entry("Quark", "shaders", 4),
	}

	assert.Equal(t, []string{"Nova"}, names(explorer.Filter(all, explorer.Query{Text: "NOV"})))
	assert.Equal(t, []string{"Orbit"}, names(explorer.Filter(all, explorer.Query{Text: "roguelike"})))
	assert.Equal(t, []string{"Nova", "Orbit", "Quark"}, names(explorer.Filter(all, explorer.Query{})))
	assert.Empty(t, explorer.Filter(all, explorer.Query{Text: "missing"}))
}

func TestFilter_TagsIntersect(t *testing.T) {
	all := []domain.DirectoryEntry{
		entry("a", "", 2, "rpg", "pixel"),
		entry("b", "", 2, "puzzle"),
		entry("c", "", 2),
	}

	got := explorer.Filter(all, explorer.Query{Tags: []string{"pixel", "puzzle"}})
	assert.Equal(t, []string{"a", "b"}, names(got))
}

func TestParseLevelRange(t *testing.T) {
	r, err := explorer.ParseLevelRange("")
	require.NoError(t, err)
	assert.Equal(t, explorer.LevelAll, r)

	r, err = explorer.ParseLevelRange("31+")
	require.NoError(t, err)
	assert.Equal(t, explorer.Level31AndUp, r)

	_, err = explorer.ParseLevelRange("40-50")
	assert.Error(t, err)
}

func TestTopTags(t *testing.T) {
	all := []domain.DirectoryEntry{
		entry("a", "", 1, "rpg", "pixel"),
		entry("b", "", 1, "rpg"),
		entry("c", "", 1, "puzzle", "rpg", "pixel"),
	}
	assert.Equal(t, []string{"rpg", "pixel"}, explorer.TopTags(all, 2))
}

func TestLevelRange_Bounds(t *testing.T) {
	for band, want := range map[explorer.LevelRange][2]int{
		explorer.LevelAll:     {0, 0},
		explorer.Level1To10:   {1, 10},
		explorer.Level11To20:  {11, 20},
		explorer.Level21To30:  {21, 30},
		explorer.Level31AndUp: {31, 0},
	} {
		lo, hi := band.Bounds()
		assert.Equal(t, want, [2]int{lo, hi}, band)
	}
}

func TestQuery_Active(t *testing.T) {
	assert.False(t, explorer.Query{}.Active())
	assert.False(t, explorer.Query{Level: explorer.LevelAll}.Active())
	assert.True(t, explorer.Query{Text: "nova"}.Active())
	assert.True(t, explorer.Query{Level: explorer.Level31AndUp}.Active())
	assert.True(t, explorer.Query{Tags: []string{"rpg"}}.Active())
}
