package explorer

import (
	"fmt"
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/gamedev-cards/internal/domain"
)

// SortKey selects the field the explorer orders by
type SortKey string

const (
	SortByName  SortKey = "name"
	SortByLevel SortKey = "level"
	SortByGames SortKey = "games"
)

// Direction is the sort direction
type Direction string

const (
	Ascending  Direction = "asc"
	Descending Direction = "desc"
)

// ParseSort validates sort parameters, defaulting to level descending
func ParseSort(key, dir string) (SortKey, Direction, error) {
	k := SortKey(key)
	switch k {
	case "":
		k = SortByLevel
	case SortByName, SortByLevel, SortByGames:
	case "gameCount":
		k = SortByGames
	default:
		return "", "", fmt.Errorf("unknown sort key %q", key)
	}
	d := Direction(dir)
	switch d {
	case "":
		d = Descending
	case Ascending, Descending:
	default:
		return "", "", fmt.Errorf("unknown sort direction %q", dir)
	}
	return k, d, nil
}

// Sort returns a stably sorted copy of entries
func Sort(entries []domain.DirectoryEntry, key SortKey, dir Direction) []domain.DirectoryEntry {
	sorted := slices.Clone(entries)
	col := collate.New(language.English)

	slices.SortStableFunc(sorted, func(a, b domain.DirectoryEntry) int {
		var c int
		switch key {
		case SortByName:
			c = col.CompareString(a.Name, b.Name)
		case SortByGames:
			c = a.GameCount - b.GameCount
		default:
			c = a.Level - b.Level
		}
		if dir == Descending {
			return -c
		}
		return c
	})
	return sorted
}
