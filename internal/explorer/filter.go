// Package explorer holds the pure pipeline behind the Space Explorer:
// filter, sort and galaxy layout over directory entries, plus the pan/zoom
// view reducer.
package explorer

import (
	"fmt"
	"slices"
	"strings"

	"github.com/gamedev-cards/internal/domain"
)

// LevelRange is one of the level bands offered by the explorer
type LevelRange string

const (
	LevelAll     LevelRange = "all"
	Level1To10   LevelRange = "1-10"
	Level11To20  LevelRange = "11-20"
	Level21To30  LevelRange = "21-30"
	Level31AndUp LevelRange = "31+"
)

// ParseLevelRange validates a band name; an empty string means all
func ParseLevelRange(s string) (LevelRange, error) {
	switch r := LevelRange(s); r {
	case "":
		return LevelAll, nil
	case LevelAll, Level1To10, Level11To20, Level21To30, Level31AndUp:
		return r, nil
	default:
		return "", fmt.Errorf("unknown level range %q", s)
	}
}

// Contains reports whether level falls inside the band
func (r LevelRange) Contains(level int) bool {
	switch r {
	case LevelAll, "":
		return true
	case Level1To10:
		return level >= 1 && level <= 10
	case Level11To20:
		return level >= 11 && level <= 20
	case Level21To30:
		return level >= 21 && level <= 30
	case Level31AndUp:
		return level >= 31
	default:
		return false
	}
}

// Bounds returns the inclusive level limits of the band. Zero means unbounded.
func (r LevelRange) Bounds() (lo, hi int) {
	switch r {
	case Level1To10:
		return 1, 10
	case Level11To20:
		return 11, 20
	case Level21To30:
		return 21, 30
	case Level31AndUp:
		return 31, 0
	default:
		return 0, 0
	}
}

// Query is the explorer's search and filter state
type Query struct {
	Text  string     `json:"query"`
	Level LevelRange `json:"level"`
	Tags  []string   `json:"tags,omitempty"`
}

// Active reports whether any filter narrows the list
func (q Query) Active() bool {
	return q.Text != "" || (q.Level != "" && q.Level != LevelAll) || len(q.Tags) > 0
}

// Filter keeps the entries matching every part of the query, in input order
func Filter(all []domain.DirectoryEntry, q Query) []domain.DirectoryEntry {
	needle := strings.ToLower(q.Text)
	out := make([]domain.DirectoryEntry, 0, len(all))
	for _, e := range all {
		if needle != "" &&
			!strings.Contains(strings.ToLower(e.Name), needle) &&
			!strings.Contains(strings.ToLower(e.Bio), needle) {
			continue
		}
		if !q.Level.Contains(e.Level) {
			continue
		}
		if len(q.Tags) > 0 && !hasAnyTag(e.Tags, q.Tags) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func hasAnyTag(have, want []string) bool {
	for _, t := range want {
		if slices.Contains(have, t) {
			return true
		}
	}
	return false
}

// TopTags returns up to n tags ordered by how many entries carry them
func TopTags(all []domain.DirectoryEntry, n int) []string {
	counts := make(map[string]int)
	for _, e := range all {
		for _, t := range e.Tags {
			counts[t]++
		}
	}
	tags := make([]string, 0, len(counts))
	for t := range counts {
		tags = append(tags, t)
	}
	slices.SortFunc(tags, func(a, b string) int {
		if counts[a] != counts[b] {
			return counts[b] - counts[a]
		}
		return strings.Compare(a, b)
	})
	if len(tags) > n {
		tags = tags[:n]
	}
	return tags
}
