package main

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/postgres"
)

// memDirectory keeps a one-shot directory for the explore command
type memDirectory struct {
	mu      sync.Mutex
	entries map[string]domain.DirectoryEntry
}

func newMemDirectory() *memDirectory {
	return &memDirectory{entries: make(map[string]domain.DirectoryEntry)}
}

func (d *memDirectory) BatchUpsertEntries(_ context.Context, entries []domain.DirectoryEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, e := range entries {
		d.entries[e.ProfileID] = e
	}
	return nil
}

func (d *memDirectory) ListEntries(_ context.Context, f postgres.ListFilter) ([]domain.DirectoryEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]domain.DirectoryEntry, 0, len(d.entries))
	for _, e := range d.entries {
		if len(f.ProfileIDs) > 0 && !slices.Contains(f.ProfileIDs, e.ProfileID) {
			continue
		}
		if len(f.Owners) > 0 && !slices.Contains(f.Owners, e.Owner) {
			continue
		}
		out = append(out, e)
	}
	// same order as the database listing
	slices.SortFunc(out, func(a, b domain.DirectoryEntry) int {
		if c := cmp.Compare(b.Level, a.Level); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (d *memDirectory) PruneEntries(_ context.Context, keep []string) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	var n int64
	for id := range d.entries {
		if !slices.Contains(keep, id) {
			delete(d.entries, id)
			n++
		}
	}
	return n, nil
}
