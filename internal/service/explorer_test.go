package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/explorer"
	"github.com/gamedev-cards/internal/postgres"
	"github.com/gamedev-cards/internal/service"
)

type fakeSnapshot struct {
	entries []domain.DirectoryEntry
	hit     bool
	err     error
	stored  []domain.DirectoryEntry
	top     []string
}

func (f *fakeSnapshot) GetDirectory(context.Context) ([]domain.DirectoryEntry, bool, error) {
	return f.entries, f.hit, f.err
}

func (f *fakeSnapshot) SetDirectory(_ context.Context, entries []domain.DirectoryEntry) error {
	f.stored = entries
	return nil
}

func (f *fakeSnapshot) TopByLevel(_ context.Context, n int) ([]string, error) {
	if len(f.top) > n {
		return f.top[:n], nil
	}
	return f.top, nil
}

type fakeStore struct {
	entries []domain.DirectoryEntry
	filters []postgres.ListFilter
}

func (f *fakeStore) ListEntries(_ context.Context, filter postgres.ListFilter) ([]domain.DirectoryEntry, error) {
	f.filters = append(f.filters, filter)
	if len(filter.ProfileIDs) == 0 {
		var out []domain.DirectoryEntry
		for _, e := range f.entries {
			if filter.MinLevel > 0 && e.Level < filter.MinLevel {
				continue
			}
			if filter.MaxLevel > 0 && e.Level > filter.MaxLevel {
				continue
			}
			out = append(out, e)
		}
		if filter.Limit > 0 && filter.Limit < len(out) {
			return out[:filter.Limit], nil
		}
		return out, nil
	}
	var out []domain.DirectoryEntry
	for _, e := range f.entries {
		for _, id := range filter.ProfileIDs {
			if e.ProfileID == id {
				out = append(out, e)
			}
		}
	}
	return out, nil
}

func directory() []domain.DirectoryEntry {
	return []domain.DirectoryEntry{
		{ProfileID: "0xp1", Name: "Nova", Bio: "pixel art", GameCount: 2, Level: 3, Tags: []string{"rpg"}},
		{ProfileID: "0xp2", Name: "Atlas", Bio: "strategy", GameCount: 14, Level: 15, Tags: []string{"rts"}},
		{ProfileID: "0xp3", Name: "Blaze", Bio: "shooters", GameCount: 0, Level: 1},
	}
}

func TestExplore_CacheHit(t *testing.T) {
	snap := &fakeSnapshot{entries: directory(), hit: true}
	store := &fakeStore{}
	svc := service.NewExplorerService(snap, store, &config.ExplorerConfig{MaxPlanets: 500}, discard())

	res, err := svc.Explore(context.Background(), service.ExploreRequest{
		Sort:  explorer.SortByName,
		Order: explorer.Ascending,
		Seed:  7,
	})
	require.NoError(t, err)
	assert.Empty(t, store.filters)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 3, res.Matched)
	assert.Equal(t, uint64(7), res.Seed)
	require.Len(t, res.Planets, 3)
	assert.Equal(t, "Atlas", res.Planets[0].Name)
	assert.Equal(t, "Nova", res.Planets[2].Name)
}

func TestExplore_MissFallsBackAndCaches(t *testing.T) {
	snap := &fakeSnapshot{}
	store := &fakeStore{entries: directory()}
	svc := service.NewExplorerService(snap, store, &config.ExplorerConfig{MaxPlanets: 500}, discard())

	res, err := svc.Explore(context.Background(), service.ExploreRequest{
		Query: explorer.Query{Level: explorer.Level1To10},
		Sort:  explorer.SortByLevel,
		Order: explorer.Descending,
		Seed:  1,
	})
	require.NoError(t, err)
	assert.Len(t, snap.stored, 3)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Matched)
	assert.Equal(t, "Nova", res.Planets[0].Name)
}

func TestExplore_CacheErrorFallsBack(t *testing.T) {
	snap := &fakeSnapshot{err: errors.New("redis down")}
	store := &fakeStore{entries: directory()}
	svc := service.NewExplorerService(snap, store, &config.ExplorerConfig{MaxPlanets: 2}, discard())

	res, err := svc.Explore(context.Background(), service.ExploreRequest{
		Sort:  explorer.SortByLevel,
		Order: explorer.Descending,
		Seed:  3,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Matched)
	assert.Len(t, res.Planets, 2)
}

func TestExplore_SameSeedSameLayout(t *testing.T) {
	snap := &fakeSnapshot{entries: directory(), hit: true}
	svc := service.NewExplorerService(snap, &fakeStore{}, &config.ExplorerConfig{}, discard())
	req := service.ExploreRequest{Sort: explorer.SortByGames, Order: explorer.Descending, Seed: 99}

	a, err := svc.Explore(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.Explore(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Planets, b.Planets)
}

func TestExplore_ZeroSeedIsReported(t *testing.T) {
	snap := &fakeSnapshot{entries: directory(), hit: true}
	svc := service.NewExplorerService(snap, &fakeStore{}, &config.ExplorerConfig{}, discard())

	before := uint64(time.Now().UnixNano())
	res, err := svc.Explore(context.Background(), service.ExploreRequest{Sort: explorer.SortByLevel, Order: explorer.Descending})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Seed, before)
}

func TestTop_UsesRankingOrder(t *testing.T) {
	snap := &fakeSnapshot{top: []string{"0xp2", "0xp1", "0xgone"}}
	store := &fakeStore{entries: directory()}
	svc := service.NewExplorerService(snap, store, &config.ExplorerConfig{}, discard())

	top, err := svc.Top(context.Background(), 3, explorer.Query{})
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "0xp2", top[0].ProfileID)
	assert.Equal(t, "0xp1", top[1].ProfileID)
}

func TestTop_EmptyRankingUsesStore(t *testing.T) {
	store := &fakeStore{entries: directory()}
	svc := service.NewExplorerService(nil, store, &config.ExplorerConfig{}, discard())

	top, err := svc.Top(context.Background(), 2, explorer.Query{})
	require.NoError(t, err)
	assert.Len(t, top, 2)
	require.Len(t, store.filters, 1)
	assert.Equal(t, 2, store.filters[0].Limit)
}

func TestTop_FilteredQueryGoesToStore(t *testing.T) {
	snap := &fakeSnapshot{top: []string{"0xp2", "0xp1"}}
	store := &fakeStore{entries: directory()}
	svc := service.NewExplorerService(snap, store, &config.ExplorerConfig{}, discard())

	top, err := svc.Top(context.Background(), 5, explorer.Query{Level: explorer.Level1To10, Text: "pix"})
	require.NoError(t, err)
	require.Len(t, store.filters, 1)
	assert.Equal(t, postgres.ListFilter{MinLevel: 1, MaxLevel: 10, Search: "pix", Limit: 5}, store.filters[0])
	require.Len(t, top, 2)
	assert.Equal(t, "0xp1", top[0].ProfileID)
}

func TestTop_TagsAreMatchedAfterTheStore(t *testing.T) {
	store := &fakeStore{entries: directory()}
	svc := service.NewExplorerService(nil, store, &config.ExplorerConfig{}, discard())

	top, err := svc.Top(context.Background(), 5, explorer.Query{Tags: []string{"rts"}})
	require.NoError(t, err)
	require.Len(t, store.filters, 1)
	assert.Zero(t, store.filters[0].Limit)
	require.Len(t, top, 1)
	assert.Equal(t, "0xp2", top[0].ProfileID)
}
