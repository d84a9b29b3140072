package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/explorer"
	"github.com/gamedev-cards/internal/postgres"
)

// DirectorySnapshot is the cached directory
type DirectorySnapshot interface {
	GetDirectory(ctx context.Context) ([]domain.DirectoryEntry, bool, error)
	SetDirectory(ctx context.Context, entries []domain.DirectoryEntry) error
	TopByLevel(ctx context.Context, n int) ([]string, error)
}

// DirectoryStore is the durable directory
type DirectoryStore interface {
	ListEntries(ctx context.Context, f postgres.ListFilter) ([]domain.DirectoryEntry, error)
}

// ExploreRequest selects and orders the explorer view
type ExploreRequest struct {
	Query explorer.Query
	Sort  explorer.SortKey
	Order explorer.Direction
	// Seed fixes the layout; zero picks a fresh one
	Seed uint64
}

// ExploreResult is one rendered explorer view
type ExploreResult struct {
	Total   int               `json:"total"`
	Matched int               `json:"matched"`
	Seed    uint64            `json:"seed"`
	Tags    []string          `json:"tags"`
	Planets []explorer.Planet `json:"planets"`
}

// ExplorerService serves the Space Explorer
type ExplorerService struct {
	snapshot DirectorySnapshot
	store    DirectoryStore
	config   *config.ExplorerConfig
	logger   *slog.Logger
	now      func() time.Time
}

// NewExplorerService creates a new explorer service. snapshot may be nil.
func NewExplorerService(snapshot DirectorySnapshot, store DirectoryStore, cfg *config.ExplorerConfig, logger *slog.Logger) *ExplorerService {
	return &ExplorerService{
		snapshot: snapshot,
		store:    store,
		config:   cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Directory returns every published developer, from cache when possible
func (s *ExplorerService) Directory(ctx context.Context) ([]domain.DirectoryEntry, error) {
	if s.snapshot != nil {
		entries, ok, err := s.snapshot.GetDirectory(ctx)
		if err != nil {
			s.logger.Warn("failed to read cached directory", "error", err)
		} else if ok {
			return entries, nil
		}
	}

	entries, err := s.store.ListEntries(ctx, postgres.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing directory: %w", err)
	}

	if s.snapshot != nil {
		if err := s.snapshot.SetDirectory(ctx, entries); err != nil {
			s.logger.Warn("failed to cache directory", "error", err)
		}
	}
	return entries, nil
}

// Explore filters, sorts and lays out the directory
func (s *ExplorerService) Explore(ctx context.Context, req ExploreRequest) (*ExploreResult, error) {
	all, err := s.Directory(ctx)
	if err != nil {
		return nil, err
	}

	matched := explorer.Sort(explorer.Filter(all, req.Query), req.Sort, req.Order)
	shown := matched
	if limit := s.config.MaxPlanets; limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}

	seed := req.Seed
	if seed == 0 {
		seed = uint64(s.now().UnixNano())
	}

	return &ExploreResult{
		Total:   len(all),
		Matched: len(matched),
		Seed:    seed,
		Tags:    explorer.TopTags(all, 12),
		Planets: explorer.Layout(shown, explorer.NewRand(seed)),
	}, nil
}

// Top returns the n highest-level developers matching q. An empty query is
// answered from the cached level ranking.
func (s *ExplorerService) Top(ctx context.Context, n int, q explorer.Query) ([]domain.DirectoryEntry, error) {
	if n <= 0 {
		n = 10
	}
	if n > 100 {
		n = 100
	}
	if q.Active() {
		return s.topMatching(ctx, n, q)
	}

	var ids []string
	if s.snapshot != nil {
		var err error
		ids, err = s.snapshot.TopByLevel(ctx, n)
		if err != nil {
			s.logger.Warn("failed to read level ranking", "error", err)
			ids = nil
		}
	}
	if len(ids) == 0 {
		entries, err := s.store.ListEntries(ctx, postgres.ListFilter{Limit: n})
		if err != nil {
			return nil, fmt.Errorf("listing top developers: %w", err)
		}
		return entries, nil
	}

	entries, err := s.store.ListEntries(ctx, postgres.ListFilter{ProfileIDs: ids})
	if err != nil {
		return nil, fmt.Errorf("listing top developers: %w", err)
	}

	byID := make(map[string]domain.DirectoryEntry, len(entries))
	for _, e := range entries {
		byID[e.ProfileID] = e
	}
	top := make([]domain.DirectoryEntry, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok {
			top = append(top, e)
		}
	}
	return top, nil
}

// topMatching pushes the level band and text search down to the store; tags
// are matched in memory
func (s *ExplorerService) topMatching(ctx context.Context, n int, q explorer.Query) ([]domain.DirectoryEntry, error) {
	lo, hi := q.Level.Bounds()
	f := postgres.ListFilter{MinLevel: lo, MaxLevel: hi, Search: q.Text}
	if len(q.Tags) == 0 {
		f.Limit = n
	}

	entries, err := s.store.ListEntries(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("listing top developers: %w", err)
	}
	if len(q.Tags) > 0 {
		entries = explorer.Filter(entries, explorer.Query{Tags: q.Tags})
		if len(entries) > n {
			entries = entries[:n]
		}
	}
	return entries, nil
}
