package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/games"
	"github.com/gamedev-cards/internal/postgres"
)

// Registry is the chain-side view of published usernames and their profiles
type Registry interface {
	WalkRegistry(ctx context.Context, visit func(domain.RegistryEntry) (bool, error)) error
	RegistryValue(ctx context.Context, fieldID string) (string, error)
	FetchByID(ctx context.Context, profileID string) (*domain.Profile, error)
}

// GameSource reads the games owned by an address
type GameSource interface {
	FetchGames(ctx context.Context, address string) ([]domain.DecodedGame, error)
}

// Directory is the durable explorer directory
type Directory interface {
	BatchUpsertEntries(ctx context.Context, entries []domain.DirectoryEntry) error
	ListEntries(ctx context.Context, f postgres.ListFilter) ([]domain.DirectoryEntry, error)
	PruneEntries(ctx context.Context, keep []string) (int64, error)
}

// DirectoryCache holds the cached explorer directory
type DirectoryCache interface {
	SetDirectory(ctx context.Context, entries []domain.DirectoryEntry) error
}

// Broadcaster announces directory changes to live clients
type Broadcaster interface {
	BroadcastDirectoryUpdate(total int, changed []string)
}

// SyncStats summarizes one directory sync
type SyncStats struct {
	Registered int           `json:"registered"`
	Refreshed  int           `json:"refreshed"`
	Failed     int           `json:"failed"`
	Pruned     int64         `json:"pruned"`
	Duration   time.Duration `json:"duration"`
}

// SyncWorker periodically rebuilds the explorer directory from the registry
type SyncWorker struct {
	registry    Registry
	games       GameSource
	directory   Directory
	cache       DirectoryCache
	broadcaster Broadcaster
	config      *config.SyncConfig
	logger      *slog.Logger
	stopCh      chan struct{}
	doneCh      chan struct{}
	mu          sync.Mutex
	running     bool
	syncMu      sync.Mutex
}

// NewSyncWorker creates a new sync worker. cache and broadcaster may be nil.
func NewSyncWorker(
	registry Registry,
	gameSource GameSource,
	directory Directory,
	cache DirectoryCache,
	cfg *config.SyncConfig,
	logger *slog.Logger,
) *SyncWorker {
	return &SyncWorker{
		registry:  registry,
		games:     gameSource,
		directory: directory,
		cache:     cache,
		config:    cfg,
		logger:    logger,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// SetBroadcaster sets the receiver of directory updates
func (w *SyncWorker) SetBroadcaster(b Broadcaster) {
	w.broadcaster = b
}

// Start begins the background sync process
func (w *SyncWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sync worker started", "interval", w.config.Interval)

	go w.run(ctx)
	return nil
}

// Stop stops the background sync process
func (w *SyncWorker) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sync worker stopped")
	return nil
}

// run is the main worker loop
func (w *SyncWorker) run(ctx context.Context) {
	defer close(w.doneCh)

	w.syncAll(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.syncAll(ctx)
		}
	}
}

func (w *SyncWorker) syncAll(ctx context.Context) {
	w.logger.Info("starting sync cycle")

	stats, err := w.SyncDirectory(ctx)
	if err != nil {
		w.logger.Error("sync cycle failed", "error", err)
		return
	}

	w.logger.Info("sync cycle completed",
		"duration", stats.Duration,
		"registered", stats.Registered,
		"refreshed", stats.Refreshed,
		"failed", stats.Failed,
		"pruned", stats.Pruned,
	)
}

// IsRunning returns whether the worker is currently running
func (w *SyncWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *SyncWorker) retryOptions(ctx context.Context) []retry.Option {
	attempts := w.config.RetryAttempts
	if attempts <= 0 {
		attempts = 1
	}
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(attempts)),
		retry.Delay(w.config.RetryDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !errors.Is(err, domain.ErrProfileNotFound)
		}),
	}
}

// SyncDirectory walks the registry, refreshes every entry and replaces the
// directory. Entries that fail to refresh keep their previous row; rows of
// usernames no longer registered are pruned only after a clean pass.
func (w *SyncWorker) SyncDirectory(ctx context.Context) (SyncStats, error) {
	w.syncMu.Lock()
	defer w.syncMu.Unlock()

	start := time.Now()
	var stats SyncStats

	var registered []domain.RegistryEntry
	err := w.registry.WalkRegistry(ctx, func(e domain.RegistryEntry) (bool, error) {
		registered = append(registered, e)
		return true, nil
	})
	if err != nil {
		return stats, fmt.Errorf("walking registry: %w", err)
	}
	stats.Registered = len(registered)

	p := pool.NewWithResults[domain.DirectoryEntry]().
		WithContext(ctx).
		WithMaxGoroutines(max(w.config.Concurrency, 1))
	for _, reg := range registered {
		p.Go(func(ctx context.Context) (domain.DirectoryEntry, error) {
			entry, err := w.refreshRegistered(ctx, reg)
			if err != nil {
				w.logger.Warn("failed to refresh directory entry",
					"username", reg.Username,
					"error", err,
				)
			}
			return entry, err
		})
	}
	entries, refreshErr := p.Wait()
	stats.Refreshed = len(entries)
	stats.Failed = stats.Registered - stats.Refreshed

	if err := w.directory.BatchUpsertEntries(ctx, entries); err != nil {
		return stats, fmt.Errorf("storing directory: %w", err)
	}

	if refreshErr == nil && len(entries) > 0 {
		keep := make([]string, len(entries))
		for i, e := range entries {
			keep[i] = e.ProfileID
		}
		pruned, err := w.directory.PruneEntries(ctx, keep)
		if err != nil {
			return stats, fmt.Errorf("pruning directory: %w", err)
		}
		stats.Pruned = pruned
	}

	changed := make([]string, len(entries))
	for i, e := range entries {
		changed[i] = e.ProfileID
	}
	w.publish(ctx, changed)

	stats.Duration = time.Since(start)
	return stats, nil
}

func (w *SyncWorker) refreshRegistered(ctx context.Context, reg domain.RegistryEntry) (domain.DirectoryEntry, error) {
	profileID, err := retry.DoWithData(func() (string, error) {
		return w.registry.RegistryValue(ctx, reg.FieldID)
	}, w.retryOptions(ctx)...)
	if err != nil {
		return domain.DirectoryEntry{}, err
	}
	if profileID == "" {
		return domain.DirectoryEntry{}, fmt.Errorf("registry field %s holds no profile id", reg.FieldID)
	}

	entry, err := w.buildEntry(ctx, profileID)
	if err != nil {
		return domain.DirectoryEntry{}, err
	}
	entry.Username = reg.Username
	return entry, nil
}

// buildEntry reads a profile and its games into a directory entry
func (w *SyncWorker) buildEntry(ctx context.Context, profileID string) (domain.DirectoryEntry, error) {
	profile, err := retry.DoWithData(func() (*domain.Profile, error) {
		return w.registry.FetchByID(ctx, profileID)
	}, w.retryOptions(ctx)...)
	if err != nil {
		return domain.DirectoryEntry{}, fmt.Errorf("fetching profile %s: %w", profileID, err)
	}

	var owned []domain.Game
	if profile.WalletAddress != "" {
		decoded, err := retry.DoWithData(func() ([]domain.DecodedGame, error) {
			return w.games.FetchGames(ctx, profile.WalletAddress)
		}, w.retryOptions(ctx)...)
		if err != nil {
			return domain.DirectoryEntry{}, fmt.Errorf("fetching games of %s: %w", profile.WalletAddress, err)
		}
		owned = games.OKGames(decoded)
	}

	return domain.DirectoryEntry{
		ProfileID: profile.ID,
		Username:  profile.Username,
		Owner:     profile.WalletAddress,
		Name:      profile.Name,
		Bio:       profile.Bio,
		GameCount: len(owned),
		Level:     domain.LevelFor(len(owned)),
		Tags:      unionTags(owned),
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func unionTags(owned []domain.Game) []string {
	var tags []string
	for _, g := range owned {
		for _, t := range g.Tags {
			if !slices.Contains(tags, t) {
				tags = append(tags, t)
			}
		}
	}
	slices.Sort(tags)
	return tags
}

// RefreshAddresses rebuilds the directory rows owned by the given addresses.
// It returns the addresses that have no row yet; those need a registry walk.
func (w *SyncWorker) RefreshAddresses(ctx context.Context, addresses []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	known, err := w.directory.ListEntries(ctx, postgres.ListFilter{Owners: addresses})
	if err != nil {
		return nil, fmt.Errorf("loading directory rows: %w", err)
	}

	seen := make(map[string]bool, len(known))
	updated := make([]domain.DirectoryEntry, 0, len(known))
	for _, row := range known {
		seen[row.Owner] = true
		entry, err := w.buildEntry(ctx, row.ProfileID)
		if err != nil {
			w.logger.Warn("failed to refresh directory row",
				"profile_id", row.ProfileID,
				"error", err,
			)
			continue
		}
		entry.Username = row.Username
		updated = append(updated, entry)
	}

	if err := w.directory.BatchUpsertEntries(ctx, updated); err != nil {
		return nil, fmt.Errorf("storing directory rows: %w", err)
	}

	changed := make([]string, len(updated))
	for i, e := range updated {
		changed[i] = e.ProfileID
	}
	if len(changed) > 0 {
		w.publish(ctx, changed)
	}

	var unknown []string
	for _, a := range addresses {
		if !seen[a] && !slices.Contains(unknown, a) {
			unknown = append(unknown, a)
		}
	}
	return unknown, nil
}

// WarmCache loads the stored directory into the cache
func (w *SyncWorker) WarmCache(ctx context.Context) error {
	w.logger.Info("warming directory cache from database")

	entries, err := w.directory.ListEntries(ctx, postgres.ListFilter{})
	if err != nil {
		return err
	}
	if w.cache != nil {
		if err := w.cache.SetDirectory(ctx, entries); err != nil {
			return err
		}
	}

	w.logger.Info("directory cache warmed", "count", len(entries))
	return nil
}

// publish refreshes the cache from the stored directory and tells clients
func (w *SyncWorker) publish(ctx context.Context, changed []string) {
	entries, err := w.directory.ListEntries(ctx, postgres.ListFilter{})
	if err != nil {
		w.logger.Warn("failed to reload directory", "error", err)
		return
	}
	if w.cache != nil {
		if err := w.cache.SetDirectory(ctx, entries); err != nil {
			w.logger.Warn("failed to cache directory", "error", err)
		}
	}
	if w.broadcaster != nil {
		w.broadcaster.BroadcastDirectoryUpdate(len(entries), changed)
	}
}
