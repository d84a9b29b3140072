package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/worker"
)

// EventRecorder remembers the chain events that have been applied
type EventRecorder interface {
	HasEvent(ctx context.Context, event domain.ChainEvent) (bool, error)
	RecordEvent(ctx context.Context, event domain.ChainEvent) (bool, error)
}

// DirectoryRefresher rebuilds directory rows
type DirectoryRefresher interface {
	RefreshAddresses(ctx context.Context, addresses []string) ([]string, error)
	SyncDirectory(ctx context.Context) (worker.SyncStats, error)
}

// Reconciler settles pending operations of an address
type Reconciler interface {
	Reconcile(ctx context.Context, address string) ([]domain.PendingOperation, error)
}

// SnapshotEvictor drops cached snapshots
type SnapshotEvictor interface {
	DeleteAddress(ctx context.Context, address string) error
	InvalidateDirectory(ctx context.Context) error
}

// EventService applies relayed chain events
type EventService struct {
	recorder   EventRecorder
	refresher  DirectoryRefresher
	reconciler Reconciler
	evictor    SnapshotEvictor
	logger     *slog.Logger
}

// NewEventService creates a new event service. recorder and evictor may be nil.
func NewEventService(
	recorder EventRecorder,
	refresher DirectoryRefresher,
	reconciler Reconciler,
	evictor SnapshotEvictor,
	logger *slog.Logger,
) *EventService {
	return &EventService{
		recorder:   recorder,
		refresher:  refresher,
		reconciler: reconciler,
		evictor:    evictor,
		logger:     logger,
	}
}

// HandleChainEvents refreshes the directory rows and reconciles the pending
// operations of every sender in the batch. Events already applied are skipped.
// Events are recorded as applied only when the whole batch succeeded, so a
// failed batch can be redelivered.
func (s *EventService) HandleChainEvents(ctx context.Context, events []domain.ChainEvent) error {
	var (
		fresh   []domain.ChainEvent
		senders []string
		walk    bool
		errs    []error
	)

	for _, event := range events {
		if s.recorder != nil {
			seen, err := s.recorder.HasEvent(ctx, event)
			if err != nil {
				s.logger.Warn("failed to look up chain event", "digest", event.Digest, "error", err)
			} else if seen {
				continue
			}
		}
		fresh = append(fresh, event)
		if event.Type == domain.ChainEventProfileCreated {
			walk = true
		}
		if !slices.Contains(senders, event.Sender) {
			senders = append(senders, event.Sender)
		}
	}
	if len(senders) == 0 {
		return nil
	}

	if s.evictor != nil {
		for _, sender := range senders {
			if err := s.evictor.DeleteAddress(ctx, sender); err != nil {
				s.logger.Warn("failed to evict snapshot", "address", sender, "error", err)
			}
		}
	}

	unknown, err := s.refresher.RefreshAddresses(ctx, senders)
	if err != nil {
		errs = append(errs, fmt.Errorf("refreshing addresses: %w", err))
	}
	if walk || len(unknown) > 0 {
		stats, err := s.refresher.SyncDirectory(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("syncing directory: %w", err))
		} else {
			s.logger.Info("directory resynced after chain events",
				"registered", stats.Registered,
				"unknown_senders", len(unknown),
			)
		}
	}
	// the store may hold rows the cached directory has not seen
	if len(errs) > 0 && s.evictor != nil {
		if err := s.evictor.InvalidateDirectory(ctx); err != nil {
			s.logger.Warn("failed to invalidate directory", "error", err)
		}
	}

	for _, sender := range senders {
		changed, err := s.reconciler.Reconcile(ctx, sender)
		if err != nil {
			errs = append(errs, fmt.Errorf("reconciling %s: %w", sender, err))
			continue
		}
		if len(changed) > 0 {
			s.logger.Debug("operations settled by chain events", "address", sender, "count", len(changed))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if s.recorder != nil {
		for _, event := range fresh {
			if _, err := s.recorder.RecordEvent(ctx, event); err != nil {
				s.logger.Warn("failed to record chain event", "digest", event.Digest, "error", err)
			}
		}
	}
	return nil
}
