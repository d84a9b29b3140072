package games

import (
	"context"
	"slices"
	"sync"

	"github.com/gamedev-cards/internal/domain"
)

// PendingStore persists the pending-operation ledger
type PendingStore interface {
	// SaveOperation inserts or replaces an operation by id
	SaveOperation(ctx context.Context, op domain.PendingOperation) error
	// GetOperation returns domain.ErrOperationNotFound for unknown ids
	GetOperation(ctx context.Context, id string) (*domain.PendingOperation, error)
	// ListOperations returns an address's operations oldest first; an empty
	// status matches all
	ListOperations(ctx context.Context, address string, status domain.OperationStatus) ([]domain.PendingOperation, error)
}

// MemoryStore is an in-process PendingStore
type MemoryStore struct {
	mu  sync.RWMutex
	ops map[string]domain.PendingOperation
}

var _ PendingStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{ops: make(map[string]domain.PendingOperation)}
}

func (s *MemoryStore) SaveOperation(_ context.Context, op domain.PendingOperation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops[op.ID] = op
	return nil
}

func (s *MemoryStore) GetOperation(_ context.Context, id string) (*domain.PendingOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.ops[id]
	if !ok {
		return nil, domain.ErrOperationNotFound
	}
	return &op, nil
}

func (s *MemoryStore) ListOperations(_ context.Context, address string, status domain.OperationStatus) ([]domain.PendingOperation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.PendingOperation, 0)
	for _, op := range s.ops {
		if op.Address != address {
			continue
		}
		if status != "" && op.Status != status {
			continue
		}
		out = append(out, op)
	}
	slices.SortFunc(out, func(a, b domain.PendingOperation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	return out, nil
}
