package service

import (
	"context"
	"log/slog"

	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/games"
)

// CreateProfileRequest asks for a profile creation call
type CreateProfileRequest struct {
	Address string `json:"address"`
	Name    string `json:"name"`
}

// AddGameRequest asks for an add_game call
type AddGameRequest struct {
	Address string           `json:"address"`
	Game    domain.GameDraft `json:"game"`
}

// UpdateGameRequest asks for an update_game call
type UpdateGameRequest struct {
	Address string           `json:"address"`
	Patch   domain.GamePatch `json:"patch"`
}

// TransactionService builds wallet calls and tracks them until the chain settles them
type TransactionService struct {
	ledger *games.Ledger
	logger *slog.Logger
}

// NewTransactionService creates a new transaction service
func NewTransactionService(ledger *games.Ledger, logger *slog.Logger) *TransactionService {
	return &TransactionService{ledger: ledger, logger: logger}
}

// CreateProfile stages a profile creation
func (s *TransactionService) CreateProfile(ctx context.Context, req CreateProfileRequest) (*games.Staged, error) {
	staged, err := s.ledger.StageProfile(ctx, req.Address, req.Name)
	if err != nil {
		return nil, err
	}
	s.logger.Info("staged profile creation", "operation_id", staged.Operation.ID, "address", req.Address)
	return staged, nil
}

// AddGame stages a new game
func (s *TransactionService) AddGame(ctx context.Context, req AddGameRequest) (*games.Staged, error) {
	staged, err := s.ledger.StageGame(ctx, req.Address, req.Game)
	if err != nil {
		return nil, err
	}
	s.logger.Info("staged game", "operation_id", staged.Operation.ID, "address", req.Address)
	return staged, nil
}

// UpdateGame stages an edit of gameID
func (s *TransactionService) UpdateGame(ctx context.Context, gameID string, req UpdateGameRequest) (*games.Staged, error) {
	if gameID == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.ledger.StageGameUpdate(ctx, req.Address, gameID, req.Patch)
}

// RemoveGame stages the removal of gameID
func (s *TransactionService) RemoveGame(ctx context.Context, address, gameID string) (*games.Staged, error) {
	if gameID == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.ledger.StageRemoval(ctx, address, gameID)
}

// ReportOutcome records what the wallet reported for an operation
func (s *TransactionService) ReportOutcome(ctx context.Context, opID string, outcome domain.TransactionOutcome) (*domain.PendingOperation, error) {
	if outcome.Success && outcome.Digest == "" {
		return nil, domain.ErrInvalidRequest
	}
	op, err := s.ledger.ReportOutcome(ctx, opID, outcome)
	if err != nil {
		return nil, err
	}
	s.logger.Info("transaction outcome recorded",
		"operation_id", op.ID,
		"kind", op.Kind,
		"status", op.Status,
		"digest", op.Digest,
	)
	return op, nil
}

// Pending lists the operations of an address
func (s *TransactionService) Pending(ctx context.Context, address string) ([]domain.PendingOperation, error) {
	if !domain.ValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}
	return s.ledger.Operations(ctx, address)
}

// Reconcile settles what it can of an address's pending operations
func (s *TransactionService) Reconcile(ctx context.Context, address string) ([]domain.PendingOperation, error) {
	if !domain.ValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}
	return s.ledger.Reconcile(ctx, address)
}
