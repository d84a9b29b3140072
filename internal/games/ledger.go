package games

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/sui"
)

// ProfileLookup is the strict profile read the ledger depends on
type ProfileLookup interface {
	LookupByAddress(ctx context.Context, address string) (*domain.Profile, error)
}

// Notifier is told about every operation status change
type Notifier interface {
	OperationChanged(op domain.PendingOperation)
}

// Staged is an operation recorded in the ledger together with the call the
// wallet has to sign to make it happen
type Staged struct {
	Operation domain.PendingOperation `json:"operation"`
	Call      sui.MoveCall            `json:"call"`
}

// Ledger records staged changes as pending operations and settles them
// against authoritative re-fetches
type Ledger struct {
	accessor *Accessor
	profiles ProfileLookup
	store    PendingStore
	chain    *config.ChainConfig
	logger   *slog.Logger
	notifier Notifier
	now      func() time.Time

	reconcileMu sync.Mutex
}

// NewLedger creates a ledger
func NewLedger(accessor *Accessor, profiles ProfileLookup, store PendingStore, chain *config.ChainConfig, logger *slog.Logger) *Ledger {
	return &Ledger{
		accessor: accessor,
		profiles: profiles,
		store:    store,
		chain:    chain,
		logger:   logger,
		now:      time.Now,
	}
}

// SetNotifier sets the receiver of status changes
func (l *Ledger) SetNotifier(n Notifier) {
	l.notifier = n
}

// SetClock replaces the ledger clock
func (l *Ledger) SetClock(now func() time.Time) {
	l.now = now
}

func (l *Ledger) newOperation(kind domain.OperationKind, address string) domain.PendingOperation {
	ts := l.now().UTC()
	return domain.PendingOperation{
		ID:        uuid.NewString(),
		Kind:      kind,
		Address:   address,
		Status:    domain.StatusPending,
		CreatedAt: ts,
		UpdatedAt: ts,
	}
}

func (l *Ledger) record(ctx context.Context, op domain.PendingOperation, call sui.MoveCall) (*Staged, error) {
	if err := l.store.SaveOperation(ctx, op); err != nil {
		return nil, fmt.Errorf("saving operation: %w", err)
	}
	l.logger.Info("operation staged",
		"operation_id", op.ID,
		"kind", op.Kind,
		"address", op.Address,
	)
	return &Staged{Operation: op, Call: call}, nil
}

func (l *Ledger) requireProfile(ctx context.Context, address string) (*domain.Profile, error) {
	if !domain.ValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}
	profile, err := l.profiles.LookupByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, domain.ErrProfileNotFound
	}
	return profile, nil
}

// knownIDs collects every object id the fullnode listed, skipped records included
func knownIDs(decoded []domain.DecodedGame) []string {
	ids := make([]string, 0, len(decoded))
	for _, d := range decoded {
		switch {
		case d.Status == domain.GameDecodeOK:
			ids = append(ids, d.Game.ID)
		case d.ObjectID != "":
			ids = append(ids, d.ObjectID)
		}
	}
	return ids
}

func gameArgs(g domain.Game) []sui.Argument {
	return []sui.Argument{
		sui.PureString(g.Name),
		sui.PureString(g.Link),
		sui.PureString(g.Description),
		sui.PureString(g.Image),
		sui.PureString(g.Platform),
	}
}

// StageProfile records a profile creation for address
func (l *Ledger) StageProfile(ctx context.Context, address, name string) (*Staged, error) {
	if !domain.ValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidProfileName
	}

	op := l.newOperation(domain.OpCreateProfile, address)
	op.Name = name
	call := sui.NewMoveCall(l.chain.Target(l.chain.Functions.CreateProfile),
		sui.PureString(name),
		sui.Object(l.chain.RegistryID),
	)
	return l.record(ctx, op, call)
}

// StageGame records a new game for the profile owned by address
func (l *Ledger) StageGame(ctx context.Context, address string, draft domain.GameDraft) (*Staged, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return nil, domain.ErrInvalidGame
	}
	profile, err := l.requireProfile(ctx, address)
	if err != nil {
		return nil, err
	}

	decoded, err := l.accessor.FetchGames(ctx, address)
	if err != nil {
		return nil, err
	}
	game := l.accessor.assignID(draft, OKGames(decoded))
	op := l.newOperation(domain.OpAddGame, address)
	op.ProfileID = profile.ID
	op.GameID = game.ID
	op.Game = &game
	op.KnownGameIDs = knownIDs(decoded)

	args := append([]sui.Argument{sui.Object(profile.ID)}, gameArgs(game)...)
	return l.record(ctx, op, sui.NewMoveCall(l.chain.Target(l.chain.Functions.AddGame), args...))
}

// StageGameUpdate records an edit of an existing game
func (l *Ledger) StageGameUpdate(ctx context.Context, address, gameID string, patch domain.GamePatch) (*Staged, error) {
	if patch.Name != nil && strings.TrimSpace(*patch.Name) == "" {
		return nil, domain.ErrInvalidGame
	}
	profile, err := l.requireProfile(ctx, address)
	if err != nil {
		return nil, err
	}

	updated := l.accessor.StageUpdatedGame(ctx, gameID, patch, address)
	if updated == nil {
		return nil, domain.ErrGameNotFound
	}
	op := l.newOperation(domain.OpUpdateGame, address)
	op.ProfileID = profile.ID
	op.GameID = gameID
	op.Game = updated

	args := append([]sui.Argument{sui.Object(profile.ID), sui.Object(gameID)}, gameArgs(*updated)...)
	return l.record(ctx, op, sui.NewMoveCall(l.chain.Target(l.chain.Functions.UpdateGame), args...))
}

// StageRemoval records the removal of a game
func (l *Ledger) StageRemoval(ctx context.Context, address, gameID string) (*Staged, error) {
	profile, err := l.requireProfile(ctx, address)
	if err != nil {
		return nil, err
	}

	var found *domain.Game
	for _, g := range l.accessor.ListGames(ctx, address) {
		if g.ID == gameID {
			found = &g
			break
		}
	}
	if found == nil {
		return nil, domain.ErrGameNotFound
	}

	op := l.newOperation(domain.OpRemoveGame, address)
	op.ProfileID = profile.ID
	op.GameID = gameID
	op.Game = found
	call := sui.NewMoveCall(l.chain.Target(l.chain.Functions.RemoveGame),
		sui.Object(profile.ID),
		sui.Object(gameID),
	)
	return l.record(ctx, op, call)
}

// Operation returns one ledger entry
func (l *Ledger) Operation(ctx context.Context, id string) (*domain.PendingOperation, error) {
	return l.store.GetOperation(ctx, id)
}

// Operations lists an address's ledger entries, all statuses
func (l *Ledger) Operations(ctx context.Context, address string) ([]domain.PendingOperation, error) {
	return l.store.ListOperations(ctx, address, "")
}

// ReportOutcome records the wallet's sign-and-submit result. A failure settles
// the operation; a success stores the digest and triggers a reconcile.
func (l *Ledger) ReportOutcome(ctx context.Context, id string, outcome domain.TransactionOutcome) (*domain.PendingOperation, error) {
	op, err := l.store.GetOperation(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Settled() {
		return nil, domain.ErrOperationSettled
	}

	op.Digest = outcome.Digest
	op.UpdatedAt = l.now().UTC()
	if !outcome.Success {
		op.Status = domain.StatusFailed
		op.Error = outcome.Error
		if op.Error == "" {
			op.Error = "transaction failed"
		}
	}
	if err := l.store.SaveOperation(ctx, *op); err != nil {
		return nil, fmt.Errorf("saving operation: %w", err)
	}

	if !outcome.Success {
		l.logger.Warn("transaction failed",
			"operation_id", op.ID,
			"kind", op.Kind,
			"error", op.Error,
		)
		l.notify(*op)
		return op, nil
	}

	if _, err := l.Reconcile(ctx, op.Address); err != nil {
		l.logger.Warn("reconcile after outcome failed", "operation_id", op.ID, "error", err)
		return op, nil
	}
	return l.store.GetOperation(ctx, id)
}

// Reconcile settles the pending operations of address against a fresh read
// of its profile and games, returning the operations that changed state.
// Operations the chain does not reflect yet stay pending.
func (l *Ledger) Reconcile(ctx context.Context, address string) ([]domain.PendingOperation, error) {
	l.reconcileMu.Lock()
	defer l.reconcileMu.Unlock()

	pending, err := l.store.ListOperations(ctx, address, domain.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("listing pending operations: %w", err)
	}
	if len(pending) == 0 {
		return nil, nil
	}

	var (
		profile    *domain.Profile
		decoded    []domain.DecodedGame
		needGames  bool
		needLookup bool
	)
	for _, op := range pending {
		if op.Kind == domain.OpCreateProfile {
			needLookup = true
		} else {
			needGames = true
		}
	}
	if needLookup {
		if profile, err = l.profiles.LookupByAddress(ctx, address); err != nil {
			return nil, err
		}
	}
	if needGames {
		if decoded, err = l.accessor.FetchGames(ctx, address); err != nil {
			return nil, err
		}
	}
	onChain := OKGames(decoded)

	claimed, err := l.claimedGames(ctx, address)
	if err != nil {
		return nil, err
	}

	var changed []domain.PendingOperation
	for _, op := range pending {
		if !settle(&op, profile, onChain, decoded, claimed) {
			continue
		}
		op.Status = domain.StatusConfirmed
		op.UpdatedAt = l.now().UTC()
		if err := l.store.SaveOperation(ctx, op); err != nil {
			return changed, fmt.Errorf("saving operation: %w", err)
		}
		l.logger.Info("operation confirmed",
			"operation_id", op.ID,
			"kind", op.Kind,
			"address", address,
		)
		l.notify(op)
		changed = append(changed, op)
	}
	return changed, nil
}

// claimedGames returns the chain ids already bound to confirmed add_game operations
func (l *Ledger) claimedGames(ctx context.Context, address string) (map[string]struct{}, error) {
	confirmed, err := l.store.ListOperations(ctx, address, domain.StatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("listing confirmed operations: %w", err)
	}
	claimed := make(map[string]struct{})
	for _, op := range confirmed {
		if op.Kind == domain.OpAddGame && op.GameID != "" {
			claimed[op.GameID] = struct{}{}
		}
	}
	return claimed, nil
}

// settle reports whether the chain state reflects op, filling in chain ids.
// An add_game only matches a game that was absent at staging time and that no
// other operation has claimed; a match claims it.
func settle(op *domain.PendingOperation, profile *domain.Profile, onChain []domain.Game, decoded []domain.DecodedGame, claimed map[string]struct{}) bool {
	switch op.Kind {
	case domain.OpCreateProfile:
		if profile != nil && profile.Name == op.Name {
			op.ProfileID = profile.ID
			return true
		}
	case domain.OpAddGame:
		if op.Game == nil {
			return false
		}
		for _, g := range onChain {
			if _, taken := claimed[g.ID]; taken || slices.Contains(op.KnownGameIDs, g.ID) {
				continue
			}
			if g.SameContent(*op.Game) {
				claimed[g.ID] = struct{}{}
				op.GameID = g.ID
				return true
			}
		}
	case domain.OpUpdateGame:
		for _, g := range onChain {
			if g.ID == op.GameID && op.Game != nil && g.SameContent(*op.Game) {
				return true
			}
		}
	case domain.OpRemoveGame:
		for _, d := range decoded {
			if d.ObjectID == op.GameID || (d.Status == domain.GameDecodeOK && d.Game.ID == op.GameID) {
				return false
			}
		}
		return true
	}
	return false
}

func (l *Ledger) notify(op domain.PendingOperation) {
	if l.notifier != nil {
		l.notifier.OperationChanged(op)
	}
}
