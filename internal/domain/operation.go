package domain

import "time"

// OperationKind identifies the contract function an operation submits
type OperationKind string

const (
	OpCreateProfile OperationKind = "create_profile"
	OpAddGame       OperationKind = "add_game"
	OpUpdateGame    OperationKind = "update_game"
	OpRemoveGame    OperationKind = "remove_game"
)

// OperationStatus is the reconciliation state of a submitted transaction
type OperationStatus string

const (
	StatusPending   OperationStatus = "pending"
	StatusConfirmed OperationStatus = "confirmed"
	StatusFailed    OperationStatus = "failed"
)

// PendingOperation records a staged change that is waiting for the chain to agree
type PendingOperation struct {
	ID        string          `json:"id"`
	Kind      OperationKind   `json:"kind"`
	Address   string          `json:"address"`
	ProfileID string          `json:"profile_id,omitempty"`
	GameID    string          `json:"game_id,omitempty"`
	Game      *Game           `json:"game,omitempty"`
	Name      string          `json:"name,omitempty"`
	Status    OperationStatus `json:"status"`
	Digest    string          `json:"digest,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`

	// KnownGameIDs are the chain ids the profile held when an add_game was staged
	KnownGameIDs []string `json:"known_game_ids,omitempty"`
}

// Settled reports whether the operation reached a terminal state
func (o *PendingOperation) Settled() bool {
	return o.Status == StatusConfirmed || o.Status == StatusFailed
}

// TransactionOutcome is what the wallet reported after sign-and-submit
type TransactionOutcome struct {
	Success bool   `json:"success"`
	Digest  string `json:"digest,omitempty"`
	Error   string `json:"error,omitempty"`
}
