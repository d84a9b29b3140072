package domain

import "time"

// DirectoryEntry is one published developer as listed by the explorer
type DirectoryEntry struct {
	ProfileID string    `json:"id"`
	Username  string    `json:"username"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	Bio       string    `json:"bio"`
	GameCount int       `json:"gameCount"`
	Level     int       `json:"level"`
	Tags      []string  `json:"tags,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// LevelFor returns the developer level shown for a given number of games
func LevelFor(gameCount int) int {
	return gameCount + 1
}

// RegistryEntry maps a public username to the dynamic field holding its profile id
type RegistryEntry struct {
	Username string `json:"username"`
	FieldID  string `json:"fieldId"`
}

// ChainEventType names the contract events the service reacts to
type ChainEventType string

const (
	ChainEventProfileCreated ChainEventType = "profile_created"
	ChainEventGameAdded      ChainEventType = "game_added"
	ChainEventGameUpdated    ChainEventType = "game_updated"
	ChainEventGameRemoved    ChainEventType = "game_removed"
)

// ChainEvent is a contract event relayed from the fullnode
type ChainEvent struct {
	Type        ChainEventType `json:"type"`
	Sender      string         `json:"sender"`
	ProfileID   string         `json:"profile_id,omitempty"`
	GameID      string         `json:"game_id,omitempty"`
	Digest      string         `json:"digest"`
	EventSeq    string         `json:"event_seq,omitempty"`
	TimestampMs int64          `json:"timestamp_ms,omitempty"`
}
