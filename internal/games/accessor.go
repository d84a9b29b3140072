// Package games reads a wallet's game collection from the fullnode, stages
// optimistic edits and reconciles them against later re-fetches.
package games

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/sui"
)

// Cache is the advisory game-list snapshot store
type Cache interface {
	SetGames(ctx context.Context, address string, games []domain.Game) error
}

// Accessor reads the game objects owned by an address
type Accessor struct {
	client sui.Client
	cache  Cache
	chain  *config.ChainConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAccessor creates an accessor. cache may be nil.
func NewAccessor(client sui.Client, cache Cache, chain *config.ChainConfig, logger *slog.Logger) *Accessor {
	return &Accessor{
		client: client,
		cache:  cache,
		chain:  chain,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock replaces the clock used for staged game ids
func (a *Accessor) SetClock(now func() time.Time) {
	a.now = now
}

// FetchGames returns one decoded result per game object owned by address,
// in the order the fullnode lists them. Transport errors are returned.
func (a *Accessor) FetchGames(ctx context.Context, address string) ([]domain.DecodedGame, error) {
	query := sui.ObjectResponseQuery{
		Filter:  &sui.ObjectFilter{StructType: a.chain.GameType()},
		Options: &sui.ObjectDataOptions{ShowType: true, ShowContent: true},
	}

	var (
		results []domain.DecodedGame
		cursor  *string
	)
	for {
		page, err := a.client.GetOwnedObjects(ctx, address, query, cursor, a.chain.PageSize)
		if err != nil {
			return nil, fmt.Errorf("listing games of %s: %w", address, err)
		}
		for _, obj := range page.Data {
			results = append(results, DecodeGame(obj))
		}
		if !page.HasNextPage || page.NextCursor == nil {
			return results, nil
		}
		cursor = page.NextCursor
	}
}

// ListGames is the lossy form of FetchGames: records that fail to decode are
// dropped and transport errors yield an empty list.
func (a *Accessor) ListGames(ctx context.Context, address string) []domain.Game {
	decoded, err := a.FetchGames(ctx, address)
	if err != nil {
		a.logger.Error("failed to list games", "address", address, "error", err)
		return []domain.Game{}
	}

	games := OKGames(decoded)
	if skipped := len(decoded) - len(games); skipped > 0 {
		a.logger.Debug("dropped malformed game records", "address", address, "skipped", skipped)
	}

	if a.cache != nil {
		if err := a.cache.SetGames(ctx, address, games); err != nil {
			a.logger.Warn("failed to cache games", "address", address, "error", err)
		}
	}
	return games
}

// OKGames keeps the successfully decoded games
func OKGames(decoded []domain.DecodedGame) []domain.Game {
	games := make([]domain.Game, 0, len(decoded))
	for _, d := range decoded {
		if d.Status == domain.GameDecodeOK {
			games = append(games, d.Game)
		}
	}
	return games
}

// DecodeGame turns one object response into a game or a skip reason
func DecodeGame(obj sui.ObjectResponse) domain.DecodedGame {
	if obj.Error != nil {
		return skipped(obj.Error.ObjectID, "object error: "+obj.Error.Code)
	}
	if obj.Data == nil {
		return skipped("", "missing object data")
	}
	fields, err := sui.DecodeFields(obj.Data.Content)
	if err != nil {
		return skipped(obj.Data.ObjectID, err.Error())
	}

	id, ok := fields.UID("id")
	if !ok {
		id = obj.Data.ObjectID
	}
	name := fields.String("name")
	if name == "" {
		return skipped(obj.Data.ObjectID, "missing name field")
	}

	return domain.DecodedGame{
		Status:   domain.GameDecodeOK,
		ObjectID: obj.Data.ObjectID,
		Game: domain.Game{
			ID:          id,
			Name:        name,
			Link:        fields.String("link"),
			Description: fields.String("description"),
			Image:       fields.String("image"),
			Platform:    fields.String("platform"),
			Tags:        fields.Strings("tags"),
		},
	}
}

func skipped(objectID, reason string) domain.DecodedGame {
	return domain.DecodedGame{
		Status:   domain.GameDecodeSkipped,
		ObjectID: objectID,
		Reason:   reason,
	}
}

// StageNewGame reads the current list and gives the draft a time-based id
// that does not collide with it. Nothing is written to the chain.
func (a *Accessor) StageNewGame(ctx context.Context, draft domain.GameDraft, address string) domain.Game {
	return a.assignID(draft, a.ListGames(ctx, address))
}

func (a *Accessor) assignID(draft domain.GameDraft, current []domain.Game) domain.Game {
	taken := make(map[string]struct{}, len(current))
	for _, g := range current {
		taken[g.ID] = struct{}{}
	}

	ms := a.now().UnixMilli()
	id := strconv.FormatInt(ms, 10)
	for {
		if _, dup := taken[id]; !dup {
			break
		}
		ms++
		id = strconv.FormatInt(ms, 10)
	}
	return draft.WithID(id)
}

// StageUpdatedGame merges patch into the game with the given id from a fresh
// read. It returns nil when the id is not in the list.
func (a *Accessor) StageUpdatedGame(ctx context.Context, id string, patch domain.GamePatch, address string) *domain.Game {
	for _, g := range a.ListGames(ctx, address) {
		if g.ID == id {
			updated := patch.Apply(g)
			return &updated
		}
	}
	return nil
}
