// Package relay tails the contract's events on the fullnode and forwards
// them to the chain event topic.
package relay

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/sui"
)

// Publisher sends chain events downstream
type Publisher interface {
	Publish(events []domain.ChainEvent) error
}

var eventTypes = map[string]domain.ChainEventType{
	"ProfileCreated": domain.ChainEventProfileCreated,
	"GameAdded":      domain.ChainEventGameAdded,
	"GameUpdated":    domain.ChainEventGameUpdated,
	"GameRemoved":    domain.ChainEventGameRemoved,
}

// MapEvent converts a move event into a chain event. Events of other structs
// are reported as not ok.
func MapEvent(e sui.Event) (domain.ChainEvent, bool) {
	name := e.Type
	if i := strings.IndexByte(name, '<'); i >= 0 {
		name = name[:i]
	}
	if i := strings.LastIndex(name, "::"); i >= 0 {
		name = name[i+2:]
	}
	kind, ok := eventTypes[name]
	if !ok {
		return domain.ChainEvent{}, false
	}

	var body struct {
		ProfileID string `json:"profile_id"`
		GameID    string `json:"game_id"`
	}
	if len(e.ParsedJSON) > 0 {
		// unknown shapes still relay type and sender
		_ = json.Unmarshal(e.ParsedJSON, &body)
	}
	ts, _ := strconv.ParseInt(e.TimestampMs, 10, 64)

	return domain.ChainEvent{
		Type:        kind,
		Sender:      e.Sender,
		ProfileID:   body.ProfileID,
		GameID:      body.GameID,
		Digest:      e.ID.TxDigest,
		EventSeq:    e.ID.EventSeq,
		TimestampMs: ts,
	}, true
}

// ParseCursor reads a "<txDigest>:<eventSeq>" cursor; empty means from the start
func ParseCursor(s string) (*sui.EventID, error) {
	if s == "" {
		return nil, nil
	}
	digest, seq, ok := strings.Cut(s, ":")
	if !ok || digest == "" || seq == "" {
		return nil, fmt.Errorf("malformed cursor %q", s)
	}
	return &sui.EventID{TxDigest: digest, EventSeq: seq}, nil
}

// FormatCursor is the inverse of ParseCursor
func FormatCursor(id *sui.EventID) string {
	if id == nil {
		return ""
	}
	return id.TxDigest + ":" + id.EventSeq
}

// Relay polls module events in ascending order and publishes them. The
// cursor only advances past a page once that page was published.
type Relay struct {
	source    sui.EventSource
	publisher Publisher
	filter    sui.EventFilter
	config    *config.RelayConfig
	logger    *slog.Logger
	cursor    *sui.EventID
}

// New creates a relay for the contract module described by chain
func New(source sui.EventSource, publisher Publisher, chain *config.ChainConfig, cfg *config.RelayConfig, logger *slog.Logger) (*Relay, error) {
	cursor, err := ParseCursor(cfg.StartCursor)
	if err != nil {
		return nil, err
	}
	return &Relay{
		source:    source,
		publisher: publisher,
		filter: sui.EventFilter{MoveModule: &sui.MoveModuleFilter{
			Package: chain.PackageID,
			Module:  chain.Module,
		}},
		config: cfg,
		logger: logger,
		cursor: cursor,
	}, nil
}

// Cursor returns the position after the last published page
func (r *Relay) Cursor() *sui.EventID {
	return r.cursor
}

func (r *Relay) retryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(max(r.config.RetryAttempts, 1))),
		retry.Delay(r.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			r.logger.Warn("relay retry", "attempt", n+1, "error", err)
		}),
	}
}

// Poll drains every page available after the cursor and returns how many
// events were published
func (r *Relay) Poll(ctx context.Context) (int, error) {
	published := 0
	for {
		page, err := retry.DoWithData(func() (*sui.EventPage, error) {
			return r.source.QueryEvents(ctx, r.filter, r.cursor, r.config.PageSize, false)
		}, r.retryOptions(ctx)...)
		if err != nil {
			return published, fmt.Errorf("querying events: %w", err)
		}

		events := make([]domain.ChainEvent, 0, len(page.Data))
		for _, e := range page.Data {
			if ev, ok := MapEvent(e); ok {
				events = append(events, ev)
			}
		}

		if len(events) > 0 {
			err := retry.Do(func() error {
				return r.publisher.Publish(events)
			}, r.retryOptions(ctx)...)
			if err != nil {
				return published, fmt.Errorf("publishing events: %w", err)
			}
			published += len(events)
		}

		if page.NextCursor != nil {
			r.cursor = page.NextCursor
		}
		if !page.HasNextPage || len(page.Data) == 0 {
			return published, nil
		}
	}
}

// Run polls on the configured interval until ctx is done
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.config.PollInterval)
	defer ticker.Stop()

	for {
		n, err := r.Poll(ctx)
		switch {
		case errors.Is(err, context.Canceled):
			return nil
		case err != nil:
			r.logger.Error("relay poll failed", "error", err, "cursor", FormatCursor(r.cursor))
		case n > 0:
			r.logger.Info("relayed chain events", "count", n, "cursor", FormatCursor(r.cursor))
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
