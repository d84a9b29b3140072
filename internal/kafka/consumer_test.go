package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
)

type recordingHandler struct {
	mu      sync.Mutex
	batches [][]domain.ChainEvent
}

func (h *recordingHandler) HandleChainEvents(_ context.Context, events []domain.ChainEvent) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.batches = append(h.batches, append([]domain.ChainEvent(nil), events...))
	return nil
}

// flakyHandler fails until it has been called more than failures times
type flakyHandler struct {
	recordingHandler
	failures int
	calls    int
}

func (h *flakyHandler) HandleChainEvents(ctx context.Context, events []domain.ChainEvent) error {
	h.calls++
	if h.calls <= h.failures {
		return errors.New("fullnode unavailable")
	}
	return h.recordingHandler.HandleChainEvents(ctx, events)
}

type fakeSession struct {
	ctx    context.Context
	mu     sync.Mutex
	marked []int64
}

func (s *fakeSession) Claims() map[string][]int32 { return nil }
func (s *fakeSession) MemberID() string { return "member" }
func (s *fakeSession) GenerationID() int32 { return 1 }
func (s *fakeSession) MarkOffset(string, int32, int64, string) {}
func (s *fakeSession) Commit() {}
func (s *fakeSession) ResetOffset(string, int32, int64, string) {}
func (s *fakeSession) Context() context.Context { return s.ctx }
func (s *fakeSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.marked = append(s.marked, msg.Offset)
}

type fakeClaim struct {
	messages chan *sarama.ConsumerMessage
}

func (c *fakeClaim) Topic() string { return "gamedev-chain-events" }
func (c *fakeClaim) Partition() int32 { return 0 }
func (c *fakeClaim) InitialOffset() int64 { return 0 }
func (c *fakeClaim) HighWaterMarkOffset() int64 { return 0 }
func (c *fakeClaim) Messages() <-chan *sarama.ConsumerMessage { return c.messages }

func message(t *testing.T, offset int64, event domain.ChainEvent) *sarama.ConsumerMessage {
	t.Helper()
	data, err := json.Marshal(event)
	require.NoError(t, err)
	return &sarama.ConsumerMessage{Offset: offset, Value: data}
}

func TestConsumeClaim_BatchesAndDropsInvalid(t *testing.T) {
	cfg := &config.KafkaConfig{BatchSize: 2, BatchTimeout: time.Hour}
	handler := &recordingHandler{}
	gh := newGroupHandler(cfg, handler, slog.New(slog.NewTextHandler(io.Discard, nil)), make(chan bool))

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 4)}
	claim.messages <- message(t, 1, domain.ChainEvent{Type: domain.ChainEventGameAdded, Sender: "0xa", Digest: "d1"})
	claim.messages <- &sarama.ConsumerMessage{Offset: 2, Value: []byte("not json")}
	claim.messages <- message(t, 3, domain.ChainEvent{Type: domain.ChainEventGameRemoved, Sender: "0xa", Digest: "d2"})
	claim.messages <- message(t, 4, domain.ChainEvent{Type: domain.ChainEventProfileCreated, Sender: "0xb", Digest: "d3"})
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, gh.ConsumeClaim(session, claim))

	require.Len(t, handler.batches, 2)
	assert.Len(t, handler.batches[0], 2)
	assert.Equal(t, "d2", handler.batches[0][1].Digest)
	require.Len(t, handler.batches[1], 1)
	assert.Equal(t, "0xb", handler.batches[1][0].Sender)
	assert.Equal(t, []int64{3, 4}, session.marked)
}

func TestConsumeClaim_FlushesOnSessionEnd(t *testing.T) {
	cfg := &config.KafkaConfig{BatchSize: 10, BatchTimeout: time.Hour}
	handler := &recordingHandler{}
	gh := newGroupHandler(cfg, handler, slog.New(slog.NewTextHandler(io.Discard, nil)), make(chan bool))

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage)}
	ctx, cancel := context.WithCancel(context.Background())
	session := &fakeSession{ctx: ctx}

	done := make(chan error, 1)
	go func() { done <- gh.ConsumeClaim(session, claim) }()

	claim.messages <- message(t, 7, domain.ChainEvent{Type: domain.ChainEventGameUpdated, Sender: "0xa", Digest: "d7"})
	cancel()
	require.NoError(t, <-done)

	require.Len(t, handler.batches, 1)
	assert.Equal(t, "d7", handler.batches[0][0].Digest)
	assert.Equal(t, []int64{7}, session.marked)
}

func TestConsumeClaim_FailedBatchIsNotMarked(t *testing.T) {
	cfg := &config.KafkaConfig{BatchSize: 10, BatchTimeout: time.Hour, RetryAttempts: 2, RetryDelay: time.Millisecond}
	handler := &flakyHandler{failures: 100}
	gh := newGroupHandler(cfg, handler, slog.New(slog.NewTextHandler(io.Discard, nil)), make(chan bool))

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- message(t, 7, domain.ChainEvent{Type: domain.ChainEventGameAdded, Sender: "0xa", Digest: "d7"})
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	err := gh.ConsumeClaim(session, claim)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fullnode unavailable")

	assert.Equal(t, 2, handler.calls)
	assert.Empty(t, handler.batches)
	assert.Empty(t, session.marked)
}

func TestConsumeClaim_RetriesBatchBeforeMarking(t *testing.T) {
	cfg := &config.KafkaConfig{BatchSize: 1, BatchTimeout: time.Hour, RetryAttempts: 3, RetryDelay: time.Millisecond}
	handler := &flakyHandler{failures: 1}
	gh := newGroupHandler(cfg, handler, slog.New(slog.NewTextHandler(io.Discard, nil)), make(chan bool))

	claim := &fakeClaim{messages: make(chan *sarama.ConsumerMessage, 1)}
	claim.messages <- message(t, 9, domain.ChainEvent{Type: domain.ChainEventGameRemoved, Sender: "0xa", Digest: "d9"})
	close(claim.messages)

	session := &fakeSession{ctx: context.Background()}
	require.NoError(t, gh.ConsumeClaim(session, claim))

	assert.Equal(t, 2, handler.calls)
	require.Len(t, handler.batches, 1)
	assert.Equal(t, []int64{9}, session.marked)
}

func TestDecodeEvent(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"game_added","sender":"0xa","digest":"tx","game_id":"0xg"}`))
	require.NoError(t, err)
	assert.Equal(t, "0xg", event.GameID)

	for name, raw := range map[string]string{
		"malformed":      `{`,
		"unknown type":   `{"type":"minted","sender":"0xa","digest":"tx"}`,
		"missing sender": `{"type":"game_added","digest":"tx"}`,
		"missing digest": `{"type":"game_added","sender":"0xa"}`,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := DecodeEvent([]byte(raw))
			assert.ErrorIs(t, err, ErrInvalidEvent)
		})
	}
}
