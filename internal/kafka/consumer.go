package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/avast/retry-go/v4"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
)

// ChainEventHandler processes relayed contract events
type ChainEventHandler interface {
	HandleChainEvents(ctx context.Context, events []domain.ChainEvent) error
}

// Consumer consumes chain events from Kafka
type Consumer struct {
	config        *config.KafkaConfig
	handler       ChainEventHandler
	logger        *slog.Logger
	consumerGroup sarama.ConsumerGroup
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	ready         chan bool
}

// NewConsumer creates a new Kafka consumer
func NewConsumer(cfg *config.KafkaConfig, handler ChainEventHandler, logger *slog.Logger) (*Consumer, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Version = sarama.V3_0_0_0
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	saramaConfig.Consumer.Return.Errors = true

	consumerGroup, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Consumer{
		config:        cfg,
		handler:       handler,
		logger:        logger,
		consumerGroup: consumerGroup,
		ctx:           ctx,
		cancel:        cancel,
		ready:         make(chan bool),
	}, nil
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start() error {
	c.logger.Info("starting Kafka consumer",
		"brokers", c.config.Brokers,
		"topic", c.config.Topic,
		"group_id", c.config.GroupID,
	)

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			handler := newGroupHandler(c.config, c.handler, c.logger, c.ready)

			if err := c.consumerGroup.Consume(c.ctx, []string{c.config.Topic}, handler); err != nil {
				if errors.Is(err, sarama.ErrClosedConsumerGroup) {
					return
				}
				c.logger.Error("error from consumer", "error", err)
			}

			// Check if context was cancelled
			if c.ctx.Err() != nil {
				return
			}

			c.ready = make(chan bool)
		}
	}()

	// Wait until consumer is ready
	<-c.ready
	c.logger.Info("Kafka consumer ready")

	// Handle errors in separate goroutine
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			select {
			case <-c.ctx.Done():
				return
			case err, ok := <-c.consumerGroup.Errors():
				if !ok {
					return
				}
				c.logger.Error("consumer group error", "error", err)
			}
		}
	}()

	return nil
}

// Stop gracefully stops the consumer
func (c *Consumer) Stop() error {
	c.logger.Info("stopping Kafka consumer")
	c.cancel()
	c.wg.Wait()
	return c.consumerGroup.Close()
}

// groupHandler implements sarama.ConsumerGroupHandler
type groupHandler struct {
	config  *config.KafkaConfig
	handler ChainEventHandler
	logger  *slog.Logger
	ready   chan bool
	once    sync.Once
}

func newGroupHandler(cfg *config.KafkaConfig, handler ChainEventHandler, logger *slog.Logger, ready chan bool) *groupHandler {
	return &groupHandler{config: cfg, handler: handler, logger: logger, ready: ready}
}

// Setup is called at the beginning of a new session
func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.once.Do(func() { close(h.ready) })
	return nil
}

// Cleanup is called at the end of a session
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (h *groupHandler) retryOptions(ctx context.Context) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(max(h.config.RetryAttempts, 1))),
		retry.Delay(h.config.RetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			h.logger.Warn("retrying batch", "attempt", n+1, "error", err)
		}),
	}
}

// ConsumeClaim batches events from a partition. Offsets are marked only after
// the handler accepted the batch holding them. A batch that keeps failing ends
// the session unmarked, so the group rejoins from the last committed offset.
func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	batch := make([]domain.ChainEvent, 0, h.config.BatchSize)
	var last *sarama.ConsumerMessage
	batchTimer := time.NewTimer(h.config.BatchTimeout)
	defer batchTimer.Stop()

	processBatch := func() error {
		if len(batch) > 0 {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			err := retry.Do(func() error {
				return h.handler.HandleChainEvents(ctx, batch)
			}, h.retryOptions(ctx)...)
			if err != nil {
				h.logger.Error("failed to process batch", "error", err, "batch_size", len(batch))
				return fmt.Errorf("handling batch of %d events: %w", len(batch), err)
			}
			h.logger.Debug("processed batch", "batch_size", len(batch))
			batch = batch[:0]
		}
		if last != nil {
			session.MarkMessage(last, "")
			last = nil
		}
		return nil
	}

	for {
		select {
		case <-session.Context().Done():
			// Process remaining batch before exit
			return processBatch()

		case <-batchTimer.C:
			if err := processBatch(); err != nil {
				return err
			}
			batchTimer.Reset(h.config.BatchTimeout)

		case message, ok := <-claim.Messages():
			if !ok {
				return processBatch()
			}
			last = message

			event, err := DecodeEvent(message.Value)
			if err != nil {
				h.logger.Warn("dropping chain event",
					"error", err,
					"offset", message.Offset,
					"partition", message.Partition,
				)
				continue
			}

			batch = append(batch, event)
			if len(batch) >= h.config.BatchSize {
				if err := processBatch(); err != nil {
					return err
				}
				batchTimer.Reset(h.config.BatchTimeout)
			}
		}
	}
}

// ErrInvalidEvent is returned for messages that are not usable chain events
var ErrInvalidEvent = errors.New("invalid chain event")

// DecodeEvent parses and validates one Kafka message value
func DecodeEvent(value []byte) (domain.ChainEvent, error) {
	var event domain.ChainEvent
	if err := json.Unmarshal(value, &event); err != nil {
		return event, errors.Join(ErrInvalidEvent, err)
	}
	switch event.Type {
	case domain.ChainEventProfileCreated, domain.ChainEventGameAdded,
		domain.ChainEventGameUpdated, domain.ChainEventGameRemoved:
	default:
		return event, errors.Join(ErrInvalidEvent, errors.New("unknown type "+string(event.Type)))
	}
	if event.Sender == "" || event.Digest == "" {
		return event, errors.Join(ErrInvalidEvent, errors.New("sender and digest are required"))
	}
	return event, nil
}
