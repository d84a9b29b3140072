package sui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
)

// Client is the read surface of the fullnode used by the resolvers
type Client interface {
	GetOwnedObjects(ctx context.Context, owner string, query ObjectResponseQuery, cursor *string, limit int) (*ObjectsPage, error)
	GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectResponse, error)
	GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (*DynamicFieldPage, error)
}

// EventSource reads contract events
type EventSource interface {
	QueryEvents(ctx context.Context, filter EventFilter, cursor *EventID, limit int, descending bool) (*EventPage, error)
}

var (
	_ Client      = (*RPCClient)(nil)
	_ EventSource = (*RPCClient)(nil)
)

// RPCClient talks JSON-RPC 2.0 to a Sui fullnode
type RPCClient struct {
	rpc     *rpc.Client
	timeout time.Duration
	logger  *slog.Logger
}

// Dial connects to the fullnode at url. A zero timeout leaves deadlines to the caller.
func Dial(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) (*RPCClient, error) {
	c, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("dialing fullnode: %w", err)
	}
	return &RPCClient{
		rpc:     c,
		timeout: timeout,
		logger:  logger,
	}, nil
}

// Close releases the underlying connection
func (c *RPCClient) Close() {
	c.rpc.Close()
}

func (c *RPCClient) call(ctx context.Context, result any, method string, args ...any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	err := c.rpc.CallContext(ctx, result, method, args...)
	c.logger.Debug("fullnode call",
		"method", method,
		"duration", time.Since(start),
		"error", err,
	)
	if err != nil {
		return fmt.Errorf("calling %s: %w", method, err)
	}
	return nil
}

// limitArg renders a page size, leaving the fullnode default when unset
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

// GetOwnedObjects returns one page of objects owned by an address
func (c *RPCClient) GetOwnedObjects(ctx context.Context, owner string, query ObjectResponseQuery, cursor *string, limit int) (*ObjectsPage, error) {
	var page ObjectsPage
	if err := c.call(ctx, &page, "suix_getOwnedObjects", owner, query, cursor, limitArg(limit)); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetObject returns a single object
func (c *RPCClient) GetObject(ctx context.Context, id string, opts ObjectDataOptions) (*ObjectResponse, error) {
	var resp ObjectResponse
	if err := c.call(ctx, &resp, "sui_getObject", id, opts); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetDynamicFields returns one page of dynamic fields under a parent object
func (c *RPCClient) GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (*DynamicFieldPage, error) {
	var page DynamicFieldPage
	if err := c.call(ctx, &page, "suix_getDynamicFields", parentID, cursor, limitArg(limit)); err != nil {
		return nil, err
	}
	return &page, nil
}

// QueryEvents returns one page of events matching the filter
func (c *RPCClient) QueryEvents(ctx context.Context, filter EventFilter, cursor *EventID, limit int, descending bool) (*EventPage, error) {
	var page EventPage
	if err := c.call(ctx, &page, "suix_queryEvents", filter, cursor, limitArg(limit), descending); err != nil {
		return nil, err
	}
	return &page, nil
}
