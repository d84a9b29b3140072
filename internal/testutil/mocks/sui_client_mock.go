package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gamedev-cards/internal/sui"
)

// MockSuiClient is a mock implementation of sui.Client and sui.EventSource
type MockSuiClient struct {
	mock.Mock
}

var (
	_ sui.Client      = (*MockSuiClient)(nil)
	_ sui.EventSource = (*MockSuiClient)(nil)
)

func (m *MockSuiClient) GetOwnedObjects(ctx context.Context, owner string, query sui.ObjectResponseQuery, cursor *string, limit int) (*sui.ObjectsPage, error) {
	args := m.Called(ctx, owner, query, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.ObjectsPage), args.Error(1)
}

func (m *MockSuiClient) GetObject(ctx context.Context, id string, opts sui.ObjectDataOptions) (*sui.ObjectResponse, error) {
	args := m.Called(ctx, id, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.ObjectResponse), args.Error(1)
}

func (m *MockSuiClient) GetDynamicFields(ctx context.Context, parentID string, cursor *string, limit int) (*sui.DynamicFieldPage, error) {
	args := m.Called(ctx, parentID, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.DynamicFieldPage), args.Error(1)
}

func (m *MockSuiClient) QueryEvents(ctx context.Context, filter sui.EventFilter, cursor *sui.EventID, limit int, descending bool) (*sui.EventPage, error) {
	args := m.Called(ctx, filter, cursor, limit, descending)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sui.EventPage), args.Error(1)
}
