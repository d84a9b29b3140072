package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gamedev-cards/internal/domain"
)

// MockSnapshotCache is a mock implementation of the per-address snapshot cache
type MockSnapshotCache struct {
	mock.Mock
}

func (m *MockSnapshotCache) SetProfile(ctx context.Context, address string, profile domain.Profile) error {
	args := m.Called(ctx, address, profile)
	return args.Error(0)
}

func (m *MockSnapshotCache) SetGames(ctx context.Context, address string, games []domain.Game) error {
	args := m.Called(ctx, address, games)
	return args.Error(0)
}

func (m *MockSnapshotCache) DeleteAddress(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}
