package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/gamedev-cards/internal/domain"
)

// MockProfileReader is a mock of the profile resolver as seen by the portfolio flows
type MockProfileReader struct {
	mock.Mock
}

func (m *MockProfileReader) ResolveByAddress(ctx context.Context, address string) *domain.Profile {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.Profile)
}

func (m *MockProfileReader) ResolveProfileIDByUsername(ctx context.Context, username string) (string, error) {
	args := m.Called(ctx, username)
	return args.String(0), args.Error(1)
}

func (m *MockProfileReader) ResolveOwnerAddress(ctx context.Context, profileID string) string {
	args := m.Called(ctx, profileID)
	return args.String(0)
}

func (m *MockProfileReader) FetchByID(ctx context.Context, profileID string) (*domain.Profile, error) {
	args := m.Called(ctx, profileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Profile), args.Error(1)
}

func (m *MockProfileReader) DeleteCached(ctx context.Context, address string) error {
	args := m.Called(ctx, address)
	return args.Error(0)
}

// MockGameReader is a mock of the lossy game listing
type MockGameReader struct {
	mock.Mock
}

func (m *MockGameReader) ListGames(ctx context.Context, address string) []domain.Game {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).([]domain.Game)
}
