// Package service holds the flows behind the HTTP API: the owner dashboard,
// the public portfolio, the explorer and the transaction ledger.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gamedev-cards/internal/domain"
)

// ProfileReader is the profile resolver surface used by the portfolio flows
type ProfileReader interface {
	ResolveByAddress(ctx context.Context, address string) *domain.Profile
	ResolveProfileIDByUsername(ctx context.Context, username string) (string, error)
	ResolveOwnerAddress(ctx context.Context, profileID string) string
	FetchByID(ctx context.Context, profileID string) (*domain.Profile, error)
	DeleteCached(ctx context.Context, address string) error
}

// GameReader lists the games owned by an address
type GameReader interface {
	ListGames(ctx context.Context, address string) []domain.Game
}

// Dashboard is what the connected wallet owner sees
type Dashboard struct {
	Address  string          `json:"address"`
	Profile  *domain.Profile `json:"profile"`
	Games    []domain.Game   `json:"games"`
	Level    int             `json:"level"`
	ShareURL string          `json:"shareUrl,omitempty"`
}

// Portfolio is the public page of a registered username
type Portfolio struct {
	Username  string          `json:"username"`
	ProfileID string          `json:"profileId"`
	Owner     string          `json:"owner"`
	Profile   *domain.Profile `json:"profile,omitempty"`
	Games     []domain.Game   `json:"games"`
	Level     int             `json:"level"`
}

// PortfolioService resolves dashboards and public portfolios
type PortfolioService struct {
	profiles  ProfileReader
	games     GameReader
	publicURL string
	logger    *slog.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(profiles ProfileReader, games GameReader, publicURL string, logger *slog.Logger) *PortfolioService {
	return &PortfolioService{
		profiles:  profiles,
		games:     games,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
	}
}

// Dashboard loads the profile and games of a wallet. A wallet without a profile
// gets a dashboard with a nil profile, which is the "create your profile" state.
// Fullnode failures are logged by the resolver and read as no profile.
func (s *PortfolioService) Dashboard(ctx context.Context, address string) (*Dashboard, error) {
	if !domain.ValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}

	profile := s.profiles.ResolveByAddress(ctx, address)

	d := &Dashboard{Address: address, Profile: profile, Games: []domain.Game{}}
	if profile == nil {
		d.Level = domain.LevelFor(0)
		return d, nil
	}

	d.Games = s.games.ListGames(ctx, address)
	d.Level = domain.LevelFor(len(d.Games))
	d.ShareURL = s.ShareURL(profile.Username)
	return d, nil
}

// Games lists the games of a wallet
func (s *PortfolioService) Games(ctx context.Context, address string) ([]domain.Game, error) {
	if !domain.ValidAddress(address) {
		return nil, domain.ErrInvalidAddress
	}
	return s.games.ListGames(ctx, address), nil
}

// PublicPortfolio resolves a username to its profile, owner and games
func (s *PortfolioService) PublicPortfolio(ctx context.Context, username string) (*Portfolio, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, domain.ErrUserNotFound
	}

	profileID, err := s.profiles.ResolveProfileIDByUsername(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("resolving username: %w", err)
	}
	if profileID == "" {
		return nil, domain.ErrUserNotFound
	}

	owner := s.profiles.ResolveOwnerAddress(ctx, profileID)
	if owner == "" {
		return nil, domain.ErrUserNotFound
	}

	p := &Portfolio{
		Username:  username,
		ProfileID: profileID,
		Owner:     owner,
	}

	profile, err := s.profiles.FetchByID(ctx, profileID)
	if err != nil {
		s.logger.Warn("failed to load portfolio profile",
			"profile_id", profileID,
			"error", err,
		)
	} else {
		profile.Username = username
		profile.WalletAddress = owner
		p.Profile = profile
	}

	p.Games = s.games.ListGames(ctx, owner)
	p.Level = domain.LevelFor(len(p.Games))
	return p, nil
}

// ShareURL returns the public link of a username
func (s *PortfolioService) ShareURL(username string) string {
	if username == "" {
		return ""
	}
	return s.publicURL + "/u/" + username
}

// ClearCache drops the cached snapshots of a wallet
func (s *PortfolioService) ClearCache(ctx context.Context, address string) error {
	if !domain.ValidAddress(address) {
		return domain.ErrInvalidAddress
	}
	return s.profiles.DeleteCached(ctx, address)
}
