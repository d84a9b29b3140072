// Package profile resolves developer profiles from wallet addresses and
// public usernames against the fullnode.
package profile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/sui"
)

// Cache is the advisory per-address snapshot store. It is written after a
// successful lookup and never read by the resolver.
type Cache interface {
	SetProfile(ctx context.Context, address string, profile domain.Profile) error
	DeleteAddress(ctx context.Context, address string) error
}

// Resolver turns addresses, usernames and profile ids into profiles
type Resolver struct {
	client sui.Client
	cache  Cache
	chain  *config.ChainConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewResolver creates a resolver. cache may be nil.
func NewResolver(client sui.Client, cache Cache, chain *config.ChainConfig, logger *slog.Logger) *Resolver {
	return &Resolver{
		client: client,
		cache:  cache,
		chain:  chain,
		logger: logger,
		now:    time.Now,
	}
}

// LookupByAddress returns the first profile object owned by address, or nil
// when it owns none. Transport errors are returned.
func (r *Resolver) LookupByAddress(ctx context.Context, address string) (*domain.Profile, error) {
	if address == "" {
		return nil, nil
	}

	page, err := r.client.GetOwnedObjects(ctx, address, sui.ObjectResponseQuery{
		Filter:  &sui.ObjectFilter{StructType: r.chain.ProfileType()},
		Options: &sui.ObjectDataOptions{ShowType: true, ShowContent: true},
	}, nil, 0)
	if err != nil {
		return nil, fmt.Errorf("listing profiles of %s: %w", address, err)
	}
	if len(page.Data) == 0 {
		return nil, nil
	}
	if len(page.Data) > 1 {
		r.logger.Debug("address owns several profiles, using the first",
			"address", address,
			"count", len(page.Data),
		)
	}

	first := page.Data[0]
	if first.Data == nil {
		return nil, nil
	}
	fields, err := sui.DecodeFields(first.Data.Content)
	if err != nil {
		return nil, nil
	}

	id, _ := fields.UID("id")
	profile := &domain.Profile{
		ID:            id,
		Name:          fields.String("name"),
		Bio:           fields.String("bio"),
		WalletAddress: address,
		UpdatedAt:     r.now().UTC(),
	}
	profile.Username = domain.GenerateUsername(profile.Name)

	if r.cache != nil {
		if err := r.cache.SetProfile(ctx, address, *profile); err != nil {
			r.logger.Warn("failed to cache profile", "address", address, "error", err)
		}
	}
	return profile, nil
}

// ResolveByAddress is the lossy form of LookupByAddress: failures are logged
// and reported as no profile.
func (r *Resolver) ResolveByAddress(ctx context.Context, address string) *domain.Profile {
	profile, err := r.LookupByAddress(ctx, address)
	if err != nil {
		r.logger.Error("failed to resolve profile", "address", address, "error", err)
		return nil
	}
	return profile
}

// ResolveProfileIDByUsername scans the registry for username and returns the
// profile id it points at. The first matching key wins. An exhausted scan
// returns "" with no error; transport errors are returned.
func (r *Resolver) ResolveProfileIDByUsername(ctx context.Context, username string) (string, error) {
	var match *domain.RegistryEntry
	err := r.WalkRegistry(ctx, func(e domain.RegistryEntry) (bool, error) {
		if e.Username == username {
			match = &e
			return false, nil
		}
		return true, nil
	})
	if err != nil {
		return "", err
	}
	if match == nil {
		r.logger.Debug("username not in registry", "username", username)
		return "", nil
	}
	return r.RegistryValue(ctx, match.FieldID)
}

// WalkRegistry visits registry entries page by page until visit returns
// false or the last page is reached. Keys that are not strings are skipped.
func (r *Resolver) WalkRegistry(ctx context.Context, visit func(domain.RegistryEntry) (bool, error)) error {
	var cursor *string
	for {
		page, err := r.client.GetDynamicFields(ctx, r.chain.RegistryID, cursor, r.chain.PageSize)
		if err != nil {
			return fmt.Errorf("reading registry page: %w", err)
		}

		for _, field := range page.Data {
			key, ok := field.Name.String()
			if !ok {
				continue
			}
			more, err := visit(domain.RegistryEntry{Username: key, FieldID: field.ObjectID})
			if err != nil {
				return err
			}
			if !more {
				return nil
			}
		}

		if !page.HasNextPage || page.NextCursor == nil {
			return nil
		}
		cursor = page.NextCursor
	}
}

// RegistryValue reads the profile id stored in a registry field object.
// A field that is not a move object yields "".
func (r *Resolver) RegistryValue(ctx context.Context, fieldID string) (string, error) {
	resp, err := r.client.GetObject(ctx, fieldID, sui.ObjectDataOptions{ShowContent: true})
	if err != nil {
		return "", fmt.Errorf("reading registry field %s: %w", fieldID, err)
	}
	if resp.Data == nil {
		return "", nil
	}
	fields, err := sui.DecodeFields(resp.Data.Content)
	if err != nil {
		return "", nil
	}
	return fields.String("value"), nil
}

// ResolveOwnerAddress returns the single-address owner of a profile object,
// or "" for any other ownership kind or on failure.
func (r *Resolver) ResolveOwnerAddress(ctx context.Context, profileID string) string {
	if profileID == "" {
		return ""
	}
	resp, err := r.client.GetObject(ctx, profileID, sui.ObjectDataOptions{ShowOwner: true})
	if err != nil {
		r.logger.Error("failed to read profile owner", "profile_id", profileID, "error", err)
		return ""
	}
	if resp.Data == nil || resp.Data.Owner == nil || resp.Data.Owner.Kind != sui.OwnerAddress {
		return ""
	}
	return resp.Data.Owner.Address
}

// FetchByID reads a profile object with its owner. It returns
// domain.ErrProfileNotFound when the object is missing or not a profile.
func (r *Resolver) FetchByID(ctx context.Context, profileID string) (*domain.Profile, error) {
	resp, err := r.client.GetObject(ctx, profileID, sui.ObjectDataOptions{
		ShowType:    true,
		ShowOwner:   true,
		ShowContent: true,
	})
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", profileID, err)
	}
	if resp.Data == nil || (resp.Data.Type != "" && resp.Data.Type != r.chain.ProfileType()) {
		return nil, domain.ErrProfileNotFound
	}
	fields, err := sui.DecodeFields(resp.Data.Content)
	if err != nil {
		return nil, domain.ErrProfileNotFound
	}

	profile := &domain.Profile{
		ID:        profileID,
		Name:      fields.String("name"),
		Bio:       fields.String("bio"),
		UpdatedAt: r.now().UTC(),
	}
	profile.Username = domain.GenerateUsername(profile.Name)
	if owner := resp.Data.Owner; owner != nil && owner.Kind == sui.OwnerAddress {
		profile.WalletAddress = owner.Address
	}
	return profile, nil
}

// DeleteCached drops the cached snapshots of an address. It has no effect on chain.
func (r *Resolver) DeleteCached(ctx context.Context, address string) error {
	if r.cache == nil {
		return nil
	}
	if err := r.cache.DeleteAddress(ctx, address); err != nil {
		return fmt.Errorf("deleting cached snapshots of %s: %w", address, err)
	}
	return nil
}
