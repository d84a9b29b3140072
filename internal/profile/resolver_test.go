package profile_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/profile"
	"github.com/gamedev-cards/internal/sui"
	"github.com/gamedev-cards/internal/testutil/mocks"
)

const addrA = "0xa11ce"

func setup(t *testing.T) (*profile.Resolver, *mocks.MockSuiClient, *mocks.MockSnapshotCache, *config.ChainConfig) {
	t.Helper()
	cfg := config.DefaultConfig()
	client := new(mocks.MockSuiClient)
	cache := new(mocks.MockSnapshotCache)
	t.Cleanup(func() {
		client.AssertExpectations(t)
		cache.AssertExpectations(t)
	})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return profile.NewResolver(client, cache, &cfg.Chain, logger), client, cache, &cfg.Chain
}

func profileQuery(chain *config.ChainConfig) sui.ObjectResponseQuery {
	return sui.ObjectResponseQuery{
		Filter:  &sui.ObjectFilter{StructType: chain.ProfileType()},
		Options: &sui.ObjectDataOptions{ShowType: true, ShowContent: true},
	}
}

func TestResolveByAddress_NoProfile(t *testing.T) {
	r, client, _, chain := setup(t)
	client.On("GetOwnedObjects", mock.Anything, addrA, profileQuery(chain), (*string)(nil), 0).
		Return(&sui.ObjectsPage{}, nil)

	assert.Nil(t, r.ResolveByAddress(context.Background(), addrA))
}

func TestResolveByAddress_FirstMatchWins(t *testing.T) {
	r, client, cache, chain := setup(t)
	client.On("GetOwnedObjects", mock.Anything, addrA, profileQuery(chain), (*string)(nil), 0).
		Return(&sui.ObjectsPage{Data: []sui.ObjectResponse{
			mocks.MoveObject("0xp1", chain.ProfileType(), map[string]any{"id": mocks.UID("0xp1"), "name": "Nova"}),
			mocks.MoveObject("0xp2", chain.ProfileType(), map[string]any{"id": mocks.UID("0xp2"), "name": "Shadow"}),
		}}, nil)
	cache.On("SetProfile", mock.Anything, addrA, mock.MatchedBy(func(p domain.Profile) bool {
		return p.ID == "0xp1" && p.Name == "Nova"
	})).Return(nil)

	p := r.ResolveByAddress(context.Background(), addrA)
	require.NotNil(t, p)
	assert.Equal(t, "0xp1", p.ID)
	assert.Equal(t, "Nova", p.Name)
	assert.Equal(t, "nova", p.Username)
	assert.Equal(t, addrA, p.WalletAddress)
}

func TestResolveByAddress_CacheFailureIsIgnored(t *testing.T) {
	r, client, cache, chain := setup(t)
	client.On("GetOwnedObjects", mock.Anything, addrA, profileQuery(chain), (*string)(nil), 0).
		Return(&sui.ObjectsPage{Data: []sui.ObjectResponse{
			mocks.MoveObject("0xp1", chain.ProfileType(), map[string]any{"id": mocks.UID("0xp1"), "name": "Nova"}),
		}}, nil)
	cache.On("SetProfile", mock.Anything, addrA, mock.Anything).Return(errors.New("redis down"))

	p := r.ResolveByAddress(context.Background(), addrA)
	require.NotNil(t, p)
	assert.Equal(t, "Nova", p.Name)
}

func TestResolveByAddress_NonMoveContent(t *testing.T) {
	r, client, _, chain := setup(t)
	client.On("GetOwnedObjects", mock.Anything, addrA, profileQuery(chain), (*string)(nil), 0).
		Return(&sui.ObjectsPage{Data: []sui.ObjectResponse{mocks.PackageObject("0xp1")}}, nil)

	assert.Nil(t, r.ResolveByAddress(context.Background(), addrA))
}

func TestResolveByAddress_TransportErrorIsSwallowed(t *testing.T) {
	r, client, _, chain := setup(t)
	client.On("GetOwnedObjects", mock.Anything, addrA, profileQuery(chain), (*string)(nil), 0).
		Return(nil, errors.New("connection reset"))

	assert.Nil(t, r.ResolveByAddress(context.Background(), addrA))

	_, err := r.LookupByAddress(context.Background(), addrA)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestResolveByAddress_EmptyAddress(t *testing.T) {
	r, _, _, _ := setup(t)
	assert.Nil(t, r.ResolveByAddress(context.Background(), ""))
}

func TestResolveProfileIDByUsername_FoundOnSecondPage(t *testing.T) {
	r, client, _, chain := setup(t)
	client.On("GetDynamicFields", mock.Anything, chain.RegistryID, (*string)(nil), 50).
		Return(&sui.DynamicFieldPage{
			Data:        []sui.DynamicFieldInfo{mocks.RegistryField("orbit", "0xf1")},
			NextCursor:  mocks.Cursor("c1"),
			HasNextPage: true,
		}, nil).Once()
	client.On("GetDynamicFields", mock.Anything, chain.RegistryID, mocks.Cursor("c1"), 50).
		Return(&sui.DynamicFieldPage{
			Data: []sui.DynamicFieldInfo{
				mocks.RegistryField("nova", "0xf2"),
				mocks.RegistryField("nova", "0xf3"),
			},
		}, nil).Once()
	client.On("GetObject", mock.Anything, "0xf2", sui.ObjectDataOptions{ShowContent: true}).
		Return(&sui.ObjectResponse{Data: mocks.MoveObject("0xf2", "field", map[string]any{
			"id": mocks.UID("0xf2"), "name": "nova", "value": "0xp1",
		}).Data}, nil)

	id, err := r.ResolveProfileIDByUsername(context.Background(), "nova")
	require.NoError(t, err)
	assert.Equal(t, "0xp1", id)
}

func TestResolveProfileIDByUsername_Ghost(t *testing.T) {
	r, client, _, chain := setup(t)
	client.On("GetDynamicFields", mock.Anything, chain.RegistryID, (*string)(nil), 50).
		Return(&sui.DynamicFieldPage{
			Data:        []sui.DynamicFieldInfo{mocks.RegistryField("nova", "0xf1")},
			NextCursor:  mocks.Cursor("c1"),
			HasNextPage: true,
		}, nil).Once()
	client.On("GetDynamicFields", mock.Anything, chain.RegistryID, mocks.Cursor("c1"), 50).
		Return(&sui.DynamicFieldPage{
			Data:        []sui.DynamicFieldInfo{mocks.RegistryField("orbit", "0xf2")},
			NextCursor:  mocks.Cursor("c2"),
			HasNextPage: false,
		}, nil).Once()

	id, err := r.ResolveProfileIDByUsername(context.Background(), "ghost")
	require.NoError(t, err)
	assert.Equal(t, "", id)
}

func TestResolveProfileIDByUsername_PropagatesTransportError(t *testing.T) {
	r, client, _, chain := setup(t)
	client.On("GetDynamicFields", mock.Anything, chain.RegistryID, (*string)(nil), 50).
		Return(nil, errors.New("503 service unavailable"))

	_, err := r.ResolveProfileIDByUsername(context.Background(), "nova")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestResolveOwnerAddress(t *testing.T) {
	r, client, _, _ := setup(t)
	opts := sui.ObjectDataOptions{ShowOwner: true}
	client.On("GetObject", mock.Anything, "0xp1", opts).Return(&sui.ObjectResponse{Data: &sui.ObjectData{
		ObjectID: "0xp1", Owner: &sui.Owner{Kind: sui.OwnerAddress, Address: addrA},
	}}, nil)
	client.On("GetObject", mock.Anything, "0xshared", opts).Return(&sui.ObjectResponse{Data: &sui.ObjectData{
		ObjectID: "0xshared", Owner: &sui.Owner{Kind: sui.OwnerShared, InitialSharedVersion: 3},
	}}, nil)
	client.On("GetObject", mock.Anything, "0xwrapped", opts).Return(&sui.ObjectResponse{Data: &sui.ObjectData{
		ObjectID: "0xwrapped", Owner: &sui.Owner{Kind: sui.OwnerObject, Address: "0xparent"},
	}}, nil)
	client.On("GetObject", mock.Anything, "0xbroken", opts).Return(nil, errors.New("timeout"))

	ctx := context.Background()
	assert.Equal(t, addrA, r.ResolveOwnerAddress(ctx, "0xp1"))
	assert.Equal(t, "", r.ResolveOwnerAddress(ctx, "0xshared"))
	assert.Equal(t, "", r.ResolveOwnerAddress(ctx, "0xwrapped"))
	assert.Equal(t, "", r.ResolveOwnerAddress(ctx, "0xbroken"))
	assert.Equal(t, "", r.ResolveOwnerAddress(ctx, ""))
}

func TestFetchByID(t *testing.T) {
	r, client, _, chain := setup(t)
	obj := mocks.MoveObject("0xp1", chain.ProfileType(), map[string]any{
		"id": mocks.UID("0xp1"), "name": "Nova", "bio": "pixel art",
	})
	obj.Data.Owner = &sui.Owner{Kind: sui.OwnerAddress, Address: addrA}
	client.On("GetObject", mock.Anything, "0xp1", sui.ObjectDataOptions{ShowType: true, ShowOwner: true, ShowContent: true}).
		Return(&obj, nil)
	client.On("GetObject", mock.Anything, "0xgame", sui.ObjectDataOptions{ShowType: true, ShowOwner: true, ShowContent: true}).
		Return(&sui.ObjectResponse{Data: mocks.MoveObject("0xgame", chain.GameType(), map[string]any{"name": "x"}).Data}, nil)

	p, err := r.FetchByID(context.Background(), "0xp1")
	require.NoError(t, err)
	assert.Equal(t, "Nova", p.Name)
	assert.Equal(t, "pixel art", p.Bio)
	assert.Equal(t, addrA, p.WalletAddress)

	_, err = r.FetchByID(context.Background(), "0xgame")
	assert.ErrorIs(t, err, domain.ErrProfileNotFound)
}

func TestDeleteCached(t *testing.T) {
	r, _, cache, _ := setup(t)
	cache.On("DeleteAddress", mock.Anything, addrA).Return(nil).Once()
	cache.On("DeleteAddress", mock.Anything, "0xb").Return(errors.New("boom")).Once()

	require.NoError(t, r.DeleteCached(context.Background(), addrA))
	assert.Error(t, r.DeleteCached(context.Background(), "0xb"))
}

func TestWalkRegistry_StopsEarly(t *testing.T) {
	r, client, _, chain := setup(t)
	client.On("GetDynamicFields", mock.Anything, chain.RegistryID, (*string)(nil), 50).
		Return(&sui.DynamicFieldPage{
			Data: []sui.DynamicFieldInfo{
				mocks.RegistryField("a", "0x1"),
				mocks.RegistryField("b", "0x2"),
				mocks.RegistryField("c", "0x3"),
			},
			NextCursor:  mocks.Cursor("c1"),
			HasNextPage: true,
		}, nil).Once()

	var seen []string
	err := r.WalkRegistry(context.Background(), func(e domain.RegistryEntry) (bool, error) {
		seen = append(seen, e.Username)
		return len(seen) < 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, seen)
}
