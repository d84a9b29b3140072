package games_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/gamedev-cards/internal/config"
	"github.com/gamedev-cards/internal/domain"
	"github.com/gamedev-cards/internal/games"
	"github.com/gamedev-cards/internal/sui"
	"github.com/gamedev-cards/internal/testutil/mocks"
)

// fakeChain serves a mutable set of game objects for one address
type fakeChain struct {
	mu    sync.Mutex
	chain *config.ChainConfig
	games []sui.ObjectResponse
}

func (f *fakeChain) set(objs ...sui.ObjectResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.games = objs
}

func (f *fakeChain) GetOwnedObjects(_ context.Context, owner string, _ sui.ObjectResponseQuery, _ *string, _ int) (*sui.ObjectsPage, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if owner != addrA {
		return &sui.ObjectsPage{}, nil
	}
	return &sui.ObjectsPage{Data: append([]sui.ObjectResponse(nil), f.games...)}, nil
}

func (f *fakeChain) GetObject(context.Context, string, sui.ObjectDataOptions) (*sui.ObjectResponse, error) {
	return &sui.ObjectResponse{}, nil
}

func (f *fakeChain) GetDynamicFields(context.Context, string, *string, int) (*sui.DynamicFieldPage, error) {
	return &sui.DynamicFieldPage{}, nil
}

// fakeProfiles answers LookupByAddress from a map
type fakeProfiles struct {
	mu       sync.Mutex
	profiles map[string]*domain.Profile
}

func (f *fakeProfiles) LookupByAddress(_ context.Context, address string) (*domain.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.profiles[address], nil
}

func (f *fakeProfiles) put(address string, p *domain.Profile) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.profiles[address] = p
}

type recordingNotifier struct {
	mu  sync.Mutex
	ops []domain.PendingOperation
}

func (r *recordingNotifier) OperationChanged(op domain.PendingOperation) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

type LedgerSuite struct {
	suite.Suite
	chain    *config.ChainConfig
	node     *fakeChain
	profiles *fakeProfiles
	store    *games.MemoryStore
	notifier *recordingNotifier
	ledger   *games.Ledger
	ctx      context.Context
}

func (s *LedgerSuite) SetupTest() {
	cfg := config.DefaultConfig()
	s.chain = &cfg.Chain
	s.node = &fakeChain{chain: s.chain}
	s.profiles = &fakeProfiles{profiles: map[string]*domain.Profile{
		addrA: {ID: "0xp1", Name: "Nova"},
	}}
	s.store = games.NewMemoryStore()
	s.notifier = &recordingNotifier{}
	s.ctx = context.Background()

	accessor := games.NewAccessor(s.node, nil, s.chain, discard())
	accessor.SetClock(func() time.Time { return time.UnixMilli(1_700_000_000_000) })
	s.ledger = games.NewLedger(accessor, s.profiles, s.store, s.chain, discard())
	s.ledger.SetNotifier(s.notifier)
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) TestStageGameBuildsCallAndPendingOperation() {
	staged, err := s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{
		Name: "Pixel Quest", Link: "https://pq", Description: "d", Image: "i", Platform: "Web",
	})
	s.Require().NoError(err)

	op := staged.Operation
	s.Equal(domain.OpAddGame, op.Kind)
	s.Equal(domain.StatusPending, op.Status)
	s.Equal("0xp1", op.ProfileID)
	s.Equal("1700000000000", op.GameID)
	s.Require().NotNil(op.Game)
	s.Equal("Pixel Quest", op.Game.Name)

	call := staged.Call
	s.Equal(s.chain.Target("add_game"), call.Target)
	s.Require().Len(call.Arguments, 6)
	s.Equal(sui.Object("0xp1"), call.Arguments[0])
	s.Equal(sui.PureString("Pixel Quest"), call.Arguments[1])
	s.Equal(sui.PureString("Web"), call.Arguments[5])

	stored, err := s.ledger.Operation(s.ctx, op.ID)
	s.Require().NoError(err)
	s.Equal(op, *stored)
}

func (s *LedgerSuite) TestStageGameRequiresProfile() {
	_, err := s.ledger.StageGame(s.ctx, "0xb0b", domain.GameDraft{Name: "X"})
	s.ErrorIs(err, domain.ErrProfileNotFound)

	_, err = s.ledger.StageGame(s.ctx, "not-an-address", domain.GameDraft{Name: "X"})
	s.ErrorIs(err, domain.ErrInvalidAddress)

	_, err = s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{Name: "   "})
	s.ErrorIs(err, domain.ErrInvalidGame)
}

func (s *LedgerSuite) TestAddGameConfirmedByRefetch() {
	staged, err := s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{Name: "Pixel Quest", Platform: "Web"})
	s.Require().NoError(err)

	changed, err := s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Empty(changed, "nothing on chain yet")

	s.node.set(mocks.MoveObject("0xg1", s.chain.GameType(), map[string]any{
		"id": mocks.UID("0xg1"), "name": "Pixel Quest", "platform": "Web",
	}))

	op, err := s.ledger.ReportOutcome(s.ctx, staged.Operation.ID, domain.TransactionOutcome{Success: true, Digest: "tx1"})
	s.Require().NoError(err)
	s.Equal(domain.StatusConfirmed, op.Status)
	s.Equal("0xg1", op.GameID)
	s.Equal("tx1", op.Digest)

	s.Require().Len(s.notifier.ops, 1)
	s.Equal(domain.StatusConfirmed, s.notifier.ops[0].Status)
}

func (s *LedgerSuite) TestAddGameIgnoresGamesPresentAtStaging() {
	existing := mocks.MoveObject("0xg1", s.chain.GameType(), map[string]any{
		"id": mocks.UID("0xg1"), "name": "Pixel Quest", "platform": "Web",
	})
	s.node.set(existing)

	first, err := s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{Name: "Pixel Quest", Platform: "Web"})
	s.Require().NoError(err)
	s.Equal([]string{"0xg1"}, first.Operation.KnownGameIDs)
	second, err := s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{Name: "Pixel Quest", Platform: "Web"})
	s.Require().NoError(err)

	changed, err := s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Empty(changed, "a game listed before staging confirms nothing")

	for _, id := range []string{first.Operation.ID, second.Operation.ID} {
		op, err := s.ledger.Operation(s.ctx, id)
		s.Require().NoError(err)
		s.Equal(domain.StatusPending, op.Status)
	}
}

func (s *LedgerSuite) TestEachNewGameConfirmsOneAdd() {
	tick := time.Unix(1_700_000_000, 0)
	s.ledger.SetClock(func() time.Time {
		tick = tick.Add(time.Second)
		return tick
	})

	first, err := s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{Name: "Twin", Platform: "Web"})
	s.Require().NoError(err)
	second, err := s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{Name: "Twin", Platform: "Web"})
	s.Require().NoError(err)

	twin := func(id string) sui.ObjectResponse {
		return mocks.MoveObject(id, s.chain.GameType(), map[string]any{
			"id": mocks.UID(id), "name": "Twin", "platform": "Web",
		})
	}

	s.node.set(twin("0xg1"))
	changed, err := s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Require().Len(changed, 1)
	s.Equal(first.Operation.ID, changed[0].ID)
	s.Equal("0xg1", changed[0].GameID)

	changed, err = s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Empty(changed, "0xg1 is already bound to the first operation")

	s.node.set(twin("0xg1"), twin("0xg2"))
	changed, err = s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Require().Len(changed, 1)
	s.Equal(second.Operation.ID, changed[0].ID)
	s.Equal("0xg2", changed[0].GameID)
}

func (s *LedgerSuite) TestSuccessfulOutcomeStaysPendingUntilChainAgrees() {
	staged, err := s.ledger.StageGame(s.ctx, addrA, domain.GameDraft{Name: "Cyber Samurai"})
	s.Require().NoError(err)

	op, err := s.ledger.ReportOutcome(s.ctx, staged.Operation.ID, domain.TransactionOutcome{Success: true, Digest: "tx2"})
	s.Require().NoError(err)
	s.Equal(domain.StatusPending, op.Status)
	s.Equal("tx2", op.Digest)
}

func (s *LedgerSuite) TestFailedOutcomeSettlesWithProviderMessage() {
	staged, err := s.ledger.StageProfile(s.ctx, addrA, "Nova")
	s.Require().NoError(err)
	s.Equal(s.chain.Target("create_game_dev_profile"), staged.Call.Target)
	s.Equal(sui.Object(s.chain.RegistryID), staged.Call.Arguments[1])

	op, err := s.ledger.ReportOutcome(s.ctx, staged.Operation.ID, domain.TransactionOutcome{
		Success: false, Error: "InsufficientGas",
	})
	s.Require().NoError(err)
	s.Equal(domain.StatusFailed, op.Status)
	s.Equal("InsufficientGas", op.Error)

	_, err = s.ledger.ReportOutcome(s.ctx, staged.Operation.ID, domain.TransactionOutcome{Success: true})
	s.ErrorIs(err, domain.ErrOperationSettled)

	changed, err := s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Empty(changed, "failed operations are not reconciled")
}

func (s *LedgerSuite) TestCreateProfileConfirmedWhenNameMatches() {
	s.profiles.put("0xc0de", nil)
	staged, err := s.ledger.StageProfile(s.ctx, "0xc0de", "Orbit")
	s.Require().NoError(err)

	changed, err := s.ledger.Reconcile(s.ctx, "0xc0de")
	s.Require().NoError(err)
	s.Empty(changed)

	s.profiles.put("0xc0de", &domain.Profile{ID: "0xp9", Name: "Orbit"})
	changed, err = s.ledger.Reconcile(s.ctx, "0xc0de")
	s.Require().NoError(err)
	s.Require().Len(changed, 1)
	s.Equal(staged.Operation.ID, changed[0].ID)
	s.Equal("0xp9", changed[0].ProfileID)
}

func (s *LedgerSuite) TestUpdateAndRemove() {
	s.node.set(mocks.MoveObject("0xg1", s.chain.GameType(), map[string]any{
		"id": mocks.UID("0xg1"), "name": "Pixel Quest", "platform": "Web",
	}))

	platform := "Switch"
	update, err := s.ledger.StageGameUpdate(s.ctx, addrA, "0xg1", domain.GamePatch{Platform: &platform})
	s.Require().NoError(err)
	s.Equal(sui.Object("0xg1"), update.Call.Arguments[1])

	removal, err := s.ledger.StageRemoval(s.ctx, addrA, "0xg1")
	s.Require().NoError(err)

	_, err = s.ledger.StageRemoval(s.ctx, addrA, "0xmissing")
	s.ErrorIs(err, domain.ErrGameNotFound)
	_, err = s.ledger.StageGameUpdate(s.ctx, addrA, "0xmissing", domain.GamePatch{})
	s.ErrorIs(err, domain.ErrGameNotFound)

	s.node.set(mocks.MoveObject("0xg1", s.chain.GameType(), map[string]any{
		"id": mocks.UID("0xg1"), "name": "Pixel Quest", "platform": "Switch",
	}))
	changed, err := s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Require().Len(changed, 1)
	s.Equal(update.Operation.ID, changed[0].ID)

	s.node.set()
	changed, err = s.ledger.Reconcile(s.ctx, addrA)
	s.Require().NoError(err)
	s.Require().Len(changed, 1)
	s.Equal(removal.Operation.ID, changed[0].ID)

	ops, err := s.ledger.Operations(s.ctx, addrA)
	s.Require().NoError(err)
	s.Len(ops, 2)
}

func (s *LedgerSuite) TestUnknownOperation() {
	_, err := s.ledger.ReportOutcome(s.ctx, "nope", domain.TransactionOutcome{Success: true})
	s.ErrorIs(err, domain.ErrOperationNotFound)
}

func TestMemoryStore_ListFiltersAndOrders(t *testing.T) {
	store := games.NewMemoryStore()
	ctx := context.Background()
	base := time.Unix(1_700_000_000, 0)

	require.NoError(t, store.SaveOperation(ctx, domain.PendingOperation{ID: "b", Address: addrA, Status: domain.StatusPending, CreatedAt: base.Add(time.Second)}))
	require.NoError(t, store.SaveOperation(ctx, domain.PendingOperation{ID: "a", Address: addrA, Status: domain.StatusFailed, CreatedAt: base}))
	require.NoError(t, store.SaveOperation(ctx, domain.PendingOperation{ID: "c", Address: "0xother", Status: domain.StatusPending, CreatedAt: base}))

	all, err := store.ListOperations(ctx, addrA, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "a", all[0].ID)

	pending, err := store.ListOperations(ctx, addrA, domain.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "b", pending[0].ID)

	_, err = store.GetOperation(ctx, "zzz")
	assert.ErrorIs(t, err, domain.ErrOperationNotFound)
}
