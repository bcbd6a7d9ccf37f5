package standing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/dispatch"
	"github.com/ZRnown/energy/internal/models"
	"github.com/ZRnown/energy/internal/tron"
)

type fakeStandingStore struct {
	mu        sync.Mutex
	orders    map[int64]*models.StandingOrder
	platforms []models.Platform

	resourceUpdates map[int64][2]int64
	claimDenied     map[int64]bool
	completed       []int64
	released        map[int64]string
}

func newFakeStandingStore(orders ...*models.StandingOrder) *fakeStandingStore {
	s := &fakeStandingStore{
		orders:          make(map[int64]*models.StandingOrder),
		resourceUpdates: make(map[int64][2]int64),
		claimDenied:     make(map[int64]bool),
		released:        make(map[int64]string),
	}
	for _, o := range orders {
		cp := *o
		s.orders[o.ID] = &cp
	}
	return s
}

func (s *fakeStandingStore) ListForResourceCheck(ctx context.Context) ([]*models.StandingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StandingOrder
	for _, o := range s.orders {
		if o.Active && !o.BuyInProgress {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStandingStore) UpdateResources(ctx context.Context, id int64, energy, bandwidth int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok || o.BuyInProgress {
		return nil
	}
	o.CurrentEnergy = energy
	o.CurrentBandwidth = bandwidth
	o.BelowFloor = energy < o.ResourceFloor
	s.resourceUpdates[id] = [2]int64{energy, bandwidth}
	return nil
}

func (s *fakeStandingStore) ListBelowFloor(ctx context.Context) ([]*models.StandingOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StandingOrder
	for _, o := range s.orders {
		if o.Active && o.BelowFloor && !o.BuyInProgress {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeStandingStore) ClaimForDispatch(ctx context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.claimDenied[id] {
		return false, nil
	}
	o, ok := s.orders[id]
	if !ok || !o.Active || !o.BelowFloor || o.BuyInProgress {
		return false, nil
	}
	o.BuyInProgress = true
	return true, nil
}

func (s *fakeStandingStore) CompleteCycle(ctx context.Context, id int64, energyBought int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.BuyInProgress = false
	o.BelowFloor = false
	o.CyclesPurchased++
	o.NoticePending = true
	s.completed = append(s.completed, id)
	return nil
}

func (s *fakeStandingStore) ReleaseDispatch(ctx context.Context, id int64, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.orders[id]
	o.BuyInProgress = false
	o.LastAttemptNotes = notes
	s.released[id] = notes
	return nil
}

func (s *fakeStandingStore) ListEligiblePlatforms(ctx context.Context, resourceAmount int64) ([]models.Platform, error) {
	var out []models.Platform
	for _, p := range s.platforms {
		if p.Active && p.AvailableBalance >= resourceAmount {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeResources struct {
	byWallet map[string]*tron.Resources
	errs     map[string]error
}

func (f *fakeResources) AccountResources(ctx context.Context, address string) (*tron.Resources, error) {
	if err := f.errs[address]; err != nil {
		return nil, err
	}
	if r, ok := f.byWallet[address]; ok {
		return r, nil
	}
	return &tron.Resources{}, nil
}

type scriptedDispatcher struct {
	result   dispatch.Result
	requests []dispatch.Request
}

func (d *scriptedDispatcher) Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result {
	d.requests = append(d.requests, req)
	return d.result
}

func standingOrder(id int64, wallet string) *models.StandingOrder {
	return &models.StandingOrder{
		ID:               id,
		BotID:            1,
		WalletAddress:    wallet,
		ResourceFloor:    131000,
		ResourcePerCycle: 131000,
		DurationDays:     1,
		Active:           true,
	}
}

func newMachine(st Store, src ResourceSource, d OrderDispatcher) *Machine {
	return &Machine{Store: st, Source: src, Dispatcher: d, Concurrency: 2, Log: zap.NewNop()}
}

func TestCheckResourcesMarksBelowFloor(t *testing.T) {
	low := standingOrder(1, "TLow")
	high := standingOrder(2, "THigh")
	dormant := standingOrder(3, "TDormant")
	st := newFakeStandingStore(low, high, dormant)

	src := &fakeResources{byWallet: map[string]*tron.Resources{
		"TLow":     {Activated: true, EnergyRemaining: 40000, BandwidthRemaining: 500},
		"THigh":    {Activated: true, EnergyRemaining: 200000, BandwidthRemaining: 500},
		"TDormant": {Activated: false},
	}}

	m := newMachine(st, src, &scriptedDispatcher{})
	require.NoError(t, m.CheckResources(context.Background()))

	require.True(t, st.orders[1].BelowFloor)
	require.Equal(t, int64(40000), st.orders[1].CurrentEnergy)
	require.False(t, st.orders[2].BelowFloor)

	// Unactivated accounts are left untouched.
	_, touched := st.resourceUpdates[3]
	require.False(t, touched)
}

func TestCheckResourcesSkipsOrdersWithDispatchInFlight(t *testing.T) {
	busy := standingOrder(1, "TBusy")
	busy.BuyInProgress = true
	st := newFakeStandingStore(busy)

	src := &fakeResources{byWallet: map[string]*tron.Resources{
		"TBusy": {Activated: true, EnergyRemaining: 1},
	}}

	m := newMachine(st, src, &scriptedDispatcher{})
	require.NoError(t, m.CheckResources(context.Background()))
	require.Empty(t, st.resourceUpdates)
}

func TestDispatchDueSkipsExhaustedQuota(t *testing.T) {
	spent := standingOrder(1, "TSpent")
	spent.BelowFloor = true
	spent.CyclesLimit = 5
	spent.CyclesPurchased = 5

	open := standingOrder(2, "TOpen")
	open.BelowFloor = true
	open.CyclesLimit = 5
	open.CyclesPurchased = 4

	st := newFakeStandingStore(spent, open)
	st.platforms = []models.Platform{{ID: 1, Kind: models.KindNeeCC, Priority: 1, AvailableBalance: 1_000_000, Active: true}}

	d := &scriptedDispatcher{result: dispatch.Result{Success: true, PlatformID: 1, SupplierRef: "ref"}}
	m := newMachine(st, &fakeResources{}, d)

	require.NoError(t, m.DispatchDue(context.Background()))

	require.Len(t, d.requests, 1)
	require.Equal(t, "TOpen", d.requests[0].DestinationAddress)
	require.Equal(t, models.SourceStanding, d.requests[0].Source)
	require.Equal(t, int64(5), st.orders[2].CyclesPurchased)
	require.Equal(t, int64(5), st.orders[1].CyclesPurchased)
}

func TestDispatchDueUnlimitedWhenNoQuota(t *testing.T) {
	o := standingOrder(1, "TWallet")
	o.BelowFloor = true
	o.CyclesLimit = 0
	o.CyclesPurchased = 99

	st := newFakeStandingStore(o)
	st.platforms = []models.Platform{{ID: 1, Kind: models.KindNeeCC, Priority: 1, AvailableBalance: 1_000_000, Active: true}}

	d := &scriptedDispatcher{result: dispatch.Result{Success: true, PlatformID: 1}}
	m := newMachine(st, &fakeResources{}, d)

	require.NoError(t, m.DispatchDue(context.Background()))
	require.Len(t, d.requests, 1)
	require.Equal(t, int64(100), st.orders[1].CyclesPurchased)
}

func TestDispatchDueClaimLost(t *testing.T) {
	o := standingOrder(1, "TWallet")
	o.BelowFloor = true
	st := newFakeStandingStore(o)
	st.platforms = []models.Platform{{ID: 1, Kind: models.KindNeeCC, Priority: 1, AvailableBalance: 1_000_000, Active: true}}
	st.claimDenied[1] = true

	d := &scriptedDispatcher{result: dispatch.Result{Success: true}}
	m := newMachine(st, &fakeResources{}, d)

	// The claim going to a concurrent tick is a silent skip, never a second
	// supplier call.
	require.NoError(t, m.DispatchDue(context.Background()))
	require.Empty(t, d.requests)
	require.Empty(t, st.completed)
}

func TestDispatchDueSuccessCompletesCycle(t *testing.T) {
	o := standingOrder(1, "TWallet")
	o.BelowFloor = true
	st := newFakeStandingStore(o)
	st.platforms = []models.Platform{{ID: 3, Kind: models.KindTronGas, Priority: 1, AvailableBalance: 1_000_000, Active: true}}

	d := &scriptedDispatcher{result: dispatch.Result{Success: true, PlatformID: 3, SupplierRef: "ORD-1"}}
	m := newMachine(st, &fakeResources{}, d)

	require.NoError(t, m.DispatchDue(context.Background()))

	got := st.orders[1]
	require.Equal(t, []int64{1}, st.completed)
	require.False(t, got.BuyInProgress)
	require.False(t, got.BelowFloor)
	require.True(t, got.NoticePending)
	require.Equal(t, int64(1), got.CyclesPurchased)
}

func TestDispatchDueFailureReleasesClaim(t *testing.T) {
	o := standingOrder(1, "TWallet")
	o.BelowFloor = true
	st := newFakeStandingStore(o)
	st.platforms = []models.Platform{{ID: 1, Kind: models.KindNeeCC, Priority: 1, AvailableBalance: 1_000_000, Active: true}}

	d := &scriptedDispatcher{result: dispatch.Result{Success: false, FailureNotes: "neecc: timeout"}}
	m := newMachine(st, &fakeResources{}, d)

	require.NoError(t, m.DispatchDue(context.Background()))

	got := st.orders[1]
	require.False(t, got.BuyInProgress)
	require.True(t, got.BelowFloor)
	require.Equal(t, "neecc: timeout", got.LastAttemptNotes)
	require.Zero(t, got.CyclesPurchased)
	require.Equal(t, "neecc: timeout", st.released[1])
}

func TestDispatchDueNoPlatformsReleasesClaim(t *testing.T) {
	o := standingOrder(1, "TWallet")
	o.BelowFloor = true
	st := newFakeStandingStore(o)

	d := &scriptedDispatcher{result: dispatch.Result{Success: true}}
	m := newMachine(st, &fakeResources{}, d)

	require.NoError(t, m.DispatchDue(context.Background()))

	require.Empty(t, d.requests)
	require.False(t, st.orders[1].BuyInProgress)
	require.True(t, st.orders[1].BelowFloor)
	require.Equal(t, "no eligible platforms", st.released[1])
}

func TestDispatchDueStoreErrorIsReported(t *testing.T) {
	st := &erroringStore{err: errors.New("db down")}
	m := newMachine(st, &fakeResources{}, &scriptedDispatcher{})
	require.Error(t, m.DispatchDue(context.Background()))
}

type erroringStore struct {
	err error
}

func (s *erroringStore) ListForResourceCheck(ctx context.Context) ([]*models.StandingOrder, error) {
	return nil, s.err
}
func (s *erroringStore) UpdateResources(ctx context.Context, id int64, energy, bandwidth int64) error {
	return s.err
}
func (s *erroringStore) ListBelowFloor(ctx context.Context) ([]*models.StandingOrder, error) {
	return nil, s.err
}
func (s *erroringStore) ClaimForDispatch(ctx context.Context, id int64) (bool, error) {
	return false, s.err
}
func (s *erroringStore) CompleteCycle(ctx context.Context, id int64, energyBought int64) error {
	return s.err
}
func (s *erroringStore) ReleaseDispatch(ctx context.Context, id int64, notes string) error {
	return s.err
}
func (s *erroringStore) ListEligiblePlatforms(ctx context.Context, resourceAmount int64) ([]models.Platform, error) {
	return nil, s.err
}
