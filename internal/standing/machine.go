// Package standing drives quota-based subscriptions: a resource-check tick
// marks wallets that fell below their energy floor, and a dispatch tick
// replenishes them through the order dispatcher.
package standing

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/dispatch"
	"github.com/ZRnown/energy/internal/models"
	"github.com/ZRnown/energy/internal/tron"
)

type Store interface {
	ListForResourceCheck(ctx context.Context) ([]*models.StandingOrder, error)
	UpdateResources(ctx context.Context, id int64, energy, bandwidth int64) error
	ListBelowFloor(ctx context.Context) ([]*models.StandingOrder, error)
	ClaimForDispatch(ctx context.Context, id int64) (bool, error)
	CompleteCycle(ctx context.Context, id int64, energyBought int64) error
	ReleaseDispatch(ctx context.Context, id int64, notes string) error
	ListEligiblePlatforms(ctx context.Context, resourceAmount int64) ([]models.Platform, error)
}

type ResourceSource interface {
	AccountResources(ctx context.Context, address string) (*tron.Resources, error)
}

type OrderDispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result
}

type Machine struct {
	Store       Store
	Source      ResourceSource
	Dispatcher  OrderDispatcher
	Concurrency int
	ItemBackoff time.Duration
	Log         *zap.Logger
}

// CheckResources refreshes the live resource reading for every active
// subscription with no dispatch in flight. Lookups fan out under a bounded
// goroutine limit with a small per-item backoff to stay under upstream rate
// limits.
func (m *Machine) CheckResources(ctx context.Context) error {
	orders, err := m.Store.ListForResourceCheck(ctx)
	if err != nil {
		return err
	}

	maxGoroutines := m.Concurrency
	if maxGoroutines <= 0 {
		maxGoroutines = 5
	}
	it := iter.Iterator[*models.StandingOrder]{MaxGoroutines: maxGoroutines}
	it.ForEach(orders, func(order **models.StandingOrder) {
		o := *order
		if m.ItemBackoff > 0 {
			time.Sleep(m.ItemBackoff)
		}
		res, err := m.Source.AccountResources(ctx, o.WalletAddress)
		if err != nil {
			m.Log.Warn("resource check failed",
				zap.String("wallet", o.WalletAddress), zap.Error(err))
			return
		}
		if !res.Activated {
			return
		}
		if err := m.Store.UpdateResources(ctx, o.ID, res.EnergyRemaining, res.BandwidthRemaining); err != nil {
			m.Log.Error("resource update failed",
				zap.Int64("standing_order", o.ID), zap.Error(err))
		}
	})
	return nil
}

// DispatchDue replenishes every below-floor subscription. A row must be
// claimed (buy_in_progress set atomically) before any supplier call; the
// claim is released exactly once whether the attempt succeeds or exhausts the
// candidate list.
func (m *Machine) DispatchDue(ctx context.Context) error {
	orders, err := m.Store.ListBelowFloor(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.CyclesLimit > 0 && o.CyclesPurchased >= o.CyclesLimit {
			// Quota exhausted: terminal skip, not an error.
			continue
		}
		if err := m.dispatchOne(ctx, o); err != nil {
			m.Log.Error("standing dispatch failed",
				zap.Int64("standing_order", o.ID), zap.Error(err))
		}
		if m.ItemBackoff > 0 {
			time.Sleep(m.ItemBackoff)
		}
	}
	return nil
}

func (m *Machine) dispatchOne(ctx context.Context, o *models.StandingOrder) error {
	claimed, err := m.Store.ClaimForDispatch(ctx, o.ID)
	if err != nil {
		return err
	}
	if !claimed {
		// Another tick got there first.
		return nil
	}

	candidates, err := m.Store.ListEligiblePlatforms(ctx, o.ResourcePerCycle)
	if err != nil {
		return m.Store.ReleaseDispatch(ctx, o.ID, "platform lookup failed: "+err.Error())
	}
	if len(candidates) == 0 {
		return m.Store.ReleaseDispatch(ctx, o.ID, "no eligible platforms")
	}

	result := m.Dispatcher.Dispatch(ctx, dispatch.Request{
		DestinationAddress: o.WalletAddress,
		ResourceAmount:     o.ResourcePerCycle,
		DurationDays:       o.DurationDays,
		Source:             models.SourceStanding,
		Candidates:         candidates,
	})
	if !result.Success {
		return m.Store.ReleaseDispatch(ctx, o.ID, result.FailureNotes)
	}

	m.Log.Info("standing order replenished",
		zap.Int64("standing_order", o.ID),
		zap.String("wallet", o.WalletAddress),
		zap.Int64("platform_id", result.PlatformID),
		zap.String("supplier_ref", result.SupplierRef))
	return m.Store.CompleteCycle(ctx, o.ID, o.ResourcePerCycle)
}
