// Package dispatch is the platform-fallback engine: it walks a
// priority-ordered candidate list and places at most one supplier order per
// call.
package dispatch

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/models"
	"github.com/ZRnown/energy/internal/supplier"
)

type OrderStore interface {
	InsertPlatformOrder(ctx context.Context, o *models.PlatformOrder) error
}

type CredentialOpener interface {
	Open(ciphertext string) (string, error)
}

type AdapterRegistry interface {
	ForKind(kind models.PlatformKind) (supplier.Adapter, bool)
}

type Request struct {
	DestinationAddress string
	ResourceAmount     int64
	DurationDays       int
	Source             models.OrderSource
	// Candidates must arrive sorted by ascending priority; the dispatcher
	// does not re-sort.
	Candidates []models.Platform
}

type Result struct {
	Success      bool
	PlatformID   int64
	SupplierRef  string
	Cost         decimal.Decimal
	FailureNotes string
}

type Dispatcher struct {
	Orders      OrderStore
	Creds       CredentialOpener
	Registry    AdapterRegistry
	CallTimeout time.Duration
	Log         *zap.Logger
}

// Dispatch tries each candidate in order and stops at the first success.
// It records the PlatformOrder itself but never mutates the owning Payment or
// StandingOrder; the caller owns those transitions.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	var notes []string

	for _, platform := range req.Candidates {
		secret, err := d.Creds.Open(platform.AuthMaterial)
		if err != nil || secret == "" {
			// Not a supplier failure: skip the candidate and leave a
			// note on the owning entity.
			credentialFailures.WithLabelValues(string(platform.Kind)).Inc()
			notes = append(notes, fmt.Sprintf("%s: platform credential invalid", platform.Name))
			continue
		}

		adapter, ok := d.Registry.ForKind(platform.Kind)
		if !ok {
			notes = append(notes, fmt.Sprintf("%s: unsupported platform kind %q", platform.Name, platform.Kind))
			continue
		}

		amount := req.ResourceAmount
		if min := adapter.MinOrder(); min > 0 && amount < min {
			amount = min
		}

		attempts.WithLabelValues(string(platform.Kind)).Inc()
		receipt, err := d.placeOrder(ctx, adapter, supplier.Credentials{
			UID:          platform.UID,
			Secret:       secret,
			PermissionID: platform.PermissionID,
		}, supplier.Request{
			DestinationAddress: req.DestinationAddress,
			ResourceAmount:     amount,
			DurationDays:       req.DurationDays,
		})
		if err != nil {
			failures.WithLabelValues(string(platform.Kind)).Inc()
			notes = append(notes, fmt.Sprintf("%s: %v", platform.Name, err))
			continue
		}

		order := &models.PlatformOrder{
			DispatchID:       uuid.NewString(),
			PlatformID:       platform.ID,
			ReceivingAddress: req.DestinationAddress,
			SupplierOrderRef: receipt.Ref,
			ResourceAmount:   amount,
			DurationDays:     req.DurationDays,
			Source:           req.Source,
			CostTRX:          receipt.Cost,
			PlacedAt:         time.Now().UTC(),
		}
		if err := d.Orders.InsertPlatformOrder(ctx, order); err != nil {
			// The supplier order exists but the local record does not.
			// No exactly-once guarantee across this boundary; surface it
			// for reconciliation instead of dropping it.
			unrecordedOrders.Inc()
			d.Log.Error("supplier order placed but record insert failed",
				zap.String("dispatch_id", order.DispatchID),
				zap.Int64("platform_id", platform.ID),
				zap.String("supplier_ref", receipt.Ref),
				zap.Error(err))
		}

		successes.WithLabelValues(string(platform.Kind)).Inc()
		return Result{
			Success:     true,
			PlatformID:  platform.ID,
			SupplierRef: receipt.Ref,
			Cost:        receipt.Cost,
		}
	}

	exhausted.Inc()
	return Result{FailureNotes: strings.Join(notes, "; ")}
}

func (d *Dispatcher) placeOrder(ctx context.Context, adapter supplier.Adapter, creds supplier.Credentials, req supplier.Request) (*supplier.Receipt, error) {
	if d.CallTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.CallTimeout)
		defer cancel()
	}
	return adapter.PlaceOrder(ctx, creds, req)
}
