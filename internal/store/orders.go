package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// InsertPlatformOrder appends the durable fulfillment record. Rows are never
// updated after insert.
func (s *Store) InsertPlatformOrder(ctx context.Context, o *models.PlatformOrder) error {
	row := s.Pool.QueryRow(ctx, `
		INSERT INTO platform_orders (
			dispatch_id, platform_id, receiving_address, supplier_order_ref,
			resource_amount, duration_days, source, cost_trx, placed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id
	`,
		o.DispatchID,
		o.PlatformID,
		o.ReceivingAddress,
		o.SupplierOrderRef,
		o.ResourceAmount,
		o.DurationDays,
		o.Source,
		o.CostTRX.String(),
		o.PlacedAt,
	)
	return row.Scan(&o.ID)
}

func (s *Store) ListPlatformOrders(ctx context.Context, limit int) ([]*models.PlatformOrder, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, dispatch_id, platform_id, receiving_address, supplier_order_ref,
			resource_amount, duration_days, source, cost_trx::text, placed_at
		FROM platform_orders ORDER BY id DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PlatformOrder
	for rows.Next() {
		var o models.PlatformOrder
		var cost string
		var placedAt time.Time
		if err := rows.Scan(
			&o.ID, &o.DispatchID, &o.PlatformID, &o.ReceivingAddress,
			&o.SupplierOrderRef, &o.ResourceAmount, &o.DurationDays,
			&o.Source, &cost, &placedAt,
		); err != nil {
			return nil, err
		}
		c, err := decimal.NewFromString(cost)
		if err != nil {
			return nil, err
		}
		o.CostTRX = c
		o.PlacedAt = placedAt
		out = append(out, &o)
	}
	return out, rows.Err()
}
