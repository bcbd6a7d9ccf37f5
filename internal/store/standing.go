package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ZRnown/energy/internal/models"
)

func (s *Store) GetStandingOrderByWallet(ctx context.Context, wallet string) (*models.StandingOrder, error) {
	row := s.Pool.QueryRow(ctx, standingSelect+` WHERE wallet_address=$1`, wallet)
	o, err := scanStandingOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// ListForResourceCheck returns active subscriptions with no dispatch in
// flight; these are the only rows the resource tick may touch.
func (s *Store) ListForResourceCheck(ctx context.Context) ([]*models.StandingOrder, error) {
	return s.listStanding(ctx, ` WHERE active AND NOT buy_in_progress ORDER BY id`)
}

// ListBelowFloor returns subscriptions eligible for a dispatch attempt.
// Rows with buy_in_progress set are excluded entirely.
func (s *Store) ListBelowFloor(ctx context.Context) ([]*models.StandingOrder, error) {
	return s.listStanding(ctx, ` WHERE active AND below_floor AND NOT buy_in_progress ORDER BY id`)
}

func (s *Store) ListStandingOrders(ctx context.Context) ([]*models.StandingOrder, error) {
	return s.listStanding(ctx, ` WHERE active ORDER BY id`)
}

func (s *Store) listStanding(ctx context.Context, where string) ([]*models.StandingOrder, error) {
	rows, err := s.Pool.Query(ctx, standingSelect+where)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.StandingOrder
	for rows.Next() {
		o, err := scanStandingOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// UpdateResources records the latest live resource reading and flips
// below_floor when the energy level crosses under the configured floor.
func (s *Store) UpdateResources(ctx context.Context, id int64, energy, bandwidth int64) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE standing_orders
		SET current_energy=$2, current_bandwidth=$3,
			below_floor = ($2 < resource_floor),
			updated_at=now()
		WHERE id=$1 AND NOT buy_in_progress
	`, id, energy, bandwidth)
	return err
}

// ClaimForDispatch atomically moves one below-floor subscription into the
// in-flight state. Two overlapping ticks cannot both claim the same row: the
// predicate and the flag write happen in a single statement.
func (s *Store) ClaimForDispatch(ctx context.Context, id int64) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE standing_orders
		SET buy_in_progress=true, updated_at=now()
		WHERE id=$1 AND active AND below_floor AND NOT buy_in_progress
	`, id)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// CompleteCycle clears the in-flight flag after a successful dispatch and
// credits the cycle counters. below_floor resets so the row returns to idle
// until the next resource reading says otherwise.
func (s *Store) CompleteCycle(ctx context.Context, id int64, energyBought int64) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE standing_orders
		SET buy_in_progress=false, below_floor=false,
			cycles_purchased = cycles_purchased + 1,
			current_energy = current_energy + $2,
			notice_pending=true, last_attempt_notes='', updated_at=now()
		WHERE id=$1 AND buy_in_progress
	`, id, energyBought)
	return err
}

// ReleaseDispatch clears the in-flight flag after an exhausted attempt,
// leaving below_floor set so the next tick retries from scratch.
func (s *Store) ReleaseDispatch(ctx context.Context, id int64, notes string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE standing_orders
		SET buy_in_progress=false, last_attempt_notes=$2, updated_at=now()
		WHERE id=$1 AND buy_in_progress
	`, id, notes)
	return err
}

// AddQuota credits purchased cycles to a subscription, creating the row on
// the wallet's first payment.
func (s *Store) AddQuota(ctx context.Context, botID int64, wallet string, cycles int64) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO standing_orders (bot_id, wallet_address, cycles_limit, active)
		VALUES ($1, $2, $3, true)
		ON CONFLICT (wallet_address)
		DO UPDATE SET cycles_limit = standing_orders.cycles_limit + EXCLUDED.cycles_limit,
			updated_at=now()
	`, botID, wallet, cycles)
	return err
}

func (s *Store) ListUnnotifiedStandingOrders(ctx context.Context) ([]*models.StandingOrder, error) {
	return s.listStanding(ctx, ` WHERE notice_pending ORDER BY id`)
}

func (s *Store) MarkStandingOrderNotified(ctx context.Context, id int64) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE standing_orders SET notice_pending=false, updated_at=now() WHERE id=$1
	`, id)
	return err
}

const standingSelect = `
	SELECT id, bot_id, wallet_address, chat_id, resource_floor, resource_per_cycle,
		duration_days, cycles_purchased, cycles_limit, current_energy, current_bandwidth,
		below_floor, buy_in_progress, last_attempt_notes, notice_pending, active,
		created_at, updated_at
	FROM standing_orders`

func scanStandingOrder(row pgx.Row) (*models.StandingOrder, error) {
	var o models.StandingOrder
	if err := row.Scan(
		&o.ID, &o.BotID, &o.WalletAddress, &o.ChatID, &o.ResourceFloor,
		&o.ResourcePerCycle, &o.DurationDays, &o.CyclesPurchased, &o.CyclesLimit,
		&o.CurrentEnergy, &o.CurrentBandwidth, &o.BelowFloor, &o.BuyInProgress,
		&o.LastAttemptNotes, &o.NoticePending, &o.Active, &o.CreatedAt, &o.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &o, nil
}
