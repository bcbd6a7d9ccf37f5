package store

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// ErrNotFound is returned when a keyed lookup matches no row.
var ErrNotFound = errors.New("store: not found")

func (s *Store) ListActiveBots(ctx context.Context) ([]*models.Bot, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, receive_wallet, chat_id, active
		FROM bots WHERE active ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Bot
	for rows.Next() {
		var b models.Bot
		if err := rows.Scan(&b.ID, &b.Name, &b.ReceiveWallet, &b.ChatID, &b.Active); err != nil {
			return nil, err
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

// GetPackageByTriggerPrice is an exact-price lookup; no tolerance. A miss is
// ErrNotFound, which callers treat as a terminal classification.
func (s *Store) GetPackageByTriggerPrice(ctx context.Context, botID int64, price decimal.Decimal) (*models.Package, error) {
	row := s.Pool.QueryRow(ctx, `
		SELECT id, bot_id, name, trigger_price::text, energy_amount, duration_days, active
		FROM packages
		WHERE bot_id=$1 AND trigger_price=$2::numeric AND active
	`, botID, price.String())

	var p models.Package
	var trigger string
	if err := row.Scan(&p.ID, &p.BotID, &p.Name, &trigger, &p.EnergyAmount, &p.DurationDays, &p.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	tp, err := decimal.NewFromString(trigger)
	if err != nil {
		return nil, err
	}
	p.TriggerPrice = tp
	return &p, nil
}

// ListEligiblePlatforms returns active platforms whose advisory balance covers
// the requested amount, ordered by ascending priority. The balance filter is
// best-effort; it never hard-gates an order.
func (s *Store) ListEligiblePlatforms(ctx context.Context, resourceAmount int64) ([]models.Platform, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, name, kind, priority, available_balance, uid, auth_material, permission_id, active
		FROM platforms
		WHERE active AND available_balance >= $1
		ORDER BY priority ASC
	`, resourceAmount)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Platform
	for rows.Next() {
		var p models.Platform
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Kind, &p.Priority, &p.AvailableBalance,
			&p.UID, &p.AuthMaterial, &p.PermissionID, &p.Active,
		); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
