package store

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// InsertPayment records a newly observed transfer. Replayed tx ids are
// silently absorbed by the tx_id primary key; the bool reports whether a row
// was actually written.
func (s *Store) InsertPayment(ctx context.Context, p *models.Payment) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		INSERT INTO payments (
			tx_id, bot_id, from_address, to_address, coin, amount,
			observed_at, status, notes
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (tx_id) DO NOTHING
	`,
		p.TxID,
		p.BotID,
		p.FromAddress,
		p.ToAddress,
		p.Coin,
		p.Amount.String(),
		p.ObservedAt,
		p.Status,
		p.Notes,
	)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// SeenTxIDs returns the subset of ids already present in the payments table.
func (s *Store) SeenTxIDs(ctx context.Context, ids []string) (map[string]struct{}, error) {
	seen := make(map[string]struct{}, len(ids))
	if len(ids) == 0 {
		return seen, nil
	}
	rows, err := s.Pool.Query(ctx, `SELECT tx_id FROM payments WHERE tx_id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		seen[id] = struct{}{}
	}
	return seen, rows.Err()
}

func (s *Store) ListPendingPayments(ctx context.Context, coin models.Coin, toAddress string) ([]*models.Payment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT tx_id, bot_id, from_address, to_address, coin, amount::text,
			observed_at, status, notes, platform_id, package_id, notice_sent,
			created_at, updated_at
		FROM payments
		WHERE status='pending' AND coin=$1 AND to_address=$2
		ORDER BY observed_at ASC
	`, coin, toAddress)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *Store) GetPayment(ctx context.Context, txID string) (*models.Payment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT tx_id, bot_id, from_address, to_address, coin, amount::text,
			observed_at, status, notes, platform_id, package_id, notice_sent,
			created_at, updated_at
		FROM payments WHERE tx_id=$1
	`, txID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	payments, err := scanPayments(rows)
	if err != nil {
		return nil, err
	}
	if len(payments) == 0 {
		return nil, ErrNotFound
	}
	return payments[0], nil
}

func (s *Store) ListPaymentsByStatus(ctx context.Context, status models.PaymentStatus, limit int) ([]*models.Payment, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT tx_id, bot_id, from_address, to_address, coin, amount::text,
			observed_at, status, notes, platform_id, package_id, notice_sent,
			created_at, updated_at
		FROM payments WHERE status=$1
		ORDER BY observed_at DESC LIMIT $2
	`, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

// MarkPaymentFailed is a terminal classification: only pending rows move.
func (s *Store) MarkPaymentFailed(ctx context.Context, txID, notes string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE payments SET status='failed', notes=$2, updated_at=now()
		WHERE tx_id=$1 AND status='pending'
	`, txID, notes)
	return err
}

// MarkPaymentFulfilled transitions pending -> fulfilled exactly once.
// platformID and packageID are nil for quota purchases, which bypass the
// dispatcher.
func (s *Store) MarkPaymentFulfilled(ctx context.Context, txID string, platformID, packageID *int64, notes string) (bool, error) {
	res, err := s.Pool.Exec(ctx, `
		UPDATE payments
		SET status='fulfilled', platform_id=$2, package_id=$3, notes=$4,
			notice_sent=false, updated_at=now()
		WHERE tx_id=$1 AND status='pending'
	`, txID, platformID, packageID, notes)
	if err != nil {
		return false, err
	}
	return res.RowsAffected() > 0, nil
}

// RecordPaymentNotes leaves the payment pending for the next tick.
func (s *Store) RecordPaymentNotes(ctx context.Context, txID, notes string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE payments SET notes=$2, updated_at=now()
		WHERE tx_id=$1 AND status='pending'
	`, txID, notes)
	return err
}

func (s *Store) ListUnnotifiedPayments(ctx context.Context) ([]*models.Payment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT tx_id, bot_id, from_address, to_address, coin, amount::text,
			observed_at, status, notes, platform_id, package_id, notice_sent,
			created_at, updated_at
		FROM payments WHERE status='fulfilled' AND notice_sent=false
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPayments(rows)
}

func (s *Store) MarkPaymentNotified(ctx context.Context, txID string) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE payments SET notice_sent=true, updated_at=now() WHERE tx_id=$1
	`, txID)
	return err
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanPayments(rows rowScanner) ([]*models.Payment, error) {
	var out []*models.Payment
	for rows.Next() {
		var p models.Payment
		var amount string
		var observedAt, createdAt, updatedAt time.Time
		if err := rows.Scan(
			&p.TxID,
			&p.BotID,
			&p.FromAddress,
			&p.ToAddress,
			&p.Coin,
			&amount,
			&observedAt,
			&p.Status,
			&p.Notes,
			&p.PlatformID,
			&p.PackageID,
			&p.NoticeSent,
			&createdAt,
			&updatedAt,
		); err != nil {
			return nil, err
		}
		amt, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		p.Amount = amt
		p.ObservedAt = observedAt
		p.CreatedAt = createdAt
		p.UpdatedAt = updatedAt
		out = append(out, &p)
	}
	return out, rows.Err()
}
