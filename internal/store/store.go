package store

import (
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store is the durable keyed store behind every component. Entity fields are
// single-writer: payment status is written by the intake pipeline, standing
// order flags by the subscription machine, platform orders are append-only.
type Store struct {
	Pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{Pool: pool}
}
