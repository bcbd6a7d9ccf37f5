// Package supplier holds one adapter per rental platform protocol. Adapters
// normalize wildly different request shapes and response envelopes into a
// single place-order capability consumed by the dispatcher.
package supplier

import (
	"context"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// Credentials is the decrypted auth material for one platform row.
type Credentials struct {
	UID          string
	Secret       string
	PermissionID int
}

type Request struct {
	DestinationAddress string
	ResourceAmount     int64
	DurationDays       int
}

type Receipt struct {
	Ref  string
	Cost decimal.Decimal
}

type Adapter interface {
	Kind() models.PlatformKind
	// MinOrder is the supplier's minimum order size; requests below it are
	// clamped up before the call. Zero means no floor.
	MinOrder() int64
	PlaceOrder(ctx context.Context, creds Credentials, req Request) (*Receipt, error)
}

// Config carries the per-supplier endpoints.
type Config struct {
	NeeCCBase      string
	RentEnergyBase string
	SelfStakeBase  string
	TronGasBase    string
}

type Registry struct {
	adapters map[models.PlatformKind]Adapter
}

func NewRegistry(cfg Config, timeout time.Duration) *Registry {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	r := &Registry{adapters: make(map[models.PlatformKind]Adapter)}
	for _, a := range []Adapter{
		&neeCC{base: cfg.NeeCCBase, client: client},
		&rentEnergy{base: cfg.RentEnergyBase, client: client},
		&selfStake{base: cfg.SelfStakeBase, client: client},
		&tronGas{base: cfg.TronGasBase, client: client},
	} {
		r.adapters[a.Kind()] = a
	}
	return r
}

func (r *Registry) ForKind(kind models.PlatformKind) (Adapter, bool) {
	a, ok := r.adapters[kind]
	return a, ok
}
