package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// tronGas places orders via trongas.io: JSON POST authenticated by a plain
// username/password pair. Rent time is expressed in hours.
type tronGas struct {
	base   string
	client *http.Client
}

func (a *tronGas) Kind() models.PlatformKind { return models.KindTronGas }

func (a *tronGas) MinOrder() int64 { return 0 }

func (a *tronGas) PlaceOrder(ctx context.Context, creds Credentials, req Request) (*Receipt, error) {
	// Supplier quirk: a one-day rental is expressed as rentTime=1, a
	// three-day rental as 72 hours, anything else falls back to 1.
	rentHours := 1
	if req.DurationDays == 3 {
		rentHours = 72
	}

	body := map[string]any{
		"username":       creds.UID,
		"password":       creds.Secret,
		"resType":        "ENERGY",
		"payNums":        req.ResourceAmount,
		"rentTime":       rentHours,
		"resLock":        0,
		"receiveAddress": req.DestinationAddress,
	}

	var resp struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Data struct {
			OrderID    string  `json:"orderId"`
			OrderMoney float64 `json:"orderMoney"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.client, a.base+"/api/pay", body, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 10000 {
		if resp.Msg != "" {
			return nil, fmt.Errorf("trongas order rejected: %s", resp.Msg)
		}
		return nil, errors.New("trongas order rejected")
	}
	return &Receipt{Ref: resp.Data.OrderID, Cost: decimal.NewFromFloat(resp.Data.OrderMoney)}, nil
}
