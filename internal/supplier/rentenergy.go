package supplier

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// rentEnergy places orders via the RentEnergysBot wallet API: a plain GET
// with the api key in the query string. The supplier refuses orders below
// 33000 energy, so requests are clamped up to that floor.
type rentEnergy struct {
	base   string
	client *http.Client
}

func (a *rentEnergy) Kind() models.PlatformKind { return models.KindRentEnergy }

func (a *rentEnergy) MinOrder() int64 { return 33000 }

func (a *rentEnergy) PlaceOrder(ctx context.Context, creds Credentials, req Request) (*Receipt, error) {
	rentType := "hour"
	switch req.DurationDays {
	case 1:
		rentType = "day"
	case 3:
		rentType = "3day"
	}

	v := url.Values{}
	v.Set("api", "getEnergy")
	v.Set("apikey", creds.Secret)
	v.Set("address", req.DestinationAddress)
	v.Set("amount", fmt.Sprintf("%d", req.ResourceAmount))
	v.Set("type", rentType)

	var resp struct {
		Status string `json:"status"`
		TxID   string `json:"txid"`
	}
	if err := getJSON(ctx, a.client, a.base+"?"+v.Encode(), &resp); err != nil {
		return nil, err
	}
	if resp.Status != "success" {
		return nil, errors.New("rentenergy order rejected")
	}
	return &Receipt{Ref: resp.TxID, Cost: decimal.Zero}, nil
}
