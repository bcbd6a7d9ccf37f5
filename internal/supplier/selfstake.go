package supplier

import (
	"context"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// selfStake delegates energy from our own staked wallet through the internal
// delegation service. Unlike the commercial suppliers it needs the wallet's
// private key (the decrypted credential secret) and a permission id.
type selfStake struct {
	base   string
	client *http.Client
}

func (a *selfStake) Kind() models.PlatformKind { return models.KindSelfStake }

func (a *selfStake) MinOrder() int64 { return 0 }

func (a *selfStake) PlaceOrder(ctx context.Context, creds Credentials, req Request) (*Receipt, error) {
	body := map[string]any{
		"pri":            creds.Secret,
		"fromaddress":    creds.UID,
		"receiveaddress": req.DestinationAddress,
		"resourcename":   "ENERGY",
		"resourceamount": req.ResourceAmount,
		"resourcetype":   1,
		"permissionid":   creds.PermissionID,
	}

	var resp struct {
		Code int `json:"code"`
		Data struct {
			TxID   string  `json:"txid"`
			UseTRX float64 `json:"use_trx"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.client, a.base+"/delegate", body, &resp); err != nil {
		return nil, err
	}
	if resp.Code != 200 {
		return nil, errors.New("selfstake delegation rejected")
	}
	return &Receipt{Ref: resp.Data.TxID, Cost: decimal.NewFromFloat(resp.Data.UseTRX)}, nil
}
