package supplier

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZRnown/energy/internal/models"
)

// neeCC places orders via the nee.cc open API: JSON POST with an MD5
// signature over the sorted, non-empty request params.
type neeCC struct {
	base   string
	client *http.Client
}

func (a *neeCC) Kind() models.PlatformKind { return models.KindNeeCC }

func (a *neeCC) MinOrder() int64 { return 0 }

func (a *neeCC) PlaceOrder(ctx context.Context, creds Credentials, req Request) (*Receipt, error) {
	params := map[string]string{
		"uid":             creds.UID,
		"resource_type":   "0",
		"receive_address": req.DestinationAddress,
		"amount":          strconv.FormatInt(req.ResourceAmount, 10),
		"freeze_day":      strconv.Itoa(req.DurationDays),
		"time":            strconv.FormatInt(time.Now().Unix(), 10),
	}
	params["sign"] = signParams(params)

	var resp struct {
		Status int    `json:"status"`
		Msg    string `json:"msg"`
		Data   struct {
			OrderNo string `json:"order_no"`
		} `json:"data"`
	}
	if err := postJSON(ctx, a.client, a.base+"/openapi/v2/order/submit", params, &resp); err != nil {
		return nil, err
	}
	if resp.Status != 200 {
		if resp.Msg != "" {
			return nil, fmt.Errorf("neecc order rejected: %s", resp.Msg)
		}
		return nil, errors.New("neecc order rejected")
	}
	return &Receipt{Ref: resp.Data.OrderNo, Cost: decimal.Zero}, nil
}

// signParams concatenates key+value pairs in key order, skipping sign fields
// and empty values, and hashes with MD5.
func signParams(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if k == "sign" || k == "sign_type" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var buf []byte
	for _, k := range keys {
		if params[k] == "" {
			continue
		}
		buf = append(buf, k...)
		buf = append(buf, params[k]...)
	}
	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}
