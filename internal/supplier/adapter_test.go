package supplier

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ZRnown/energy/internal/models"
)

func testRegistry(t *testing.T, base string) *Registry {
	t.Helper()
	return NewRegistry(Config{
		NeeCCBase:      base,
		RentEnergyBase: base,
		SelfStakeBase:  base,
		TronGasBase:    base,
	}, 5*time.Second)
}

func TestRegistryCoversAllKinds(t *testing.T) {
	r := testRegistry(t, "http://localhost")
	for _, kind := range []models.PlatformKind{
		models.KindNeeCC, models.KindRentEnergy, models.KindSelfStake, models.KindTronGas,
	} {
		a, ok := r.ForKind(kind)
		require.True(t, ok, "missing adapter for %s", kind)
		require.Equal(t, kind, a.Kind())
	}
	_, ok := r.ForKind("bogus")
	require.False(t, ok)
}

func TestSignParams(t *testing.T) {
	params := map[string]string{
		"uid":    "42",
		"amount": "131000",
		"empty":  "",
		"sign":   "should-be-ignored",
	}
	got := signParams(params)

	// Key order, skipping sign and empty values: amount131000uid42.
	sum := md5.Sum([]byte("amount131000uid42"))
	require.Equal(t, hex.EncodeToString(sum[:]), got)
}

func TestNeeCCPlaceOrder(t *testing.T) {
	var captured map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/openapi/v2/order/submit", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status": 200,
			"data":   map[string]string{"order_no": "NE-123"},
		})
	}))
	defer srv.Close()

	a, _ := testRegistry(t, srv.URL).ForKind(models.KindNeeCC)
	receipt, err := a.PlaceOrder(context.Background(), Credentials{UID: "42"}, Request{
		DestinationAddress: "TDest",
		ResourceAmount:     131000,
		DurationDays:       1,
	})
	require.NoError(t, err)
	require.Equal(t, "NE-123", receipt.Ref)

	require.Equal(t, "42", captured["uid"])
	require.Equal(t, "131000", captured["amount"])
	require.Equal(t, "1", captured["freeze_day"])
	require.Equal(t, "TDest", captured["receive_address"])

	// The signature must verify against the other submitted fields.
	keys := make([]string, 0, len(captured))
	for k := range captured {
		if k == "sign" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var buf []byte
	for _, k := range keys {
		if captured[k] == "" {
			continue
		}
		buf = append(buf, k...)
		buf = append(buf, captured[k]...)
	}
	sum := md5.Sum(buf)
	require.Equal(t, hex.EncodeToString(sum[:]), captured["sign"])
}

func TestNeeCCRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"status": 500, "msg": "insufficient balance"})
	}))
	defer srv.Close()

	a, _ := testRegistry(t, srv.URL).ForKind(models.KindNeeCC)
	_, err := a.PlaceOrder(context.Background(), Credentials{UID: "42"}, Request{
		DestinationAddress: "TDest", ResourceAmount: 131000, DurationDays: 1,
	})
	require.ErrorContains(t, err, "insufficient balance")
}

func TestRentEnergyPlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		require.Equal(t, "getEnergy", q.Get("api"))
		require.Equal(t, "key-1", q.Get("apikey"))
		require.Equal(t, "TDest", q.Get("address"))
		require.Equal(t, "65000", q.Get("amount"))
		require.Equal(t, "3day", q.Get("type"))
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "success", "txid": "RE-9"})
	}))
	defer srv.Close()

	a, _ := testRegistry(t, srv.URL).ForKind(models.KindRentEnergy)
	require.Equal(t, int64(33000), a.MinOrder())

	receipt, err := a.PlaceOrder(context.Background(), Credentials{Secret: "key-1"}, Request{
		DestinationAddress: "TDest",
		ResourceAmount:     65000,
		DurationDays:       3,
	})
	require.NoError(t, err)
	require.Equal(t, "RE-9", receipt.Ref)
}

func TestRentEnergyRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "error"})
	}))
	defer srv.Close()

	a, _ := testRegistry(t, srv.URL).ForKind(models.KindRentEnergy)
	_, err := a.PlaceOrder(context.Background(), Credentials{Secret: "key-1"}, Request{
		DestinationAddress: "TDest", ResourceAmount: 33000, DurationDays: 1,
	})
	require.Error(t, err)
}

func TestSelfStakePlaceOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/delegate", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Equal(t, "priv-key", body["pri"])
		require.Equal(t, "TOwner", body["fromaddress"])
		require.Equal(t, "TDest", body["receiveaddress"])
		require.Equal(t, "ENERGY", body["resourcename"])
		require.EqualValues(t, 2, body["permissionid"])
		_ = json.NewEncoder(w).Encode(map[string]any{
			"code": 200,
			"data": map[string]any{"txid": "SS-5", "use_trx": 3.2},
		})
	}))
	defer srv.Close()

	a, _ := testRegistry(t, srv.URL).ForKind(models.KindSelfStake)
	receipt, err := a.PlaceOrder(context.Background(), Credentials{
		UID: "TOwner", Secret: "priv-key", PermissionID: 2,
	}, Request{
		DestinationAddress: "TDest",
		ResourceAmount:     131000,
		DurationDays:       1,
	})
	require.NoError(t, err)
	require.Equal(t, "SS-5", receipt.Ref)
	require.Equal(t, "3.2", receipt.Cost.String())
}

func TestTronGasRentTime(t *testing.T) {
	cases := []struct {
		name      string
		days      int
		wantHours float64
	}{
		{"one day maps to a single rent unit", 1, 1},
		{"three days map to 72 hours", 3, 72},
		{"other durations fall back to one unit", 7, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, "/api/pay", r.URL.Path)
				var body map[string]any
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, "user", body["username"])
				require.Equal(t, "pass", body["password"])
				require.Equal(t, tc.wantHours, body["rentTime"])
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code": 10000,
					"data": map[string]any{"orderId": "TG-1", "orderMoney": 4.5},
				})
			}))
			defer srv.Close()

			a, _ := testRegistry(t, srv.URL).ForKind(models.KindTronGas)
			receipt, err := a.PlaceOrder(context.Background(), Credentials{UID: "user", Secret: "pass"}, Request{
				DestinationAddress: "TDest",
				ResourceAmount:     131000,
				DurationDays:       tc.days,
			})
			require.NoError(t, err)
			require.Equal(t, "TG-1", receipt.Ref)
		})
	}
}

func TestTronGasRejection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"code": 40001, "msg": "bad credentials"})
	}))
	defer srv.Close()

	a, _ := testRegistry(t, srv.URL).ForKind(models.KindTronGas)
	_, err := a.PlaceOrder(context.Background(), Credentials{UID: "user", Secret: "wrong"}, Request{
		DestinationAddress: "TDest", ResourceAmount: 131000, DurationDays: 1,
	})
	require.ErrorContains(t, err, "bad credentials")
}

func TestHTTPErrorSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	a, _ := testRegistry(t, srv.URL).ForKind(models.KindNeeCC)
	_, err := a.PlaceOrder(context.Background(), Credentials{UID: "42"}, Request{
		DestinationAddress: "TDest", ResourceAmount: 131000, DurationDays: 1,
	})
	require.ErrorContains(t, err, "429")
	require.ErrorContains(t, err, "rate limited")
}
