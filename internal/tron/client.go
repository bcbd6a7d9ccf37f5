// Package tron wraps the Tronscan and TronGrid HTTP APIs used for payment
// polling and account resource checks.
package tron

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

type Client struct {
	tronscanBase string
	trongridBase string
	apiKeys      []string
	gridAPIKeys  []string
	client       *http.Client
}

func NewClient(tronscanBase, trongridBase string, apiKeys, gridAPIKeys []string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		tronscanBase: strings.TrimRight(tronscanBase, "/"),
		trongridBase: strings.TrimRight(trongridBase, "/"),
		apiKeys:      apiKeys,
		gridAPIKeys:  gridAPIKeys,
		client:       &http.Client{Timeout: timeout},
	}
}

// randomKey rotates across the configured keys to spread rate-limit budgets.
func randomKey(keys []string) string {
	if len(keys) == 0 {
		return ""
	}
	return keys[rand.Intn(len(keys))]
}

func (c *Client) getJSON(ctx context.Context, endpoint, apiKey string, out any) error {
	return retry.Do(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		if apiKey != "" {
			req.Header.Set("TRON-PRO-API-KEY", apiKey)
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			body, _ := io.ReadAll(resp.Body)
			msg := strings.TrimSpace(string(body))
			if msg != "" {
				return fmt.Errorf("tron http status %d: %s", resp.StatusCode, msg)
			}
			return fmt.Errorf("tron http status %d", resp.StatusCode)
		}
		return json.NewDecoder(resp.Body).Decode(out)
	}, retry.Attempts(3), retry.Delay(200*time.Millisecond), retry.Context(ctx))
}
