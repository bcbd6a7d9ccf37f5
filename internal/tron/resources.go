package tron

import "context"

// Resources is the live resource reading for one account.
type Resources struct {
	Activated          bool
	EnergyRemaining    int64
	BandwidthRemaining int64
}

// AccountResources fetches the current energy and bandwidth balance for an
// address via the Tronscan account endpoint.
func (c *Client) AccountResources(ctx context.Context, address string) (*Resources, error) {
	endpoint := c.tronscanBase + "/api/accountv2?address=" + address

	var resp accountResponse
	if err := c.getJSON(ctx, endpoint, randomKey(c.apiKeys), &resp); err != nil {
		return nil, err
	}
	return &Resources{
		Activated:          resp.Activated,
		EnergyRemaining:    resp.Bandwidth.EnergyRemaining,
		BandwidthRemaining: resp.Bandwidth.FreeNetRemaining + resp.Bandwidth.NetRemaining,
	}, nil
}

type accountResponse struct {
	Activated bool `json:"activated"`
	Bandwidth struct {
		FreeNetRemaining int64 `json:"freeNetRemaining"`
		NetRemaining     int64 `json:"netRemaining"`
		EnergyRemaining  int64 `json:"energyRemaining"`
	} `json:"bandwidth"`
}
