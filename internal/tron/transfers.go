package tron

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"
)

// PageLimit is the Tronscan transfer page size.
const PageLimit = 50

type TokenInfo struct {
	TokenID   string
	TokenAbbr string
}

// TRXTransfer is one row from the Tronscan transfer listing.
type TRXTransfer struct {
	Hash        string
	FromAddress string
	ToAddress   string
	AmountSun   int64
	ContractRet string
	Timestamp   time.Time
	Token       TokenInfo
}

type TRXTransferPage struct {
	Total int64
	Items []TRXTransfer
}

// TRXTransfers fetches one page of TRX transfers into wallet for the window
// [startMs, endMs]. Page numbering starts at zero.
func (c *Client) TRXTransfers(ctx context.Context, wallet string, startMs, endMs int64, page int) (*TRXTransferPage, error) {
	v := url.Values{}
	v.Set("sort", "-timestamp")
	v.Set("count", "true")
	v.Set("limit", strconv.Itoa(PageLimit))
	v.Set("start", strconv.Itoa(page*PageLimit))
	v.Set("address", wallet)
	v.Set("toAddress", wallet)
	v.Set("tokens", "_")
	v.Set("start_timestamp", strconv.FormatInt(startMs, 10))
	v.Set("end_timestamp", strconv.FormatInt(endMs, 10))
	endpoint := c.tronscanBase + "/api/new/transfer?" + v.Encode()

	var resp tronscanTransferResponse
	if err := c.getJSON(ctx, endpoint, randomKey(c.apiKeys), &resp); err != nil {
		return nil, err
	}

	out := &TRXTransferPage{Total: resp.Total}
	for _, tx := range resp.Data {
		out.Items = append(out.Items, TRXTransfer{
			Hash:        tx.TransactionHash,
			FromAddress: tx.TransferFromAddress,
			ToAddress:   tx.TransferToAddress,
			AmountSun:   tx.Amount,
			ContractRet: tx.ContractRet,
			Timestamp:   time.UnixMilli(tx.Timestamp).UTC(),
			Token: TokenInfo{
				TokenID:   tx.TokenInfo.TokenID,
				TokenAbbr: tx.TokenInfo.TokenAbbr,
			},
		})
	}
	return out, nil
}

// TRC20Transfer is one row from the TronGrid TRC20 transfer listing.
type TRC20Transfer struct {
	TransactionID string
	FromAddress   string
	ToAddress     string
	Type          string
	ValueRaw      string
	Contract      string
	Timestamp     time.Time
}

type TRC20TransferPage struct {
	Items    []TRC20Transfer
	NextLink string
}

// TRC20Transfers fetches one page of inbound TRC20 transfers. Pass the page's
// NextLink to continue; an empty nextURL starts from minTimestampMs.
func (c *Client) TRC20Transfers(ctx context.Context, wallet, contract string, minTimestampMs int64, nextURL string) (*TRC20TransferPage, error) {
	endpoint := nextURL
	if endpoint == "" {
		endpoint = fmt.Sprintf(
			"%s/v1/accounts/%s/transactions/trc20?limit=50&only_to=true&min_timestamp=%d&contract_address=%s",
			c.trongridBase, wallet, minTimestampMs, contract,
		)
	}

	var resp trongridTRC20Response
	if err := c.getJSON(ctx, endpoint, randomKey(c.gridAPIKeys), &resp); err != nil {
		return nil, err
	}

	out := &TRC20TransferPage{NextLink: resp.Meta.Links.Next}
	for _, tx := range resp.Data {
		out.Items = append(out.Items, TRC20Transfer{
			TransactionID: tx.TransactionID,
			FromAddress:   tx.From,
			ToAddress:     tx.To,
			Type:          tx.Type,
			ValueRaw:      tx.Value,
			Contract:      contract,
			Timestamp:     time.UnixMilli(tx.BlockTimestamp).UTC(),
		})
	}
	return out, nil
}

// API response types

type tronscanTransferResponse struct {
	Total int64              `json:"total"`
	Data  []tronscanTransfer `json:"data"`
}

type tronscanTransfer struct {
	TransactionHash     string `json:"transactionHash"`
	TransferFromAddress string `json:"transferFromAddress"`
	TransferToAddress   string `json:"transferToAddress"`
	Amount              int64  `json:"amount"`
	ContractRet         string `json:"contractRet"`
	Timestamp           int64  `json:"timestamp"`
	TokenInfo           struct {
		TokenID   string `json:"tokenId"`
		TokenAbbr string `json:"tokenAbbr"`
	} `json:"tokenInfo"`
}

type trongridTRC20Response struct {
	Data []struct {
		TransactionID  string `json:"transaction_id"`
		From           string `json:"from"`
		To             string `json:"to"`
		Type           string `json:"type"`
		Value          string `json:"value"`
		BlockTimestamp int64  `json:"block_timestamp"`
	} `json:"data"`
	Meta struct {
		Links struct {
			Next string `json:"next"`
		} `json:"links"`
	} `json:"meta"`
}
