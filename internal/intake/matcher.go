// Package intake consumes newly observed transfers, deduplicates them against
// the durable payment table, and drives matched payments through the package
// resolver and the order dispatcher.
package intake

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/dispatch"
	"github.com/ZRnown/energy/internal/models"
	"github.com/ZRnown/energy/internal/store"
	"github.com/ZRnown/energy/internal/tron"
)

// trxDecimals is the sun-per-TRX precision; TRC20 USDT uses the same scale.
const trxDecimals = 6

type Store interface {
	SeenTxIDs(ctx context.Context, ids []string) (map[string]struct{}, error)
	InsertPayment(ctx context.Context, p *models.Payment) (bool, error)
	ListPendingPayments(ctx context.Context, coin models.Coin, toAddress string) ([]*models.Payment, error)
	GetPackageByTriggerPrice(ctx context.Context, botID int64, price decimal.Decimal) (*models.Package, error)
	ListEligiblePlatforms(ctx context.Context, resourceAmount int64) ([]models.Platform, error)
	MarkPaymentFailed(ctx context.Context, txID, notes string) error
	MarkPaymentFulfilled(ctx context.Context, txID string, platformID, packageID *int64, notes string) (bool, error)
	RecordPaymentNotes(ctx context.Context, txID, notes string) error
	AddQuota(ctx context.Context, botID int64, wallet string, cycles int64) error
}

type Source interface {
	TRXTransfers(ctx context.Context, wallet string, startMs, endMs int64, page int) (*tron.TRXTransferPage, error)
	TRC20Transfers(ctx context.Context, wallet, contract string, minTimestampMs int64, nextURL string) (*tron.TRC20TransferPage, error)
}

type OrderDispatcher interface {
	Dispatch(ctx context.Context, req dispatch.Request) dispatch.Result
}

type Matcher struct {
	Store          Store
	Source         Source
	Dispatcher     OrderDispatcher
	MinTRXAmount   decimal.Decimal
	USDTContract   string
	CyclePriceUSDT decimal.Decimal
	Log            *zap.Logger
}

// IngestTRX pulls all pages of TRX transfers into the bot's receiving wallet
// for the given window and admits the unseen ones as pending payments.
// Partial fetches are not acceptable, so pagination runs until the reported
// total is covered or a short page comes back.
func (m *Matcher) IngestTRX(ctx context.Context, bot *models.Bot, since, until time.Time) error {
	for page := 0; ; page++ {
		res, err := m.Source.TRXTransfers(ctx, bot.ReceiveWallet, since.UnixMilli(), until.UnixMilli(), page)
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return nil
		}

		if err := m.admitTRXPage(ctx, bot, res.Items); err != nil {
			return err
		}

		fetched := int64((page + 1) * tron.PageLimit)
		if fetched >= res.Total || len(res.Items) < tron.PageLimit {
			return nil
		}
	}
}

func (m *Matcher) admitTRXPage(ctx context.Context, bot *models.Bot, items []tron.TRXTransfer) error {
	ids := make([]string, 0, len(items))
	for _, tx := range items {
		ids = append(ids, tx.Hash)
	}
	seen, err := m.Store.SeenTxIDs(ctx, ids)
	if err != nil {
		return err
	}

	for _, tx := range items {
		if _, dup := seen[tx.Hash]; dup {
			duplicates.WithLabelValues(string(models.CoinTRX)).Inc()
			continue
		}
		amount := decimal.New(tx.AmountSun, -trxDecimals)
		if !m.admitTRX(tx, amount) {
			continue
		}
		inserted, err := m.Store.InsertPayment(ctx, &models.Payment{
			TxID:        tx.Hash,
			BotID:       bot.ID,
			FromAddress: tx.FromAddress,
			ToAddress:   bot.ReceiveWallet,
			Coin:        models.CoinTRX,
			Amount:      amount,
			ObservedAt:  tx.Timestamp,
			Status:      models.PaymentPending,
			Notes:       "awaiting dispatch",
		})
		if err != nil {
			return err
		}
		if inserted {
			admitted.WithLabelValues(string(models.CoinTRX)).Inc()
		} else {
			duplicates.WithLabelValues(string(models.CoinTRX)).Inc()
		}
	}
	return nil
}

// admitTRX applies the coin-specific admission filters: the transfer must
// have succeeded on chain, clear the minimum amount, and carry native TRX.
func (m *Matcher) admitTRX(tx tron.TRXTransfer, amount decimal.Decimal) bool {
	if tx.ContractRet != "SUCCESS" {
		return false
	}
	if amount.LessThan(m.MinTRXAmount) {
		return false
	}
	return tx.Token.TokenID == "_" && tx.Token.TokenAbbr == "trx"
}

// IngestUSDT pulls inbound TRC20 USDT transfers, following next-page links
// until the listing is exhausted.
func (m *Matcher) IngestUSDT(ctx context.Context, bot *models.Bot, since time.Time) error {
	next := ""
	for {
		res, err := m.Source.TRC20Transfers(ctx, bot.ReceiveWallet, m.USDTContract, since.UnixMilli(), next)
		if err != nil {
			return err
		}
		if len(res.Items) == 0 {
			return nil
		}

		ids := make([]string, 0, len(res.Items))
		for _, tx := range res.Items {
			ids = append(ids, tx.TransactionID)
		}
		seen, err := m.Store.SeenTxIDs(ctx, ids)
		if err != nil {
			return err
		}

		for _, tx := range res.Items {
			if _, dup := seen[tx.TransactionID]; dup {
				duplicates.WithLabelValues(string(models.CoinUSDT)).Inc()
				continue
			}
			if tx.Type != "Transfer" {
				continue
			}
			value, err := decimal.NewFromString(tx.ValueRaw)
			if err != nil {
				m.Log.Warn("unparseable trc20 value",
					zap.String("tx_id", tx.TransactionID),
					zap.String("value", tx.ValueRaw))
				continue
			}
			inserted, err := m.Store.InsertPayment(ctx, &models.Payment{
				TxID:        tx.TransactionID,
				BotID:       bot.ID,
				FromAddress: tx.FromAddress,
				ToAddress:   bot.ReceiveWallet,
				Coin:        models.CoinUSDT,
				Amount:      value.Shift(-trxDecimals),
				ObservedAt:  tx.Timestamp,
				Status:      models.PaymentPending,
				Notes:       "awaiting dispatch",
			})
			if err != nil {
				return err
			}
			if inserted {
				admitted.WithLabelValues(string(models.CoinUSDT)).Inc()
			} else {
				duplicates.WithLabelValues(string(models.CoinUSDT)).Inc()
			}
		}

		if res.NextLink == "" {
			return nil
		}
		next = res.NextLink
	}
}

// ProcessPending walks the bot's pending payments. TRX payments resolve to a
// package and go through the dispatcher; USDT payments buy standing-order
// cycles instead.
func (m *Matcher) ProcessPending(ctx context.Context, bot *models.Bot) error {
	if err := m.processTRX(ctx, bot); err != nil {
		return err
	}
	return m.processUSDT(ctx, bot)
}

func (m *Matcher) processTRX(ctx context.Context, bot *models.Bot) error {
	pending, err := m.Store.ListPendingPayments(ctx, models.CoinTRX, bot.ReceiveWallet)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if err := m.handleTRXPayment(ctx, bot, p); err != nil {
			m.Log.Error("trx payment handling failed",
				zap.String("tx_id", p.TxID), zap.Error(err))
		}
	}
	return nil
}

func (m *Matcher) handleTRXPayment(ctx context.Context, bot *models.Bot, p *models.Payment) error {
	pkg, err := m.Store.GetPackageByTriggerPrice(ctx, bot.ID, p.Amount)
	if errors.Is(err, store.ErrNotFound) {
		// Terminal classification: an unmatched amount is never retried.
		return m.Store.MarkPaymentFailed(ctx, p.TxID, "no matching package")
	}
	if err != nil {
		return err
	}

	candidates, err := m.Store.ListEligiblePlatforms(ctx, pkg.EnergyAmount)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		// Transient: leave the payment pending for the next tick.
		return m.Store.RecordPaymentNotes(ctx, p.TxID, "no eligible platforms")
	}

	result := m.Dispatcher.Dispatch(ctx, dispatch.Request{
		DestinationAddress: p.FromAddress,
		ResourceAmount:     pkg.EnergyAmount,
		DurationDays:       pkg.DurationDays,
		Source:             models.SourceManual,
		Candidates:         candidates,
	})
	if !result.Success {
		return m.Store.RecordPaymentNotes(ctx, p.TxID, result.FailureNotes)
	}

	updated, err := m.Store.MarkPaymentFulfilled(ctx, p.TxID, &result.PlatformID, &pkg.ID, "SUCCESS")
	if err != nil {
		return err
	}
	if updated {
		m.Log.Info("payment fulfilled",
			zap.String("tx_id", p.TxID),
			zap.Int64("platform_id", result.PlatformID),
			zap.String("supplier_ref", result.SupplierRef),
			zap.Int64("energy", pkg.EnergyAmount))
	}
	return nil
}

func (m *Matcher) processUSDT(ctx context.Context, bot *models.Bot) error {
	pending, err := m.Store.ListPendingPayments(ctx, models.CoinUSDT, bot.ReceiveWallet)
	if err != nil {
		return err
	}
	for _, p := range pending {
		cycles := p.Amount.Div(m.CyclePriceUSDT).IntPart()
		if cycles <= 0 {
			if err := m.Store.MarkPaymentFailed(ctx, p.TxID, "amount below cycle price"); err != nil {
				return err
			}
			continue
		}
		if err := m.Store.AddQuota(ctx, bot.ID, p.FromAddress, cycles); err != nil {
			return err
		}
		if _, err := m.Store.MarkPaymentFulfilled(ctx, p.TxID, nil, nil, "quota purchase"); err != nil {
			return err
		}
	}
	return nil
}
