package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/models"
)

type Store interface {
	ListActiveBots(ctx context.Context) ([]*models.Bot, error)
	ListUnnotifiedPayments(ctx context.Context) ([]*models.Payment, error)
	MarkPaymentNotified(ctx context.Context, txID string) error
	ListUnnotifiedStandingOrders(ctx context.Context) ([]*models.StandingOrder, error)
	MarkStandingOrderNotified(ctx context.Context, id int64) error
}

type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboard) error
}

type Emitter struct {
	Store         Store
	Sender        Sender
	BotUsername   string
	AdminUsername string
	Log           *zap.Logger
}

// Flush sends all pending fulfillment notifications and marks them sent.
// A delivery failure is logged and the flag left pending for the next tick.
func (e *Emitter) Flush(ctx context.Context) error {
	bots, err := e.Store.ListActiveBots(ctx)
	if err != nil {
		return err
	}
	chatByBot := make(map[int64]int64, len(bots))
	for _, b := range bots {
		chatByBot[b.ID] = b.ChatID
	}

	payments, err := e.Store.ListUnnotifiedPayments(ctx)
	if err != nil {
		return err
	}
	for _, p := range payments {
		chatID, ok := chatByBot[p.BotID]
		if !ok {
			continue
		}
		if err := e.Sender.SendMessage(ctx, chatID, e.paymentMessage(p), e.keyboard()); err != nil {
			e.Log.Warn("payment notification failed",
				zap.String("tx_id", p.TxID), zap.Error(err))
			continue
		}
		if err := e.Store.MarkPaymentNotified(ctx, p.TxID); err != nil {
			return err
		}
	}

	orders, err := e.Store.ListUnnotifiedStandingOrders(ctx)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if o.ChatID == 0 {
			continue
		}
		if err := e.Sender.SendMessage(ctx, o.ChatID, e.standingMessage(o), e.keyboard()); err != nil {
			e.Log.Warn("standing notification failed",
				zap.Int64("standing_order", o.ID), zap.Error(err))
			continue
		}
		if err := e.Store.MarkStandingOrderNotified(ctx, o.ID); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) paymentMessage(p *models.Payment) string {
	return fmt.Sprintf(
		"🔋<b>Energy order placed</b>\n"+
			"➖➖➖➖➖➖➖➖\n"+
			"<b>Mode</b>: self-service\n"+
			"<b>Paid</b>: %s %s\n"+
			"<b>Address</b>: %s\n\n"+
			"<b>Energy has been delivered, use it within the rental window.</b>\n"+
			"Send /buyenergy to order again.\n"+
			"➖➖➖➖➖➖➖➖",
		p.Amount.String(), p.Coin, MaskAddress(p.FromAddress))
}

func (e *Emitter) standingMessage(o *models.StandingOrder) string {
	remaining := "unlimited"
	if o.CyclesLimit > 0 {
		remaining = fmt.Sprintf("%d", o.CyclesLimit-o.CyclesPurchased)
	}
	return fmt.Sprintf(
		"🖌<b>Subscription energy order placed</b>\n"+
			"<b>Mode</b>: standing order\n"+
			"<b>Energy</b>: %d\n"+
			"<b>Address</b>: %s\n\n"+
			"<b>Energy has been delivered, use it within the rental window.</b>\n"+
			"⚠️<u>Cycles remaining:</u> %s\n"+
			"➖➖➖➖➖➖➖➖",
		o.ResourcePerCycle, MaskAddress(o.WalletAddress), remaining)
}

func (e *Emitter) keyboard() *InlineKeyboard {
	admin := e.AdminUsername
	if len(admin) > 0 && admin[0] == '@' {
		admin = admin[1:]
	}
	return &InlineKeyboard{InlineKeyboard: [][]InlineButton{
		{
			{Text: "Energy rental", URL: "https://t.me/" + e.BotUsername},
			{Text: "Subscriptions", URL: "https://t.me/" + e.BotUsername},
		},
		{
			{Text: "Support", URL: "https://t.me/" + admin},
		},
	}}
}

// MaskAddress hides the middle of an address for chat display.
func MaskAddress(addr string) string {
	if len(addr) < 16 {
		return addr
	}
	return addr[:8] + "****" + addr[len(addr)-8:]
}
