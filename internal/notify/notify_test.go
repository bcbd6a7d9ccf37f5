package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/models"
)

func TestMaskAddress(t *testing.T) {
	require.Equal(t, "TR7NHqje****SzgjLj6t", MaskAddress("TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"))
	require.Equal(t, "short", MaskAddress("short"))
	require.Equal(t, "", MaskAddress(""))
}

func TestTelegramSendMessage(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/bottoken-1/sendMessage", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, "token-1", 5*time.Second)
	err := c.SendMessage(context.Background(), 99, "<b>hi</b>", &InlineKeyboard{
		InlineKeyboard: [][]InlineButton{{{Text: "Go", URL: "https://t.me/bot"}}},
	})
	require.NoError(t, err)

	require.EqualValues(t, 99, body["chat_id"])
	require.Equal(t, "<b>hi</b>", body["text"])
	require.Equal(t, "HTML", body["parse_mode"])
	require.Contains(t, body, "reply_markup")
}

func TestTelegramSendMessageErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"ok":false,"description":"chat not found"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewTelegramClient(srv.URL, "token-1", 5*time.Second)
	err := c.SendMessage(context.Background(), 99, "hi", nil)
	require.ErrorContains(t, err, "chat not found")
}

type fakeNotifyStore struct {
	bots           []*models.Bot
	payments       []*models.Payment
	standingOrders []*models.StandingOrder

	paymentNotified  []string
	standingNotified []int64
}

func (s *fakeNotifyStore) ListActiveBots(ctx context.Context) ([]*models.Bot, error) {
	return s.bots, nil
}

func (s *fakeNotifyStore) ListUnnotifiedPayments(ctx context.Context) ([]*models.Payment, error) {
	return s.payments, nil
}

func (s *fakeNotifyStore) MarkPaymentNotified(ctx context.Context, txID string) error {
	s.paymentNotified = append(s.paymentNotified, txID)
	return nil
}

func (s *fakeNotifyStore) ListUnnotifiedStandingOrders(ctx context.Context) ([]*models.StandingOrder, error) {
	return s.standingOrders, nil
}

func (s *fakeNotifyStore) MarkStandingOrderNotified(ctx context.Context, id int64) error {
	s.standingNotified = append(s.standingNotified, id)
	return nil
}

type fakeSender struct {
	sent    []string
	chatIDs []int64
	err     error
}

func (s *fakeSender) SendMessage(ctx context.Context, chatID int64, text string, keyboard *InlineKeyboard) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, text)
	s.chatIDs = append(s.chatIDs, chatID)
	return nil
}

func TestFlushSendsAndMarksNotified(t *testing.T) {
	st := &fakeNotifyStore{
		bots: []*models.Bot{{ID: 1, ChatID: 500, Active: true}},
		payments: []*models.Payment{{
			TxID: "tx-1", BotID: 1,
			FromAddress: "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			Coin:        models.CoinTRX,
			Amount:      decimal.NewFromInt(6),
			Status:      models.PaymentFulfilled,
		}},
		standingOrders: []*models.StandingOrder{{
			ID: 9, ChatID: 600,
			WalletAddress:    "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t",
			ResourcePerCycle: 131000,
			CyclesLimit:      5,
			CyclesPurchased:  2,
		}},
	}
	sender := &fakeSender{}
	e := &Emitter{Store: st, Sender: sender, BotUsername: "energybot", AdminUsername: "@admin", Log: zap.NewNop()}

	require.NoError(t, e.Flush(context.Background()))

	require.Equal(t, []int64{500, 600}, sender.chatIDs)
	require.Contains(t, sender.sent[0], "6 trx")
	require.Contains(t, sender.sent[0], "TR7NHqje****SzgjLj6t")
	require.Contains(t, sender.sent[1], "131000")
	require.Contains(t, sender.sent[1], "Cycles remaining:</u> 3")
	require.Equal(t, []string{"tx-1"}, st.paymentNotified)
	require.Equal(t, []int64{9}, st.standingNotified)
}

func TestFlushDeliveryFailureLeavesFlagPending(t *testing.T) {
	st := &fakeNotifyStore{
		bots: []*models.Bot{{ID: 1, ChatID: 500, Active: true}},
		payments: []*models.Payment{{
			TxID: "tx-1", BotID: 1, FromAddress: "TSender",
			Coin: models.CoinTRX, Amount: decimal.NewFromInt(6),
		}},
	}
	sender := &fakeSender{err: errors.New("telegram down")}
	e := &Emitter{Store: st, Sender: sender, BotUsername: "energybot", AdminUsername: "@admin", Log: zap.NewNop()}

	require.NoError(t, e.Flush(context.Background()))
	require.Empty(t, st.paymentNotified)
}

func TestFlushSkipsUnknownBotAndZeroChat(t *testing.T) {
	st := &fakeNotifyStore{
		bots: []*models.Bot{{ID: 1, ChatID: 500, Active: true}},
		payments: []*models.Payment{{
			TxID: "tx-orphan", BotID: 42, FromAddress: "TSender",
			Coin: models.CoinTRX, Amount: decimal.NewFromInt(6),
		}},
		standingOrders: []*models.StandingOrder{{ID: 9, ChatID: 0, WalletAddress: "TWallet"}},
	}
	sender := &fakeSender{}
	e := &Emitter{Store: st, Sender: sender, BotUsername: "energybot", AdminUsername: "@admin", Log: zap.NewNop()}

	require.NoError(t, e.Flush(context.Background()))
	require.Empty(t, sender.sent)
	require.Empty(t, st.paymentNotified)
	require.Empty(t, st.standingNotified)
}

func TestKeyboardStripsAdminAtSign(t *testing.T) {
	e := &Emitter{BotUsername: "energybot", AdminUsername: "@support"}
	kb := e.keyboard()
	require.Len(t, kb.InlineKeyboard, 2)
	require.Equal(t, "https://t.me/support", kb.InlineKeyboard[1][0].URL)
	require.Equal(t, "https://t.me/energybot", kb.InlineKeyboard[0][0].URL)
}
