package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Coin string

const (
	CoinTRX  Coin = "trx"
	CoinUSDT Coin = "usdt"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentMatched   PaymentStatus = "matched"
	PaymentFailed    PaymentStatus = "failed"
	PaymentFulfilled PaymentStatus = "fulfilled"
)

// Payment is one observed on-chain transfer to a receiving wallet.
// Immutable once Fulfilled.
type Payment struct {
	TxID        string
	BotID       int64
	FromAddress string
	ToAddress   string
	Coin        Coin
	Amount      decimal.Decimal
	ObservedAt  time.Time
	Status      PaymentStatus
	Notes       string
	PlatformID  *int64
	PackageID   *int64
	NoticeSent  bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Bot is a receiving-wallet scope: packages are priced per bot and inbound
// transfers are polled per bot wallet.
type Bot struct {
	ID            int64
	Name          string
	ReceiveWallet string
	ChatID        int64
	Active        bool
}

// Package is immutable reference data sold by a bot, keyed by exact trigger
// price.
type Package struct {
	ID           int64
	BotID        int64
	Name         string
	TriggerPrice decimal.Decimal
	EnergyAmount int64
	DurationDays int
	Active       bool
}

type PlatformKind string

const (
	KindNeeCC      PlatformKind = "neecc"
	KindRentEnergy PlatformKind = "rentenergy"
	KindSelfStake  PlatformKind = "selfstake"
	KindTronGas    PlatformKind = "trongas"
)

// Platform is a supplier credential/config row. AvailableBalance is advisory
// and only pre-filters candidates.
type Platform struct {
	ID               int64
	Name             string
	Kind             PlatformKind
	Priority         int
	AvailableBalance int64
	UID              string
	AuthMaterial     string
	PermissionID     int
	Active           bool
}

// StandingOrder is a quota-based subscription replenished over multiple
// cycles. BuyInProgress guards against overlapping dispatch ticks.
type StandingOrder struct {
	ID               int64
	BotID            int64
	WalletAddress    string
	ChatID           int64
	ResourceFloor    int64
	ResourcePerCycle int64
	DurationDays     int
	CyclesPurchased  int64
	CyclesLimit      int64
	CurrentEnergy    int64
	CurrentBandwidth int64
	BelowFloor       bool
	BuyInProgress    bool
	LastAttemptNotes string
	NoticePending    bool
	Active           bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type OrderSource string

const (
	SourceManual   OrderSource = "manual"
	SourceStanding OrderSource = "standing"
)

// PlatformOrder is the append-only fulfillment record written once a supplier
// call succeeds.
type PlatformOrder struct {
	ID               int64
	DispatchID       string
	PlatformID       int64
	ReceivingAddress string
	SupplierOrderRef string
	ResourceAmount   int64
	DurationDays     int
	Source           OrderSource
	CostTRX          decimal.Decimal
	PlacedAt         time.Time
}

// Session is store-backed chat session state keyed by user id, with explicit
// expiry. Replaces the in-process menu-state map.
type Session struct {
	UserID    int64
	State     string
	Payload   string
	ExpiresAt time.Time
	UpdatedAt time.Time
}
