// Package worker schedules the periodic ticks that drive all work: a short
// cadence for payment intake, order handling and notifications, and a long
// cadence for resource checks and standing-order dispatch.
package worker

import (
	"context"
	"time"

	"github.com/sourcegraph/conc/iter"
	"go.uber.org/zap"

	"github.com/ZRnown/energy/internal/intake"
	"github.com/ZRnown/energy/internal/models"
	"github.com/ZRnown/energy/internal/notify"
	"github.com/ZRnown/energy/internal/standing"
	"github.com/ZRnown/energy/internal/store"
)

type Worker struct {
	Store         *store.Store
	Matcher       *intake.Matcher
	Standing      *standing.Machine
	Emitter       *notify.Emitter
	ShortInterval time.Duration
	LongInterval  time.Duration
	Lookback      time.Duration
	Concurrency   int
	ItemBackoff   time.Duration
	Log           *zap.Logger
}

// Run blocks until ctx is cancelled. Ticks are not cancelled mid-flight;
// shutdown lets the in-flight tick drain.
func (w *Worker) Run(ctx context.Context) {
	short := time.NewTicker(w.ShortInterval)
	defer short.Stop()
	long := time.NewTicker(w.LongInterval)
	defer long.Stop()

	w.ShortTick(ctx)
	w.LongTick(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-short.C:
			w.ShortTick(ctx)
		case <-long.C:
			w.LongTick(ctx)
		}
	}
}

// ShortTick ingests fresh transfers for every receiving wallet, pushes
// pending payments through the dispatch pipeline, and flushes notifications.
func (w *Worker) ShortTick(ctx context.Context) {
	bots, err := w.Store.ListActiveBots(ctx)
	if err != nil {
		w.Log.Error("bot listing failed", zap.Error(err))
		return
	}

	until := time.Now().UTC()
	since := until.Add(-w.Lookback)

	maxGoroutines := w.Concurrency
	if maxGoroutines <= 0 {
		maxGoroutines = 5
	}
	it := iter.Iterator[*models.Bot]{MaxGoroutines: maxGoroutines}
	it.ForEach(bots, func(bot **models.Bot) {
		b := *bot
		if w.ItemBackoff > 0 {
			time.Sleep(w.ItemBackoff)
		}
		if err := w.Matcher.IngestTRX(ctx, b, since, until); err != nil {
			w.Log.Error("trx intake failed",
				zap.String("wallet", b.ReceiveWallet), zap.Error(err))
		}
		if err := w.Matcher.IngestUSDT(ctx, b, since); err != nil {
			w.Log.Error("usdt intake failed",
				zap.String("wallet", b.ReceiveWallet), zap.Error(err))
		}
	})

	// Dispatch runs serially per bot to keep supplier call ordering simple.
	for _, b := range bots {
		if err := w.Matcher.ProcessPending(ctx, b); err != nil {
			w.Log.Error("pending processing failed",
				zap.String("wallet", b.ReceiveWallet), zap.Error(err))
		}
	}

	if err := w.Emitter.Flush(ctx); err != nil {
		w.Log.Error("notification flush failed", zap.Error(err))
	}
	if err := w.Store.PurgeExpiredSessions(ctx, time.Now().UTC()); err != nil {
		w.Log.Error("session purge failed", zap.Error(err))
	}
}

// LongTick refreshes subscription resource readings and replenishes the ones
// below their floor.
func (w *Worker) LongTick(ctx context.Context) {
	if err := w.Standing.CheckResources(ctx); err != nil {
		w.Log.Error("resource check tick failed", zap.Error(err))
	}
	if err := w.Standing.DispatchDue(ctx); err != nil {
		w.Log.Error("standing dispatch tick failed", zap.Error(err))
	}
}
