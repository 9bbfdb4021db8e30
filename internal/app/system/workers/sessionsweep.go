// internal/app/system/workers/sessionsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	sessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "stockconsole",
		Subsystem: "sessions",
		Name:      "active",
		Help:      "Console sessions inside their idle window at the last sweep.",
	})

	sessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "stockconsole",
		Subsystem: "sessions",
		Name:      "purged_total",
		Help:      "Idle console sessions removed by the sweeper.",
	})
)

// IdleSessions is the part of a persistent session store the sweeper needs.
type IdleSessions interface {
	PurgeIdle(ctx context.Context) (int64, error)
	CountActive(ctx context.Context) (int64, error)
}

// SessionSweeper periodically removes idle console sessions and publishes
// the active count. The Mongo TTL monitor only runs about once a minute and
// keeps the expiry it was created with, so the sweeper also covers a changed
// session_idle_ttl.
type SessionSweeper struct {
	store    IdleSessions
	log      *zap.Logger
	interval time.Duration
	timeout  time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewSessionSweeper(store IdleSessions, logger *zap.Logger, interval time.Duration) *SessionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionSweeper{
		store:    store,
		log:      logger,
		interval: interval,
		timeout:  30 * time.Second,
		stopCh:   make(chan struct{}),
	}
}

// Start sweeps once and then every interval until Stop.
func (w *SessionSweeper) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("session sweeper started", zap.Duration("interval", w.interval))
}

// Stop ends the loop and waits for an in-flight sweep. Safe to call twice.
func (w *SessionSweeper) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.wg.Wait()
		w.log.Info("session sweeper stopped")
	})
}

func (w *SessionSweeper) run() {
	defer w.wg.Done()

	w.sweep()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *SessionSweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	purged, err := w.store.PurgeIdle(ctx)
	if err != nil {
		w.log.Error("purge idle sessions failed", zap.Error(err))
		return
	}
	sessionsPurged.Add(float64(purged))

	active, err := w.store.CountActive(ctx)
	if err != nil {
		w.log.Warn("count active sessions failed", zap.Error(err))
		return
	}
	sessionsActive.Set(float64(active))

	if purged > 0 {
		w.log.Info("idle sessions purged", zap.Int64("purged", purged), zap.Int64("active", active))
	}
}
