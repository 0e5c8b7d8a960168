package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"insurance-settlement/internal/core/ports"
	"insurance-settlement/internal/metrics"

	"github.com/rs/zerolog"
)

// SweepReport summarizes one sweeper run.
type SweepReport struct {
	PayoutsRefunded    int `json:"payouts_refunded"`
	CertificatesIssued int `json:"certificates_issued"`
}

// Sweeper periodically refunds stale payouts and reissues missing certificates.
type Sweeper struct {
	payouts    ports.PayoutService
	settlement ports.SettlementService
	interval   time.Duration
	batchSize  int
	log        zerolog.Logger
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
	running  atomic.Bool
	runMu    sync.Mutex // held for the duration of a scheduled sweep
}

// NewSweeper creates a sweeper running every interval.
func NewSweeper(payouts ports.PayoutService, settlement ports.SettlementService, interval time.Duration, batchSize int, log zerolog.Logger) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Sweeper{
		payouts:    payouts,
		settlement: settlement,
		interval:   interval,
		batchSize:  batchSize,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
		stop:       make(chan struct{}),
	}
}

// Running reports whether the loop is active.
func (w *Sweeper) Running() bool {
	return w.running.Load()
}

// Start runs the loop until ctx is done or Stop is called. Call in a goroutine.
func (w *Sweeper) Start(ctx context.Context) {
	w.running.Store(true)
	defer w.running.Store(false)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case <-ticker.C:
			w.safeRun(ctx)
		}
	}
}

// Stop ends the loop and waits for a sweep already in progress, so callers
// may release storage afterwards. Safe to call more than once.
func (w *Sweeper) Stop() {
	w.stopOnce.Do(func() { close(w.stop) })
	w.runMu.Lock()
	w.runMu.Unlock() //nolint:staticcheck
}

func (w *Sweeper) safeRun(ctx context.Context) {
	w.runMu.Lock()
	defer w.runMu.Unlock()
	select {
	case <-w.stop:
		return
	default:
	}
	defer func() {
		if r := recover(); r != nil {
			w.log.Error().Str("panic", fmt.Sprint(r)).Msg("panic in sweeper")
		}
	}()
	if _, err := w.RunOnce(ctx); err != nil {
		w.log.Warn().Err(err).Msg("sweep failed")
	}
}

// RunOnce performs a single sweep. Both steps run even if the first fails.
func (w *Sweeper) RunOnce(ctx context.Context) (SweepReport, error) {
	timer := metricsTimer()
	defer timer()

	var report SweepReport
	refunded, payoutErr := w.payouts.SweepStalePayouts(ctx, w.now())
	report.PayoutsRefunded = refunded

	issued, certErr := w.settlement.RetryCertificates(ctx, w.batchSize)
	report.CertificatesIssued = issued

	if report.PayoutsRefunded > 0 || report.CertificatesIssued > 0 {
		w.log.Info().
			Int("payouts_refunded", report.PayoutsRefunded).
			Int("certificates_issued", report.CertificatesIssued).
			Msg("sweep completed")
	}

	switch {
	case payoutErr != nil:
		return report, fmt.Errorf("sweep payouts: %w", payoutErr)
	case certErr != nil:
		return report, fmt.Errorf("retry certificates: %w", certErr)
	}
	return report, nil
}

func metricsTimer() func() {
	start := time.Now()
	return func() { metrics.SweepDuration.Observe(time.Since(start).Seconds()) }
}
