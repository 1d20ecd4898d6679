package worker

import (
	"context"
	"time"

	"ostello/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Sweeper reaps dead holds: overdue active ones and stale payment ones.
type Sweeper interface {
	Sweep(ctx context.Context, paymentTimeout time.Duration) (int, error)
}

// SweepWorker runs the hold sweep on a cron schedule. The sweep is a safety
// net: reads already treat overdue holds as dead, the worker just rewrites
// the rows and emits the expiry events.
type SweepWorker struct {
	sweeper        Sweeper
	schedule       string
	paymentTimeout time.Duration
	retryPolicy    RetryPolicy
	cron           *cron.Cron
	logger         *zerolog.Logger
}

func NewSweepWorker(sweeper Sweeper, schedule string, paymentTimeout time.Duration, retry RetryPolicy, logger *zerolog.Logger) *SweepWorker {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 3
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 30 * time.Second
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &SweepWorker{
		sweeper:        sweeper,
		schedule:       schedule,
		paymentTimeout: paymentTimeout,
		retryPolicy:    retry,
		cron:           cron.New(),
		logger:         logger,
	}
}

// Start registers the cron entry and launches the scheduler.
func (w *SweepWorker) Start(ctx context.Context) error {
	_, err := w.cron.AddFunc(w.schedule, func() {
		w.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	w.cron.Start()
	w.logger.Info().Str("schedule", w.schedule).Msg("hold sweep worker started")
	return nil
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (w *SweepWorker) Stop() {
	stopCtx := w.cron.Stop()
	<-stopCtx.Done()
	w.logger.Info().Msg("hold sweep worker stopped")
}

// RunOnce executes one sweep with retries. SQLite под нагрузкой может отдать
// busy; повторяем с backoff, а не роняем тик.
func (w *SweepWorker) RunOnce(ctx context.Context) {
	start := time.Now()

	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		n, err := w.sweeper.Sweep(ctx, w.paymentTimeout)
		if err == nil {
			metrics.ObserveSweepDuration(time.Since(start).Seconds())
			if n > 0 {
				w.logger.Debug().Int("reaped", n).Dur("took", time.Since(start)).Msg("hold sweep tick")
			}
			return
		}

		lastErr = err
		select {
		case <-ctx.Done():
			return
		case <-time.After(w.retryPolicy.NextDelay(attempt)):
		}
	}

	w.logger.Error().Err(lastErr).Int("attempts", w.retryPolicy.MaxRetries).Msg("hold sweep failed")
}
