// Package worker runs background maintenance jobs.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/token"
)

// Cleanup periodically purges refresh tokens that are revoked or long past
// expiry. Expired rows are retained for the grace window so recent sessions
// stay inspectable.
type Cleanup struct {
	tokens   *token.Manager
	interval time.Duration
	grace    time.Duration
	logger   *zap.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func NewCleanup(tokens *token.Manager, interval, grace time.Duration, logger *zap.Logger) *Cleanup {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Cleanup{
		tokens:   tokens,
		interval: interval,
		grace:    grace,
		logger:   logger,
	}
}

// Start launches the sweep loop. The first sweep runs after one interval.
func (w *Cleanup) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.sweep(ctx)
			}
		}
	}()
}

// Stop halts the loop and waits for an in-flight sweep to finish.
func (w *Cleanup) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
}

func (w *Cleanup) sweep(ctx context.Context) {
	cutoff := time.Now().UTC().Add(-w.grace)
	deleted, err := w.tokens.Cleanup(ctx, cutoff)
	if err != nil {
		w.log().Warn("token cleanup failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		w.log().Info("token cleanup", zap.Int64("deleted", deleted), zap.Time("cutoff", cutoff))
	}
}

func (w *Cleanup) log() *zap.Logger {
	if w.logger == nil {
		return zap.NewNop()
	}
	return w.logger
}
