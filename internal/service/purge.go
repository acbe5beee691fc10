package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PurgeWorker periodically deletes expired refresh tokens. It only removes
// rows that are already unusable, so it may run next to any other operation.
type PurgeWorker struct {
	store    *RefreshTokenStore
	interval time.Duration
	log      *zap.SugaredLogger
}

func NewPurgeWorker(store *RefreshTokenStore, interval time.Duration, log *zap.SugaredLogger) *PurgeWorker {
	return &PurgeWorker{store: store, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (w *PurgeWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.log.Info("refresh token purge disabled")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.PurgeOnce(ctx); err != nil {
				w.log.Errorw("failed to purge expired refresh tokens", "error", err)
			}
		}
	}
}

// Start runs the worker in the background. The returned func blocks until
// the worker has stopped, so it must be called after ctx is cancelled and
// before the storage is closed.
func (w *PurgeWorker) Start(ctx context.Context) (wait func()) {
	done := make(chan struct{})
	go func() {
		defer close(done)
		w.Run(ctx)
	}()
	return func() { <-done }
}

func (w *PurgeWorker) PurgeOnce(ctx context.Context) (int64, error) {
	n, err := w.store.PurgeExpired(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		w.log.Infow("purged expired refresh tokens", "count", n)
	}
	return n, nil
}
