package hub

import (
	"context"
	"time"
)

// Scheduler runs fn every interval until the returned stop func is called or
// ctx ends.
type Scheduler interface {
	Every(ctx context.Context, interval time.Duration, fn func()) (stop func())
}

// TickerScheduler drives each timer from its own goroutine and time.Ticker.
type TickerScheduler struct{}

func (TickerScheduler) Every(ctx context.Context, interval time.Duration, fn func()) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				fn()
			}
		}
	}()
	return cancel
}
