package marketdata

import (
	"context"
	"sync"
	"time"
)

// spacer enforces a minimum spacing between successive provider calls.
// Concurrent callers queue up: each reserves the next free slot, so the
// spacing holds even when per-ticker backfills run in parallel.
type spacer struct {
	mu      sync.Mutex
	spacing time.Duration
	next    time.Time
}

func newSpacer(spacing time.Duration) *spacer {
	return &spacer{spacing: spacing}
}

func (s *spacer) wait(ctx context.Context) error {
	s.mu.Lock()
	at := s.next
	if now := time.Now(); at.Before(now) {
		at = now
	}
	s.next = at.Add(s.spacing)
	s.mu.Unlock()

	d := time.Until(at)
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
