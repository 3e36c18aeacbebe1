package folio

import (
	"context"

	"go.uber.org/zap"
)

// SnapshotStorage persists daily portfolio snapshots keyed by
// (portfolio id, date). Each row is independently idempotent; writes need
// not be transactional across rows.
type SnapshotStorage interface {
	Snapshots(ctx context.Context, portfolioID string, r Range) ([]Snapshot, error)
	SaveSnapshots(ctx context.Context, snapshots []Snapshot) error
}

// Charter produces portfolio value series for charting, serving cached
// snapshots when they cover the requested range and falling back to a live
// replay otherwise. The cache is a performance optimization: recomputation
// reproduces cached values, today's live override aside.
type Charter struct {
	snapshots SnapshotStorage
	prices    *PriceStore
	log       *zap.Logger
}

func NewCharter(snapshots SnapshotStorage, prices *PriceStore, log *zap.Logger) *Charter {
	if log == nil {
		log = zap.NewNop()
	}
	return &Charter{snapshots: snapshots, prices: prices, log: log}
}

// Series returns one snapshot per sampled date over opts.Range.
//
// Prices are gap-filled first; a rate-limited or failed fetch degrades to
// whatever is already stored instead of failing the chart. Cache read or
// write failures are logged and treated as cache misses.
func (c *Charter) Series(ctx context.Context, l *Ledger, opts ReplayOptions) ([]Snapshot, error) {
	if err := c.prices.Ensure(ctx, l.Tickers(), Range{From: l.Created(), To: opts.Range.To}); err != nil {
		c.log.Warn("price gap-fill incomplete, charting from stored prices", zap.Error(err))
	}

	cached, err := c.snapshots.Snapshots(ctx, l.ID(), opts.Range)
	if err != nil {
		c.log.Error("snapshot cache read failed", zap.String("portfolio", l.ID()), zap.Error(err))
		cached = nil
	}
	if covers(cached, opts.Range, opts.stride()) {
		return c.refreshToday(ctx, l, opts, cached), nil
	}

	snapshots, err := l.Replay(ctx, c.prices, opts, c.log)
	if err != nil {
		return nil, err
	}
	if len(snapshots) > 0 {
		if err := c.snapshots.SaveSnapshots(ctx, snapshots); err != nil {
			c.log.Error("snapshot cache write failed", zap.String("portfolio", l.ID()), zap.Error(err))
		}
	}
	return snapshots, nil
}

// refreshToday recomputes today's point when it falls inside the range, so a
// cache hit still reflects live prices and cash for the current date.
func (c *Charter) refreshToday(ctx context.Context, l *Ledger, opts ReplayOptions, cached []Snapshot) []Snapshot {
	today := opts.today()
	if !opts.Range.Contains(today) {
		return cached
	}
	idx := -1
	for i := range cached {
		if cached[i].Date == today {
			idx = i
			break
		}
	}
	if idx < 0 {
		// Today is inside the range but not one of the sampled dates;
		// inserting it would break the stride and the date order.
		return cached
	}
	live, err := l.Replay(ctx, c.prices, ReplayOptions{
		Range:    Range{From: today, To: today},
		Today:    opts.Today,
		LiveCash: opts.LiveCash,
	}, c.log)
	if err != nil || len(live) != 1 {
		return cached
	}
	cached[idx] = live[0]
	return cached
}

// covers reports whether the cached rows span the range at the requested
// sampling resolution.
func covers(snapshots []Snapshot, r Range, stride int) bool {
	if len(snapshots) == 0 {
		return false
	}
	if snapshots[0].Date != r.From || snapshots[len(snapshots)-1].Date != r.To {
		return false
	}
	expected := 0
	for range r.Dates(stride) {
		expected++
	}
	return len(snapshots) >= expected
}
