// Package store provides the durable persistence layer: daily prices with
// fetch coverage, portfolio snapshots, factor exposures, the factor and
// position return feeds, and regime probabilities.
//
// Two implementations exist: Memory for tests and development, Postgres as
// the source of truth. Composite keys use upsert semantics, so re-running
// any job over the same dates overwrites rather than duplicates.
package store

import (
	"context"

	"github.com/quarry/folio"
)

// Store is the full persistence surface. The narrow interfaces it embeds
// (folio.PriceStorage, folio.SnapshotStorage, folio.ExposureStorage,
// folio.ReturnFeed) are what the engines actually depend on; Store exists so
// one backend can be wired everywhere.
type Store interface {
	folio.PriceStorage
	folio.SnapshotStorage
	folio.ExposureStorage
	folio.ReturnFeed

	// Feed ingestion. The engines consume the feeds read-only; these writes
	// serve the import jobs.
	SaveFactorReturns(ctx context.Context, rows []folio.FactorReturn) error
	SavePositionReturns(ctx context.Context, rows []folio.PositionReturn) error

	SaveRegimeProbabilities(ctx context.Context, p folio.RegimeProbabilities) error
	LatestRegimeProbabilities(ctx context.Context) (folio.RegimeProbabilities, error)
}
