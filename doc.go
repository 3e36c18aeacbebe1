// Package folio implements a portfolio valuation and factor analytics
// engine. It is designed to be local-first and auditable: the single source
// of truth is a human-readable JSONL transaction ledger, and every figure is
// recomputed from it.
//
// The core functionalities include:
//   - Ledger Management: recording buy and sell transactions in an
//     immutable, chronological record opened by an init header carrying the
//     starting cash and the annual rate earned on idle cash.
//   - Price Store: a gap-filling cache of daily closes fetched from a market
//     data provider, downloading only the uncovered head and tail of a
//     requested range and degrading gracefully on rate limits.
//   - Replay Engine: a single forward pass over the ledger producing daily
//     valuation snapshots decomposed into positions, cash and accrued
//     interest, with fallback pricing and live quotes for today.
//   - Factor Analytics: ordinary least squares estimation of per-position
//     factor betas from aligned daily return series.
//   - Regime Risk: aggregation of betas into portfolio factor exposures,
//     drift detection against a target profile, and scenario P&L under
//     probabilistic market regimes.
//
// This package holds the domain logic; persistence lives in store, market
// access in marketdata, scheduling in job, and the CLI in cmd. All of them
// build on this package, so every entry point computes from the same ledger.
package folio
