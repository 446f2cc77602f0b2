// Package ledger tracks the remaining integer activation budget per
// resource class and the row mapping each channel to its class.
//
// The ledger is the only mutable shared resource in the engine. Each
// operation is atomic on its own, but the engine's per-channel walk is
// deliberately not transactional across channels: decrements applied
// before a breach stand. Callers must serialize whole step calls behind a
// single-writer boundary.
package ledger
