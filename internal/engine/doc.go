// Package engine composes the projector, stability checker and resource
// ledger into the single-step admission state machine.
//
// Step performs exactly one synchronous transition: aggregate proposed
// contributions, project them onto the weight budget, compose the
// weighted operator, gate on the slope and spectral bounds, walk the
// ledger, then commit (digest + state advance) or quarantine with a
// categorical reason. Stages before the ledger walk are pure; the walk
// mutates the ledger incrementally and is not rolled back on failure.
//
// The engine holds no trajectory state: callers own the state and offset
// vectors and must feed NextState back in to continue. Concurrent callers
// must serialize Step externally — the ledger walk has no internal
// cross-call synchronization by design.
package engine
