// Package metrics exposes engine counters as a Prometheus text
// exposition snapshot: steps by outcome, quarantines by reason, and the
// remaining ledger budget per resource class.
//
// The snapshot is written on demand to an io.Writer rather than served
// over HTTP — the engine carries no network surface.
package metrics
