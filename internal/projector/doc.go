// Package projector clips aggregated per-channel weight vectors into the
// symmetric admissible box defined by the configured budget limits, and
// reports the clipped mass on each side as dual quantities.
//
// The per-channel box is deliberately the simplest feasible region whose
// violation mass is directly interpretable: projection is independent per
// channel, O(n), pure, and never fails.
package projector
