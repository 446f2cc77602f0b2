// Package stability gates step admission on two integer bounds: a
// Gershgorin-style slope bound on the worst-case combined contribution,
// and an empirical contraction check from an integer power iteration.
//
// The power iteration is a reproducible, possibly-underestimating proxy
// for the dominant growth factor. It must not be replaced with an exact
// eigen-solver: that would change observable acceptance outcomes and
// break compatibility with the digest-keyed audit trail downstream.
package stability
