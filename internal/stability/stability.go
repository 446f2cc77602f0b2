package stability

import (
	"math/big"

	"github.com/latticegate/latticegate/internal/fixed"
)

// DefaultIters is the power-iteration count used when callers pass a
// non-positive value.
const DefaultIters = 3

// Metrics carries the acceptance diagnostics for one step. Slope, gap and
// Q² use arbitrary precision: the slope accumulation can overflow fixed
// width for large channel counts or norms.
type Metrics struct {
	SlopeScaled *big.Int
	GapScaled   *big.Int
	Q2          *big.Int
	RhoScaled   int64
}

// EstimateRho runs an integer-only power iteration against apply and
// returns the dominant growth factor scaled by q.
//
// The iterate starts at [q]×dim and is renormalised after every
// application so that consecutive norm ratios stay expressed at scale q.
// A zero intermediate norm returns 0 immediately — a known one-sided
// limitation of the estimator, not an error.
func EstimateRho(apply func(v []int64) []int64, dim int, q int64, iters int) int64 {
	if dim <= 0 {
		return 0
	}
	if iters <= 0 {
		iters = DefaultIters
	}

	v := make([]int64, dim)
	for i := range v {
		v[i] = q
	}
	prevNorm := fixed.MaxAbs(v)
	if prevNorm == 0 {
		prevNorm = 1
	}

	var rho int64
	for it := 0; it < iters; it++ {
		v = apply(v)
		norm := fixed.MaxAbs(v)
		if norm == 0 {
			return 0
		}
		if ratio := fixed.Div(norm*q, prevNorm); ratio > rho {
			rho = ratio
		}
		for i, x := range v {
			v[i] = fixed.Div(x*q, norm)
		}
		prevNorm = fixed.MaxAbs(v)
		if prevNorm == 0 {
			prevNorm = 1
		}
	}
	return rho
}

// Accept evaluates the two admission bounds for the committed weights.
//
// The slope is Σ |wStarQ[i]| · |normsQ[i]|, accumulated in arbitrary
// precision. Acceptance requires slope < Q² and rhoScaled < Q, both
// strict. Accept is pure and total; the returned Metrics are populated on
// both outcomes.
func Accept(wStarQ, normsQ []int64, q, rhoScaled int64) (bool, Metrics) {
	slope := new(big.Int)
	term := new(big.Int)
	for i, w := range wStarQ {
		var n int64
		if i < len(normsQ) {
			n = normsQ[i]
		}
		term.SetInt64(fixed.Abs(w))
		term.Mul(term, big.NewInt(fixed.Abs(n)))
		slope.Add(slope, term)
	}

	q2 := new(big.Int).Mul(big.NewInt(q), big.NewInt(q))
	gap := new(big.Int)
	if slope.Cmp(q2) < 0 {
		gap.Sub(q2, slope)
	}

	ok := slope.Cmp(q2) < 0 && rhoScaled < q
	return ok, Metrics{
		SlopeScaled: slope,
		GapScaled:   gap,
		Q2:          q2,
		RhoScaled:   rhoScaled,
	}
}
