package engine

import "math/big"

// Reason categorizes a quarantined step.
type Reason string

const (
	// ReasonNone marks a committed step.
	ReasonNone Reason = ""

	// ReasonACE means the slope or spectral bound failed. Nothing was
	// mutated; the caller may retry with reduced demand next step.
	ReasonACE Reason = "ace"

	// ReasonMissingRow means a nonzero-weight channel has no ledger row —
	// a provisioning bug surfaced as quarantine. Decrements applied
	// earlier in the same walk remain in effect.
	ReasonMissingRow Reason = "missing_row"

	// ReasonBreach means a class budget ran out mid-walk. The failing
	// decrement applied no mutation, but earlier ones stand.
	ReasonBreach Reason = "breach"
)

// Contribution proposes a weight for one channel. Multiple contributions
// naming the same channel sum during aggregation.
type Contribution struct {
	ChannelID string
	WeightQ   int64
}

// Decrement records one applied ledger decrement: the class charged and
// its remaining budget immediately afterwards.
type Decrement struct {
	Class     string
	Remaining int64
}

// StepResult is the full, inspectable outcome of one step transition.
// Identical inputs against identical ledger state produce bit-identical
// results, digest included.
type StepResult struct {
	// Committed reports whether the step was admitted and applied.
	Committed bool

	// Reason is ReasonNone when Committed, else the quarantine category.
	Reason Reason

	// WTildeQ is the aggregated pre-projection weight vector.
	WTildeQ []int64

	// WStarQ is the committed post-projection weight vector.
	WStarQ []int64

	// ExcessPosQ and ExcessNegQ are the dual clipping quantities.
	ExcessPosQ int64
	ExcessNegQ int64

	// SlopeScaled, GapScaled and Q2 are the wide acceptance diagnostics;
	// RhoScaled is the spectral surrogate at scale Q. Always populated,
	// including on ACE quarantine.
	SlopeScaled *big.Int
	GapScaled   *big.Int
	Q2          *big.Int
	RhoScaled   int64

	// Digest is the hex SHA-256 over each active channel's id and
	// committed weight in registration order. Empty unless Committed.
	Digest string

	// Decrements lists the ledger decrements applied during this step, in
	// walk order. Populated on commit and on breach (the decrements that
	// had already been applied when the breach hit); nil otherwise.
	Decrements []Decrement

	// NextState is offset + K(state), present only when Committed.
	NextState []int64
}
