package channel

// Op is the single-operation capability every channel kind implements.
//
// Apply must be a pure linear map that preserves the shared scale Q:
// Apply(0) = 0, Apply(a+b) = Apply(a)+Apply(b), and the output is at the
// same scale as the input. The engine cannot detect violations of this
// contract at runtime — it is an external invariant the provisioner must
// uphold, not something re-verified per call.
type Op interface {
	Apply(v []int64) []int64
}

// OpFunc adapts a plain function to the Op interface.
type OpFunc func(v []int64) []int64

// Apply calls f(v).
func (f OpFunc) Apply(v []int64) []int64 { return f(v) }

// Channel is an immutable named operator registered with the engine.
type Channel struct {
	// ID is the unique ledger identifier for this channel.
	ID string

	// ClassTag is an opaque integer tag carried through to audit context.
	ClassTag int

	// NormQ must upper-bound the induced operator norm of Op at scale Q.
	// Like the linearity contract on Op, this bound is trusted, not
	// re-verified: an understated NormQ silently weakens the slope gate.
	NormQ int64

	// Op is the channel's linear map.
	Op Op
}
