package projector

// Budgets holds the integer limits that bound committed channel weights.
// All fields are at the shared scale Q.
type Budgets struct {
	// Limit1Q and Limit2Q are the two scalar weight limits. The effective
	// per-channel cap is the smaller of the two.
	Limit1Q int64
	Limit2Q int64

	// Q is the common fixed-point scaling factor.
	Q int64

	// Meta is opaque passthrough metadata kept for provisioning
	// round-trips; the projector never reads it.
	Meta map[string]string
}

// Cap returns the effective symmetric weight cap, min(Limit1Q, Limit2Q).
func (b Budgets) Cap() int64 {
	if b.Limit1Q < b.Limit2Q {
		return b.Limit1Q
	}
	return b.Limit2Q
}

// Result is the outcome of one projection.
type Result struct {
	// WStarQ is the clipped weight vector, each entry in [-cap, cap].
	WStarQ []int64

	// ExcessPosQ is the total mass clipped off weights above +cap.
	ExcessPosQ int64

	// ExcessNegQ is the total mass clipped off weights below -cap.
	ExcessNegQ int64
}

// Project clips each weight of wTildeQ independently to [-cap, cap] and
// accumulates the clipped excess per side. Projecting an already-feasible
// vector returns it unchanged with zero excess.
func Project(wTildeQ []int64, b Budgets) Result {
	cap := b.Cap()
	out := Result{WStarQ: make([]int64, len(wTildeQ))}
	for i, w := range wTildeQ {
		switch {
		case w > cap:
			out.ExcessPosQ += w - cap
			w = cap
		case w < -cap:
			out.ExcessNegQ += -cap - w
			w = -cap
		}
		out.WStarQ[i] = w
	}
	return out
}
