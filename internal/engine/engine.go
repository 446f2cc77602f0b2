package engine

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/latticegate/latticegate/internal/channel"
	"github.com/latticegate/latticegate/internal/fixed"
	"github.com/latticegate/latticegate/internal/ledger"
	"github.com/latticegate/latticegate/internal/projector"
	"github.com/latticegate/latticegate/internal/stability"
)

// ErrUnknownChannel is returned when a contribution names a channel id
// that was never registered. This is a fatal input-contract violation,
// not a quarantine: the call aborts with no partial result.
var ErrUnknownChannel = errors.New("engine: unknown channel id")

// Engine is the admission orchestrator. Channels and the ledger are
// provisioned once at construction; budgets may be swapped between steps
// (pure per-call data) under the same single-writer discipline as Step.
type Engine struct {
	channels []channel.Channel
	index    map[string]int
	ledger   *ledger.Ledger
	budgets  projector.Budgets
	iters    int
}

// New builds an Engine over the ordered channel roster. Channel order is
// load-bearing: it fixes the ledger walk order and the digest input order.
func New(channels []channel.Channel, led *ledger.Ledger, budgets projector.Budgets, spectralIters int) (*Engine, error) {
	if led == nil {
		return nil, fmt.Errorf("engine: ledger is required")
	}
	if budgets.Q <= 0 {
		return nil, fmt.Errorf("engine: scale Q must be positive, got %d", budgets.Q)
	}
	if spectralIters <= 0 {
		spectralIters = stability.DefaultIters
	}

	idx := make(map[string]int, len(channels))
	for i, ch := range channels {
		if ch.ID == "" {
			return nil, fmt.Errorf("engine: channel %d has empty id", i)
		}
		if ch.Op == nil {
			return nil, fmt.Errorf("engine: channel %q has no operator", ch.ID)
		}
		if ch.NormQ < 0 {
			return nil, fmt.Errorf("engine: channel %q has negative norm", ch.ID)
		}
		if _, dup := idx[ch.ID]; dup {
			return nil, fmt.Errorf("engine: duplicate channel id %q", ch.ID)
		}
		idx[ch.ID] = i
	}

	return &Engine{
		channels: channels,
		index:    idx,
		ledger:   led,
		budgets:  budgets,
		iters:    spectralIters,
	}, nil
}

// Budgets returns the engine's current budget limits.
func (e *Engine) Budgets() projector.Budgets { return e.budgets }

// SetBudgets replaces the projection limits. The scale Q is fixed at
// construction and cannot change. Call only between steps, from the same
// single writer that calls Step.
func (e *Engine) SetBudgets(b projector.Budgets) error {
	if b.Q != e.budgets.Q {
		return fmt.Errorf("engine: scale Q is fixed at %d, got %d", e.budgets.Q, b.Q)
	}
	e.budgets = b
	return nil
}

// Ledger exposes the injected ledger for read-only inspection.
func (e *Engine) Ledger() *ledger.Ledger { return e.ledger }

// Step computes one admission transition. spectralIters overrides the
// configured power-iteration count when positive.
//
// The only error returns are input-contract violations (unknown channel
// id, mismatched vector lengths); every other outcome — committed or
// quarantined — is a structured StepResult.
//
// Arithmetic outside the slope accumulator is int64: the state advance
// multiplies committed weights against caller-owned state values, so
// callers must keep |state[i]| · cap below 2^63 to stay exact. At the
// usual Q around 10^6 that leaves six orders of magnitude of headroom.
func (e *Engine) Step(state, offset []int64, contribs []Contribution, spectralIters int) (*StepResult, error) {
	if len(state) != len(offset) {
		return nil, fmt.Errorf("engine: state dim %d != offset dim %d", len(state), len(offset))
	}
	if spectralIters <= 0 {
		spectralIters = e.iters
	}

	// 1. Aggregate contributions per channel in registration order.
	wTilde := make([]int64, len(e.channels))
	for _, c := range contribs {
		i, ok := e.index[c.ChannelID]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownChannel, c.ChannelID)
		}
		wTilde[i] += c.WeightQ
	}

	// 2. Project onto the weight budget box.
	proj := projector.Project(wTilde, e.budgets)

	// 3-4. Compose the weighted operator and estimate its growth factor.
	q := e.budgets.Q
	kApply := e.compose(proj.WStarQ)
	rho := stability.EstimateRho(kApply, len(state), q, spectralIters)

	// 5. Accept or reject.
	ok, metrics := stability.Accept(proj.WStarQ, e.norms(), q, rho)
	res := &StepResult{
		WTildeQ:     wTilde,
		WStarQ:      proj.WStarQ,
		ExcessPosQ:  proj.ExcessPosQ,
		ExcessNegQ:  proj.ExcessNegQ,
		SlopeScaled: metrics.SlopeScaled,
		GapScaled:   metrics.GapScaled,
		Q2:          metrics.Q2,
		RhoScaled:   metrics.RhoScaled,
	}
	// An ACE rejection is a pure outcome: no mutation happened and the
	// caller gets full diagnostics in the result, so nothing is logged.
	if !ok {
		res.Reason = ReasonACE
		return res, nil
	}

	// 6. Ledger walk: unit cost per active channel, registration order.
	// Decrements are applied as the walk goes and are not rolled back on
	// a later failure in the same call.
	var decrements []Decrement
	for i, ch := range e.channels {
		if proj.WStarQ[i] == 0 {
			continue
		}
		row, found := e.ledger.Row(ch.ID)
		if !found {
			res.Reason = ReasonMissingRow
			slog.Warn("engine: step quarantined",
				"reason", ReasonMissingRow, "channel", ch.ID)
			return res, nil
		}
		rem, err := e.ledger.Decrement(row.Class, 1)
		if err != nil {
			res.Reason = ReasonBreach
			res.Decrements = decrements
			slog.Warn("engine: step quarantined",
				"reason", ReasonBreach, "channel", ch.ID, "class", row.Class, "err", err)
			return res, nil
		}
		decrements = append(decrements, Decrement{Class: row.Class, Remaining: rem})
	}

	// 7. Commit: digest over active (id, weight) pairs in registration order.
	h := sha256.New()
	for i, ch := range e.channels {
		if proj.WStarQ[i] == 0 {
			continue
		}
		h.Write([]byte(ch.ID))
		h.Write([]byte(strconv.FormatInt(proj.WStarQ[i], 10)))
	}

	// 8. Advance.
	kx := kApply(state)
	next := make([]int64, len(state))
	for i := range next {
		next[i] = offset[i] + kx[i]
	}

	res.Committed = true
	res.Digest = hex.EncodeToString(h.Sum(nil))
	res.Decrements = decrements
	res.NextState = next
	return res, nil
}

// compose returns the weighted operator K(v) = Σ floor(w_i · B_i(v) / Q)
// over channels with nonzero committed weight. Zero-weight channels are
// skipped; because each term is linear with Apply(0)=0, skipping is an
// optimization with no observable difference.
func (e *Engine) compose(wStarQ []int64) func(v []int64) []int64 {
	q := e.budgets.Q
	return func(v []int64) []int64 {
		acc := make([]int64, len(v))
		for i, ch := range e.channels {
			wi := wStarQ[i]
			if wi == 0 {
				continue
			}
			bv := ch.Op.Apply(v)
			for j := range acc {
				if j >= len(bv) {
					break
				}
				acc[j] += fixed.Div(wi*bv[j], q)
			}
		}
		return acc
	}
}

// norms returns the per-channel norm bounds in registration order.
func (e *Engine) norms() []int64 {
	out := make([]int64, len(e.channels))
	for i, ch := range e.channels {
		out[i] = ch.NormQ
	}
	return out
}
