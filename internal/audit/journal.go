package audit

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"

	"github.com/latticegate/latticegate/internal/engine"
)

// Context tags one step with the lattice class and anchor it was
// scheduled under. Addressing semantics live with the caller; the journal
// only carries the tags through for fairness accounting.
type Context struct {
	Class  int `json:"class"`
	Anchor int `json:"anchor"`
}

// StatusCommitted and StatusQuarantined are the two step entry statuses.
const (
	StatusCommitted   = "committed"
	StatusQuarantined = "quarantined"
)

type stepEntry struct {
	EntryID     string  `json:"entry_id"`
	Kind        string  `json:"kind"`
	Status      string  `json:"status"`
	Reason      string  `json:"reason,omitempty"`
	Context     Context `json:"context"`
	Digest      string  `json:"digest,omitempty"`
	SlopeScaled string  `json:"slope_scaled"`
	RhoScaled   int64   `json:"rho_scaled"`
}

type decrement struct {
	Class     string `json:"class"`
	Remaining int64  `json:"remaining"`
}

type petcEntry struct {
	EntryID    string            `json:"entry_id"`
	Kind       string            `json:"kind"`
	Context    map[string]string `json:"context"`
	Decrements []decrement       `json:"decrements"`
}

type intervalEntry struct {
	Kind string `json:"kind"`
	T    int    `json:"t"`
}

// Journal appends step entries to w as one JSON object per line.
// Methods are safe for concurrent use, though the usual caller is the
// same single writer that serializes engine steps.
type Journal struct {
	mu         sync.Mutex
	enc        *json.Encoder
	auditEvery int
	committed  int

	// newID is injectable so tests get stable entry ids.
	newID func() string
}

// New returns a Journal writing to w. auditEvery controls how often an
// interval marker is emitted, counted in committed steps; a non-positive
// value disables markers.
func New(w io.Writer, auditEvery int) *Journal {
	return &Journal{
		enc:        json.NewEncoder(w),
		auditEvery: auditEvery,
		newID:      uuid.NewString,
	}
}

// Record journals the outcome of one step under the given context tag and
// returns the entry id assigned to it.
//
// A committed result produces the step entry, a companion "petc" entry
// referencing it, and — when the committed count crosses the configured
// interval — an "audit" marker.
func (j *Journal) Record(res *engine.StepResult, ctx Context) (string, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	id := j.newID()
	entry := stepEntry{
		EntryID:     id,
		Kind:        "ace_step",
		Status:      StatusQuarantined,
		Reason:      string(res.Reason),
		Context:     ctx,
		SlopeScaled: res.SlopeScaled.String(),
		RhoScaled:   res.RhoScaled,
	}
	if res.Committed {
		entry.Status = StatusCommitted
		entry.Digest = res.Digest
	}
	if err := j.enc.Encode(entry); err != nil {
		return "", fmt.Errorf("audit: write step entry: %w", err)
	}
	if !res.Committed {
		return id, nil
	}

	decs := make([]decrement, len(res.Decrements))
	for i, d := range res.Decrements {
		decs[i] = decrement{Class: d.Class, Remaining: d.Remaining}
	}
	petc := petcEntry{
		EntryID:    j.newID(),
		Kind:       "petc",
		Context:    map[string]string{"ace": id},
		Decrements: decs,
	}
	if err := j.enc.Encode(petc); err != nil {
		return "", fmt.Errorf("audit: write petc entry: %w", err)
	}

	j.committed++
	if j.auditEvery > 0 && j.committed%j.auditEvery == 0 {
		if err := j.enc.Encode(intervalEntry{Kind: "audit", T: j.committed}); err != nil {
			return "", fmt.Errorf("audit: write interval entry: %w", err)
		}
	}
	return id, nil
}
