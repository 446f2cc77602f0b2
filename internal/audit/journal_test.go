package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"testing"

	"github.com/latticegate/latticegate/internal/engine"
)

// sequentialIDs replaces uuid generation so entry ids are predictable.
func sequentialIDs(j *Journal) {
	n := 0
	j.newID = func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func committedResult() *engine.StepResult {
	return &engine.StepResult{
		Committed:   true,
		SlopeScaled: big.NewInt(250_000_000_000),
		GapScaled:   big.NewInt(750_000_000_000),
		Q2:          big.NewInt(1_000_000_000_000),
		RhoScaled:   500_000,
		Digest:      "abc123",
		Decrements:  []engine.Decrement{{Class: "X", Remaining: 0}},
	}
}

func quarantinedResult() *engine.StepResult {
	return &engine.StepResult{
		Reason:      engine.ReasonBreach,
		SlopeScaled: big.NewInt(1),
		GapScaled:   big.NewInt(0),
		Q2:          big.NewInt(4),
		RhoScaled:   2,
	}
}

func lines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimSpace(buf.String()), "\n")
}

func TestRecord_CommittedWritesStepAndPetc(t *testing.T) {
	var buf bytes.Buffer
	j := New(&buf, 0)
	sequentialIDs(j)

	id, err := j.Record(committedResult(), Context{Class: 3, Anchor: 1})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if id != "id-1" {
		t.Errorf("entry id = %q, want id-1", id)
	}

	got := lines(&buf)
	if len(got) != 2 {
		t.Fatalf("wrote %d lines, want 2", len(got))
	}

	var step map[string]any
	if err := json.Unmarshal([]byte(got[0]), &step); err != nil {
		t.Fatal(err)
	}
	if step["kind"] != "ace_step" || step["status"] != StatusCommitted {
		t.Errorf("step entry = %v", step)
	}
	if step["digest"] != "abc123" {
		t.Errorf("digest = %v, want abc123", step["digest"])
	}
	ctx := step["context"].(map[string]any)
	if ctx["class"] != float64(3) || ctx["anchor"] != float64(1) {
		t.Errorf("context = %v", ctx)
	}

	var petc map[string]any
	if err := json.Unmarshal([]byte(got[1]), &petc); err != nil {
		t.Fatal(err)
	}
	if petc["kind"] != "petc" {
		t.Errorf("second entry kind = %v, want petc", petc["kind"])
	}
	if ref := petc["context"].(map[string]any)["ace"]; ref != "id-1" {
		t.Errorf("petc ace ref = %v, want id-1", ref)
	}
	decs := petc["decrements"].([]any)
	if len(decs) != 1 {
		t.Fatalf("decrements = %v", decs)
	}
}

func TestRecord_QuarantinedWritesSingleEntry(t *testing.T) {
	var buf bytes.Buffer
	j := New(&buf, 0)
	sequentialIDs(j)

	if _, err := j.Record(quarantinedResult(), Context{}); err != nil {
		t.Fatal(err)
	}
	got := lines(&buf)
	if len(got) != 1 {
		t.Fatalf("wrote %d lines, want 1", len(got))
	}
	var step map[string]any
	if err := json.Unmarshal([]byte(got[0]), &step); err != nil {
		t.Fatal(err)
	}
	if step["status"] != StatusQuarantined || step["reason"] != "breach" {
		t.Errorf("entry = %v", step)
	}
	if _, ok := step["digest"]; ok {
		t.Error("quarantined entry must omit digest")
	}
}

func TestRecord_IntervalMarkerEveryN(t *testing.T) {
	var buf bytes.Buffer
	j := New(&buf, 2)
	sequentialIDs(j)

	for i := 0; i < 4; i++ {
		if _, err := j.Record(committedResult(), Context{}); err != nil {
			t.Fatal(err)
		}
	}
	var markers []int
	for _, ln := range lines(&buf) {
		var e map[string]any
		if err := json.Unmarshal([]byte(ln), &e); err != nil {
			t.Fatal(err)
		}
		if e["kind"] == "audit" {
			markers = append(markers, int(e["t"].(float64)))
		}
	}
	// 4 committed steps with audit_every=2 → markers at t=2 and t=4.
	if len(markers) != 2 || markers[0] != 2 || markers[1] != 4 {
		t.Errorf("markers = %v, want [2 4]", markers)
	}
}

func TestRecord_QuarantinesDoNotAdvanceInterval(t *testing.T) {
	var buf bytes.Buffer
	j := New(&buf, 1)
	sequentialIDs(j)

	if _, err := j.Record(quarantinedResult(), Context{}); err != nil {
		t.Fatal(err)
	}
	for _, ln := range lines(&buf) {
		if strings.Contains(ln, `"kind":"audit"`) {
			t.Error("quarantined step must not emit an interval marker")
		}
	}
}

func TestRecord_SlopeSerializedAsDecimalText(t *testing.T) {
	var buf bytes.Buffer
	j := New(&buf, 0)
	sequentialIDs(j)

	if _, err := j.Record(committedResult(), Context{}); err != nil {
		t.Fatal(err)
	}
	var step map[string]any
	if err := json.Unmarshal([]byte(lines(&buf)[0]), &step); err != nil {
		t.Fatal(err)
	}
	if step["slope_scaled"] != "250000000000" {
		t.Errorf("slope_scaled = %v, want decimal string", step["slope_scaled"])
	}
}
