package metrics

import (
	"bytes"
	"math/big"
	"testing"

	"github.com/prometheus/common/expfmt"

	"github.com/latticegate/latticegate/internal/engine"
	"github.com/latticegate/latticegate/internal/ledger"
)

func result(committed bool, reason engine.Reason) *engine.StepResult {
	return &engine.StepResult{
		Committed:   committed,
		Reason:      reason,
		SlopeScaled: big.NewInt(0),
		GapScaled:   big.NewInt(0),
		Q2:          big.NewInt(1),
	}
}

func TestWriteSnapshot_RoundTripsThroughTextParser(t *testing.T) {
	c := NewCollector()
	c.Observe(result(true, engine.ReasonNone))
	c.Observe(result(true, engine.ReasonNone))
	c.Observe(result(false, engine.ReasonBreach))
	c.Observe(result(false, engine.ReasonACE))

	led := ledger.New()
	if err := led.Register("c1", "X", 7); err != nil {
		t.Fatal(err)
	}
	if err := led.Register("c2", "Y", 3); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := c.WriteSnapshot(&buf, led); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}

	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(&buf)
	if err != nil {
		t.Fatalf("parse exposition: %v", err)
	}

	steps, ok := mfs[familySteps]
	if !ok {
		t.Fatalf("missing family %s", familySteps)
	}
	byLabels := map[string]float64{}
	for _, m := range steps.GetMetric() {
		key := ""
		for _, lp := range m.GetLabel() {
			key += lp.GetName() + "=" + lp.GetValue() + ";"
		}
		byLabels[key] = m.GetCounter().GetValue()
	}
	if got := byLabels["status=committed;"]; got != 2 {
		t.Errorf("committed counter = %v, want 2", got)
	}
	if got := byLabels["reason=breach;status=quarantined;"] + byLabels["status=quarantined;reason=breach;"]; got != 1 {
		t.Errorf("breach counter = %v, want 1", got)
	}

	remaining, ok := mfs[familyRemaining]
	if !ok {
		t.Fatalf("missing family %s", familyRemaining)
	}
	byClass := map[string]float64{}
	for _, m := range remaining.GetMetric() {
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "class" {
				byClass[lp.GetValue()] = m.GetGauge().GetValue()
			}
		}
	}
	if byClass["X"] != 7 || byClass["Y"] != 3 {
		t.Errorf("remaining gauges = %v, want X=7 Y=3", byClass)
	}
}

func TestWriteSnapshot_DeterministicBytes(t *testing.T) {
	build := func() *bytes.Buffer {
		c := NewCollector()
		c.Observe(result(false, engine.ReasonMissingRow))
		c.Observe(result(false, engine.ReasonACE))
		c.Observe(result(true, engine.ReasonNone))

		led := ledger.New()
		for _, r := range []struct{ ch, cl string }{{"c1", "B"}, {"c2", "A"}} {
			if err := led.Register(r.ch, r.cl, 1); err != nil {
				t.Fatal(err)
			}
		}
		var buf bytes.Buffer
		if err := c.WriteSnapshot(&buf, led); err != nil {
			t.Fatal(err)
		}
		return &buf
	}
	a, b := build(), build()
	if !bytes.Equal(a.Bytes(), b.Bytes()) {
		t.Errorf("snapshots of identical state differ:\n%s\n---\n%s", a, b)
	}
}

func TestWriteSnapshot_EmptyCollector(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCollector().WriteSnapshot(&buf, ledger.New()); err != nil {
		t.Fatalf("WriteSnapshot: %v", err)
	}
	// Only the committed=0 counter family is present; it must still parse.
	var parser expfmt.TextParser
	if _, err := parser.TextToMetricFamilies(&buf); err != nil {
		t.Errorf("parse exposition: %v", err)
	}
}
