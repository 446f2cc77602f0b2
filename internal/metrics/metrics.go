package metrics

import (
	"fmt"
	"io"
	"sort"
	"sync"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"

	"github.com/latticegate/latticegate/internal/engine"
	"github.com/latticegate/latticegate/internal/ledger"
)

// Metric family names in the exposition.
const (
	familySteps     = "latticegate_steps_total"
	familyRemaining = "latticegate_ledger_remaining"
)

// Collector accumulates step outcome counters. Safe for concurrent use.
type Collector struct {
	mu          sync.Mutex
	committed   float64
	quarantined map[string]float64 // keyed by reason
}

// NewCollector returns an empty Collector.
func NewCollector() *Collector {
	return &Collector{quarantined: make(map[string]float64)}
}

// Observe counts one step result.
func (c *Collector) Observe(res *engine.StepResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if res.Committed {
		c.committed++
		return
	}
	c.quarantined[string(res.Reason)]++
}

// WriteSnapshot encodes the current counters plus the per-class remaining
// budgets of led into w in Prometheus text exposition format. Families
// and label values are emitted in sorted order so snapshots of identical
// state are byte-identical.
func (c *Collector) WriteSnapshot(w io.Writer, led *ledger.Ledger) error {
	c.mu.Lock()
	steps := &dto.MetricFamily{
		Name: str(familySteps),
		Help: str("Total admission steps by outcome."),
		Type: dto.MetricType_COUNTER.Enum(),
		Metric: []*dto.Metric{{
			Label:   []*dto.LabelPair{label("status", "committed")},
			Counter: &dto.Counter{Value: f64(c.committed)},
		}},
	}
	reasons := make([]string, 0, len(c.quarantined))
	for r := range c.quarantined {
		reasons = append(reasons, r)
	}
	sort.Strings(reasons)
	for _, r := range reasons {
		steps.Metric = append(steps.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				label("status", "quarantined"),
				label("reason", r),
			},
			Counter: &dto.Counter{Value: f64(c.quarantined[r])},
		})
	}
	c.mu.Unlock()

	remaining := &dto.MetricFamily{
		Name: str(familyRemaining),
		Help: str("Remaining activation budget per resource class."),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, class := range led.Classes() {
		remaining.Metric = append(remaining.Metric, &dto.Metric{
			Label: []*dto.LabelPair{label("class", class)},
			Gauge: &dto.Gauge{Value: f64(float64(led.Remaining(class)))},
		})
	}

	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range []*dto.MetricFamily{remaining, steps} {
		if len(mf.Metric) == 0 {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("metrics: encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

func str(s string) *string { return &s }

func f64(v float64) *float64 { return &v }

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: str(name), Value: str(value)}
}
