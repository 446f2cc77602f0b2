package ledger

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrBreach is returned by Decrement when the class budget would go
// negative. The failing decrement applies no mutation.
var ErrBreach = errors.New("ledger: class budget exhausted")

// Row maps a channel to the resource class its activations are charged to.
type Row struct {
	ChannelID string
	Class     string
}

// Ledger is a provision-once, decrement-many budget store. All methods
// are individually atomic; see the package comment for the multi-call
// serialization contract.
type Ledger struct {
	mu      sync.Mutex
	rows    map[string]Row
	budgets map[string]int64
}

// New returns an empty Ledger.
func New() *Ledger {
	return &Ledger{
		rows:    make(map[string]Row),
		budgets: make(map[string]int64),
	}
}

// Register provisions the row for channelID and, if class has not been
// seen before, establishes its initial budget. Rows added later against
// an existing class share its current balance — the first registration
// wins. Register is provisioning-only and must complete before any step.
func (l *Ledger) Register(channelID, class string, budget int64) error {
	if channelID == "" || class == "" {
		return fmt.Errorf("ledger: channel id and class are required")
	}
	if budget < 0 {
		return fmt.Errorf("ledger: initial budget for class %q is negative", class)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.rows[channelID]; ok {
		return fmt.Errorf("ledger: duplicate row for channel %q", channelID)
	}
	l.rows[channelID] = Row{ChannelID: channelID, Class: class}
	if _, ok := l.budgets[class]; !ok {
		l.budgets[class] = budget
	}
	return nil
}

// Row returns the row for channelID and whether one is registered.
// A missing row is a provisioning bug, distinct from an exhausted budget.
func (l *Ledger) Row(channelID string) (Row, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.rows[channelID]
	return r, ok
}

// Decrement subtracts amount from the class budget and returns the new
// remaining value. If the subtraction would go negative — including for a
// class never registered, which reads as zero — it fails with ErrBreach
// and applies no mutation.
func (l *Ledger) Decrement(class string, amount int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rem := l.budgets[class]
	if rem-amount < 0 {
		return rem, fmt.Errorf("%w: class %q has %d, need %d", ErrBreach, class, rem, amount)
	}
	rem -= amount
	l.budgets[class] = rem
	return rem, nil
}

// Remaining returns the budget left for class, or 0 if the class is unknown.
func (l *Ledger) Remaining(class string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.budgets[class]
}

// Classes returns all registered class labels in sorted order.
func (l *Ledger) Classes() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.budgets))
	for c := range l.budgets {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
