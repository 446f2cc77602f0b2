package ledger

import (
	"errors"
	"reflect"
	"testing"
)

func TestRegister_RequiredFields(t *testing.T) {
	l := New()
	if err := l.Register("", "X", 1); err == nil {
		t.Error("empty channel id should fail")
	}
	if err := l.Register("c1", "", 1); err == nil {
		t.Error("empty class should fail")
	}
	if err := l.Register("c1", "X", -1); err == nil {
		t.Error("negative budget should fail")
	}
}

func TestRegister_DuplicateChannelRejected(t *testing.T) {
	l := New()
	if err := l.Register("c1", "X", 5); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := l.Register("c1", "Y", 5); err == nil {
		t.Error("duplicate channel row should fail")
	}
}

func TestRegister_FirstBudgetPerClassWins(t *testing.T) {
	l := New()
	if err := l.Register("c1", "X", 5); err != nil {
		t.Fatal(err)
	}
	if err := l.Register("c2", "X", 100); err != nil {
		t.Fatal(err)
	}
	if got := l.Remaining("X"); got != 5 {
		t.Errorf("Remaining(X) = %d, want 5 (first registration wins)", got)
	}
}

func TestDecrement_SubtractsAndReturnsRemaining(t *testing.T) {
	l := New()
	if err := l.Register("c1", "X", 3); err != nil {
		t.Fatal(err)
	}
	rem, err := l.Decrement("X", 2)
	if err != nil {
		t.Fatalf("Decrement: %v", err)
	}
	if rem != 1 {
		t.Errorf("remaining = %d, want 1", rem)
	}
	if got := l.Remaining("X"); got != 1 {
		t.Errorf("Remaining(X) = %d, want 1", got)
	}
}

func TestDecrement_BreachAppliesNoMutation(t *testing.T) {
	l := New()
	if err := l.Register("c1", "X", 1); err != nil {
		t.Fatal(err)
	}
	if _, err := l.Decrement("X", 2); !errors.Is(err, ErrBreach) {
		t.Fatalf("err = %v, want ErrBreach", err)
	}
	// The failing call must leave the balance untouched.
	if got := l.Remaining("X"); got != 1 {
		t.Errorf("Remaining(X) = %d after breach, want 1", got)
	}
}

func TestDecrement_UnknownClassReadsAsZero(t *testing.T) {
	l := New()
	if _, err := l.Decrement("ghost", 1); !errors.Is(err, ErrBreach) {
		t.Errorf("err = %v, want ErrBreach", err)
	}
}

func TestDecrement_ZeroAmountOnExhaustedClass(t *testing.T) {
	l := New()
	if err := l.Register("c1", "X", 0); err != nil {
		t.Fatal(err)
	}
	rem, err := l.Decrement("X", 0)
	if err != nil {
		t.Fatalf("zero decrement should succeed, got %v", err)
	}
	if rem != 0 {
		t.Errorf("remaining = %d, want 0", rem)
	}
}

func TestRemaining_UnknownClassIsZero(t *testing.T) {
	if got := New().Remaining("nope"); got != 0 {
		t.Errorf("Remaining = %d, want 0", got)
	}
}

func TestRow_Lookup(t *testing.T) {
	l := New()
	if err := l.Register("c1", "X", 1); err != nil {
		t.Fatal(err)
	}
	row, ok := l.Row("c1")
	if !ok || row.Class != "X" || row.ChannelID != "c1" {
		t.Errorf("Row(c1) = %+v, %v", row, ok)
	}
	if _, ok := l.Row("c2"); ok {
		t.Error("Row(c2) should be absent")
	}
}

func TestClasses_SortedOrder(t *testing.T) {
	l := New()
	for _, r := range []struct {
		ch, cl string
	}{{"c1", "Z"}, {"c2", "A"}, {"c3", "M"}} {
		if err := l.Register(r.ch, r.cl, 1); err != nil {
			t.Fatal(err)
		}
	}
	want := []string{"A", "M", "Z"}
	if got := l.Classes(); !reflect.DeepEqual(got, want) {
		t.Errorf("Classes = %v, want %v", got, want)
	}
}
