package channel

import (
	"fmt"

	"github.com/latticegate/latticegate/internal/fixed"
)

// Identity returns the identity operator: Apply(v) = v.
func Identity() Op {
	return OpFunc(func(v []int64) []int64 {
		out := make([]int64, len(v))
		copy(out, v)
		return out
	})
}

// Diag returns a diagonal gain operator at scale q:
// out[i] = floor(gainsQ[i] * v[i] / q). Indices beyond len(gainsQ) pass
// through a zero gain.
func Diag(gainsQ []int64, q int64) Op {
	return OpFunc(func(v []int64) []int64 {
		out := make([]int64, len(v))
		for i, x := range v {
			if i >= len(gainsQ) {
				break
			}
			out[i] = fixed.Div(gainsQ[i]*x, q)
		}
		return out
	})
}

// Shift returns a cyclic shift operator: out[(i+k) mod n] = v[i].
// A negative k shifts the other way.
func Shift(k int) Op {
	return OpFunc(func(v []int64) []int64 {
		n := len(v)
		out := make([]int64, n)
		if n == 0 {
			return out
		}
		s := ((k % n) + n) % n
		for i, x := range v {
			out[(i+s)%n] = x
		}
		return out
	})
}

// Dense returns a dense matrix operator at scale q:
// out[i] = floor(sum_j rowsQ[i][j] * v[j] / q). The matrix must be square
// in the engine dimension; short rows are treated as zero-padded.
func Dense(rowsQ [][]int64, q int64) Op {
	return OpFunc(func(v []int64) []int64 {
		out := make([]int64, len(v))
		for i := range out {
			if i >= len(rowsQ) {
				break
			}
			row := rowsQ[i]
			var acc int64
			for j, x := range v {
				if j >= len(row) {
					break
				}
				acc += row[j] * x
			}
			out[i] = fixed.Div(acc, q)
		}
		return out
	})
}

// FromKind constructs a built-in operator by kind name. It is the single
// registry new channel kinds hook into; the engine itself never switches
// on kind.
func FromKind(kind string, q int64, gainsQ []int64, shift int, matrixQ [][]int64) (Op, error) {
	switch kind {
	case "identity":
		return Identity(), nil
	case "diag":
		if len(gainsQ) == 0 {
			return nil, fmt.Errorf("channel: diag kind requires gains_q")
		}
		return Diag(gainsQ, q), nil
	case "shift":
		return Shift(shift), nil
	case "dense":
		if len(matrixQ) == 0 {
			return nil, fmt.Errorf("channel: dense kind requires matrix_q")
		}
		return Dense(matrixQ, q), nil
	default:
		return nil, fmt.Errorf("channel: unknown operator kind %q", kind)
	}
}
