package fixed

// Div divides a by b rounding toward negative infinity.
//
// Every "_Q" quantity in the engine is a real value times the scale Q,
// combined with floor division. Go's native integer division truncates
// toward zero, which disagrees with floor for negative operands, so all
// scale-combining arithmetic must go through Div to stay bit-identical
// across call sites and platforms.
func Div(a, b int64) int64 {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}

// MaxAbs returns the largest absolute value in v, or 0 for an empty vector.
func MaxAbs(v []int64) int64 {
	var m int64
	for _, x := range v {
		if x < 0 {
			x = -x
		}
		if x > m {
			m = x
		}
	}
	return m
}

// Abs returns the absolute value of x.
func Abs(x int64) int64 {
	if x < 0 {
		return -x
	}
	return x
}
