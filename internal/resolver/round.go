package resolver

import (
	"math"
	"strconv"

	"github.com/cockroachdb/apd/v3"
)

var halfEven = func() *apd.Context {
	c := apd.BaseContext.WithPrecision(34)
	c.Rounding = apd.RoundHalfEven
	return c
}()

// exactDigits is enough fractional digits in 'e' form to spell out any
// float64 exactly.
const exactDigits = 1074

// roundHalfEven rounds x to the given number of decimal places, sending
// exact halves to the even neighbour (2.5 -> 2, 3.5 -> 4). It works on the
// exact binary value, so 1.15 (stored just below) rounds to 1.1.
func roundHalfEven(x float64, places int32) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	var d, out apd.Decimal
	if _, _, err := d.SetString(strconv.FormatFloat(x, 'e', exactDigits, 64)); err != nil {
		return x
	}
	if _, err := halfEven.Quantize(&out, &d, -places); err != nil {
		return x
	}
	f, err := out.Float64()
	if err != nil {
		return x
	}
	return f
}

func roundInt(x float64) int {
	return int(roundHalfEven(x, 0))
}

func roundIntPtr(x *float64) *int {
	if x == nil {
		return nil
	}
	n := roundInt(*x)
	return &n
}
