package race

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	nanosPerSecond = decimal.NewFromInt(int64(time.Second))
	halfStep       = decimal.New(5, -3)
)

// RoundTime converts seconds to a duration rounded to the nearest 10ms,
// halves rounding up, negative values included. The rounding happens on the
// shortest decimal form of the float, so 61.005 becomes 61.01 and -0.005
// becomes 0.
func RoundTime(seconds float64) time.Duration {
	d := decimal.NewFromFloat(seconds).Add(halfStep).RoundFloor(2)
	return time.Duration(d.Mul(nanosPerSecond).IntPart())
}
