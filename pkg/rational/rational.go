// Frontline Perception System
// Copyright (C) 2020-2025 TurbineOne LLC
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

// Package rational implements exact rational numbers used for timeline time,
// time bases and frame rates. Values are always stored reduced, so two
// Rationals representing the same number compare equal with ==, and a
// Rational can be used as a map key.
package rational

import (
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

// Rational is a reduced fraction. The zero value is zero, which is also the
// "null" time used for unset lengths.
type Rational struct {
	num int64
	den int64 // 0 only for the zero value
}

//nolint:gochecknoglobals // Immutable sentinels.
var (
	// Zero is the null time.
	Zero = Rational{}
	// Max is the largest representable time. Arithmetic saturates to it.
	Max = Rational{num: math.MaxInt64, den: 1}
	// Min is the smallest representable time.
	Min = Rational{num: math.MinInt64 + 1, den: 1}
)

type invalidRationalError struct {
	text string
}

func (e *invalidRationalError) Error() string {
	return fmt.Sprintf("invalid rational %q", e.text)
}

// New returns num/den reduced. A zero denominator yields Zero.
func New(num, den int64) Rational {
	if den == 0 || num == 0 {
		return Zero
	}

	return fromBig(new(big.Rat).SetFrac64(num, den))
}

// FromInt returns n/1.
func FromInt(n int64) Rational {
	return New(n, 1)
}

// FromFloat returns the closest rational to f. Only used for user input.
func FromFloat(f float64) Rational {
	r := new(big.Rat)
	if r.SetFloat64(f) == nil {
		return Zero
	}

	return fromBig(r)
}

// fromBig converts r, saturating to Max/Min if it doesn't fit in int64.
func fromBig(r *big.Rat) Rational {
	if r.Sign() == 0 {
		return Zero
	}

	num, den := r.Num(), r.Denom()
	if !num.IsInt64() || !den.IsInt64() {
		f, _ := r.Float64()
		if math.IsInf(f, 0) || math.Abs(f) >= 1<<62 {
			if r.Sign() > 0 {
				return Max
			}

			return Min
		}

		// Fall back to a fixed binary denominator, which always fits.
		const approxDen = 1 << 20

		return New(int64(math.Round(f*approxDen)), approxDen)
	}

	return Rational{num: num.Int64(), den: den.Int64()}
}

func (r Rational) big() *big.Rat {
	if r.den == 0 {
		return new(big.Rat)
	}

	return new(big.Rat).SetFrac64(r.num, r.den)
}

// Num returns the numerator.
func (r Rational) Num() int64 { return r.num }

// Den returns the denominator, 1 for zero.
func (r Rational) Den() int64 {
	if r.den == 0 {
		return 1
	}

	return r.den
}

// IsNull reports whether r is zero.
func (r Rational) IsNull() bool { return r.num == 0 }

// Add returns r+o.
func (r Rational) Add(o Rational) Rational {
	if r.IsInfinite() || o.IsInfinite() {
		return saturate(r, o)
	}

	return fromBig(new(big.Rat).Add(r.big(), o.big()))
}

// Sub returns r-o.
func (r Rational) Sub(o Rational) Rational {
	return r.Add(o.Neg())
}

// Mul returns r*o.
func (r Rational) Mul(o Rational) Rational {
	return fromBig(new(big.Rat).Mul(r.big(), o.big()))
}

// Div returns r/o. Division by zero yields Zero.
func (r Rational) Div(o Rational) Rational {
	if o.IsNull() {
		return Zero
	}

	return fromBig(new(big.Rat).Quo(r.big(), o.big()))
}

// Neg returns -r.
func (r Rational) Neg() Rational {
	switch r {
	case Max:
		return Min
	case Min:
		return Max
	}

	return Rational{num: -r.num, den: r.den}
}

// Flipped returns 1/r, e.g., a frame rate as a time base.
func (r Rational) Flipped() Rational {
	if r.IsNull() {
		return Zero
	}

	if r.num < 0 {
		return Rational{num: -r.den, den: -r.num}
	}

	return Rational{num: r.den, den: r.num}
}

// IsInfinite reports whether r is one of the saturating sentinels.
func (r Rational) IsInfinite() bool {
	return r == Max || r == Min
}

func saturate(r, o Rational) Rational {
	switch {
	case r == Max && o == Min, r == Min && o == Max:
		return Zero
	case r == Max || o == Max:
		return Max
	default:
		return Min
	}
}

// Cmp returns -1, 0 or 1.
func (r Rational) Cmp(o Rational) int {
	if r == o {
		return 0
	}

	return r.big().Cmp(o.big())
}

// Less reports r < o.
func (r Rational) Less(o Rational) bool { return r.Cmp(o) < 0 }

// LessEq reports r <= o.
func (r Rational) LessEq(o Rational) bool { return r.Cmp(o) <= 0 }

// Sign returns -1, 0 or 1.
func (r Rational) Sign() int {
	switch {
	case r.num < 0:
		return -1
	case r.num > 0:
		return 1
	default:
		return 0
	}
}

// Float64 returns the nearest float.
func (r Rational) Float64() float64 {
	if r.den == 0 {
		return 0
	}

	return float64(r.num) / float64(r.den)
}

// String formats as "num/den", or "num" for integers.
func (r Rational) String() string {
	if r.Den() == 1 {
		return strconv.FormatInt(r.num, 10)
	}

	return strconv.FormatInt(r.num, 10) + "/" + strconv.FormatInt(r.den, 10)
}

// MarshalText implements encoding.TextMarshaler.
func (r Rational) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText accepts "n/d", integers and decimals, e.g. "30000/1001" or "29.97".
func (r *Rational) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" {
		*r = Zero

		return nil
	}

	b, ok := new(big.Rat).SetString(s)
	if !ok {
		return &invalidRationalError{text: s}
	}

	*r = fromBig(b)

	return nil
}

// MinOf returns the smaller of a and b.
func MinOf(a, b Rational) Rational {
	if b.Less(a) {
		return b
	}

	return a
}

// MaxOf returns the larger of a and b.
func MaxOf(a, b Rational) Rational {
	if a.Less(b) {
		return b
	}

	return a
}

// TimestampToTime converts a timestamp in units of tb to time.
func TimestampToTime(ts int64, tb Rational) Rational {
	return FromInt(ts).Mul(tb)
}

// TimeToTimestamp converts time to a timestamp in units of tb, rounding down.
func TimeToTimestamp(t, tb Rational) int64 {
	if tb.IsNull() {
		return 0
	}

	q := new(big.Rat).Quo(t.big(), tb.big())

	return floorDiv(q.Num(), q.Denom())
}

// TimeToTimestampCeil is TimeToTimestamp rounding up.
func TimeToTimestampCeil(t, tb Rational) int64 {
	if tb.IsNull() {
		return 0
	}

	q := new(big.Rat).Quo(t.big(), tb.big())

	return ceilDiv(q.Num(), q.Denom())
}

// RescaleTimestamp converts ts from the src time base to dst, rounding to nearest.
func RescaleTimestamp(ts int64, src, dst Rational) int64 {
	if dst.IsNull() {
		return 0
	}

	q := new(big.Rat).Quo(TimestampToTime(ts, src).big(), dst.big())
	f, _ := q.Float64()

	return int64(math.Round(f))
}

// RescaleTimestampCeil converts ts from the src time base to dst, rounding up.
func RescaleTimestampCeil(ts int64, src, dst Rational) int64 {
	return TimeToTimestampCeil(TimestampToTime(ts, src), dst)
}

func floorDiv(num, den *big.Int) int64 {
	// Euclidean division equals floor division for a positive denominator.
	return new(big.Int).Div(num, den).Int64()
}

func ceilDiv(num, den *big.Int) int64 {
	q, m := new(big.Int).DivMod(num, den, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}

	return q.Int64()
}
