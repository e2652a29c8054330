package pastel

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// Coin is the number of atomic units in one PSL. Note the denominator is
	// 10^5, not the 10^8 used by most bitcoin derived chains.
	Coin = 100000

	// AmountDecimals is the number of decimal places in a PSL amount string.
	AmountDecimals = 5
)

// ErrInvalidAmount means an amount string could not be parsed.
var ErrInvalidAmount = errors.New("Invalid amount")

// Amount is a quantity of coin in atomic units. All money arithmetic is done
// in atomic units so no floating point error can reach a transaction.
type Amount int64

// ParseAmount converts a decimal PSL string into an Amount. Fractional
// digits past the fifth are rounded half up.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if len(s) == 0 {
		return 0, errors.Wrap(ErrInvalidAmount, "empty")
	}

	if strings.ContainsAny(s, "eE") {
		// Exponent notation shows up in some JSON encoders. Precision loss
		// from the float path is below one atomic unit for any value that
		// fits in the supply.
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, errors.Wrap(ErrInvalidAmount, s)
		}
		return Amount(math.Round(f * Coin)), nil
	}

	negative := false
	switch s[0] {
	case '-':
		negative = true
		s = s[1:]
	case '+':
		s = s[1:]
	}

	whole := s
	frac := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if len(whole) == 0 && len(frac) == 0 {
		return 0, errors.Wrap(ErrInvalidAmount, s)
	}

	var value int64
	if len(whole) > 0 {
		w, err := strconv.ParseInt(whole, 10, 64)
		if err != nil {
			return 0, errors.Wrap(ErrInvalidAmount, s)
		}
		value = w * Coin
	}

	roundUp := false
	if len(frac) > AmountDecimals {
		if frac[AmountDecimals] >= '5' {
			roundUp = true
		}
		frac = frac[:AmountDecimals]
	}
	if len(frac) > 0 {
		f, err := strconv.ParseUint(frac, 10, 64)
		if err != nil {
			return 0, errors.Wrap(ErrInvalidAmount, s)
		}
		for i := len(frac); i < AmountDecimals; i++ {
			f *= 10
		}
		value += int64(f)
	}
	if roundUp {
		value++
	}

	if negative {
		value = -value
	}
	return Amount(value), nil
}

// String returns the amount as a decimal PSL string with all five
// fractional digits.
func (a Amount) String() string {
	units := int64(a)
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%05d", sign, units/Coin, units%Coin)
}

// PSL returns the amount as a count of whole coins. For display only.
func (a Amount) PSL() float64 {
	return float64(a) / Coin
}

// UnmarshalJSON decodes a JSON number or quoted decimal string.
func (a *Amount) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), "\"")
	if s == "null" {
		return nil
	}

	value, err := ParseAmount(s)
	if err != nil {
		return err
	}
	*a = value
	return nil
}

// MarshalJSON encodes the amount as a JSON decimal number.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(a.String()), nil
}
