package money

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrTooManyDecimals = errors.New("amount has too many decimal places")
	ErrNegativeAmount  = errors.New("amount must not be negative")
)

// Amount is a single-currency value in minor units (cents).
type Amount int64

func (a Amount) String() string {
	return FormatMinor(int64(a))
}

func (a Amount) Abs() Amount {
	if a < 0 {
		return -a
	}
	return a
}

func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts "12.50", 12.5 or 12. Negative values and more than two
// decimal places are rejected.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return ErrInvalidAmount
	}
	raw := string(data)
	if data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return ErrInvalidAmount
		}
	}
	parsed, err := Parse(raw)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Parse reads a non-negative decimal with at most two fractional digits.
func Parse(raw string) (Amount, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, ErrInvalidAmount
	}
	if value.IsNegative() {
		return 0, ErrNegativeAmount
	}
	if !value.Equal(value.Truncate(2)) {
		return 0, ErrTooManyDecimals
	}
	minor := value.Shift(2)
	if !minor.IsInteger() || minor.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, ErrInvalidAmount
	}
	return Amount(minor.IntPart()), nil
}

func FormatMinor(value int64) string {
	negative := value < 0
	if negative {
		value = -value
	}
	whole := value / 100
	frac := value % 100
	formatted := fmt.Sprintf("%d.%02d", whole, frac)
	if negative {
		return "-" + formatted
	}
	return formatted
}

func Min(a, b Amount) Amount {
	if a < b {
		return a
	}
	return b
}
