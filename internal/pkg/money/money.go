package money

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Amount is a currency value in minor units (kobo, cents).
type Amount int64

const Zero Amount = 0

// minorExp is the decimal exponent of one minor unit.
const minorExp = -2

// Parse reads a major-unit string such as "1500.50". More than two decimals is rejected
// instead of rounded.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return FromDecimal(d)
}

// FromDecimal converts a major-unit decimal, failing on sub-minor precision.
func FromDecimal(d decimal.Decimal) (Amount, error) {
	minor := d.Shift(-minorExp)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("amount %s has more than two decimal places", d.String())
	}
	if minor.Abs().GreaterThan(decimal.NewFromInt(1 << 62)) {
		return 0, fmt.Errorf("amount %s out of range", d.String())
	}
	return Amount(minor.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), minorExp)
}

// String renders the amount with exactly two decimals, e.g. "1500.00".
func (a Amount) String() string {
	return a.Decimal().StringFixed(2)
}

// Mul multiplies by an integer count.
func (a Amount) Mul(n int) Amount {
	return a * Amount(n)
}

// DivRound divides by n and rounds half away from zero to the nearest minor unit.
func (a Amount) DivRound(n int) Amount {
	if n <= 0 {
		return 0
	}
	q := decimal.NewFromInt(int64(a)).Div(decimal.NewFromInt(int64(n))).Round(0)
	return Amount(q.IntPart())
}

func (a Amount) IsNegative() bool {
	return a < 0
}

// Sum adds amounts without intermediate conversion.
func Sum(amounts ...Amount) Amount {
	var total Amount
	for _, v := range amounts {
		total += v
	}
	return total
}

// MarshalJSON encodes as a quoted two-decimal string so clients never see float rounding.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON accepts either "1500.50" or 1500.50.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		s = string(data)
	}
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*a = v
	return nil
}

// Value stores the amount as BIGINT minor units.
func (a Amount) Value() (driver.Value, error) {
	return int64(a), nil
}

func (a *Amount) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		*a = Amount(v)
	case int32:
		*a = Amount(v)
	case nil:
		*a = 0
	default:
		return fmt.Errorf("cannot scan %T into money.Amount", src)
	}
	return nil
}
