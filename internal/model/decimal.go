package model

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// Decimal is an exact monetary amount. The zero value is "unset" and is
// written to the warehouse as NULL.
type Decimal struct {
	value apd.Decimal
	valid bool
}

// maxMoney bounds the integer part of a NUMERIC(19, 5) money column.
var maxMoney = apd.New(1, 14)

// ErrMoneyRange is returned for amounts a money column cannot hold.
var ErrMoneyRange = errors.New("amount out of range")

// NewDecimal parses s. NaN and infinities are rejected.
func NewDecimal(s string) (Decimal, error) {
	var d apd.Decimal
	if _, _, err := d.SetString(s); err != nil {
		return Decimal{}, fmt.Errorf("invalid decimal %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return Decimal{}, fmt.Errorf("invalid decimal %q: not finite", s)
	}
	return Decimal{value: d, valid: true}, nil
}

// CheckMoney reports ErrMoneyRange when the absolute value of d is 1e14 or
// more. An unset decimal always fits.
func (d Decimal) CheckMoney() error {
	if !d.valid {
		return nil
	}
	var abs apd.Decimal
	abs.Abs(&d.value)
	if abs.Cmp(maxMoney) >= 0 {
		return fmt.Errorf("%w: %s", ErrMoneyRange, d.value.Text('g'))
	}
	return nil
}

// MustDecimal is NewDecimal for literals in tests and generators.
func MustDecimal(s string) Decimal {
	d, err := NewDecimal(s)
	if err != nil {
		panic(err)
	}
	return d
}

func NewDecimalFromInt64(i int64) Decimal {
	var d apd.Decimal
	d.SetInt64(i)
	return Decimal{value: d, valid: true}
}

func (d Decimal) Valid() bool { return d.valid }

func (d Decimal) String() string {
	if !d.valid {
		return ""
	}
	return d.value.Text('f')
}

// Cmp compares two set decimals numerically; an unset decimal sorts first.
func (d Decimal) Cmp(other Decimal) int {
	switch {
	case !d.valid && !other.valid:
		return 0
	case !d.valid:
		return -1
	case !other.valid:
		return 1
	}
	return d.value.Cmp(&other.value)
}

// Mul returns the product of d and other.
func (d Decimal) Mul(other Decimal) Decimal {
	if !d.valid || !other.valid {
		return Decimal{}
	}
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	if _, err := ctx.Mul(&result, &d.value, &other.value); err != nil {
		return Decimal{}
	}
	return Decimal{value: result, valid: true}
}

// Add returns the sum of d and other. An unset operand counts as zero.
func (d Decimal) Add(other Decimal) Decimal {
	switch {
	case !d.valid:
		return other
	case !other.valid:
		return d
	}
	var result apd.Decimal
	ctx := apd.BaseContext.WithPrecision(34)
	if _, err := ctx.Add(&result, &d.value, &other.value); err != nil {
		return Decimal{}
	}
	return Decimal{value: result, valid: true}
}

func (d Decimal) MarshalJSON() ([]byte, error) {
	if !d.valid {
		return []byte("null"), nil
	}
	return []byte(d.value.Text('f')), nil
}

// UnmarshalJSON accepts a JSON number, a quoted number or null.
func (d *Decimal) UnmarshalJSON(b []byte) error {
	s := string(b)
	if s == "null" || s == `""` {
		*d = Decimal{}
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	v, err := NewDecimal(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Value binds the decimal as its exact text form so NUMERIC columns keep
// full precision regardless of driver.
func (d Decimal) Value() (driver.Value, error) {
	if !d.valid {
		return nil, nil
	}
	return d.value.Text('f'), nil
}

func (d *Decimal) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Decimal{}
		return nil
	case []byte:
		return d.scanString(string(v))
	case string:
		return d.scanString(v)
	case int64:
		*d = NewDecimalFromInt64(v)
		return nil
	case float64:
		return d.scanString(fmt.Sprintf("%v", v))
	default:
		return fmt.Errorf("scan decimal: unsupported type %T", src)
	}
}

func (d *Decimal) scanString(s string) error {
	v, err := NewDecimal(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}
