// internal/models/money.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Money is a non-floating amount in minor units (cents). 1000 is "10.00".
type Money int64

var ErrInvalidMoney = errors.New("invalid money amount")

// ParseMoney parses a decimal string with at most two fractional digits.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidMoney
	}

	negative := false
	if s[0] == '-' {
		negative = true
		s = s[1:]
	}

	whole, frac, hasFrac := strings.Cut(s, ".")
	if whole == "" || (hasFrac && (frac == "" || len(frac) > 2)) {
		return 0, ErrInvalidMoney
	}
	for len(frac) < 2 {
		frac += "0"
	}

	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil || major < 0 || major > math.MaxInt64/100-1 {
		return 0, ErrInvalidMoney
	}
	minor, err := strconv.ParseInt(frac, 10, 64)
	if err != nil || minor < 0 {
		return 0, ErrInvalidMoney
	}

	amount := major*100 + minor
	if negative {
		amount = -amount
	}
	return Money(amount), nil
}

func (m Money) Cents() int64 { return int64(m) }

func (m Money) IsZero() bool { return m == 0 }

func (m Money) IsNegative() bool { return m < 0 }

// String formats the amount with two decimals, e.g. "10.00".
func (m Money) String() string {
	amount := int64(m)
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%d.%02d", sign, amount/100, amount%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts "10.00" as well as a bare JSON number.
func (m *Money) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return ErrInvalidMoney
		}
		s = n.String()
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func (m Money) Value() (driver.Value, error) {
	return int64(m), nil
}

func (m *Money) Scan(value interface{}) error {
	switch v := value.(type) {
	case int64:
		*m = Money(v)
	case int32:
		*m = Money(v)
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return err
		}
		*m = Money(n)
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return err
		}
		*m = Money(n)
	case nil:
		*m = 0
	default:
		return fmt.Errorf("money: unsupported scan type %T", value)
	}
	return nil
}
