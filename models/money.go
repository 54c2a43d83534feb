package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// Money is an amount in cents. Integer cents keep protected figures exact
// across JSON round trips through an enhancer.
type Money int64

// Dollars builds a Money value from whole dollars and cents.
func Dollars(dollars, cents int64) Money {
	return Money(dollars*100 + cents)
}

// Cents returns the raw amount in cents.
func (m Money) Cents() int64 {
	return int64(m)
}

// ErrMoneyOverflow is returned when an amount leaves the int64 cents range.
var ErrMoneyOverflow = errors.New("amount overflows")

// Mul returns m*n, or ErrMoneyOverflow when the product does not fit.
func (m Money) Mul(n int64) (Money, error) {
	a := int64(m)
	if a == 0 || n == 0 {
		return 0, nil
	}
	if (a == -1 && n == math.MinInt64) || (n == -1 && a == math.MinInt64) {
		return 0, ErrMoneyOverflow
	}
	p := a * n
	if p/n != a {
		return 0, ErrMoneyOverflow
	}
	return Money(p), nil
}

// Add returns m+o, or ErrMoneyOverflow when the sum does not fit.
func (m Money) Add(o Money) (Money, error) {
	a, b := int64(m), int64(o)
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrMoneyOverflow
	}
	return Money(a + b), nil
}

// String formats the amount as a fixed two-decimal figure, e.g. "2450.00".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// MarshalJSON writes the amount as a JSON number with two decimals.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string. The text is
// parsed digit by digit so "2450.00" never passes through a float.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	text := string(data)
	if strings.HasPrefix(text, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		text = s
	}
	parsed, err := ParseMoney(text)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// UnmarshalYAML reads amounts from bundle files, e.g. `amount: 2200.00`.
func (m *Money) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: amount must be a scalar", value.Line)
	}
	parsed, err := ParseMoney(value.Value)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseMoney parses a decimal amount with at most two fractional digits.
func ParseMoney(text string) (Money, error) {
	text = strings.TrimSpace(strings.ReplaceAll(text, ",", ""))
	text = strings.TrimPrefix(text, "$")
	if text == "" {
		return 0, fmt.Errorf("empty amount")
	}

	negative := false
	if strings.HasPrefix(text, "-") {
		negative = true
		text = text[1:]
	}

	whole, frac, hasFrac := strings.Cut(text, ".")
	if hasFrac {
		if len(frac) == 0 || len(frac) > 2 {
			return 0, fmt.Errorf("invalid amount %q: expected at most two decimal places", text)
		}
		if len(frac) == 1 {
			frac += "0"
		}
	} else {
		frac = "00"
	}
	if !allDigits(whole) || !allDigits(frac) {
		return 0, fmt.Errorf("invalid amount %q: expected digits only", text)
	}

	var dollars int64
	for _, r := range whole {
		d := int64(r - '0')
		if dollars > (math.MaxInt64-d)/10 {
			return 0, fmt.Errorf("invalid amount %q: %w", text, ErrMoneyOverflow)
		}
		dollars = dollars*10 + d
	}
	cents := int64(frac[0]-'0')*10 + int64(frac[1]-'0')
	if dollars > (math.MaxInt64-cents)/100 {
		return 0, fmt.Errorf("invalid amount %q: %w", text, ErrMoneyOverflow)
	}

	v := dollars*100 + cents
	if negative {
		v = -v
	}
	return Money(v), nil
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
