package transaction

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// AmountScale is the number of atomic units in one whole coin.
const AmountScale = 100_000_000

// ParseAmount converts a decimal amount with up to eight fractional digits
// into atomic units without going through floating point.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "-") {
		return 0, fmt.Errorf("amount %q must not be negative", s)
	}
	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 8 {
		return 0, fmt.Errorf("amount %q has more than 8 decimal places", s)
	}
	if whole == "" {
		whole = "0"
	}
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if w > math.MaxInt64/AmountScale {
		return 0, fmt.Errorf("amount %q too large", s)
	}
	var f int64
	if frac != "" {
		f, err = strconv.ParseInt(frac+strings.Repeat("0", 8-len(frac)), 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", s, err)
		}
	}
	return w*AmountScale + f, nil
}

// ParseJSONAmount accepts an amount given as a JSON number or string.
func ParseJSONAmount(raw json.RawMessage) (int64, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseAmount(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, fmt.Errorf("invalid amount %s", string(raw))
	}
	return ParseAmount(n.String())
}

// FormatAmount renders atomic units as a decimal string with eight places.
func FormatAmount(units int64) string {
	sign := ""
	if units < 0 {
		sign = "-"
		units = -units
	}
	return fmt.Sprintf("%s%d.%08d", sign, units/AmountScale, units%AmountScale)
}
