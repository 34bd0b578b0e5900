package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

var errNotNumber = errors.New("not a number")

// Upper bounds for listing and order amounts. They keep every stored price,
// quantity and total exactly representable as a float64.
var (
	maxPrice      = decimal.New(1, 9)
	maxOrderTotal = decimal.New(1, 15)
)

const maxQuantity = 1_000_000_000

// absent reports the values the web client treats as "not provided": nil,
// empty strings, zero numbers and false.
func absent(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case float64:
		return x == 0
	case int:
		return x == 0
	case json.Number:
		f, err := x.Float64()
		return err == nil && f == 0
	case bool:
		return !x
	}
	return false
}

// toDecimal accepts a JSON number or a numeric string.
func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case nil, bool:
		return decimal.Zero, errNotNumber
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, errNotNumber
		}
		return decimal.NewFromFloat(x), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(x))
	case json.Number:
		return decimal.NewFromString(x.String())
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return decimal.Zero, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, errNotNumber
	}
	return decimal.NewFromFloat(f), nil
}

// toInt accepts a JSON number (fractions truncate) or a base-10 integer
// string. Numbers outside the int range are rejected rather than wrapped.
func toInt(v any) (int, error) {
	switch x := v.(type) {
	case nil, bool:
		return 0, errNotNumber
	case float64:
		if math.IsNaN(x) || x < math.MinInt || x >= math.MaxInt {
			return 0, fmt.Errorf("%v: %w", x, errNotNumber)
		}
		return int(x), nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("%q: %w", x, errNotNumber)
		}
		return n, nil
	}
	return cast.ToIntE(v)
}

// toText renders profile fields that may arrive as numbers ("5" or 5).
func toText(v any) string {
	if v == nil {
		return ""
	}
	if f, ok := v.(float64); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return cast.ToString(v)
}

// toStrings accepts a JSON array or a comma-separated string.
func toStrings(v any) []string {
	out := []string{}
	switch x := v.(type) {
	case nil:
	case string:
		for _, s := range strings.Split(x, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case []any:
		for _, item := range x {
			if s := strings.TrimSpace(toText(item)); s != "" {
				out = append(out, s)
			}
		}
	default:
		out = append(out, cast.ToStringSlice(v)...)
	}
	return out
}
