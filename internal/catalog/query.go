package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/shopspring/decimal"
)

// ParseQuery reads a filter query. Terms are key=value pairs:
//
//	cat=Дисплеи,"Запчасти iPhone" wh=52226,37746 price=100..5000 stock=1..
//
// Ranges accept an open side. Sort settings are left untouched.
func ParseQuery(input string) (Filters, error) {
	var f Filters
	terms, err := shellquote.Split(input)
	if err != nil {
		return f, &ValidationError{Field: "filter", Message: err.Error()}
	}
	for _, term := range terms {
		key, value, ok := strings.Cut(term, "=")
		if !ok {
			return f, &ValidationError{Field: "filter", Message: fmt.Sprintf("expected key=value, got %q", term)}
		}
		key = strings.ToLower(strings.TrimSpace(key))
		switch key {
		case "cat", "category":
			for _, c := range strings.Split(value, ",") {
				if c = strings.TrimSpace(c); c != "" {
					f.Categories = append(f.Categories, c)
				}
			}
		case "wh", "warehouse":
			for _, raw := range strings.Split(value, ",") {
				raw = strings.TrimSpace(raw)
				if raw == "" {
					continue
				}
				id, err := strconv.ParseInt(raw, 10, 64)
				if err != nil || id <= 0 {
					return f, &ValidationError{Field: "wh", Message: fmt.Sprintf("bad warehouse id %q", raw)}
				}
				f.Warehouses = append(f.Warehouses, id)
			}
		case "price":
			lo, hi, err := splitRange(key, value)
			if err != nil {
				return f, err
			}
			if f.PriceMin, err = parseDecimalBound(key, lo); err != nil {
				return f, err
			}
			if f.PriceMax, err = parseDecimalBound(key, hi); err != nil {
				return f, err
			}
		case "stock":
			lo, hi, err := splitRange(key, value)
			if err != nil {
				return f, err
			}
			if f.StockMin, err = parseFloatBound(key, lo); err != nil {
				return f, err
			}
			if f.StockMax, err = parseFloatBound(key, hi); err != nil {
				return f, err
			}
		default:
			return f, &ValidationError{Field: key, Message: "unknown filter"}
		}
	}
	return f, nil
}

func splitRange(field, value string) (string, string, error) {
	lo, hi, ok := strings.Cut(value, "..")
	if !ok {
		// A single value is an exact match.
		return value, value, nil
	}
	if strings.TrimSpace(lo) == "" && strings.TrimSpace(hi) == "" {
		return "", "", &ValidationError{Field: field, Message: "empty range"}
	}
	return lo, hi, nil
}

func parseDecimalBound(field, raw string) (*decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, ok := ParseAmount(raw)
	if !ok {
		return nil, &ValidationError{Field: field, Message: fmt.Sprintf("bad number %q", raw)}
	}
	return &d, nil
}

func parseFloatBound(field, raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, &ValidationError{Field: field, Message: fmt.Sprintf("bad number %q", raw)}
	}
	return &v, nil
}

// FormatQuery is the inverse of ParseQuery.
func FormatQuery(f Filters) string {
	var parts []string
	if len(f.Categories) > 0 {
		parts = append(parts, "cat="+shellquote.Join(strings.Join(f.Categories, ",")))
	}
	if len(f.Warehouses) > 0 {
		ids := make([]string, len(f.Warehouses))
		for i, id := range f.Warehouses {
			ids[i] = strconv.FormatInt(id, 10)
		}
		parts = append(parts, "wh="+strings.Join(ids, ","))
	}
	if f.PriceMin != nil || f.PriceMax != nil {
		parts = append(parts, "price="+decimalBound(f.PriceMin)+".."+decimalBound(f.PriceMax))
	}
	if f.StockMin != nil || f.StockMax != nil {
		parts = append(parts, "stock="+floatBound(f.StockMin)+".."+floatBound(f.StockMax))
	}
	return strings.Join(parts, " ")
}

func decimalBound(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func floatBound(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
