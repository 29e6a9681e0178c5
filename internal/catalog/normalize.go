package catalog

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	thumbnailKeys = []string{"thumbnail", "thumb", "small", "preview"}
	fullKeys      = []string{"original", "full", "large", "url", "src"}
)

// NormalizeImages turns the free-form images payload stored on a product into
// a list of thumbnail/full pairs. Accepted shapes are a URL string, an object
// with well known URL keys, an array of either, or {"images": [...]}. Entries
// are unique by full URL.
func NormalizeImages(raw json.RawMessage) []Image {
	if len(raw) == 0 {
		return nil
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}

	var images []Image
	collect := func(items []any) {
		for _, item := range items {
			if img, ok := pickImage(item); ok {
				images = append(images, img)
			}
		}
	}
	switch v := payload.(type) {
	case []any:
		collect(v)
	case map[string]any:
		if nested, ok := v["images"].([]any); ok {
			collect(nested)
		} else if img, ok := pickImage(v); ok {
			images = append(images, img)
		}
	case string:
		if img, ok := pickImage(v); ok {
			images = append(images, img)
		}
	}

	seen := make(map[string]struct{}, len(images))
	unique := images[:0]
	for _, img := range images {
		if _, dup := seen[img.Full]; dup {
			continue
		}
		seen[img.Full] = struct{}{}
		unique = append(unique, img)
	}
	if len(unique) == 0 {
		return nil
	}
	return unique
}

func pickImage(item any) (Image, bool) {
	switch v := item.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return Image{}, false
		}
		return Image{Thumbnail: v, Full: v}, true
	case map[string]any:
		thumb := firstURL(v, thumbnailKeys)
		full := firstURL(v, fullKeys)
		if thumb == "" || full == "" {
			if fallback := anyURL(v); fallback != "" {
				if thumb == "" {
					thumb = fallback
				}
				if full == "" {
					full = fallback
				}
			}
		}
		if thumb == "" && full == "" {
			return Image{}, false
		}
		if thumb == "" {
			thumb = full
		}
		if full == "" {
			full = thumb
		}
		return Image{Thumbnail: thumb, Full: full}, true
	}
	return Image{}, false
}

func firstURL(obj map[string]any, keys []string) string {
	for _, key := range keys {
		if s, ok := obj[key].(string); ok && strings.HasPrefix(s, "http") {
			return s
		}
	}
	return ""
}

// anyURL scans the remaining keys in a fixed order so the pick does not depend
// on map iteration.
func anyURL(obj map[string]any) string {
	if s := firstURL(obj, thumbnailKeys); s != "" {
		return s
	}
	if s := firstURL(obj, fullKeys); s != "" {
		return s
	}
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return firstURL(obj, keys)
}

// NormalizePrices converts the per price list payload into amounts keyed by
// price list id. Values may be numbers, strings using spaces as group
// separators and a comma as decimal separator, or objects carrying an
// amount, price or value field. Unparseable entries are dropped.
func NormalizePrices(raw json.RawMessage) map[string]decimal.Decimal {
	if len(raw) == 0 {
		return map[string]decimal.Decimal{}
	}
	var payload map[string]any
	dec := json.NewDecoder(strings.NewReader(string(raw)))
	dec.UseNumber()
	if err := dec.Decode(&payload); err != nil {
		return map[string]decimal.Decimal{}
	}
	out := make(map[string]decimal.Decimal, len(payload))
	for key, value := range payload {
		if amount, ok := parseAmount(value); ok {
			out[key] = amount
		}
	}
	return out
}

func parseAmount(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		return d, err == nil
	case float64:
		return decimal.NewFromFloat(v), true
	case string:
		return ParseAmount(v)
	case map[string]any:
		for _, key := range []string{"amount", "price", "value"} {
			if inner, ok := v[key]; ok && inner != nil {
				return parseAmount(inner)
			}
		}
	}
	return decimal.Decimal{}, false
}

// ParseAmount parses user or backend supplied amounts such as "1 234,50".
func ParseAmount(s string) (decimal.Decimal, bool) {
	cleaned := strings.Join(strings.Fields(s), "")
	cleaned = strings.Replace(cleaned, ",", ".", 1)
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}

// FormatAmount renders an amount with grouped thousands, a comma decimal
// separator and at most two fraction digits.
func FormatAmount(d decimal.Decimal) string {
	rounded := d.Round(2)
	neg := rounded.IsNegative()
	text := rounded.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(text, ".")
	fracPart = strings.TrimRight(fracPart, "0")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	if fracPart != "" {
		b.WriteByte(',')
		b.WriteString(fracPart)
	}
	return b.String()
}

// FormatPrice formats an optional amount, "-" when absent.
func FormatPrice(d *decimal.Decimal) string {
	if d == nil {
		return "-"
	}
	return FormatAmount(*d)
}

// FormatQuantity formats a stock quantity the same way prices are shown.
func FormatQuantity(q float64) string {
	return FormatAmount(decimal.NewFromFloat(q))
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts the timestamp layouts the backend emits. Values
// without a zone are read as local time. Anything else yields the zero time.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatTimestamp renders t as "YYYY-MM-DD HH:MM" in local time, "-" when zero.
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// MissingName is the display name for a member without a backend record.
func MissingName(remonlineID int64) string {
	return fmt.Sprintf("#%d", remonlineID)
}
