package catalog

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// ValidationError reports user input that cannot be submitted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// BulkIDs is the outcome of parsing a pasted list of external product ids.
type BulkIDs struct {
	IDs        []int64
	Invalid    []string
	Duplicates int
}

// ParseBulkIDs splits input on commas, semicolons and whitespace, keeps tokens
// that parse as positive integers and drops repeats. First occurrence order is
// preserved.
func ParseBulkIDs(input string) BulkIDs {
	tokens := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	var out BulkIDs
	seen := make(map[int64]struct{}, len(tokens))
	for _, token := range tokens {
		id, err := strconv.ParseInt(token, 10, 64)
		if err != nil || id <= 0 {
			out.Invalid = append(out.Invalid, token)
			continue
		}
		if _, dup := seen[id]; dup {
			out.Duplicates++
			continue
		}
		seen[id] = struct{}{}
		out.IDs = append(out.IDs, id)
	}
	return out
}

// Validate fails when nothing submittable was found.
func (b BulkIDs) Validate() error {
	if len(b.IDs) > 0 {
		return nil
	}
	if len(b.Invalid) > 0 {
		return &ValidationError{Field: "ids", Message: fmt.Sprintf("no valid ids, %d invalid token(s)", len(b.Invalid))}
	}
	return &ValidationError{Field: "ids", Message: "enter at least one product id"}
}

// BulkResult summarises a bulk add against the subtab's existing members.
type BulkResult struct {
	Requested int
	Added     int
	Skipped   int
	Invalid   int
}

func (r BulkResult) String() string {
	return fmt.Sprintf("requested %d, added %d, skipped %d, invalid %d", r.Requested, r.Added, r.Skipped, r.Invalid)
}
