// Package columns models which product table columns are shown and in what
// order. The ordered key list is the single source of truth; views are
// projected from it and never read back.
package columns

import (
	"encoding/json"
	"strconv"
	"strings"
)

// Static column keys.
const (
	Photos      = "photos"
	Name        = "name"
	Category    = "category"
	PriceBase   = "price-base"
	Price48388  = "price-48388"
	Price97150  = "price-97150"
	Price377836 = "price-377836"
	Price555169 = "price-555169"
	Total       = "total"
)

// PriceLists are the price list ids shown as their own columns.
var PriceLists = []string{"48388", "97150", "377836", "555169"}

const warehousePrefix = "wh-"

// StaticKeys returns the fixed columns in default order.
func StaticKeys() []string {
	return []string{Photos, Name, Category, PriceBase, Price48388, Price97150, Price377836, Price555169, Total}
}

// PriceKey returns the column key of a price list.
func PriceKey(listID string) string {
	return "price-" + listID
}

// WarehouseKey returns the column key of a warehouse stock column.
func WarehouseKey(id int64) string {
	return warehousePrefix + strconv.FormatInt(id, 10)
}

// WarehouseID extracts the warehouse id from a warehouse column key.
func WarehouseID(key string) (int64, bool) {
	if !strings.HasPrefix(key, warehousePrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(key, warehousePrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// IsStatic reports whether key names one of the fixed columns.
func IsStatic(key string) bool {
	for _, k := range StaticKeys() {
		if k == key {
			return true
		}
	}
	return false
}

// DefaultOrder is the static columns followed by one column per warehouse.
func DefaultOrder(warehouses []int64) []string {
	order := StaticKeys()
	for _, id := range warehouses {
		order = append(order, WarehouseKey(id))
	}
	return order
}

// Resolve turns a stored order into a total ordering over known. Stored keys
// that are still known keep their stored positions; known keys missing from
// the stored order follow in their default order. Unknown and repeated keys
// are dropped.
func Resolve(stored, known []string) []string {
	knownSet := make(map[string]struct{}, len(known))
	for _, k := range known {
		knownSet[k] = struct{}{}
	}
	out := make([]string, 0, len(known))
	placed := make(map[string]struct{}, len(known))
	for _, k := range stored {
		if _, ok := knownSet[k]; !ok {
			continue
		}
		if _, dup := placed[k]; dup {
			continue
		}
		placed[k] = struct{}{}
		out = append(out, k)
	}
	for _, k := range known {
		if _, ok := placed[k]; ok {
			continue
		}
		placed[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Arrange orders items by the column key each one carries. Items whose key
// is absent from order keep their relative order after the ordered ones.
// Arranging an already arranged slice returns it unchanged.
func Arrange[T any](order []string, items []T, keyOf func(T) string) []T {
	rank := make(map[string]int, len(order))
	for i, k := range order {
		if _, ok := rank[k]; !ok {
			rank[k] = i
		}
	}
	buckets := make([][]T, len(order))
	var rest []T
	for _, item := range items {
		if i, ok := rank[keyOf(item)]; ok {
			buckets[i] = append(buckets[i], item)
			continue
		}
		rest = append(rest, item)
	}
	out := make([]T, 0, len(items))
	for _, b := range buckets {
		out = append(out, b...)
	}
	return append(out, rest...)
}

// Move relocates src next to target: before it when after is false, behind
// it otherwise. The input slice is not modified.
func Move(order []string, src, target string, after bool) []string {
	if src == target {
		return append([]string(nil), order...)
	}
	out := make([]string, 0, len(order))
	found := false
	for _, k := range order {
		if k == src {
			found = true
			continue
		}
		out = append(out, k)
	}
	if !found {
		return append([]string(nil), order...)
	}
	idx := -1
	for i, k := range out {
		if k == target {
			idx = i
			break
		}
	}
	if idx < 0 {
		return append([]string(nil), order...)
	}
	if after {
		idx++
	}
	out = append(out, "")
	copy(out[idx+1:], out[idx:])
	out[idx] = src
	return out
}

// Visibility maps static columns and warehouses to shown or hidden. Missing
// entries are shown.
type Visibility struct {
	Static     map[string]bool
	Warehouses map[int64]bool
}

// DefaultVisibility shows every static column and knows no warehouses yet.
func DefaultVisibility() Visibility {
	v := Visibility{Static: make(map[string]bool), Warehouses: make(map[int64]bool)}
	for _, k := range StaticKeys() {
		v.Static[k] = true
	}
	return v
}

// storedKey maps a column key to the key used in the persisted document.
func storedKey(colKey string) string {
	return strings.ReplaceAll(colKey, "-", "_")
}

func columnKey(stored string) string {
	return strings.ReplaceAll(stored, "_", "-")
}

// Visible reports whether a column is shown.
func (v Visibility) Visible(key string) bool {
	if id, ok := WarehouseID(key); ok {
		shown, known := v.Warehouses[id]
		return !known || shown
	}
	shown, known := v.Static[key]
	return !known || shown
}

// Set records the visibility of a column.
func (v *Visibility) Set(key string, shown bool) {
	if id, ok := WarehouseID(key); ok {
		if v.Warehouses == nil {
			v.Warehouses = make(map[int64]bool)
		}
		v.Warehouses[id] = shown
		return
	}
	if v.Static == nil {
		v.Static = make(map[string]bool)
	}
	v.Static[key] = shown
}

// EnsureWarehouses adds newly discovered warehouses as visible and reports
// whether anything was added.
func (v *Visibility) EnsureWarehouses(ids []int64) bool {
	if v.Warehouses == nil {
		v.Warehouses = make(map[int64]bool)
	}
	changed := false
	for _, id := range ids {
		if _, ok := v.Warehouses[id]; !ok {
			v.Warehouses[id] = true
			changed = true
		}
	}
	return changed
}

// Clone returns an independent copy.
func (v Visibility) Clone() Visibility {
	out := Visibility{Static: make(map[string]bool, len(v.Static)), Warehouses: make(map[int64]bool, len(v.Warehouses))}
	for k, shown := range v.Static {
		out.Static[k] = shown
	}
	for id, shown := range v.Warehouses {
		out.Warehouses[id] = shown
	}
	return out
}

// MarshalJSON writes the flat persisted document:
// {"photos":true,...,"warehouses":{"52226":true}}.
func (v Visibility) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(v.Static)+1)
	for k, shown := range v.Static {
		doc[storedKey(k)] = shown
	}
	wh := make(map[string]bool, len(v.Warehouses))
	for id, shown := range v.Warehouses {
		wh[strconv.FormatInt(id, 10)] = shown
	}
	doc["warehouses"] = wh
	return json.Marshal(doc)
}

// UnmarshalJSON merges a stored document over the current value. Keys that
// do not hold booleans are ignored.
func (v *Visibility) UnmarshalJSON(data []byte) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	if v.Static == nil {
		v.Static = make(map[string]bool)
	}
	if v.Warehouses == nil {
		v.Warehouses = make(map[int64]bool)
	}
	for k, raw := range doc {
		if k == "warehouses" {
			var wh map[string]bool
			if err := json.Unmarshal(raw, &wh); err != nil {
				continue
			}
			for idText, shown := range wh {
				if id, err := strconv.ParseInt(idText, 10, 64); err == nil {
					v.Warehouses[id] = shown
				}
			}
			continue
		}
		var shown bool
		if err := json.Unmarshal(raw, &shown); err != nil {
			continue
		}
		v.Static[columnKey(k)] = shown
	}
	return nil
}

// DecodeVisibility merges a stored document over the defaults. Invalid
// documents yield the defaults together with the decode error.
func DecodeVisibility(data []byte) (Visibility, error) {
	v := DefaultVisibility()
	if len(data) == 0 {
		return v, nil
	}
	merged := v.Clone()
	if err := json.Unmarshal(data, &merged); err != nil {
		return v, err
	}
	return merged, nil
}

// DecodeOrder parses a stored order document. Invalid documents yield nil
// together with the decode error.
func DecodeOrder(data []byte) ([]string, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var order []string
	if err := json.Unmarshal(data, &order); err != nil {
		return nil, err
	}
	return order, nil
}
