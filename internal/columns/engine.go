package columns

import (
	"errors"
	"sync"
)

// ErrDragActive is returned when a second drag starts before the first ends.
var ErrDragActive = errors.New("a column drag is already in progress")

// ErrNoDrag is returned when dropping without an active drag.
var ErrNoDrag = errors.New("no column drag in progress")

// Store persists column preferences.
type Store interface {
	SaveVisibility(Visibility) error
	SaveOrder([]string) error
}

// Engine owns the visibility and order model of the product table.
type Engine struct {
	mu         sync.Mutex
	store      Store
	visibility Visibility
	stored     []string
	order      []string
	warehouses []int64
	dragging   string
}

// NewEngine starts from previously stored preferences. store may be nil.
func NewEngine(store Store, visibility Visibility, storedOrder []string) *Engine {
	e := &Engine{
		store:      store,
		visibility: visibility.Clone(),
		stored:     append([]string(nil), storedOrder...),
	}
	e.order = Resolve(e.stored, DefaultOrder(nil))
	return e
}

// SetWarehouses updates the known warehouse universe. New warehouses become
// visible columns appended after the stored order.
func (e *Engine) SetWarehouses(ids []int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.warehouses = append([]int64(nil), ids...)
	e.order = Resolve(e.stored, DefaultOrder(e.warehouses))
	if e.visibility.EnsureWarehouses(ids) {
		return e.saveVisibility()
	}
	return nil
}

// Order returns the full column order, hidden columns included.
func (e *Engine) Order() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// Visibility returns a copy of the visibility model.
func (e *Engine) Visibility() Visibility {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibility.Clone()
}

// Visible reports whether key is shown.
func (e *Engine) Visible(key string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.visibility.Visible(key)
}

// Layout returns the shown columns among present, in model order.
func (e *Engine) Layout(present []string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	arranged := Arrange(e.order, present, func(k string) string { return k })
	out := make([]string, 0, len(arranged))
	for _, k := range arranged {
		if e.visibility.Visible(k) {
			out = append(out, k)
		}
	}
	return out
}

// Toggle flips the visibility of key and persists it.
func (e *Engine) Toggle(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibility.Set(key, !e.visibility.Visible(key))
	return e.saveVisibility()
}

// SetVisible sets the visibility of key and persists it.
func (e *Engine) SetVisible(key string, shown bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.visibility.Set(key, shown)
	return e.saveVisibility()
}

// BeginDrag marks key as the column being dragged.
func (e *Engine) BeginDrag(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dragging != "" {
		return ErrDragActive
	}
	e.dragging = key
	return nil
}

// Dragging returns the dragged column key, empty when idle.
func (e *Engine) Dragging() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dragging
}

// CancelDrag abandons the current drag.
func (e *Engine) CancelDrag() {
	e.mu.Lock()
	e.dragging = ""
	e.mu.Unlock()
}

// Drop ends the drag over target. offset is the pointer position inside the
// target cell of the given width: the left half inserts before the target,
// the right half after it. The resulting order is persisted as is.
func (e *Engine) Drop(target string, offset, width int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dragging == "" {
		return ErrNoDrag
	}
	src := e.dragging
	e.dragging = ""
	after := width > 0 && offset*2 >= width
	return e.moveLocked(src, target, after)
}

// Shift moves key by delta positions among the visible columns.
func (e *Engine) Shift(key string, delta int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	visible := make([]string, 0, len(e.order))
	for _, k := range e.order {
		if e.visibility.Visible(k) {
			visible = append(visible, k)
		}
	}
	idx := -1
	for i, k := range visible {
		if k == key {
			idx = i
			break
		}
	}
	if idx < 0 || delta == 0 {
		return nil
	}
	target := idx + delta
	if target < 0 || target >= len(visible) {
		return nil
	}
	return e.moveLocked(key, visible[target], delta > 0)
}

// moveLocked moves src within the stored order rather than the resolved one,
// so stored keys of warehouses not known yet keep their positions.
func (e *Engine) moveLocked(src, target string, after bool) error {
	merged := make([]string, 0, len(e.stored)+len(e.order))
	seen := make(map[string]struct{}, cap(merged))
	for _, list := range [][]string{e.stored, e.order} {
		for _, k := range list {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			merged = append(merged, k)
		}
	}
	e.stored = Move(merged, src, target, after)
	e.order = Resolve(e.stored, DefaultOrder(e.warehouses))
	if e.store == nil {
		return nil
	}
	return e.store.SaveOrder(e.stored)
}

func (e *Engine) saveVisibility() error {
	if e.store == nil {
		return nil
	}
	return e.store.SaveVisibility(e.visibility.Clone())
}
