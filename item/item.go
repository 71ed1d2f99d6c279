// Package item implements pipeflow's data-item and item-bag model
// (spec §4.2): single typed, listener-observable slots, and the ordered
// name→item bags a module's input and output sides are built from.
package item

import (
	"sort"
	"sync"

	"github.com/ashgrove-labs/pipeflow/pipeflowerr"
	"github.com/ashgrove-labs/pipeflow/schema"
	"github.com/google/uuid"
)

// Listener is invoked after a DataItem's value changes. It receives the
// item itself (not a bare value) so it can read both the new value and
// validity via Value()/Valid() — the shape the pipeline wiring
// (module/wiring.go) uses to copy a source item's value into a target
// item.
type Listener func(src *DataItem) error

// DataItem is a single typed slot: identity, immutable schema, current
// value, and an ordered listener list (spec §4.2).
type DataItem struct {
	id     string
	schema schema.Schema

	mu        sync.Mutex
	value     any
	present   bool
	listeners []Listener
}

// New constructs a DataItem for s, applying the schema's default (if
// any) as the initial value.
func New(s schema.Schema) *DataItem {
	d := &DataItem{id: uuid.NewString(), schema: s}
	if v, present, err := s.ResolveDefault(); err == nil && present {
		d.value = v
		d.present = true
	}
	return d
}

// ID is the item's opaque unique identity. Equality and hashing of
// DataItems is by ID, per spec §3.
func (d *DataItem) ID() string { return d.id }

// Schema returns the item's immutable schema.
func (d *DataItem) Schema() schema.Schema { return d.schema }

// Equal reports identity equality (spec §3: "equality by id").
func (d *DataItem) Equal(other *DataItem) bool {
	if d == nil || other == nil {
		return d == other
	}
	return d.id == other.id
}

// Value returns the current value and whether one is present.
func (d *DataItem) Value() (any, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.value, d.present
}

// Valid reports whether the item's current value is present and
// satisfies its schema (spec §4.2).
func (d *DataItem) Valid() bool {
	d.mu.Lock()
	v, present := d.value, d.present
	s := d.schema
	d.mu.Unlock()

	if !present {
		return false
	}
	if v == nil {
		return s.Nullable
	}
	return schema.Accepts(s.Type, v)
}

// AddListener appends f to the item's listener list. Listeners are
// never deduplicated (spec §4.2).
func (d *DataItem) AddListener(f Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, f)
}

// Set writes v and notifies every listener in registration order.
// Listener errors are isolated: a failing listener does not stop the
// notification loop; only the first error encountered is returned,
// after every listener has run (spec §4.2, §9 resolved Open Question).
func (d *DataItem) Set(v any) error {
	d.mu.Lock()
	d.value = v
	d.present = true
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	return notifyAll(d, listeners)
}

// Clear removes the item's value, marking it absent. Used to invalidate
// an input (state STALE downgrade) or to clear a module's outputs after
// a failed run (spec §4.7, §7).
func (d *DataItem) Clear() error {
	d.mu.Lock()
	d.value = nil
	d.present = false
	listeners := make([]Listener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()

	return notifyAll(d, listeners)
}

func notifyAll(d *DataItem, listeners []Listener) error {
	var firstErr error
	for _, l := range listeners {
		if err := l(d); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Bag is an ordered name→DataItem mapping (spec §4.2).
type Bag struct {
	mu      sync.RWMutex
	order   []string
	items   map[string]*DataItem
	writable bool
}

// NewBag builds a Bag from an ordered set of (name, schema) pairs. The
// bag starts writable.
func NewBag(names []string, schemas map[string]schema.Schema) *Bag {
	b := &Bag{
		order:    append([]string(nil), names...),
		items:    make(map[string]*DataItem, len(names)),
		writable: true,
	}
	for _, name := range names {
		b.items[name] = New(schemas[name])
	}
	return b
}

// Names returns the bag's port names in declaration order.
func (b *Bag) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]string, len(b.order))
	copy(out, b.order)
	return out
}

// Get returns the item bound to name.
func (b *Bag) Get(name string) (*DataItem, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	it, ok := b.items[name]
	if !ok {
		return nil, pipeflowerr.ErrUnknownPort(name)
	}
	return it, nil
}

// SetWritable toggles the bag's writable flag.
func (b *Bag) SetWritable(w bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.writable = w
}

// Writable reports the bag's current writable flag.
func (b *Bag) Writable() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.writable
}

// SetValues validates that every name in values exists, then calls each
// item's Set, batched under a single unknown-port validation pass
// (spec §4.2: "validates that all names exist... then calls each item's
// set, batched"). Keys are applied in sorted order for determinism.
func (b *Bag) SetValues(values map[string]any) error {
	b.mu.RLock()
	for name := range values {
		if _, ok := b.items[name]; !ok {
			b.mu.RUnlock()
			return pipeflowerr.ErrUnknownPort(name)
		}
	}
	b.mu.RUnlock()

	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	var firstErr error
	for _, name := range names {
		it, _ := b.Get(name)
		if err := it.Set(values[name]); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// AllValid reports whether every item in the bag currently holds a
// value satisfying its schema.
func (b *Bag) AllValid() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, name := range b.order {
		if !b.items[name].Valid() {
			return false
		}
	}
	return true
}

// ClearAll invalidates every item in the bag (used to clear a module's
// outputs after a failed run).
func (b *Bag) ClearAll() error {
	b.mu.RLock()
	names := append([]string(nil), b.order...)
	b.mu.RUnlock()

	var firstErr error
	for _, name := range names {
		it, _ := b.Get(name)
		if err := it.Clear(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// InputBag is a Bag whose writability can be locked during a run
// (spec §4.2).
type InputBag struct {
	*Bag
}

// NewInputBag builds an InputBag.
func NewInputBag(names []string, schemas map[string]schema.Schema) *InputBag {
	return &InputBag{Bag: NewBag(names, schemas)}
}

// SetValues enforces the writable flag before delegating to Bag; a
// locked InputBag rejects writes with InputLocked (spec §4.2, §7).
func (ib *InputBag) SetValues(values map[string]any) error {
	if !ib.Writable() {
		for name := range values {
			return pipeflowerr.ErrInputLocked(name)
		}
	}
	return ib.Bag.SetValues(values)
}

// OutputBag mirrors InputBag but is always writable by the owning
// module's Process (spec §4.2).
type OutputBag struct {
	*Bag
}

// NewOutputBag builds an OutputBag.
func NewOutputBag(names []string, schemas map[string]schema.Schema) *OutputBag {
	return &OutputBag{Bag: NewBag(names, schemas)}
}
