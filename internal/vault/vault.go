package vault

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// Header is the first line of a vault rendering.
const Header = "ITEMS IN VAULT"

// Vault is an ordered collection of items with unique IDs. Insertion order
// is the iteration and display order.
//
// A Vault is not safe for concurrent use; callers sharing one must provide
// their own locking.
type Vault struct {
	items []*Item
}

// IsFinite reports whether v is neither NaN nor an infinity.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// New creates an empty vault.
func New() *Vault {
	return &Vault{}
}

// Insert appends item to the end of the vault. An item whose ID is already
// held is rejected with a *DuplicateIDError and the vault is unchanged.
func (v *Vault) Insert(item *Item) error {
	if item == nil {
		return ErrNilItem
	}

	if _, ok := v.Lookup(item.ID()); ok {
		return &DuplicateIDError{ID: item.ID()}
	}

	v.items = append(v.items, item)
	return nil
}

// Lookup returns the first item with the given ID, reporting whether one
// was found.
func (v *Vault) Lookup(id int64) (*Item, bool) {
	if idx := v.indexOf(id); idx >= 0 {
		return v.items[idx], true
	}
	return nil, false
}

// Find returns the item with the given ID or a *NotFoundError.
func (v *Vault) Find(id int64) (*Item, error) {
	item, ok := v.Lookup(id)
	if !ok {
		return nil, &NotFoundError{ID: id}
	}
	return item, nil
}

// Remove takes the item with the given ID out of the vault and hands it to
// the caller. The order of the remaining items is kept. If no such item is
// held, a *NotFoundError is returned and the vault is unchanged.
func (v *Vault) Remove(id int64) (*Item, error) {
	idx := v.indexOf(id)
	if idx < 0 {
		return nil, &NotFoundError{ID: id}
	}

	item := v.items[idx]
	copy(v.items[idx:], v.items[idx+1:])
	v.items[len(v.items)-1] = nil
	v.items = v.items[:len(v.items)-1]

	return item, nil
}

// TotalValue returns the sum of the values of all held items, 0 when the
// vault is empty. Finite values are added in decimal so that monetary
// amounts sum without binary rounding drift. Once a NaN or infinity is held
// the sum follows IEEE 754 float addition instead.
func (v *Vault) TotalValue() float64 {
	sum := decimal.Zero
	for _, item := range v.items {
		if !IsFinite(item.Value) {
			return v.floatTotal()
		}
		sum = sum.Add(decimal.NewFromFloat(item.Value))
	}
	return sum.InexactFloat64()
}

func (v *Vault) floatTotal() float64 {
	var sum float64
	for _, item := range v.items {
		sum += item.Value
	}
	return sum
}

// Len returns the number of held items.
func (v *Vault) Len() int {
	return len(v.items)
}

// Items returns a snapshot of the held items in vault order.
func (v *Vault) Items() []Item {
	out := make([]Item, len(v.items))
	for i, item := range v.items {
		out[i] = *item
	}
	return out
}

// Render returns the header line followed by every item in vault order.
func (v *Vault) Render() string {
	var b strings.Builder
	b.WriteString(Header)
	for _, item := range v.items {
		b.WriteString("\n")
		item.renderTo(&b)
	}
	return b.String()
}

// String implements fmt.Stringer.
func (v *Vault) String() string {
	return v.Render()
}

func (v *Vault) indexOf(id int64) int {
	for i, item := range v.items {
		if item.ID() == id {
			return i
		}
	}
	return -1
}
