// Package vault implements the item registry: an ordered container of
// valued items with lookup, removal and aggregate valuation.
package vault

import (
	"strconv"
	"strings"
)

// Item is a valued record. Its ID is fixed at construction; Value may be
// changed by any holder of the item.
type Item struct {
	id    int64
	Value float64
}

// NewItem creates a standalone item that is not yet held by any vault.
func NewItem(id int64, value float64) *Item {
	return &Item{id: id, Value: value}
}

// ID returns the item identifier.
func (i *Item) ID() int64 {
	return i.id
}

// Render returns the item as two labeled lines.
func (i *Item) Render() string {
	var b strings.Builder
	i.renderTo(&b)
	return b.String()
}

// String implements fmt.Stringer.
func (i *Item) String() string {
	return i.Render()
}

func (i *Item) renderTo(b *strings.Builder) {
	b.WriteString("ID: ")
	b.WriteString(strconv.FormatInt(i.id, 10))
	b.WriteString("\nValue: ")
	b.WriteString(formatValue(i.Value))
}

// formatValue prints the shortest representation that round-trips.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
