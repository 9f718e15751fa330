// Package seed loads an initial vault inventory from a YAML document.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vyrodovalexey/vault-inventory/internal/store"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// Seed errors.
var (
	ErrMissingID    = errors.New("seed item is missing id")
	ErrMissingValue = errors.New("seed item is missing value")
)

type document struct {
	Items []entry `yaml:"items"`
}

type entry struct {
	ID    *int64   `yaml:"id"`
	Value *float64 `yaml:"value"`
}

// Load reads and parses the seed file at path.
func Load(path string) ([]*vault.Item, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w", path, err)
	}

	items, err := Parse(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parsing seed file %s: %w", path, err)
	}

	return items, nil
}

// Parse decodes a seed document of the form
//
//	items:
//	  - id: 1
//	    value: 97.88
//
// An empty document yields no items.
func Parse(r io.Reader) ([]*vault.Item, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	items := make([]*vault.Item, 0, len(doc.Items))
	for i, e := range doc.Items {
		if e.ID == nil {
			return nil, fmt.Errorf("item %d: %w", i, ErrMissingID)
		}
		if e.Value == nil {
			return nil, fmt.Errorf("item %d: %w", i, ErrMissingValue)
		}
		if !vault.IsFinite(*e.Value) {
			return nil, fmt.Errorf("item %d: %w", i, vault.ErrNonFiniteValue)
		}
		items = append(items, vault.NewItem(*e.ID, *e.Value))
	}

	return items, nil
}

// Apply inserts items into s in order and stops at the first failure.
func Apply(ctx context.Context, s store.Store, items []*vault.Item) error {
	for _, item := range items {
		if _, err := s.Insert(ctx, item); err != nil {
			return fmt.Errorf("seeding item %d: %w", item.ID(), err)
		}
	}
	return nil
}
