// Package store provides data storage interfaces and implementations.
package store

import (
	"context"

	"github.com/vyrodovalexey/vault-inventory/internal/model"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// Store errors. They match the typed vault errors with errors.Is.
var (
	ErrNotFound      = vault.ErrNotFound
	ErrAlreadyExists = vault.ErrDuplicateID
	ErrNilItem       = vault.ErrNilItem
)

// Store defines the interface for vault operations shared between
// concurrent callers.
type Store interface {
	// List returns all items in vault order.
	List(ctx context.Context) ([]vault.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id int64) (*vault.Item, error)

	// Insert appends a new item to the vault.
	Insert(ctx context.Context, item *vault.Item) (*vault.Item, error)

	// Revalue sets the value of an existing item.
	Revalue(ctx context.Context, id int64, value float64) (*vault.Item, error)

	// Remove takes an item out of the vault and returns it.
	Remove(ctx context.Context, id int64) (*vault.Item, error)

	// Summary returns the item count and total value.
	Summary(ctx context.Context) (model.VaultSummary, error)

	// Render returns the textual listing of the vault.
	Render(ctx context.Context) (string, error)
}
