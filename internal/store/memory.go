package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vyrodovalexey/vault-inventory/internal/model"
	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// MemoryStore implements Store over a single in-memory vault.
type MemoryStore struct {
	mu    sync.RWMutex
	vault *vault.Vault
}

// NewMemoryStore creates a new MemoryStore holding an empty vault.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		vault: vault.New(),
	}
	s.publishGauges()
	return s
}

// List returns all items in vault order.
func (s *MemoryStore) List(ctx context.Context) ([]vault.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("list items: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.vault.Items(), nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*vault.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("get item: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	item, err := s.vault.Find(id)
	if err != nil {
		recordOperation("get", resultFor(err))
		return nil, err
	}

	recordOperation("get", resultOK)
	return detach(item), nil
}

// Insert appends a copy of item to the vault and returns it.
func (s *MemoryStore) Insert(ctx context.Context, item *vault.Item) (*vault.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("insert item: %w", ctx.Err())
	default:
	}

	if item == nil {
		return nil, fmt.Errorf("insert item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	owned := detach(item)
	if err := s.vault.Insert(owned); err != nil {
		recordOperation("insert", resultFor(err))
		return nil, err
	}

	recordOperation("insert", resultOK)
	s.publishGauges()

	return detach(owned), nil
}

// Revalue sets the value of an existing item.
func (s *MemoryStore) Revalue(ctx context.Context, id int64, value float64) (*vault.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("revalue item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.vault.Find(id)
	if err != nil {
		recordOperation("revalue", resultFor(err))
		return nil, err
	}

	item.Value = value

	recordOperation("revalue", resultOK)
	s.publishGauges()

	return detach(item), nil
}

// Remove takes an item out of the vault and returns it.
func (s *MemoryStore) Remove(ctx context.Context, id int64) (*vault.Item, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("remove item: %w", ctx.Err())
	default:
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	item, err := s.vault.Remove(id)
	if err != nil {
		recordOperation("remove", resultFor(err))
		return nil, err
	}

	recordOperation("remove", resultOK)
	s.publishGauges()

	return item, nil
}

// Summary returns the item count and total value.
func (s *MemoryStore) Summary(ctx context.Context) (model.VaultSummary, error) {
	select {
	case <-ctx.Done():
		return model.VaultSummary{}, fmt.Errorf("summarize vault: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return model.VaultSummary{
		Count:      s.vault.Len(),
		TotalValue: s.vault.TotalValue(),
	}, nil
}

// Render returns the textual listing of the vault.
func (s *MemoryStore) Render(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("render vault: %w", ctx.Err())
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.vault.Render(), nil
}

// publishGauges must be called with the write lock held.
func (s *MemoryStore) publishGauges() {
	vaultItems.Set(float64(s.vault.Len()))
	vaultTotalValue.Set(s.vault.TotalValue())
}

// detach returns a copy of item that shares no state with the vault.
func detach(item *vault.Item) *vault.Item {
	return vault.NewItem(item.ID(), item.Value)
}

func resultFor(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return resultNotFound
	case errors.Is(err, ErrAlreadyExists):
		return resultConflict
	default:
		return resultError
	}
}
