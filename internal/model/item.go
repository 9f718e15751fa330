// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"time"

	"github.com/vyrodovalexey/vault-inventory/internal/vault"
)

// Validation errors for request bodies.
var (
	ErrMissingID    = errors.New("id is required")
	ErrMissingValue = errors.New("value is required")

	// ErrNonFiniteValue rejects NaN and infinities, which JSON cannot carry.
	ErrNonFiniteValue = vault.ErrNonFiniteValue
)

// Item is the wire representation of a vault item.
type Item struct {
	ID    int64   `json:"id"`
	Value float64 `json:"value"`
}

// FromVaultItem converts a domain item into its wire form.
func FromVaultItem(i vault.Item) Item {
	return Item{ID: i.ID(), Value: i.Value}
}

// FromVaultItems converts a slice of domain items, keeping order.
func FromVaultItems(items []vault.Item) []Item {
	out := make([]Item, len(items))
	for idx, i := range items {
		out[idx] = FromVaultItem(i)
	}
	return out
}

// CreateItemRequest is the body of an insert request.
type CreateItemRequest struct {
	ID    *int64   `json:"id"`
	Value *float64 `json:"value"`
}

// Validate checks that both fields were supplied and the value is finite.
func (r *CreateItemRequest) Validate() error {
	if r.ID == nil {
		return ErrMissingID
	}

	if r.Value == nil {
		return ErrMissingValue
	}

	if !vault.IsFinite(*r.Value) {
		return ErrNonFiniteValue
	}

	return nil
}

// ToVaultItem builds a standalone domain item. Validate must pass first.
func (r *CreateItemRequest) ToVaultItem() *vault.Item {
	return vault.NewItem(*r.ID, *r.Value)
}

// RevalueRequest is the body of a revalue request.
type RevalueRequest struct {
	Value *float64 `json:"value"`
}

// Validate checks that a finite value was supplied.
func (r *RevalueRequest) Validate() error {
	if r.Value == nil {
		return ErrMissingValue
	}
	if !vault.IsFinite(*r.Value) {
		return ErrNonFiniteValue
	}
	return nil
}

// VaultSummary holds the aggregate view of a vault.
type VaultSummary struct {
	Count      int     `json:"count"`
	TotalValue float64 `json:"total_value"`
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// ErrorResponse represents an error response structure. Name carries the
// domain error tag so clients can tell vault failures from other errors.
// Details holds the decoder's complaint about a malformed body.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Name    string `json:"name,omitempty"`
	ID      *int64 `json:"id,omitempty"`
	Details string `json:"details,omitempty"`
}

// WebSocketMessage represents a message sent over WebSocket connection.
type WebSocketMessage struct {
	Type      string        `json:"type"`
	Summary   *VaultSummary `json:"summary,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

// WebSocket message types.
const (
	WSMessageTypeSnapshot = "vault_snapshot"
	WSMessageTypeError    = "error"
)

// NewSnapshotMessage creates a new WebSocket message carrying a vault summary.
func NewSnapshotMessage(summary VaultSummary) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeSnapshot,
		Summary:   &summary,
		Timestamp: time.Now().UTC(),
	}
}

// NewErrorMessage creates the final frame sent when snapshots stop for a
// reason other than the client or the server leaving.
func NewErrorMessage(msg string) WebSocketMessage {
	return WebSocketMessage{
		Type:      WSMessageTypeError,
		Error:     msg,
		Timestamp: time.Now().UTC(),
	}
}
