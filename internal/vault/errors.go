package vault

import (
	"errors"
	"fmt"
)

// NotFoundErrorName tags NotFoundError apart from generic errors.
const NotFoundErrorName = "ItemNotFoundError"

// DuplicateIDErrorName tags DuplicateIDError apart from generic errors.
const DuplicateIDErrorName = "DuplicateItemIDError"

// Sentinel errors. Typed errors below match them with errors.Is.
var (
	ErrNotFound    = errors.New("item not found")
	ErrDuplicateID = errors.New("duplicate item id")
	ErrNilItem     = errors.New("item cannot be nil")

	// ErrNonFiniteValue is returned by inputs that feed JSON or YAML
	// consumers, which cannot carry NaN or infinities. A Vault itself
	// accepts any value.
	ErrNonFiniteValue = errors.New("value must be a finite number")
)

// NotFoundError reports that no item with ID is held by the vault.
type NotFoundError struct {
	ID int64
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("Item with id %d not found in vault!", e.ID)
}

// Name returns the distinguishing tag of the error kind.
func (e *NotFoundError) Name() string {
	return NotFoundErrorName
}

// Is reports whether target is ErrNotFound.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// DuplicateIDError reports an insert whose ID is already held.
type DuplicateIDError struct {
	ID int64
}

// Error implements the error interface.
func (e *DuplicateIDError) Error() string {
	return fmt.Sprintf("Item with id %d already exists in vault!", e.ID)
}

// Name returns the distinguishing tag of the error kind.
func (e *DuplicateIDError) Name() string {
	return DuplicateIDErrorName
}

// Is reports whether target is ErrDuplicateID.
func (e *DuplicateIDError) Is(target error) bool {
	return target == ErrDuplicateID
}

// ErrorName returns the tag of a domain error, or "" for any other error.
func ErrorName(err error) string {
	var named interface{ Name() string }
	if errors.As(err, &named) {
		return named.Name()
	}
	return ""
}
