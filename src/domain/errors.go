package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("validation failed")

	ErrEntityNotFound = errors.New("entity not found")

	ErrDuplicateKey = errors.New("natural key already exists")

	ErrInvalidQuery = errors.New("invalid query")

	ErrStorage = errors.New("storage failure")
)

// StorageError embrulha qualquer falha vinda da camada de armazenamento.
// errors.Is casa tanto com ErrStorage quanto com a causa original.
type StorageError struct {
	Op  string
	Err error
}

func NewStorageError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrStorage.Error(), e.Op, e.Err)
}

func (e *StorageError) Unwrap() []error {
	return []error{ErrStorage, e.Err}
}
