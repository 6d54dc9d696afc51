package record

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when no stored item exists for a partition key.
	ErrNotFound = errors.New("arbor: record not found")

	// ErrValidation is matched by every *ValidationError.
	ErrValidation = errors.New("arbor: validation failed")

	// ErrPersistence is matched by every *PersistenceError.
	ErrPersistence = errors.New("arbor: persistence failed")

	// ErrAlreadyExists is returned when saving a new record whose partition key is taken.
	ErrAlreadyExists = errors.New("arbor: record already exists")

	// ErrConcurrentModification is returned when the stored version no longer matches.
	ErrConcurrentModification = errors.New("arbor: record was modified concurrently")

	// ErrNoBackend is returned by operations that need a Backend when none is configured.
	ErrNoBackend = errors.New("arbor: model has no backend")

	// ErrNotPersisted is returned by operations that require a persisted record.
	ErrNotPersisted = errors.New("arbor: record is not persisted")
)

// Problem is a single failed validation rule.
type Problem struct {
	Field   string
	Message string
}

// ValidationError reports the rules a record failed.
type ValidationError struct {
	Problems []Problem
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Problems) == 0 {
		return ErrValidation.Error()
	}
	parts := make([]string, 0, len(e.Problems))
	for _, p := range e.Problems {
		if p.Field == "" {
			parts = append(parts, p.Message)
			continue
		}
		parts = append(parts, p.Field+": "+p.Message)
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), strings.Join(parts, "; "))
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// PersistenceError wraps a failed backend write.
type PersistenceError struct {
	Op    string
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("arbor: %s %s: %v", e.Op, e.Table, e.Err)
}

// Unwrap returns the underlying cause so backend sentinels stay matchable.
func (e *PersistenceError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is reports whether target is ErrPersistence.
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
