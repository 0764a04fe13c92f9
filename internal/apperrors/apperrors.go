// Package apperrors holds the error taxonomy shared by the catalog, cart and
// order services. Handlers classify errors with errors.As and map them to
// HTTP status codes; nothing here is fatal to the process.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError reports bad input. No state was mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type NotFoundError struct {
	Resource string
	ID       any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found with ID: %v", e.Resource, e.ID)
}

func NotFound(resource string, id any) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// StockShortageError aborts a checkout transaction.
type StockShortageError struct {
	ProductID uint
	Title     string
	Remaining int
	Requested int
}

func (e *StockShortageError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, only %d left", e.Title, e.Requested, e.Remaining)
}

// StateConflictError is returned when an order is reviewed outside PENDING.
type StateConflictError struct {
	Code   string
	Status string
}

func (e *StateConflictError) Error() string {
	return fmt.Sprintf("order %s is already %s", e.Code, e.Status)
}

// IntegrityError wraps a unique-constraint violation. The caller may retry.
type IntegrityError struct {
	Message string
	Err     error
}

func (e *IntegrityError) Error() string {
	return e.Message
}

func (e *IntegrityError) Unwrap() error {
	return e.Err
}

func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

func IsStockShortage(err error) bool {
	var target *StockShortageError
	return errors.As(err, &target)
}

func IsStateConflict(err error) bool {
	var target *StateConflictError
	return errors.As(err, &target)
}

func IsIntegrity(err error) bool {
	var target *IntegrityError
	return errors.As(err, &target)
}
