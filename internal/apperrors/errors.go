// Package apperrors defines the error taxonomy shared by the reconciliation
// engine. Handlers map these kinds onto HTTP statuses; the batch orchestrator
// records them per item instead of aborting.
package apperrors

import (
	"errors"
	"fmt"
)

// ValidationError marks bad input: non-positive amounts, missing identifiers,
// or an amount exceeding the targeted invoice balance.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Msg
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

// NotFoundError marks a missing transaction, customer, invoice or payment.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// ConflictError marks an attempted transition out of a terminal transaction
// state, or a lost race against a concurrent posting.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// ConsistencyError marks a defensive check that should be unreachable given
// the preconditions: a negative balance, or a second payment for one bank
// transaction slipping past the state check.
type ConsistencyError struct {
	Msg string
}

func (e *ConsistencyError) Error() string { return e.Msg }

func Validation(field, msg string) error  { return &ValidationError{Field: field, Msg: msg} }
func NotFound(entity, id string) error    { return &NotFoundError{Entity: entity, ID: id} }
func Conflict(format string, args ...any) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}
func Consistency(format string, args ...any) error {
	return &ConsistencyError{Msg: fmt.Sprintf(format, args...)}
}

func IsValidation(err error) bool {
	var e *ValidationError
	return errors.As(err, &e)
}

func IsNotFound(err error) bool {
	var e *NotFoundError
	return errors.As(err, &e)
}

func IsConflict(err error) bool {
	var e *ConflictError
	return errors.As(err, &e)
}

func IsConsistency(err error) bool {
	var e *ConsistencyError
	return errors.As(err, &e)
}
