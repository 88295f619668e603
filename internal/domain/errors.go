package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicated is returned when a second new message arrives for a confirmed order.
	ErrDuplicated = errors.New("duplicated")

	// ErrCorrupted is returned for any message addressing a poisoned order.
	ErrCorrupted = errors.New("corrupted")

	// ErrDuplicatedCancel is returned when a cancel is already pending for the order.
	ErrDuplicatedCancel = errors.New("duplicated_can")

	// ErrOverCancel means an early cancel claimed more than the new message carries. Poisons.
	ErrOverCancel = errors.New("over_can")

	// ErrOverAmend means an early amend booked more than the new message carries. Poisons.
	ErrOverAmend = errors.New("over_amd")

	// ErrInconsistentSide means a message disagrees with the recorded side. Poisons.
	ErrInconsistentSide = errors.New("inconsistent_side")

	// ErrInconsistentPrice means a message disagrees with the recorded price. Poisons.
	ErrInconsistentPrice = errors.New("inconsistent_prc")

	// ErrUnknownInstrument is returned for events on an instrument that has no book.
	ErrUnknownInstrument = errors.New("unknown_instrument")

	// ErrIDSpaceExhausted is returned when an arena cannot hold a record for the id.
	ErrIDSpaceExhausted = errors.New("id_space_exhausted")

	// ErrLineTooLong marks a feed line that does not fit the read buffer.
	ErrLineTooLong = errors.New("line_too_long")

	// ErrConfigNotFound is returned when configuration file is missing
	ErrConfigNotFound = errors.New("configuration not found")
)

// Field names reported by FieldError.
const (
	FieldAction     = "illegal_act"
	FieldInstrument = "illegal_iid"
	FieldOrderID    = "illegal_id"
	FieldSide       = "illegal_side"
	FieldQty        = "illegal_qty"
	FieldPrice      = "illegal_prc"
)

// FieldError reports a malformed or out-of-range field. The record is dropped.
type FieldError struct {
	Line  uint64
	Field string
	Err   error // optional cause
}

func (e *FieldError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("line %d: [%s]: %v", e.Line, e.Field, e.Err)
	}
	return fmt.Sprintf("line %d: [%s]", e.Line, e.Field)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// StateError reports a message rejected by the order lifecycle.
type StateError struct {
	Line    uint64
	OrderID OrderID
	Reason  error
}

func (e *StateError) Error() string {
	return fmt.Sprintf("line %d: order %d: [%v]", e.Line, e.OrderID, e.Reason)
}

func (e *StateError) Unwrap() error {
	return e.Reason
}

// LogicError reports an event the book manager cannot place.
type LogicError struct {
	Op  string
	Err error
}

func (e *LogicError) Error() string {
	return "logic error [" + e.Op + "]: " + e.Err.Error()
}

func (e *LogicError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return "config error [" + e.Field + "]: " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsPoisoning reports whether err left its order permanently corrupted.
func IsPoisoning(err error) bool {
	return errors.Is(err, ErrOverCancel) ||
		errors.Is(err, ErrOverAmend) ||
		errors.Is(err, ErrInconsistentSide) ||
		errors.Is(err, ErrInconsistentPrice)
}
