/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package errors

import (
	"errors"
	"fmt"
)

// Common sentinel errors
var (
	// ErrNotFound is returned when an entity is not found
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")

	// ErrConditionFailed is returned when a conditional write is rejected after retries
	ErrConditionFailed = errors.New("condition check failed")

	// ErrNoIndex is returned when an index query is requested for a type without an index
	ErrNoIndex = errors.New("entity type has no local secondary index")

	// ErrNotRegistered is returned when no descriptor is registered for a type
	ErrNotRegistered = errors.New("no descriptor registered for type")
)

// NotFoundError represents an error when an entity is not found
type NotFoundError struct {
	Type string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with key %q not found", e.Type, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError represents an input validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %q: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// ConditionFailedError represents a failed conditional operation
type ConditionFailedError struct {
	Operation string
	Condition string
}

func (e *ConditionFailedError) Error() string {
	return fmt.Sprintf("condition check failed for %s operation: %s", e.Operation, e.Condition)
}

func (e *ConditionFailedError) Is(target error) bool {
	return target == ErrConditionFailed
}

// NoIndexError is returned when a table descriptor does not declare the local secondary index
type NoIndexError struct {
	Table string
}

func (e *NoIndexError) Error() string {
	return fmt.Sprintf("table %q has no local secondary index", e.Table)
}

func (e *NoIndexError) Is(target error) bool {
	return target == ErrNoIndex
}

// NotRegisteredError is returned when a Go type has no registered descriptor
type NotRegisteredError struct {
	Type string
}

func (e *NotRegisteredError) Error() string {
	return fmt.Sprintf("no descriptor registered for type %s", e.Type)
}

func (e *NotRegisteredError) Is(target error) bool {
	return target == ErrNotRegistered
}

// Helper functions for creating errors

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(entityType, key string) error {
	return &NotFoundError{Type: entityType, Key: key}
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NewConditionFailedError creates a new ConditionFailedError
func NewConditionFailedError(operation, condition string) error {
	return &ConditionFailedError{Operation: operation, Condition: condition}
}

// NewNoIndexError creates a new NoIndexError
func NewNoIndexError(table string) error {
	return &NoIndexError{Table: table}
}

// NewNotRegisteredError creates a new NotRegisteredError
func NewNotRegisteredError(typeName string) error {
	return &NotRegisteredError{Type: typeName}
}

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsConditionFailed checks if an error is a condition failed error
func IsConditionFailed(err error) bool {
	return errors.Is(err, ErrConditionFailed)
}

// IsNoIndex checks if an error reports a missing index
func IsNoIndex(err error) bool {
	return errors.Is(err, ErrNoIndex)
}

// IsNotRegistered checks if an error reports a missing descriptor
func IsNotRegistered(err error) bool {
	return errors.Is(err, ErrNotRegistered)
}
