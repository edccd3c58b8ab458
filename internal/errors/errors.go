// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrConfigInvalid    = errors.New("invalid configuration")
	ErrParameterInvalid = errors.New("invalid parameter")
	ErrNumerical        = errors.New("numerical failure")
	ErrSerialization    = errors.New("serialization failed")
	ErrEmptyScenarios   = errors.New("no scenarios to aggregate")
	ErrRunNotFound      = errors.New("run not found")
	ErrDatabaseError    = errors.New("database error")
)

// ConfigError represents a rejected run-level configuration value
// (simulation count, time steps, horizon).
type ConfigError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration error: %s (%v): %s", e.Field, e.Value, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return ErrConfigInvalid
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field string, value interface{}, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ParameterError represents a missing or out-of-domain field in one of the
// site, market, growth or cost parameter groups.
type ParameterError struct {
	Group   string
	Field   string
	Value   interface{}
	Message string
}

func (e *ParameterError) Error() string {
	return fmt.Sprintf("parameter error: %s.%s (%v): %s", e.Group, e.Field, e.Value, e.Message)
}

func (e *ParameterError) Unwrap() error {
	return ErrParameterInvalid
}

// NewParameterError creates a new ParameterError.
func NewParameterError(group, field string, value interface{}, message string) *ParameterError {
	return &ParameterError{
		Group:   group,
		Field:   field,
		Value:   value,
		Message: message,
	}
}

// ScenarioError reports a trial that produced unusable numbers. A run that
// hits one is aborted as a whole.
type ScenarioError struct {
	Index int
	Stage string
	Err   error
}

func (e *ScenarioError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("scenario %d failed at %s: %v", e.Index, e.Stage, e.Err)
	}
	return fmt.Sprintf("scenario %d failed at %s", e.Index, e.Stage)
}

func (e *ScenarioError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrNumerical}
	}
	return []error{ErrNumerical, e.Err}
}

// NewScenarioError creates a new ScenarioError.
func NewScenarioError(index int, stage string, err error) *ScenarioError {
	return &ScenarioError{
		Index: index,
		Stage: stage,
		Err:   err,
	}
}

// SerializationError represents a failure writing or reading an exported document.
type SerializationError struct {
	Path string
	Op   string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error [%s] %s: %v", e.Op, e.Path, e.Err)
}

func (e *SerializationError) Unwrap() []error {
	return []error{ErrSerialization, e.Err}
}

// NewSerializationError creates a new SerializationError.
func NewSerializationError(path, op string, err error) *SerializationError {
	return &SerializationError{
		Path: path,
		Op:   op,
		Err:  err,
	}
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Join joins errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
