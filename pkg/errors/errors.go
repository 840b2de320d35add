package errors

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes errors
type ErrorCode string

const (
	ErrCodeProcessing ErrorCode = "PROCESSING_ERROR"
	ErrCodeDecode     ErrorCode = "DECODE_ERROR"
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	ErrCodeStorage    ErrorCode = "STORAGE_ERROR"
	ErrCodeSchedule   ErrorCode = "SCHEDULE_ERROR"
	ErrCodeNotFound   ErrorCode = "NOT_FOUND"
)

// StylusError is the base structured error
type StylusError struct {
	Code    ErrorCode
	Message string
	Cause   error
	Fields  map[string]interface{}
}

func (e *StylusError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *StylusError) Unwrap() error {
	return e.Cause
}

// ProcessingError represents a failure inside an effect pipeline stage
type ProcessingError struct {
	StylusError
	Stage string
}

func NewProcessingError(stage, message string, cause error) *ProcessingError {
	return &ProcessingError{
		StylusError: StylusError{
			Code:    ErrCodeProcessing,
			Message: message,
			Cause:   cause,
		},
		Stage: stage,
	}
}

func (e *ProcessingError) Error() string {
	base := e.StylusError.Error()
	return fmt.Sprintf("%s (stage=%s)", base, e.Stage)
}

// DecodeError represents a decoder subprocess failure
type DecodeError struct {
	StylusError
	Args     []string
	ExitCode int
	Stderr   string
}

func NewDecodeError(message string, args []string, exitCode int, stderr string, cause error) *DecodeError {
	return &DecodeError{
		StylusError: StylusError{
			Code:    ErrCodeDecode,
			Message: message,
			Cause:   cause,
		},
		Args:     args,
		ExitCode: exitCode,
		Stderr:   stderr,
	}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("[%s] %s (exit=%d, stderr=%q): %v",
		e.Code, e.Message, e.ExitCode, truncate(e.Stderr, 200), e.Cause)
}

// ValidationError represents input validation failure
type ValidationError struct {
	StylusError
	Field string
	Value interface{}
}

func NewValidationError(field string, value interface{}, message string) *ValidationError {
	return &ValidationError{
		StylusError: StylusError{
			Code:    ErrCodeValidation,
			Message: message,
		},
		Field: field,
		Value: value,
	}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] field=%s value=%v: %s", e.Code, e.Field, e.Value, e.Message)
}

// StorageError represents an artifact read/write failure
type StorageError struct {
	StylusError
	Op   string
	Path string
}

func NewStorageError(op, path, message string, cause error) *StorageError {
	return &StorageError{
		StylusError: StylusError{
			Code:    ErrCodeStorage,
			Message: message,
			Cause:   cause,
		},
		Op:   op,
		Path: path,
	}
}

func (e *StorageError) Error() string {
	base := e.StylusError.Error()
	return fmt.Sprintf("%s (op=%s, path=%s)", base, e.Op, e.Path)
}

// NotFoundError represents a lookup miss for a task or artifact
type NotFoundError struct {
	StylusError
	Kind string
	ID   string
}

func NewNotFoundError(kind, id string) *NotFoundError {
	return &NotFoundError{
		StylusError: StylusError{
			Code:    ErrCodeNotFound,
			Message: kind + " not found",
		},
		Kind: kind,
		ID:   id,
	}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("[%s] %s %q", e.Code, e.Message, e.ID)
}

// NewScheduleError reports a task that could not be queued for processing
func NewScheduleError(message string, cause error) *StylusError {
	return &StylusError{
		Code:    ErrCodeSchedule,
		Message: message,
		Cause:   cause,
	}
}

// Is enables errors.Is checks
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As enables errors.As checks
func As[T error](err error) (T, bool) {
	var target T
	ok := errors.As(err, &target)
	return target, ok
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
