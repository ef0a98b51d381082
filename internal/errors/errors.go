// Package errors provides structured error types for groupbench.
// Every fatal error carries a category, a code and the offending entity
// (group key, store, stage) in its details.
package errors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorCategory classifies errors by the part of the run that failed.
type ErrorCategory string

const (
	ErrCategoryConfig      ErrorCategory = "CONFIG"
	ErrCategoryCompression ErrorCategory = "COMPRESSION"
	ErrCategoryStore       ErrorCategory = "STORE"
	ErrCategoryInternal    ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Config codes
	CodeInvalidParameter = "INVALID_PARAMETER"
	CodeConfigLoad       = "CONFIG_LOAD"

	// Compression codes
	CodeCompressFailed   = "COMPRESS_FAILED"
	CodeDecompressFailed = "DECOMPRESS_FAILED"
	CodeUnknownCodec     = "UNKNOWN_CODEC"

	// Store codes
	CodeCreateFailed = "CREATE_FAILED"
	CodeWriteFailed  = "WRITE_FAILED"
	CodeReadFailed   = "READ_FAILED"
	CodeSizeFailed   = "SIZE_FAILED"
	CodeCloseFailed  = "CLOSE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Detail keys naming the offending entity.
const (
	DetailGroupKey = "group_key"
	DetailStore    = "store"
	DetailStage    = "stage"
	DetailField    = "field"
)

// BenchError is the structured error type used throughout the system.
type BenchError struct {
	Category ErrorCategory
	Code     string
	Message  string
	Details  map[string]interface{}
	Cause    error
}

// Error returns a formatted error string. Details are rendered in key order.
func (e *BenchError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s:%s] %s", e.Category, e.Code, e.Message)
	if len(e.Details) > 0 {
		keys := make([]string, 0, len(e.Details))
		for k := range e.Details {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		b.WriteString(" (")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", k, e.Details[k])
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *BenchError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *BenchError) Is(target error) bool {
	var t *BenchError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new BenchError.
func New(category ErrorCategory, code, message string) *BenchError {
	return &BenchError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

// Wrap creates a new BenchError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *BenchError {
	return &BenchError{
		Category: category,
		Code:     code,
		Message:  message,
		Cause:    cause,
	}
}

// WithDetails returns a copy of the error with additional details merged in.
func (e *BenchError) WithDetails(details map[string]interface{}) *BenchError {
	cp := *e
	merged := make(map[string]interface{}, len(e.Details)+len(details))
	for k, v := range e.Details {
		merged[k] = v
	}
	for k, v := range details {
		merged[k] = v
	}
	cp.Details = merged
	return &cp
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCategory(err error) ErrorCategory {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a BenchError.
func GetCode(err error) string {
	var be *BenchError
	if errors.As(err, &be) {
		return be.Code
	}
	return ""
}

// GetDetail extracts a detail value from the first BenchError in the chain
// that carries it.
func GetDetail(err error, key string) (interface{}, bool) {
	for err != nil {
		var be *BenchError
		if !errors.As(err, &be) {
			return nil, false
		}
		if v, ok := be.Details[key]; ok {
			return v, true
		}
		err = be.Cause
	}
	return nil, false
}

// Convenience constructors for common errors.

func NewConfigError(field, message string) *BenchError {
	return New(ErrCategoryConfig, CodeInvalidParameter, message).
		WithDetails(map[string]interface{}{DetailField: field})
}

func NewCompressionError(code, groupKey, message string, cause error) *BenchError {
	return Wrap(ErrCategoryCompression, code, message, cause).
		WithDetails(map[string]interface{}{DetailGroupKey: groupKey})
}

func NewStoreError(code, store, message string, cause error) *BenchError {
	return Wrap(ErrCategoryStore, code, message, cause).
		WithDetails(map[string]interface{}{DetailStore: store})
}

func NewInternalError(message string, cause error) *BenchError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
