// Package domain defines the core domain models for arsnap.
package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a capture domain error with a structured error code.
//
// Codes follow the format AR-<AREA>-<NNNN>. The leading digit of the number
// mirrors HTTP semantics: 2xxx transient, 4xxx caller error, 5xxx I/O or
// environment failure.
type DomainError struct {
	Code    string // Error code (e.g., "AR-STOR-5002")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Environment Errors (ENV)
// ============================================================================

var (
	// ErrStorageRoot indicates the document root could not be resolved or
	// created. The recorder cannot run without it.
	ErrStorageRoot = NewDomainError("AR-ENV-5000", "storage root unavailable")
)

// ============================================================================
// Storage Errors (STOR)
// ============================================================================

var (
	// ErrSessionCreate indicates the session folder could not be (re)created.
	ErrSessionCreate = NewDomainError("AR-STOR-5001", "session folder create failed")

	// ErrImageWrite indicates a snapshot image could not be written.
	ErrImageWrite = NewDomainError("AR-STOR-5002", "image write failed")

	// ErrManifestWrite indicates info.json could not be written.
	ErrManifestWrite = NewDomainError("AR-STOR-5003", "manifest write failed")

	// ErrManifestRead indicates info.json could not be read or decoded.
	ErrManifestRead = NewDomainError("AR-STOR-5004", "manifest read failed")

	// ErrInsufficientSpace indicates the storage volume is below the
	// configured free space floor.
	ErrInsufficientSpace = NewDomainError("AR-STOR-5071", "insufficient free space")
)

// ============================================================================
// Frame Errors (FRM)
// ============================================================================

var (
	// ErrNoFrame indicates no tracking frame is currently available.
	// It is not a failure; the tick is skipped.
	ErrNoFrame = NewDomainError("AR-FRM-2040", "no tracking frame available")

	// ErrEncode indicates the snapshot could not be encoded.
	ErrEncode = NewDomainError("AR-FRM-5001", "snapshot encode failed")

	// ErrSourceConfig indicates the frame source could not be opened.
	ErrSourceConfig = NewDomainError("AR-FRM-4000", "invalid frame source")
)

// ============================================================================
// Session Errors (SESS)
// ============================================================================

var (
	// ErrInvalidSessionName indicates the session name is empty or unsafe.
	ErrInvalidSessionName = NewDomainError("AR-SESS-4000", "invalid session name")

	// ErrCaptureActive indicates a capture is already running.
	ErrCaptureActive = NewDomainError("AR-SESS-4090", "capture already active")
)

// ============================================================================
// Control Errors (CTL)
// ============================================================================

var (
	// ErrUnknownCommand indicates an unrecognized control command.
	ErrUnknownCommand = NewDomainError("AR-CTL-4000", "unknown command")

	// ErrInternal indicates an unexpected internal failure.
	ErrInternal = NewDomainError("AR-CTL-5000", "internal error")
)

// Class groups errors by how callers are expected to react to them.
type Class int

const (
	// ClassUnknown is any error that is not a DomainError.
	ClassUnknown Class = iota
	// ClassTransient errors are skipped without logging noise.
	ClassTransient
	// ClassUsage errors are returned to the caller unchanged.
	ClassUsage
	// ClassIO errors are logged and reported as a failed operation.
	ClassIO
	// ClassEnvironment errors abort the process.
	ClassEnvironment
)

// String returns the class name.
func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassUsage:
		return "usage"
	case ClassIO:
		return "io"
	case ClassEnvironment:
		return "environment"
	default:
		return "unknown"
	}
}

// ClassOf classifies err by its domain error code.
func ClassOf(err error) Class {
	var de *DomainError
	if !errors.As(err, &de) {
		return ClassUnknown
	}
	switch {
	case de.Code == ErrStorageRoot.Code:
		return ClassEnvironment
	case de.Code == ErrNoFrame.Code:
		return ClassTransient
	case len(de.Code) > 0 && codeNumber(de.Code) >= 5000:
		return ClassIO
	case len(de.Code) > 0 && codeNumber(de.Code) >= 4000:
		return ClassUsage
	default:
		return ClassUnknown
	}
}

// codeNumber returns the numeric suffix of an AR-XXX-NNNN code, or -1.
func codeNumber(code string) int {
	n := 0
	digits := 0
	for i := len(code) - 1; i >= 0 && code[i] >= '0' && code[i] <= '9'; i-- {
		digits++
	}
	if digits == 0 {
		return -1
	}
	for _, c := range code[len(code)-digits:] {
		n = n*10 + int(c-'0')
	}
	return n
}
