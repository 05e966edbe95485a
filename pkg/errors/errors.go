// Package errors provides structured error types for auractl.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ErrorCode identifies specific error conditions
type ErrorCode string

const (
	ErrCodeConfig        ErrorCode = "CONFIG_ERROR"
	ErrCodeToolNotFound  ErrorCode = "TOOL_NOT_FOUND"
	ErrCodeTool          ErrorCode = "TOOL_ERROR"
	ErrCodeParse         ErrorCode = "PARSE_ERROR"
	ErrCodeProtocol      ErrorCode = "PROTOCOL_ERROR"
	ErrCodeTimeout       ErrorCode = "TIMEOUT"
	ErrCodeRemoteFailure ErrorCode = "REMOTE_FAILURE"
	ErrCodeNotFound      ErrorCode = "NOT_FOUND"
	ErrCodeBackend       ErrorCode = "BACKEND_ERROR"
	ErrCodeValidation    ErrorCode = "VALIDATION_ERROR"
	ErrCodeCanceled      ErrorCode = "CANCELED"
)

// Timeout scopes reported in Details["scope"].
const (
	ScopeCommand   = "command"
	ScopeOperation = "operation"
)

// Error is the base error type for auractl
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Details map[string]interface{}
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new error with the given code and message
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Details: make(map[string]interface{}),
	}
}

// Wrap creates a new error wrapping an existing error
func Wrap(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Details: make(map[string]interface{}),
	}
}

// WithDetails adds details to an error
func (e *Error) WithDetails(details map[string]interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail adds a single detail to an error
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ConfigError creates a configuration error.
func ConfigError(message string, details map[string]interface{}) *Error {
	if details == nil {
		details = make(map[string]interface{})
	}
	return &Error{
		Code:    ErrCodeConfig,
		Message: message,
		Details: details,
	}
}

// ToolNotFound reports that none of the candidate executable locations resolved.
func ToolNotFound(candidates []string) *Error {
	return &Error{
		Code:    ErrCodeToolNotFound,
		Message: fmt.Sprintf("aura-cli executable not found (tried: %s)", strings.Join(candidates, ", ")),
		Details: map[string]interface{}{
			"candidates": candidates,
		},
	}
}

// CommandFailed creates an error for a tool invocation that exited non-zero.
func CommandFailed(commandLine string, exitCode int, stdout, stderr string, cause error) *Error {
	return &Error{
		Code:    ErrCodeTool,
		Message: fmt.Sprintf("command %q exited with code %d", commandLine, exitCode),
		Cause:   cause,
		Details: map[string]interface{}{
			"command":   commandLine,
			"exit_code": exitCode,
			"stdout":    stdout,
			"stderr":    stderr,
		},
	}
}

// Canceled reports an operation stopped because its context ended, as opposed
// to a command that failed.
func Canceled(message string, cause error) *Error {
	return Wrap(ErrCodeCanceled, message, cause)
}

// CommandTimeout creates an error for a tool invocation that exceeded its deadline.
func CommandTimeout(commandLine string, timeout time.Duration, stdout, stderr string) *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: fmt.Sprintf("command %q timed out after %s", commandLine, timeout),
		Details: map[string]interface{}{
			"scope":   ScopeCommand,
			"command": commandLine,
			"timeout": timeout.String(),
			"stdout":  stdout,
			"stderr":  stderr,
		},
	}
}

// ParseError creates an error for tool output that contains no JSON value.
func ParseError(commandLine, output string, err error) *Error {
	return &Error{
		Code:    ErrCodeParse,
		Message: fmt.Sprintf("failed to parse JSON output of %q", commandLine),
		Cause:   err,
		Details: map[string]interface{}{
			"command": commandLine,
			"stdout":  output,
		},
	}
}

// ProtocolError reports a well-formed response that lacks a field auractl depends on.
func ProtocolError(operation, field string, response interface{}) *Error {
	return &Error{
		Code:    ErrCodeProtocol,
		Message: fmt.Sprintf("%s response is missing %s", operation, field),
		Details: map[string]interface{}{
			"operation": operation,
			"field":     field,
			"response":  response,
		},
	}
}

// WaitTimeout creates an error for a wait loop that did not reach a terminal status.
func WaitTimeout(resource, id string, timeout time.Duration, lastStatus string) *Error {
	return &Error{
		Code:    ErrCodeTimeout,
		Message: fmt.Sprintf("timed out after %s waiting for %s %s (last status %q)", timeout, resource, id, lastStatus),
		Details: map[string]interface{}{
			"scope":       ScopeOperation,
			"resource":    resource,
			"id":          id,
			"timeout":     timeout.String(),
			"last_status": lastStatus,
		},
	}
}

// RemoteFailure reports a polled resource that reached a failure status.
func RemoteFailure(resource, id, status string) *Error {
	return &Error{
		Code:    ErrCodeRemoteFailure,
		Message: fmt.Sprintf("%s %s reported status %q", resource, id, status),
		Details: map[string]interface{}{
			"resource": resource,
			"id":       id,
			"status":   status,
		},
	}
}

// NotFoundError creates a not found error
func NotFoundError(resourceType, name string) *Error {
	return &Error{
		Code:    ErrCodeNotFound,
		Message: fmt.Sprintf("%s %q not found", resourceType, name),
		Details: map[string]interface{}{
			"resource_type": resourceType,
			"name":          name,
		},
	}
}

// BackendError creates a backend error
func BackendError(backend string, operation string, err error) *Error {
	return &Error{
		Code:    ErrCodeBackend,
		Message: fmt.Sprintf("backend %s failed during %s", backend, operation),
		Cause:   err,
		Details: map[string]interface{}{
			"backend":   backend,
			"operation": operation,
		},
	}
}

// Is checks if the error, or any error it wraps, carries the given code
func Is(err error, code ErrorCode) bool {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost coded error in the chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
