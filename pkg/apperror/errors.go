// Package apperror provides a structured way to handle application errors
// with specific codes, severity levels, and additional details. It also
// includes utilities for converting to and from gRPC status errors.
package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorCode represents a specific application error code.
type ErrorCode string

const (
	// Envelope (BRS header) validation
	CodeMissingService      ErrorCode = "MISSING_SERVICE"
	CodeMissingDeadline     ErrorCode = "MISSING_DEADLINE"
	CodeInvalidDeadline     ErrorCode = "INVALID_DEADLINE"
	CodeInvalidReplications ErrorCode = "INVALID_REPLICATIONS"
	CodeInvalidEnvelope     ErrorCode = "INVALID_ENVELOPE"
	CodeEmptyStrategyField  ErrorCode = "EMPTY_STRATEGY_FIELD"

	// Decision / strategy resolution
	CodeUnknownBalancerStrategy ErrorCode = "UNKNOWN_BALANCER_STRATEGY"
	CodeUnknownWeightsStrategy  ErrorCode = "UNKNOWN_WEIGHTS_STRATEGY"
	CodeUnknownReplicationStrat ErrorCode = "UNKNOWN_REPLICATION_STRATEGY"
	CodeUnknownCompletionPolicy ErrorCode = "UNKNOWN_COMPLETION_POLICY"

	// Telemetry / node state
	CodeNoTelemetry    ErrorCode = "NO_TELEMETRY"
	CodeUnknownNode    ErrorCode = "UNKNOWN_NODE"
	CodeRegistryMiss   ErrorCode = "REGISTRY_MISS"

	// Outbound / replication execution
	CodeNoSatisfyingReply ErrorCode = "NO_SATISFYING_REPLY"
	CodeUpstreamTransient ErrorCode = "UPSTREAM_TRANSIENT"
	CodeUpstreamTimeout   ErrorCode = "UPSTREAM_TIMEOUT"

	// Telemetry ingestion / storage
	CodeTelemetryWriteFailed ErrorCode = "TELEMETRY_WRITE_FAILED"

	// General
	CodeInternal        ErrorCode = "INTERNAL_ERROR"
	CodeNotFound        ErrorCode = "NOT_FOUND"
	CodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	CodeTimeout         ErrorCode = "TIMEOUT"
	CodeUnimplemented   ErrorCode = "UNIMPLEMENTED"
)

// Severity defines the criticality level of an error.
type Severity int

const (
	// SeverityWarning indicates a non-critical issue that can be ignored or automatically resolved.
	SeverityWarning Severity = iota
	// SeverityError indicates a standard error that requires attention.
	SeverityError
	// SeverityCritical indicates a severe error that might require immediate human intervention.
	SeverityCritical
)

// String returns the string representation of the Severity.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// Error is a custom error type that includes an ErrorCode, message,
// an optional field, additional details, an underlying cause, and a severity level.
type Error struct {
	Code     ErrorCode      // Code is a unique identifier for the type of error.
	Message  string         // Message is a human-readable description of the error.
	Field    string         // Field indicates which input field caused the error, if applicable.
	Details  map[string]any // Details provides additional structured information about the error.
	Cause    error          // Cause is the underlying error that triggered this application error.
	Severity Severity       // Severity indicates the criticality level of the error.
}

// Error implements the error interface, returning a string representation of the error.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] %s (field: %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error, allowing for error chain introspection.
func (e *Error) Unwrap() error {
	return e.Cause
}

// GRPCStatus converts the application error into a gRPC status.Status.
func (e *Error) GRPCStatus() *status.Status {
	code := e.grpcCode()
	return status.New(code, e.Message)
}

// grpcCode maps an ErrorCode to an appropriate gRPC codes.Code.
func (e *Error) grpcCode() codes.Code {
	switch e.Code {
	case CodeMissingService, CodeMissingDeadline, CodeInvalidDeadline,
		CodeInvalidReplications, CodeInvalidEnvelope, CodeEmptyStrategyField,
		CodeInvalidArgument:
		return codes.InvalidArgument

	case CodeUnknownBalancerStrategy, CodeUnknownWeightsStrategy,
		CodeUnknownReplicationStrat, CodeUnknownCompletionPolicy:
		return codes.FailedPrecondition

	case CodeNotFound, CodeUnknownNode, CodeRegistryMiss:
		return codes.NotFound

	case CodeTimeout, CodeUpstreamTimeout:
		return codes.DeadlineExceeded

	case CodeNoTelemetry, CodeNoSatisfyingReply, CodeUpstreamTransient:
		return codes.Unavailable

	case CodeTelemetryWriteFailed:
		return codes.DataLoss

	default:
		return codes.Internal
	}
}

// HTTPStatus maps an ErrorCode to the HTTP status code the proxy orchestrator
// should return to the caller when propagating this error.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeMissingService, CodeMissingDeadline, CodeInvalidDeadline,
		CodeInvalidReplications, CodeInvalidEnvelope, CodeEmptyStrategyField,
		CodeInvalidArgument:
		return http.StatusBadRequest

	case CodeUnknownBalancerStrategy, CodeUnknownWeightsStrategy,
		CodeUnknownReplicationStrat, CodeUnknownCompletionPolicy:
		return http.StatusBadGateway

	case CodeNoTelemetry, CodeNoSatisfyingReply, CodeUpstreamTransient, CodeUpstreamTimeout:
		return http.StatusServiceUnavailable

	case CodeNotFound, CodeUnknownNode, CodeRegistryMiss:
		return http.StatusNotFound

	default:
		return http.StatusInternalServerError
	}
}

// HTTPStatusFor is a convenience wrapper: it maps any error (app error or
// plain error) to the HTTP status the orchestrator should send, defaulting
// to 503 (matching the original's opaque-failure behavior) for unrecognized
// errors.
func HTTPStatusFor(err error) int {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.HTTPStatus()
	}
	return http.StatusServiceUnavailable
}

// New creates a new application error with the given code and message.
// The default severity is SeverityError.
func New(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWithField creates a new application error with the given code, message, and field.
// The default severity is SeverityError.
func NewWithField(code ErrorCode, message, field string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Field:    field,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// NewWarning creates a new application error with SeverityWarning.
func NewWarning(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityWarning,
	}
}

// NewCritical creates a new application error with SeverityCritical.
func NewCritical(code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Details:  make(map[string]any),
		Severity: SeverityCritical,
	}
}

// Wrap creates a new application error that wraps an existing error,
// providing additional context with a code and message.
// The default severity is SeverityError.
func Wrap(cause error, code ErrorCode, message string) *Error {
	return &Error{
		Code:     code,
		Message:  message,
		Cause:    cause,
		Details:  make(map[string]any),
		Severity: SeverityError,
	}
}

// WithDetails adds a key-value pair to the error's details map and returns the modified error.
func (e *Error) WithDetails(key string, value any) *Error {
	e.Details[key] = value
	return e
}

// WithField sets the field associated with the error and returns the modified error.
func (e *Error) WithField(field string) *Error {
	e.Field = field
	return e
}

// WithSeverity sets the severity level of the error and returns the modified error.
func (e *Error) WithSeverity(s Severity) *Error {
	e.Severity = s
	return e
}

// Is checks if the given error is an application error with a matching ErrorCode.
// It uses errors.As to unwrap the error chain.
func Is(err error, code ErrorCode) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

// Code extracts the ErrorCode from an error. If the error is not an *Error,
// it returns CodeInternal.
func Code(err error) ErrorCode {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// ToGRPC converts an application error or any other error into a gRPC error status.
// If the error is an *Error, it uses its GRPCStatus method.
// If it's already a gRPC status error, it's returned as is.
// Otherwise, it's wrapped as an internal gRPC error.
func ToGRPC(err error) error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.GRPCStatus().Err()
	}

	// If it's already a gRPC error
	if _, ok := status.FromError(err); ok {
		return err
	}

	// Wrap as an Internal error
	return status.Error(codes.Internal, err.Error())
}

// FromGRPC converts a gRPC error into an *Error.
// If the input error is nil, it returns nil.
// If the gRPC status code cannot be mapped to a specific ErrorCode,
// it defaults to CodeInternal.
func FromGRPC(err error) *Error {
	if err == nil {
		return nil
	}

	st, ok := status.FromError(err)
	if !ok {
		return New(CodeInternal, err.Error())
	}

	var code ErrorCode
	switch st.Code() {
	case codes.InvalidArgument:
		code = CodeInvalidArgument
	case codes.NotFound:
		code = CodeNotFound
	case codes.DeadlineExceeded:
		code = CodeTimeout
	case codes.Unavailable:
		code = CodeUpstreamTransient
	case codes.FailedPrecondition:
		code = CodeUnknownBalancerStrategy
	default:
		code = CodeInternal
	}

	return New(code, st.Message())
}

// IsWarning checks if the given error is an application error with SeverityWarning.
func IsWarning(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityWarning
	}
	return false
}

// IsCritical checks if the given error is an application error with SeverityCritical.
func IsCritical(err error) bool {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Severity == SeverityCritical
	}
	return false
}

// Predefined errors for common scenarios.
var (
	ErrNoTelemetry        = New(CodeNoTelemetry, "no telemetry: collector has not reported any node metrics yet")
	ErrNoSatisfyingReply  = New(CodeNoSatisfyingReply, "no replica reply satisfied the completion policy")
	ErrMissingService     = NewWithField(CodeMissingService, "X-Service header is required", "X-Service")
	ErrMissingDeadline    = NewWithField(CodeMissingDeadline, "X-Balancer-Deadline header is required", "X-Balancer-Deadline")
	ErrTimeout            = New(CodeTimeout, "operation timed out")
)

// ValidationErrors collects every malformed BRS header internal/envelope's
// Parse finds in one pass, so a client that sends several bad headers at
// once (e.g. missing X-Service and an out-of-range X-Completion-K) gets
// told about all of them instead of fixing them one request at a time.
type ValidationErrors struct {
	Errors   []*Error // Errors contains all collected errors (SeverityError and SeverityCritical).
	Warnings []*Error // Warnings contains all collected warnings (SeverityWarning).
}

// NewValidationErrors creates and returns a new empty ValidationErrors collection.
func NewValidationErrors() *ValidationErrors {
	return &ValidationErrors{
		Errors:   make([]*Error, 0),
		Warnings: make([]*Error, 0),
	}
}

// Add appends an *Error to the appropriate slice (Errors or Warnings)
// based on its Severity.
func (v *ValidationErrors) Add(err *Error) {
	if err.Severity == SeverityWarning {
		v.Warnings = append(v.Warnings, err)
	} else {
		v.Errors = append(v.Errors, err)
	}
}

// AddError creates and adds a new application error with SeverityError.
func (v *ValidationErrors) AddError(code ErrorCode, message string) {
	v.Errors = append(v.Errors, New(code, message))
}

// AddWarning creates and adds a new application error with SeverityWarning.
func (v *ValidationErrors) AddWarning(code ErrorCode, message string) {
	v.Warnings = append(v.Warnings, NewWarning(code, message))
}

// AddErrorWithField creates and adds a new application error with a specific field.
func (v *ValidationErrors) AddErrorWithField(code ErrorCode, message, field string) {
	v.Errors = append(v.Errors, NewWithField(code, message, field))
}

// HasErrors returns true if the collection contains any errors (non-warning severity).
func (v *ValidationErrors) HasErrors() bool {
	return len(v.Errors) > 0
}

// HasWarnings returns true if the collection contains any warnings.
func (v *ValidationErrors) HasWarnings() bool {
	return len(v.Warnings) > 0
}

// IsValid returns true if the collection contains no errors (warnings do not affect validity).
func (v *ValidationErrors) IsValid() bool {
	return !v.HasErrors()
}

// Merge combines the current ValidationErrors collection with another one.
// All errors and warnings from the 'other' collection are appended to the current one.
func (v *ValidationErrors) Merge(other *ValidationErrors) {
	if other == nil {
		return
	}
	v.Errors = append(v.Errors, other.Errors...)
	v.Warnings = append(v.Warnings, other.Warnings...)
}

// ErrorMessages returns a slice of string messages for all collected errors.
func (v *ValidationErrors) ErrorMessages() []string {
	messages := make([]string, len(v.Errors))
	for i, err := range v.Errors {
		messages[i] = err.Error()
	}
	return messages
}

// WarningMessages returns a slice of string messages for all collected warnings.
func (v *ValidationErrors) WarningMessages() []string {
	messages := make([]string, len(v.Warnings))
	for i, warn := range v.Warnings {
		messages[i] = warn.Message
	}
	return messages
}

// AsError collapses the collection into a single *Error that
// apperror.Code/HTTPStatusFor/ToGRPC already know how to handle: its Code
// and Field come from the first error collected (so a request with one bad
// header keeps reporting that header's exact code), while Details carries
// every field and message so a caller that wants the full picture can
// still get it. Returns nil when the collection has no errors.
func (v *ValidationErrors) AsError() *Error {
	if !v.HasErrors() {
		return nil
	}
	first := v.Errors[0]
	fields := make([]string, 0, len(v.Errors))
	for _, e := range v.Errors {
		if e.Field != "" {
			fields = append(fields, e.Field)
		}
	}
	return &Error{
		Code:     first.Code,
		Message:  strings.Join(v.ErrorMessages(), "; "),
		Field:    first.Field,
		Details:  map[string]any{"fields": fields, "errors": v.ErrorMessages()},
		Severity: SeverityError,
	}
}
