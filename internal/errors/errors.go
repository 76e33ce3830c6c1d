// Package errors provides structured error types for factorysim.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes for simulation operations.
const (
	// Config errors
	CodeConfigMissingField = "CONFIG_001" // Missing required field
	CodeConfigInvalidValue = "CONFIG_002" // Invalid value
	CodeConfigUnknownOp    = "CONFIG_003" // Unknown operation name

	// Trigger errors
	CodeTriggerEvaluation = "TRIGGER_001" // Malformed date or day index

	// Handler errors
	CodeHandlerFailure = "HANDLER_001" // A business operation failed
	CodeHandlerMissing = "HANDLER_002" // Enabled operation has no handler

	// Synchronization errors
	CodeSyncPublish     = "SYNC_001" // Snapshot publication failed
	CodeSyncControl     = "SYNC_002" // Control channel failure
	CodeSyncNotAwaiting = "SYNC_003" // Control signal sent while not paused

	// Control errors
	CodeControlTimeout = "CONTROL_001" // Caller-imposed wait expired

	// Store errors
	CodeStoreOpen      = "STORE_001" // Opening a store failed
	CodeStoreQuery     = "STORE_002" // Query or mutation failed
	CodeStoreShortage  = "STORE_003" // Inventory would go negative
	CodeStoreNotFound  = "STORE_004" // Row not found
	CodeStoreUnsupport = "STORE_005" // Unsupported driver
)

// SimError is the structured error type for simulation operations.
type SimError struct {
	Code    string         `json:"code"`              // Error code (e.g., "HANDLER_001")
	Message string         `json:"message"`           // Human-readable message
	Details map[string]any `json:"details,omitempty"` // Context (operation, day, ...)
	Cause   error          `json:"-"`                 // Wrapped error (not serialized)
}

// Error implements the error interface.
func (e *SimError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *SimError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *SimError) WithDetail(key string, value any) *SimError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *SimError) WithCause(err error) *SimError {
	e.Cause = err
	return e
}

// MarshalJSON implements json.Marshaler with cause error message.
func (e *SimError) MarshalJSON() ([]byte, error) {
	type alias SimError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new SimError.
func New(code, message string) *SimError {
	return &SimError{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new SimError with formatted message.
func Newf(code, format string, args ...any) *SimError {
	return &SimError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with a SimError.
func Wrap(code, message string, err error) *SimError {
	return &SimError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted SimError.
func Wrapf(code string, err error, format string, args ...any) *SimError {
	return &SimError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// --- Config Errors ---

// ConfigMissingField creates an error for missing config field.
func ConfigMissingField(field string) *SimError {
	return Newf(CodeConfigMissingField, "missing required config field: %s", field).
		WithDetail("field", field)
}

// ConfigInvalidValue creates an error for invalid config value.
func ConfigInvalidValue(field string, value any, reason string) *SimError {
	return Newf(CodeConfigInvalidValue, "invalid config value for %s: %s", field, reason).
		WithDetail("field", field).
		WithDetail("value", value).
		WithDetail("reason", reason)
}

// ConfigUnknownOperation creates an error for an unrecognized operation name.
func ConfigUnknownOperation(name string) *SimError {
	return Newf(CodeConfigUnknownOp, "unknown operation: %s", name).
		WithDetail("operation", name)
}

// --- Trigger Errors ---

// TriggerEvaluation creates an error for malformed trigger input.
func TriggerEvaluation(day int, reason string) *SimError {
	return Newf(CodeTriggerEvaluation, "cannot evaluate triggers for day %d: %s", day, reason).
		WithDetail("day", day).
		WithDetail("reason", reason)
}

// --- Handler Errors ---

// HandlerFailure wraps an error raised by an operation handler.
func HandlerFailure(operation string, day int, err error) *SimError {
	return Wrapf(CodeHandlerFailure, err, "operation %s failed on day %d", operation, day).
		WithDetail("operation", operation).
		WithDetail("day", day)
}

// HandlerMissing creates an error for an enabled operation without a handler.
func HandlerMissing(operation string) *SimError {
	return Newf(CodeHandlerMissing, "no handler registered for enabled operation %s", operation).
		WithDetail("operation", operation)
}

// --- Synchronization Errors ---

// SyncPublish wraps a snapshot publication failure.
func SyncPublish(target string, err error) *SimError {
	return Wrap(CodeSyncPublish, "failed to publish snapshot", err).
		WithDetail("target", target)
}

// SyncControl wraps a control channel failure.
func SyncControl(err error) *SimError {
	return Wrap(CodeSyncControl, "control channel failure", err)
}

// SyncNotAwaiting creates an error for a control signal sent while the run is not paused.
func SyncNotAwaiting(signal string) *SimError {
	return Newf(CodeSyncNotAwaiting, "simulation is not waiting for a control signal (got %s)", signal).
		WithDetail("signal", signal)
}

// --- Control Errors ---

// ControlTimeout creates an error for an expired caller-imposed wait.
func ControlTimeout(waitingFor string, timeout string) *SimError {
	return Newf(CodeControlTimeout, "timed out after %s waiting for %s", timeout, waitingFor).
		WithDetail("waiting_for", waitingFor).
		WithDetail("timeout", timeout)
}

// --- Store Errors ---

// StoreOpen wraps a failure to open a store.
func StoreOpen(store string, err error) *SimError {
	return Wrapf(CodeStoreOpen, err, "failed to open %s store", store).
		WithDetail("store", store)
}

// StoreQuery wraps a failed query or mutation.
func StoreQuery(store, op string, err error) *SimError {
	return Wrapf(CodeStoreQuery, err, "%s store: %s", store, op).
		WithDetail("store", store).
		WithDetail("op", op)
}

// StoreShortage creates an error for a deduction larger than the stock on hand.
func StoreShortage(part string, need, have int) *SimError {
	return Newf(CodeStoreShortage, "insufficient inventory for %s: need %d, have %d", part, need, have).
		WithDetail("part", part).
		WithDetail("need", need).
		WithDetail("have", have)
}

// StoreNotFound creates an error for a missing row.
func StoreNotFound(store, key string) *SimError {
	return Newf(CodeStoreNotFound, "%s store: not found: %s", store, key).
		WithDetail("store", store).
		WithDetail("key", key)
}

// StoreUnsupportedDriver creates an error for an unknown store driver.
func StoreUnsupportedDriver(driver string) *SimError {
	return Newf(CodeStoreUnsupport, "unsupported store driver: %s", driver).
		WithDetail("driver", driver)
}

// HasCode checks if an error is a SimError with the given code.
// It handles wrapped errors by unwrapping to find a SimError.
func HasCode(err error, code string) bool {
	var serr *SimError
	if errors.As(err, &serr) {
		return serr.Code == code
	}
	return false
}

// Code returns the error code if err is a SimError, empty string otherwise.
// It handles wrapped errors by unwrapping to find a SimError.
func Code(err error) string {
	var serr *SimError
	if errors.As(err, &serr) {
		return serr.Code
	}
	return ""
}

// Detail returns a detail value from the first SimError in the chain.
func Detail(err error, key string) (any, bool) {
	var serr *SimError
	if errors.As(err, &serr) && serr.Details != nil {
		v, ok := serr.Details[key]
		return v, ok
	}
	return nil, false
}
