// Package pgerrors defines the error taxonomy used across the connection
// dispatcher: transport failures, protocol violations, structured backend
// errors, and client-side state errors.
package pgerrors

import (
	"encoding/json"
	"fmt"
	"runtime"
	"time"
)

// TransportError represents a socket-level failure. It is terminal for the
// connection: once observed, every pending and future request resolves with
// it.
type TransportError struct {
	Code       string                 `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"cause,omitempty"`
	StackTrace []string               `json:"stack_trace,omitempty"`
	Timestamp  time.Time              `json:"timestamp,omitempty"`
}

// NewTransportError builds a TransportError, capturing a stack trace for
// debug-mode formatting.
func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{
		Code:       "E_TRANSPORT",
		Message:    message,
		Cause:      cause,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

func (e *TransportError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Message, e.Cause.Error())
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap allows errors.Is/errors.As to see through to the underlying cause.
func (e *TransportError) Unwrap() error { return e.Cause }

// FormatError implements the debugFormatter interface used by Format.
func (e *TransportError) FormatError(debugMode bool) string {
	if !debugMode {
		return e.Error()
	}
	data := map[string]interface{}{"code": e.Code, "message": e.Message}
	if e.Cause != nil {
		data["cause"] = e.Cause.Error()
	}
	if len(e.StackTrace) > 0 {
		data["stack_trace"] = e.StackTrace
	}
	if !e.Timestamp.IsZero() {
		data["timestamp"] = e.Timestamp.Format(time.RFC3339Nano)
	}
	b, _ := json.MarshalIndent(data, "", "  ")
	return string(b)
}

// ProtocolError represents inbound bytes that failed to satisfy the expected
// parse. It is terminal for the current request; implementations should
// close the connection because pipeline synchronisation is lost.
type ProtocolError struct {
	Code       string    `json:"code"`
	Message    string    `json:"message"`
	StackTrace []string  `json:"stack_trace,omitempty"`
	Timestamp  time.Time `json:"timestamp,omitempty"`
}

func NewProtocolError(message string) *ProtocolError {
	return &ProtocolError{
		Code:       "E_PROTOCOL",
		Message:    message,
		StackTrace: captureStackTrace(),
		Timestamp:  time.Now(),
	}
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func (e *ProtocolError) FormatError(debugMode bool) string {
	if !debugMode {
		return e.Error()
	}
	data := map[string]interface{}{"code": e.Code, "message": e.Message}
	if len(e.StackTrace) > 0 {
		data["stack_trace"] = e.StackTrace
	}
	b, _ := json.MarshalIndent(data, "", "  ")
	return string(b)
}

// BackendError is a structured ErrorResponse sent by the server for one
// request. It does not close the connection.
type BackendError struct {
	Severity string `json:"severity"`
	SQLState string `json:"sqlstate"`
	Message  string `json:"message"`
	Detail   string `json:"detail,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

func (e *BackendError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%s): %s: %s", e.Severity, e.SQLState, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s (%s): %s", e.Severity, e.SQLState, e.Message)
}

func (e *BackendError) FormatError(debugMode bool) string {
	if !debugMode {
		return e.Error()
	}
	b, _ := json.MarshalIndent(e, "", "  ")
	return string(b)
}

// StateError signals an operation attempted while the dispatcher or client
// is in the wrong lifecycle state.
type StateError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

func NewStateError(operation, required, actual string) *StateError {
	return &StateError{
		Code:    "E_STATE",
		Message: fmt.Sprintf("%s requires %s state, currently %s", operation, required, actual),
		Details: map[string]interface{}{"operation": operation, "requiredState": required, "currentState": actual},
	}
}

func (e *StateError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

func (e *StateError) FormatError(debugMode bool) string {
	if !debugMode {
		return e.Error()
	}
	b, _ := json.MarshalIndent(e, "", "  ")
	return string(b)
}

// Notification is an asynchronous NOTIFY delivered outside of any request.
// It is not an error but shares the unaffiliated-message delivery path.
type Notification struct {
	PID     int32
	Channel string
	Payload string
}

func (n Notification) String() string {
	return fmt.Sprintf("Notification{pid=%d channel=%q payload=%q}", n.PID, n.Channel, n.Payload)
}

// UnexpectedResult is a client-side result-set shape mismatch (e.g. calling
// ExactlyOneRow on a result with no rows).
type UnexpectedResult struct {
	Message string
}

func (e *UnexpectedResult) Error() string { return "unexpected result: " + e.Message }

// UnexpectedAmountOfRows is returned when a result-set accessor's row-count
// expectation is violated.
type UnexpectedAmountOfRows struct {
	Count int
}

func (e *UnexpectedAmountOfRows) Error() string {
	return fmt.Sprintf("unexpected amount of rows: %d", e.Count)
}

// RowError wraps a decoding failure for a specific row.
type RowError struct {
	Index int
	Cause error
}

func (e *RowError) Error() string { return fmt.Sprintf("row %d: %s", e.Index, e.Cause.Error()) }
func (e *RowError) Unwrap() error { return e.Cause }

func captureStackTrace() []string {
	const maxDepth = 32
	pcs := make([]uintptr, maxDepth)
	n := runtime.Callers(3, pcs)
	frames := make([]string, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])
	for {
		frame, more := callersFrames.Next()
		frames = append(frames, fmt.Sprintf("%s (%s:%d)", frame.Function, frame.File, frame.Line))
		if !more {
			break
		}
	}
	return frames
}

// debugFormatter is implemented by every error type above.
type debugFormatter interface {
	FormatError(bool) string
}

// Format renders err using its FormatError method when available, falling
// back to Error().
func Format(err error, debugMode bool) string {
	if err == nil {
		return ""
	}
	if formatter, ok := err.(debugFormatter); ok {
		return formatter.FormatError(debugMode)
	}
	return err.Error()
}
