package pgerrors

import (
	"errors"
	"strings"
	"testing"
)

func TestTransportErrorWrapsCause(t *testing.T) {
	cause := errors.New("connection reset")
	e := NewTransportError("read failed", cause)

	if !strings.Contains(e.Error(), "read failed") || !strings.Contains(e.Error(), "connection reset") {
		t.Fatalf("got %q", e.Error())
	}
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to see through to the cause")
	}
}

func TestTransportErrorFormatErrorDebugMode(t *testing.T) {
	e := NewTransportError("read failed", errors.New("eof"))
	plain := e.FormatError(false)
	debug := e.FormatError(true)

	if plain != e.Error() {
		t.Fatalf("expected non-debug formatting to equal Error(), got %q", plain)
	}
	if !strings.Contains(debug, "stack_trace") {
		t.Fatalf("expected debug formatting to include a stack trace, got %q", debug)
	}
}

func TestProtocolErrorFormatting(t *testing.T) {
	e := NewProtocolError("unexpected tag")
	if e.Code != "E_PROTOCOL" {
		t.Fatalf("got code %q", e.Code)
	}
	if !strings.Contains(e.Error(), "unexpected tag") {
		t.Fatalf("got %q", e.Error())
	}
}

func TestBackendErrorIncludesDetailOnlyWhenPresent(t *testing.T) {
	withDetail := &BackendError{Severity: "ERROR", SQLState: "42601", Message: "syntax error", Detail: "near \"x\""}
	if !strings.Contains(withDetail.Error(), "near \"x\"") {
		t.Fatalf("got %q", withDetail.Error())
	}

	withoutDetail := &BackendError{Severity: "ERROR", SQLState: "42601", Message: "syntax error"}
	if strings.Contains(withoutDetail.Error(), "  :") {
		t.Fatalf("got %q", withoutDetail.Error())
	}
	if withoutDetail.Error() != "ERROR (42601): syntax error" {
		t.Fatalf("got %q", withoutDetail.Error())
	}
}

func TestStateErrorMessage(t *testing.T) {
	e := NewStateError("Close", "Running", "Stopped")
	if e.Code != "E_STATE" {
		t.Fatalf("got code %q", e.Code)
	}
	if !strings.Contains(e.Error(), "Close requires Running state, currently Stopped") {
		t.Fatalf("got %q", e.Error())
	}
}

func TestNotificationString(t *testing.T) {
	n := Notification{PID: 7, Channel: "updates", Payload: "row changed"}
	s := n.String()
	if !strings.Contains(s, "pid=7") || !strings.Contains(s, "updates") || !strings.Contains(s, "row changed") {
		t.Fatalf("got %q", s)
	}
}

func TestUnexpectedResultError(t *testing.T) {
	e := &UnexpectedResult{Message: "expected a single row"}
	if e.Error() != "unexpected result: expected a single row" {
		t.Fatalf("got %q", e.Error())
	}
}

func TestUnexpectedAmountOfRowsError(t *testing.T) {
	e := &UnexpectedAmountOfRows{Count: 3}
	if e.Error() != "unexpected amount of rows: 3" {
		t.Fatalf("got %q", e.Error())
	}
}

func TestRowErrorWrapsCause(t *testing.T) {
	cause := errors.New("bad int")
	e := &RowError{Index: 2, Cause: cause}
	if e.Error() != "row 2: bad int" {
		t.Fatalf("got %q", e.Error())
	}
	if !errors.Is(e, cause) {
		t.Fatal("expected errors.Is to see through RowError to its cause")
	}
}

func TestFormatFallsBackToErrorForPlainErrors(t *testing.T) {
	plain := errors.New("boring error")
	if Format(plain, true) != "boring error" {
		t.Fatalf("got %q", Format(plain, true))
	}
	if Format(nil, true) != "" {
		t.Fatal("expected empty string for a nil error")
	}
}

func TestFormatUsesFormatErrorWhenAvailable(t *testing.T) {
	e := NewProtocolError("bad frame")
	if Format(e, false) != e.Error() {
		t.Fatalf("got %q", Format(e, false))
	}
}
