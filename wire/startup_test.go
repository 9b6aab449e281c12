package wire

import (
	"encoding/binary"
	"testing"
)

func authPayload(kind int32, salt ...byte) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, uint32(kind))
	return append(buf, salt...)
}

func backendKeyPayload(pid, secret int32) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint32(buf[0:4], uint32(pid))
	binary.BigEndian.PutUint32(buf[4:8], uint32(secret))
	return buf
}

func TestStartupResponseAuthOKPassesThroughToReady(t *testing.T) {
	p := StartupResponse()

	step := p.Feed(Message{Tag: BackendAuthentication, Payload: authPayload(AuthOK)})
	if step.Done {
		t.Fatalf("expected NeedMore after AuthenticationOk, got %+v", step)
	}

	step = p.Feed(Message{Tag: BackendParameterStatus, Payload: []byte("client_encoding\x00UTF8\x00")})
	if step.Done {
		t.Fatalf("expected ParameterStatus to be tolerated, got %+v", step)
	}

	step = p.Feed(Message{Tag: BackendReadyForQuery, Payload: []byte{'I'}})
	if !step.Done || step.Err != nil {
		t.Fatalf("expected Done with no error, got %+v", step)
	}
	if !step.Result.Ready {
		t.Fatal("expected Ready to be true")
	}
	if step.Result.NeedsPassword {
		t.Fatal("did not expect NeedsPassword")
	}
}

func TestStartupResponseStopsAtPasswordChallenge(t *testing.T) {
	p := StartupResponse()

	step := p.Feed(Message{Tag: BackendAuthentication, Payload: authPayload(AuthMD5Password, 1, 2, 3, 4)})
	if !step.Done || step.Err != nil {
		t.Fatalf("expected Done with no error at password challenge, got %+v", step)
	}
	if !step.Result.NeedsPassword {
		t.Fatal("expected NeedsPassword")
	}
	if step.Result.AuthKind != AuthMD5Password {
		t.Fatalf("expected AuthMD5Password, got %d", step.Result.AuthKind)
	}
	want := [4]byte{1, 2, 3, 4}
	if step.Result.MD5Salt != want {
		t.Fatalf("expected salt %v, got %v", want, step.Result.MD5Salt)
	}
}

func TestStartupResponseRejectsUnsupportedAuthMethod(t *testing.T) {
	p := StartupResponse()
	step := p.Feed(Message{Tag: BackendAuthentication, Payload: authPayload(9)})
	if step.Err == nil {
		t.Fatal("expected error for unsupported authentication method")
	}
}

func TestStartupResponseSurfacesBackendError(t *testing.T) {
	p := StartupResponse()
	payload := []byte("SFATAL\x00C28000\x00Minvalid password\x00\x00")
	step := p.Feed(Message{Tag: BackendErrorResponse, Payload: payload})
	if !step.Done || step.Err != nil {
		t.Fatalf("expected a successful Done carrying the backend error, got %+v", step)
	}
	if step.Result.BackendError == nil {
		t.Fatal("expected BackendError to be populated")
	}
	if step.Result.BackendError.Message != "invalid password" {
		t.Fatalf("got %+v", step.Result.BackendError)
	}
}

func TestStartupTailCompletesAfterAuthOKAndBackendKeyData(t *testing.T) {
	p := StartupTail()

	step := p.Feed(Message{Tag: BackendAuthentication, Payload: authPayload(AuthOK)})
	if step.Done {
		t.Fatalf("expected NeedMore, got %+v", step)
	}

	step = p.Feed(Message{Tag: BackendBackendKeyData, Payload: backendKeyPayload(4242, 99)})
	if step.Done {
		t.Fatalf("expected NeedMore after BackendKeyData, got %+v", step)
	}

	step = p.Feed(Message{Tag: BackendReadyForQuery, Payload: []byte{'I'}})
	if !step.Done || step.Err != nil {
		t.Fatalf("expected Done, got %+v", step)
	}
	if !step.Result.Ready {
		t.Fatal("expected Ready true")
	}
	if step.Result.BackendKeyPID != 4242 || step.Result.BackendKeySecret != 99 {
		t.Fatalf("got %+v", step.Result)
	}
}

func TestStartupTailRejectsRepeatedPasswordChallenge(t *testing.T) {
	p := StartupTail()
	step := p.Feed(Message{Tag: BackendAuthentication, Payload: authPayload(AuthMD5Password, 0, 0, 0, 0)})
	if step.Err == nil {
		t.Fatal("expected an error when the server asks for a password twice")
	}
}
