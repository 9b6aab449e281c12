package wire

import "github.com/dan-strohschein/pgwire-go/pgerrors"

// FieldDescription describes one column of a RowDescription.
type FieldDescription struct {
	Name         string
	TableOID     uint32
	ColumnAttNum int16
	DataTypeOID  uint32
	DataTypeSize int16
	TypeModifier int32
	Format       int16
}

// RowDescription is the decoded 'T' message.
type RowDescription struct {
	Fields []FieldDescription
}

func DecodeRowDescription(payload []byte) (RowDescription, error) {
	r := NewFieldReader(payload)
	n, err := r.Int16()
	if err != nil {
		return RowDescription{}, err
	}
	fields := make([]FieldDescription, n)
	for i := range fields {
		name, err := r.CString()
		if err != nil {
			return RowDescription{}, err
		}
		tableOID, err := r.Uint32()
		if err != nil {
			return RowDescription{}, err
		}
		attNum, err := r.Int16()
		if err != nil {
			return RowDescription{}, err
		}
		typeOID, err := r.Uint32()
		if err != nil {
			return RowDescription{}, err
		}
		typeSize, err := r.Int16()
		if err != nil {
			return RowDescription{}, err
		}
		typeMod, err := r.Int32()
		if err != nil {
			return RowDescription{}, err
		}
		format, err := r.Int16()
		if err != nil {
			return RowDescription{}, err
		}
		fields[i] = FieldDescription{
			Name: name, TableOID: tableOID, ColumnAttNum: attNum,
			DataTypeOID: typeOID, DataTypeSize: typeSize, TypeModifier: typeMod, Format: format,
		}
	}
	return RowDescription{Fields: fields}, nil
}

// DataRow is the decoded 'D' message: each column value or nil for SQL
// NULL. Values alias the Slicer's rolling buffer, which never overwrites
// bytes it has already framed (see Slicer).
type DataRow struct {
	Values [][]byte
}

func DecodeDataRow(payload []byte) (DataRow, error) {
	r := NewFieldReader(payload)
	n, err := r.Int16()
	if err != nil {
		return DataRow{}, err
	}
	values := make([][]byte, n)
	for i := range values {
		l, err := r.Int32()
		if err != nil {
			return DataRow{}, err
		}
		if l < 0 {
			values[i] = nil
			continue
		}
		v, err := r.Bytes(int(l))
		if err != nil {
			return DataRow{}, err
		}
		values[i] = v
	}
	return DataRow{Values: values}, nil
}

// CommandComplete is the decoded 'C' message.
type CommandComplete struct {
	Tag string
}

func DecodeCommandComplete(payload []byte) (CommandComplete, error) {
	r := NewFieldReader(payload)
	tag, err := r.CString()
	if err != nil {
		return CommandComplete{}, err
	}
	return CommandComplete{Tag: tag}, nil
}

// DecodeErrorResponse decodes an 'E' message into the shared BackendError
// type: S/C/M/D/H -> severity/sqlstate/message/detail/hint.
func DecodeErrorResponse(payload []byte) (*pgerrors.BackendError, error) {
	be := &pgerrors.BackendError{}
	i := 0
	for i < len(payload) {
		fieldType := payload[i]
		if fieldType == 0 {
			break
		}
		i++
		start := i
		for i < len(payload) && payload[i] != 0 {
			i++
		}
		value := string(payload[start:i])
		i++ // skip NUL
		switch fieldType {
		case 'S':
			be.Severity = value
		case 'C':
			be.SQLState = value
		case 'M':
			be.Message = value
		case 'D':
			be.Detail = value
		case 'H':
			be.Hint = value
		}
	}
	return be, nil
}

// NoticeResponse reuses the ErrorResponse wire shape but is not itself an
// error condition.
type NoticeResponse struct {
	Severity string
	Message  string
}

func DecodeNoticeResponse(payload []byte) (NoticeResponse, error) {
	be, err := DecodeErrorResponse(payload)
	if err != nil {
		return NoticeResponse{}, err
	}
	return NoticeResponse{Severity: be.Severity, Message: be.Message}, nil
}

// ParameterStatus is the decoded 'S' message (GUC name/value announcement).
type ParameterStatus struct {
	Name  string
	Value string
}

func DecodeParameterStatus(payload []byte) (ParameterStatus, error) {
	r := NewFieldReader(payload)
	name, err := r.CString()
	if err != nil {
		return ParameterStatus{}, err
	}
	value, err := r.CString()
	if err != nil {
		return ParameterStatus{}, err
	}
	return ParameterStatus{Name: name, Value: value}, nil
}

// DecodeNotificationResponse decodes the 'A' message (async NOTIFY
// delivery) into the shared Notification type.
func DecodeNotificationResponse(payload []byte) (pgerrors.Notification, error) {
	r := NewFieldReader(payload)
	pid, err := r.Int32()
	if err != nil {
		return pgerrors.Notification{}, err
	}
	channel, err := r.CString()
	if err != nil {
		return pgerrors.Notification{}, err
	}
	msg, err := r.CString()
	if err != nil {
		return pgerrors.Notification{}, err
	}
	return pgerrors.Notification{PID: pid, Channel: channel, Payload: msg}, nil
}

// BackendKeyData is the decoded 'K' message, needed to issue a
// CancelRequest on a second connection. Cancellation itself is not
// implemented by this client.
type BackendKeyData struct {
	ProcessID int32
	SecretKey int32
}

func DecodeBackendKeyData(payload []byte) (BackendKeyData, error) {
	r := NewFieldReader(payload)
	pid, err := r.Int32()
	if err != nil {
		return BackendKeyData{}, err
	}
	secret, err := r.Int32()
	if err != nil {
		return BackendKeyData{}, err
	}
	return BackendKeyData{ProcessID: pid, SecretKey: secret}, nil
}

// ReadyForQuery is the decoded 'Z' message.
type ReadyForQuery struct {
	TxStatus byte
}

func DecodeReadyForQuery(payload []byte) (ReadyForQuery, error) {
	if len(payload) != 1 {
		return ReadyForQuery{}, pgerrors.NewProtocolError("ReadyForQuery payload must be exactly 1 byte")
	}
	return ReadyForQuery{TxStatus: payload[0]}, nil
}

// AuthenticationRequest is the decoded 'R' message. Kind distinguishes OK
// from CleartextPassword from MD5Password (the only three this client
// negotiates); MD5Salt is populated only for AuthMD5Password.
type AuthenticationRequest struct {
	Kind    int32
	MD5Salt [4]byte
}

func DecodeAuthenticationRequest(payload []byte) (AuthenticationRequest, error) {
	r := NewFieldReader(payload)
	kind, err := r.Int32()
	if err != nil {
		return AuthenticationRequest{}, err
	}
	req := AuthenticationRequest{Kind: kind}
	if kind == AuthMD5Password {
		salt, err := r.Bytes(4)
		if err != nil {
			return AuthenticationRequest{}, err
		}
		copy(req.MD5Salt[:], salt)
	}
	return req, nil
}

// ParameterDescription is the decoded 't' message.
type ParameterDescription struct {
	ParamOIDs []uint32
}

func DecodeParameterDescription(payload []byte) (ParameterDescription, error) {
	r := NewFieldReader(payload)
	n, err := r.Int16()
	if err != nil {
		return ParameterDescription{}, err
	}
	oids := make([]uint32, n)
	for i := range oids {
		v, err := r.Uint32()
		if err != nil {
			return ParameterDescription{}, err
		}
		oids[i] = v
	}
	return ParameterDescription{ParamOIDs: oids}, nil
}
