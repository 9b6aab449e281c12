// Package pglog provides the structured logging used by the dispatcher and
// client facade.
package pglog

import (
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
)

func (l LogLevel) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func ParseLogLevel(s string) LogLevel {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Field is a single structured logging key/value pair.
type Field struct {
	Key   string
	Value interface{}
}

func String(key, val string) Field                { return Field{Key: key, Value: val} }
func Int(key string, val int) Field                { return Field{Key: key, Value: val} }
func Int64(key string, val int64) Field            { return Field{Key: key, Value: val} }
func Uint64(key string, val uint64) Field          { return Field{Key: key, Value: val} }
func Float64(key string, val float64) Field        { return Field{Key: key, Value: val} }
func Bool(key string, val bool) Field              { return Field{Key: key, Value: val} }
func Duration(key string, val time.Duration) Field { return Field{Key: key, Value: val.String()} }

// TraceID mints a fresh v4 UUID for a pipeline round-trip and returns it as
// a loggable field alongside the raw string, so callers can correlate log
// lines with the ID they attach to a request.
func TraceID() (string, Field) {
	id := uuid.NewString()
	return id, Field{Key: "traceID", Value: id}
}

func Error(key string, err error) Field {
	if err == nil {
		return Field{Key: key, Value: nil}
	}
	return Field{Key: key, Value: err.Error()}
}

// Logger is the structured logging interface used throughout the dispatcher.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	WithFields(fields ...Field) Logger
}

var sensitiveKeys = map[string]bool{
	"password": true, "token": true, "secret": true,
	"authorization": true, "api_key": true, "apikey": true, "auth": true,
}

type defaultLogger struct {
	logger     *log.Logger
	minLevel   LogLevel
	baseFields []Field
	// seq is shared by every logger derived from the same root via
	// WithFields, so a "connID"-scoped logger's lines carry a strictly
	// increasing counter even though the five dispatcher loops that share
	// it log concurrently: RFC3339Nano timestamps alone can tie or even
	// appear to go backwards under load, which is exactly the kind of
	// ambiguity that makes a pipeline-ordering bug hard to read out of a
	// log file. Pairing seq with ordered field encoding (see writeLine)
	// means a captured log is also replayable in the order it was
	// written, not just sortable after the fact.
	seq *atomic.Uint64
}

// New creates a JSON-line logger at the given level, writing to output (or
// stdout if nil).
func New(level string, output io.Writer) Logger {
	if output == nil {
		output = os.Stdout
	}
	return &defaultLogger{
		logger:     log.New(output, "", 0),
		minLevel:   ParseLogLevel(level),
		baseFields: []Field{},
		seq:        new(atomic.Uint64),
	}
}

func NewDefault() Logger { return New("INFO", os.Stdout) }

func (l *defaultLogger) Debug(msg string, fields ...Field) { l.logAt(DEBUG, msg, fields) }
func (l *defaultLogger) Info(msg string, fields ...Field)  { l.logAt(INFO, msg, fields) }
func (l *defaultLogger) Warn(msg string, fields ...Field)  { l.logAt(WARN, msg, fields) }
func (l *defaultLogger) Error(msg string, fields ...Field) { l.logAt(ERROR, msg, fields) }

func (l *defaultLogger) logAt(level LogLevel, msg string, fields []Field) {
	if l.minLevel > level {
		return
	}
	seq := l.seq.Add(1)
	line, err := l.writeLine(level, seq, msg, fields)
	if err != nil {
		l.logger.Printf(`{"level":"ERROR","message":"failed to marshal log","error":%q}`, err.Error())
		return
	}
	l.logger.Println(line)
}

func (l *defaultLogger) WithFields(fields ...Field) Logger {
	newFields := make([]Field, len(l.baseFields)+len(fields))
	copy(newFields, l.baseFields)
	copy(newFields[len(l.baseFields):], fields)
	return &defaultLogger{logger: l.logger, minLevel: l.minLevel, baseFields: newFields, seq: l.seq}
}

// writeLine renders one log line as a JSON object whose keys appear in the
// exact order the fields were attached: timestamp, seq, level, message,
// then every WithFields-scoped field, then this call's own fields. A
// map[string]interface{} passed to json.Marshal would lose that order to
// Go's randomized map iteration, which defeats seq's whole purpose of
// keeping concurrently-written lines from a connection's five loops
// individually orderable and comparable line-by-line.
func (l *defaultLogger) writeLine(level LogLevel, seq uint64, msg string, fields []Field) (string, error) {
	var b strings.Builder
	b.WriteByte('{')

	write := func(key string, value interface{}) error {
		if b.Len() > 1 {
			b.WriteByte(',')
		}
		keyJSON, err := json.Marshal(key)
		if err != nil {
			return err
		}
		valJSON, err := json.Marshal(value)
		if err != nil {
			return err
		}
		b.Write(keyJSON)
		b.WriteByte(':')
		b.Write(valJSON)
		return nil
	}

	if err := write("timestamp", time.Now().Format(time.RFC3339Nano)); err != nil {
		return "", err
	}
	if err := write("seq", seq); err != nil {
		return "", err
	}
	if err := write("level", level.String()); err != nil {
		return "", err
	}
	if err := write("message", msg); err != nil {
		return "", err
	}
	for _, f := range l.baseFields {
		if err := write(f.Key, redactIfSensitive(f)); err != nil {
			return "", err
		}
	}
	for _, f := range fields {
		if err := write(f.Key, redactIfSensitive(f)); err != nil {
			return "", err
		}
	}

	b.WriteByte('}')
	return b.String(), nil
}

func redactIfSensitive(f Field) interface{} {
	if sensitiveKeys[strings.ToLower(f.Key)] {
		return "[REDACTED]"
	}
	return f.Value
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...Field)        {}
func (noopLogger) Info(string, ...Field)         {}
func (noopLogger) Warn(string, ...Field)         {}
func (noopLogger) Error(string, ...Field)        {}
func (n noopLogger) WithFields(...Field) Logger  { return n }

// Noop returns a Logger that discards all output.
func Noop() Logger { return noopLogger{} }
