package pgwire

import (
	"fmt"
	"strconv"
	"strings"
)

// Settings resolves to one Postgres endpoint plus startup parameters. It can
// be built directly from a tuple or rendered from/parsed to a libpq-style
// key=value connection string.
type Settings struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// ConnString renders Settings as a space-separated key=value string, the
// format StartupMessage parameters are conventionally quoted in logs.
// Empty strings and a zero Port are omitted.
func (s Settings) ConnString() string {
	var b strings.Builder
	write := func(key, value string) {
		if value == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(value)
	}
	write("host", s.Host)
	if s.Port != 0 {
		write("port", strconv.Itoa(s.Port))
	}
	write("user", s.User)
	write("password", s.Password)
	write("dbname", s.Database)
	return b.String()
}

// ParseConnString parses the key=value form produced by ConnString. Unknown
// keys are ignored rather than rejected, since StartupMessage accepts
// arbitrary run-time parameters beyond the ones Settings models.
func ParseConnString(s string) (Settings, error) {
	var out Settings
	for _, field := range strings.Fields(s) {
		kv := strings.SplitN(field, "=", 2)
		if len(kv) != 2 {
			return Settings{}, fmt.Errorf("pgwire: malformed connection string field %q", field)
		}
		key, value := kv[0], kv[1]
		switch key {
		case "host":
			out.Host = value
		case "port":
			port, err := strconv.Atoi(value)
			if err != nil {
				return Settings{}, fmt.Errorf("pgwire: invalid port %q: %w", value, err)
			}
			out.Port = port
		case "user":
			out.User = value
		case "password":
			out.Password = value
		case "dbname":
			out.Database = value
		}
	}
	return out, nil
}

// Address renders the host:port pair Dial expects.
func (s Settings) Address() string {
	port := s.Port
	if port == 0 {
		port = 5432
	}
	return fmt.Sprintf("%s:%d", s.Host, port)
}
