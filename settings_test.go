package pgwire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConnStringOmitsEmptyFields(t *testing.T) {
	s := Settings{Host: "db.example.com", User: "app"}
	require.Equal(t, "host=db.example.com user=app", s.ConnString())
}

func TestConnStringRoundTrip(t *testing.T) {
	s := Settings{Host: "localhost", Port: 5433, User: "postgres", Password: "secret", Database: "app"}
	parsed, err := ParseConnString(s.ConnString())
	require.NoError(t, err)
	require.Equal(t, s, parsed)
}

func TestParseConnStringRejectsMalformedField(t *testing.T) {
	_, err := ParseConnString("host=localhost garbage")
	require.Error(t, err)
}

func TestParseConnStringRejectsBadPort(t *testing.T) {
	_, err := ParseConnString("host=localhost port=notanumber")
	require.Error(t, err)
}

func TestParseConnStringIgnoresUnknownKeys(t *testing.T) {
	parsed, err := ParseConnString("host=localhost sslmode=disable")
	require.NoError(t, err)
	require.Equal(t, "localhost", parsed.Host)
}

func TestAddressDefaultsPort(t *testing.T) {
	s := Settings{Host: "localhost"}
	require.Equal(t, "localhost:5432", s.Address())
	s.Port = 5555
	require.Equal(t, "localhost:5555", s.Address())
}
