// Package resultset implements a taxonomy of result-set accessors: unit,
// rows-affected, maybe-one-row, exactly-one-row, vector-of-rows, left-fold
// and right-fold, all built on top of a single row decoder signature. Rather
// than a fixed string/int/float/bool switch, decoding is a caller-supplied
// function so any Value shape can be targeted.
package resultset

import (
	"strconv"
	"strings"

	"github.com/dan-strohschein/pgwire-go/pgerrors"
	"github.com/dan-strohschein/pgwire-go/wire"
)

// Result is the fully-received response to one query: its column
// descriptions, every row, and the server's command tag.
type Result struct {
	Columns          []wire.FieldDescription
	Rows             []wire.DataRow
	CommandTag       string
	IntegerDatetimes bool
}

// RowDecoder converts one row into a caller's target type. columnCount and
// integerDatetimes are passed alongside the row so decoders don't need to
// close over the Result to answer format questions.
type RowDecoder[T any] func(result *Result, rowIndex int, columnCount int, integerDatetimes bool) (T, error)

func decodeRow[T any](r *Result, idx int, dec RowDecoder[T]) (T, error) {
	v, err := dec(r, idx, len(r.Columns), r.IntegerDatetimes)
	if err != nil {
		var zero T
		return zero, &pgerrors.RowError{Index: idx, Cause: err}
	}
	return v, nil
}

// Unit expects a command with no result rows (e.g. BEGIN, SET); returns
// UnexpectedResult if any rows were returned.
func Unit(r *Result) error {
	if len(r.Rows) != 0 {
		return &pgerrors.UnexpectedResult{Message: "expected no rows, command returned rows"}
	}
	return nil
}

// RowsAffected parses the row count out of the server's command tag (e.g.
// "UPDATE 3", "DELETE 0", "INSERT 0 1").
func RowsAffected(r *Result) (int64, error) {
	fields := strings.Fields(r.CommandTag)
	if len(fields) == 0 {
		return 0, &pgerrors.UnexpectedResult{Message: "empty command tag"}
	}
	last := fields[len(fields)-1]
	n, err := strconv.ParseInt(last, 10, 64)
	if err != nil {
		return 0, &pgerrors.UnexpectedResult{Message: "command tag has no row count: " + r.CommandTag}
	}
	return n, nil
}

// MaybeOneRow expects zero or one rows; returns nil if there were none.
func MaybeOneRow[T any](r *Result, dec RowDecoder[T]) (*T, error) {
	switch len(r.Rows) {
	case 0:
		return nil, nil
	case 1:
		v, err := decodeRow(r, 0, dec)
		if err != nil {
			return nil, err
		}
		return &v, nil
	default:
		return nil, &pgerrors.UnexpectedAmountOfRows{Count: len(r.Rows)}
	}
}

// ExactlyOneRow requires exactly one row.
func ExactlyOneRow[T any](r *Result, dec RowDecoder[T]) (T, error) {
	var zero T
	if len(r.Rows) != 1 {
		return zero, &pgerrors.UnexpectedAmountOfRows{Count: len(r.Rows)}
	}
	return decodeRow(r, 0, dec)
}

// VectorOfRows decodes every row into a slice, in wire order.
func VectorOfRows[T any](r *Result, dec RowDecoder[T]) ([]T, error) {
	out := make([]T, 0, len(r.Rows))
	for i := range r.Rows {
		v, err := decodeRow(r, i, dec)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// LeftFold reduces rows left-to-right, decoding each one before folding it
// into the accumulator.
func LeftFold[T, Acc any](r *Result, dec RowDecoder[T], init Acc, f func(Acc, T) Acc) (Acc, error) {
	acc := init
	for i := range r.Rows {
		v, err := decodeRow(r, i, dec)
		if err != nil {
			var zero Acc
			return zero, err
		}
		acc = f(acc, v)
	}
	return acc, nil
}

// RightFold reduces rows right-to-left.
func RightFold[T, Acc any](r *Result, dec RowDecoder[T], init Acc, f func(T, Acc) Acc) (Acc, error) {
	acc := init
	for i := len(r.Rows) - 1; i >= 0; i-- {
		v, err := decodeRow(r, i, dec)
		if err != nil {
			var zero Acc
			return zero, err
		}
		acc = f(v, acc)
	}
	return acc, nil
}

// TextColumn is a convenience RowDecoder-building block: it returns column
// i of a row as a Go string, treating SQL NULL as "". Most simple-query
// results (which are always text-format) can be decoded with a small
// wrapper around this.
func TextColumn(row wire.DataRow, i int) string {
	if i >= len(row.Values) || row.Values[i] == nil {
		return ""
	}
	return string(row.Values[i])
}
