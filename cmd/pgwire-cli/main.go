// Command pgwire-cli connects to a Postgres-compatible server and runs one
// query, printing its result as a table. It exists to exercise the
// dispatcher and Client facade end to end.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	pgwire "github.com/dan-strohschein/pgwire-go"
	"github.com/dan-strohschein/pgwire-go/pgerrors"
)

func main() {
	host := flag.String("host", "localhost", "server host")
	port := flag.Int("port", 5432, "server port")
	user := flag.String("user", "postgres", "user name")
	password := flag.String("password", "", "password")
	database := flag.String("dbname", "postgres", "database name")
	timeout := flag.Duration("timeout", 10*time.Second, "connect timeout")
	flag.Parse()

	if flag.NArg() < 1 {
		printError("usage: pgwire-cli [flags] \"<sql>\"")
		os.Exit(1)
	}
	sql := flag.Arg(0)

	settings := pgwire.Settings{Host: *host, Port: *port, User: *user, Password: *password, Database: *database}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	client, err := pgwire.Connect(ctx, settings, pgwire.Options{})
	if err != nil {
		printError(fmt.Sprintf("connect: %v", err))
		os.Exit(1)
	}
	defer client.Close()

	result, err := client.SimpleQuery(ctx, sql)
	if err != nil {
		var be *pgerrors.BackendError
		if errors.As(err, &be) {
			printBackendError(be)
		} else {
			printError(fmt.Sprintf("query: %v", err))
		}
		os.Exit(1)
	}

	if len(result.Columns) == 0 {
		fmt.Println(colorGreen(result.CommandTag))
		return
	}

	headers := make([]string, len(result.Columns))
	for i, col := range result.Columns {
		headers[i] = col.Name
	}
	rows := make([][]string, len(result.Rows))
	for i, row := range result.Rows {
		cells := make([]string, len(result.Columns))
		for j := range result.Columns {
			if j < len(row.Values) && row.Values[j] != nil {
				cells[j] = string(row.Values[j])
			} else {
				cells[j] = colorDim("NULL")
			}
		}
		rows[i] = cells
	}
	printTable(headers, rows)
	fmt.Println(colorCyan(fmt.Sprintf("(%d rows)", len(result.Rows))))
}
