package main

import (
	"fmt"
	"os"

	"github.com/dan-strohschein/pgwire-go/pgerrors"
)

// ANSI color codes for the CLI's table output.
const (
	ansiReset  = "\033[0m"
	ansiRed    = "\033[31m"
	ansiGreen  = "\033[32m"
	ansiYellow = "\033[33m"
	ansiCyan   = "\033[36m"
	ansiBold   = "\033[1m"
	ansiDim    = "\033[2m"
)

var colorsEnabled = os.Getenv("NO_COLOR") == ""

func colorize(color, text string) string {
	if !colorsEnabled {
		return text
	}
	return color + text + ansiReset
}

func colorRed(text string) string    { return colorize(ansiRed, text) }
func colorGreen(text string) string  { return colorize(ansiGreen, text) }
func colorYellow(text string) string { return colorize(ansiYellow, text) }
func colorCyan(text string) string   { return colorize(ansiCyan, text) }
func colorBold(text string) string   { return colorize(ansiBold, text) }
func colorDim(text string) string    { return colorize(ansiDim, text) }

func printError(message string) {
	fmt.Fprintln(os.Stderr, colorRed("✗")+" "+message)
}

// printBackendError formats a server-reported error the way psql does: a
// red marker, the severity in the color it warrants (yellow for WARNING or
// NOTICE, red otherwise), the SQLState and message uncolored, and detail
// and hint dimmed on their own lines when present.
func printBackendError(be *pgerrors.BackendError) {
	severityColor := colorRed
	if be.Severity == "WARNING" || be.Severity == "NOTICE" {
		severityColor = colorYellow
	}
	fmt.Fprintf(os.Stderr, "%s %s (%s): %s\n", colorRed("✗"), severityColor(be.Severity), be.SQLState, be.Message)
	if be.Detail != "" {
		fmt.Fprintln(os.Stderr, colorDim("  detail: "+be.Detail))
	}
	if be.Hint != "" {
		fmt.Fprintln(os.Stderr, colorDim("  hint: "+be.Hint))
	}
}

func printTable(headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	for i, h := range headers {
		fmt.Printf("%-*s  ", widths[i], colorBold(h))
	}
	fmt.Println()

	for _, w := range widths {
		for j := 0; j < w; j++ {
			fmt.Print("─")
		}
		fmt.Print("  ")
	}
	fmt.Println()

	for _, row := range rows {
		for i, cell := range row {
			fmt.Printf("%-*s  ", widths[i], cell)
		}
		fmt.Println()
	}
}
