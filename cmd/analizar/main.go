// Command analizar runs the workbook analysis offline: summaries, chart data
// and the combined CSV without starting the dashboard. It also runs the
// one-time OAuth authorization for the Google Sheets source.
package main

import (
	"fmt"
	"os"

	"analizador/internal/cli"
)

func main() {
	cli.LoadEnvFile()
	if err := newRootCommand(os.Stdout).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
