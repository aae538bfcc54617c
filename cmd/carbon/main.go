// Command carbon is the CLI companion to the archive library: it ingests a
// JSON document, builds and sorts a columnar archive in memory, and runs a
// visitor-driven operation against it. It mirrors tools/carbon's ops-*
// family from the source program, one subcommand per operation.
package main

import (
	"fmt"
	"os"

	"github.com/carbonarchive/carbon/cmd/carbon/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
