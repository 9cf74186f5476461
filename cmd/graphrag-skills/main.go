// Command graphrag-skills is the CLI entrypoint over this module's ingest,
// compaction, export, and template-registry operations, following the
// teacher's move from an interactive REPL (cmd/quantumflow) to a scripted,
// subcommand-driven tool better suited to this module's batch-oriented
// workflows.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
