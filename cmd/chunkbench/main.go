// Command chunkbench drives the chunk cache and predictable-replay
// scheduler against a synthetic in-memory backing store and database, for
// local experimentation and benchmarking outside of a full storage engine.
package main

import (
	"fmt"
	"os"

	"github.com/marmos91/chunkcache/cmd/chunkbench/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
