// Command dce is the context-build-and-retrieval-engine CLI: it
// scaffolds a project, dispatches src/ datasources through their
// plugins into an embedded vector index, and answers semantic queries
// against it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
