// Package main implements the go-bytecode-lift CLI (gbl).
// It provides commands for assembling stack machine programs, deriving
// their control and data flow graphs, and lifting them into SSA form.
package main

import (
	"os"

	"github.com/l3aro/go-bytecode-lift/cmd/gbl/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
