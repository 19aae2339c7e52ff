// ./main.go
package main

import (
	"github.com/hokutoh/formloop/cmd"
)

// main is the entry point for the formloop CLI application.
func main() {
	// Execute the root command defined in the cmd package.
	// This handles all command-line parsing, configuration, and execution.
	cmd.Execute()
}
