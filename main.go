// The main package for the docharvest executable.
package main

import (
	"github.com/regwatch/docharvest/cmd"
)

// main is the entry point of the application.
// It defers all execution to the Cobra CLI library.
func main() {
	cmd.Execute()
}
