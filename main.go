// ./main.go
package main

import (
	"github.com/meditrek/clinpilot/cmd"
)

// main is the entry point for the ClinPilot application. All command-line
// parsing, configuration and execution happens in the cmd package.
func main() {
	cmd.Execute()
}
