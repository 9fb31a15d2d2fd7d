// Command utcp is a thin operator CLI over pkg/client: load a configuration
// document, register its manuals, and list or call the tools they expose.
package main

import (
	"goa.design/utcp/cmd/utcp/cmd"
)

func main() {
	cmd.Execute()
}
