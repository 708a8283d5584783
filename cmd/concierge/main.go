// Command concierge is the operator CLI: an interactive chat against the
// configured brain, the slot parsers, and the call log.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
