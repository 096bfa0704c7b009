// Command smartcast-contracts validates, evaluates and compiles smartcast
// contract files.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
