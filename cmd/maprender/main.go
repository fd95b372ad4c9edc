// Command maprender renders star maps to PNG without a window, answers hit
// tests and searches, and serves the same over HTTP.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		os.Exit(1)
	}
}
