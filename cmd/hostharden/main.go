// Package main provides the entry point for the hostharden CLI.
package main

import (
	"errors"
	"os"
)

func main() {
	if err := Execute(); err != nil {
		printError(err)
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		os.Exit(exitFailure)
	}
}
