package main

import (
	"os"

	"github.com/psantana5/logcheck/cmd/logcheck/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
