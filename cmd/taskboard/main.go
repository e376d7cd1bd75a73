// Package main is the entry point for the taskboard CLI.
package main

import (
	"os"

	"github.com/good-yellow-bee/taskboard/cmd/taskboard/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
