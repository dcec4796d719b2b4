// Package main provides the entry point for the pbcsearch CLI.
package main

import (
	"os"

	"github.com/angelala00/pbc-regulations-sub001/cmd/pbcsearch/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
