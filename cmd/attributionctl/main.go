// Package main provides the entry point for the attributionctl CLI.
package main

import (
	"fmt"
	"os"

	"github.com/erp/shopfloor/internal/interfaces/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
