// Package main is the entry point for the framesmith frame crafting and auto
// responder tool.
package main

import (
	"fmt"
	"os"

	"firestige.xyz/framesmith/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
