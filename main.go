package main

import (
	"os"

	"github.com/eric2969/OR2025-Final/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
