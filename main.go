package main

import (
	"os"

	"github.com/novabehavior/abacore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
