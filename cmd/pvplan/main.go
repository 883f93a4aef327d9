package main

import (
	"os"

	"github.com/pvplan/pvplan/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
