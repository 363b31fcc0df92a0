package main

import (
	"os"

	"github.com/civicpulse/complaints-api/cli"
)

func main() {
	if err := cli.NewRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
