package main

import (
	"os"

	"github.com/adwatch/adwatch/internal/adapters/driving/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
