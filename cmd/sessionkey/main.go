package main

import (
	"os"

	"github.com/harun/sessionkey/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
