package main

import (
	"os"

	"github.com/egta-tools/egta-cli/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
