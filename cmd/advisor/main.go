package main

import (
	"os"

	"github.com/tomking/trading-framework/cmd/advisor/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
