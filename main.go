package main

import (
	"os"

	"github.com/fasttify/liquidforge/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
