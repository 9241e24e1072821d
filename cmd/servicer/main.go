package main

import (
	"os"

	"github.com/rustyeddy/servicer/cmd/servicer/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
