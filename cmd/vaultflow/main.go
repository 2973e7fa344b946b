package main

import (
	"os"

	"github.com/branched-services/go-vaultflow/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
