package main

import (
	"os"

	"github.com/solatis/ruleblocks/cmd/ruleblocks/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
