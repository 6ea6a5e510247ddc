package main

import (
	"fmt"
	"os"

	"github.com/ametnes/nesis-console/cmd/nesisctl/commands"
)

func main() {
	if err := commands.NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
