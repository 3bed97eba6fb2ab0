package main

import (
	"os"

	"github.com/quotientlab/quotient/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
