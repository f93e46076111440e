package main

import (
	"os"

	"github.com/kokou-stm/kalanso/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
