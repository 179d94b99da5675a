package main

import (
	"os"

	"docdrift/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
