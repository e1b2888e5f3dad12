package main

import (
	"os"

	"github.com/futlang/futc/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
