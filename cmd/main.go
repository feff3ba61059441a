package main

import (
	"os"

	"github.com/arc-language/core-emit/cli"
)

func main() {
	os.Exit(cli.Execute())
}
