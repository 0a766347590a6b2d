package main

import (
	"os"

	"github.com/davidhbaek/llmstream/internal/cli"
)

func main() {
	os.Exit(cli.CLI(os.Args[1:]))
}
