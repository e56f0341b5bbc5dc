// Command cbc runs, checks and formats codeblock programs.
package main

import (
	"os"

	"github.com/thomasrohde/codeblock/internal/cli"
)

func main() {
	os.Exit(cli.New(os.Stdin, os.Stdout, os.Stderr).Run(os.Args[1:]))
}
