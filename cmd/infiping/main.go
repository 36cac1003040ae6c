package main

import (
	"os"

	"github.com/hamed0406/infiping/internal/cli"
)

func main() {
	os.Exit(cli.Execute(os.Args[1:], os.Stdout, os.Stderr))
}
