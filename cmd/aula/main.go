package main

import (
	"os"

	"github.com/aula-labs/aula-cli/internal/adapters/driving/cli"
)

func main() {
	os.Exit(cli.Execute())
}
