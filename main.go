package main

import (
	"os"

	"github.com/insightdelivered/finfeex/internal/cli"
)

const version = "1.0.0"

func main() {
	os.Exit(cli.Execute(version))
}
