package main

import (
	"os"

	"github.com/scan-io-git/skim/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
