package main

import (
	"os"

	"github.com/spherical/disclosure-extractor/cmd/disclosure-extractor/commands"
	"github.com/spherical/disclosure-extractor/cmd/disclosure-extractor/ui"
)

var version = "dev"

func main() {
	commands.Version = version
	if err := commands.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}
