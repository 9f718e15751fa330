// Package main is the entry point for vaultctl, the vault inventory CLI.
package main

import (
	"os"

	"github.com/vyrodovalexey/vault-inventory/internal/cli"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cli.Version = version
	os.Exit(cli.Execute(cli.NewRootCommand()))
}
