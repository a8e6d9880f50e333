// Package main provides the entry point for the memctl CLI.
package main

import (
	"os"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/cmd/memctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
