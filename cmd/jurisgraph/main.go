package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/jurisgraph/jurisgraph/cmd/jurisgraph/commands"
)

func main() {
	// Load .env if present; real environment variables win.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
