package main

import (
	"github.com/joho/godotenv"

	"github.com/cbout22/ghdir/internal/cli"
)

func main() {
	// A .env file is optional; GITHUB_TOKEN may come from the real environment.
	_ = godotenv.Load()

	cli.Execute()
}
