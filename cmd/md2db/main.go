package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/markbank/md2db/internal/cli"
)

func main() {
	// Optional .env for local development; absence is not an error
	_ = godotenv.Load()

	// stdout is reserved for command output (and the MCP protocol when
	// serving); logs go to stderr
	log.SetOutput(os.Stderr)

	cli.Execute()
}
