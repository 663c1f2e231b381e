package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/mr1hm/go-climate-risk/internal/cli"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cli.Version = version

	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
