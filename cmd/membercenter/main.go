package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/valorlife/membercenter/internal/cli"
)

func main() {
	// Local runs keep credentials in .env. Missing file is fine.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
