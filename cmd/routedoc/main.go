package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/kolah/routedoc/internal/cli"
)

func main() {
	// ROUTEDOC_ settings may come from a .env file next to the project.
	_ = godotenv.Load()

	cmd := cli.RootCmd()
	err := cmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
