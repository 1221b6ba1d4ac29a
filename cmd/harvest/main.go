package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"soracom-harvest/internal/services"

	"github.com/joho/godotenv"
)

func main() {
	// A missing .env file is fine; the environment and flags still apply.
	_ = godotenv.Load()

	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	a := newApp(stdout, stderr)
	a.cmd.SetArgs(args)

	if err := a.cmd.Execute(); err != nil {
		var missing *services.MissingCredentialsError
		if errors.As(err, &missing) {
			fmt.Fprintln(stderr, err)
			fmt.Fprint(stderr, a.cmd.UsageString())
			return 1
		}
		fmt.Fprintf(stderr, "main error: %v\n", err)
		return 1
	}
	return 0
}
