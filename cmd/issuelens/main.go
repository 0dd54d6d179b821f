package main

import (
	"fmt"
	"os"

	"github.com/andywolf/issuelens/internal/cli"
	"github.com/andywolf/issuelens/internal/security"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", security.NewLogSanitizer().SanitizeError(err))
		os.Exit(1)
	}
}
