package main

import (
	"context"
	"fmt"
	"os"

	"github.com/gravyprompts/gravyprompts/internal/cli"
)

var version = "0.1.0"

func main() {
	if err := cli.NewApp(version).Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
