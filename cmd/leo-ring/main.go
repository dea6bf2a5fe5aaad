package main

import (
	"context"
	"fmt"
	"os"

	"github.com/leo-automation/leo-ring/commands"
)

func main() {
	if err := commands.Root().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "\nERROR: %v\n\n", err)
		os.Exit(1)
	}
}
