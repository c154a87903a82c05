package main

import (
	"context"
	"os"
)

var version = "dev"

func main() {
	if err := run(context.Background(), os.Args, version); err != nil {
		os.Exit(1)
	}
}
