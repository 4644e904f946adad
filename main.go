package main

import (
	"context"
	"fmt"
	"os"

	server "github.com/rclong1221/sploot-media-clustering/cmd/server"
)

func main() {
	if err := server.NewRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
