// Package server defines the CLI entrypoint for the media clustering
// service, the way the source ecosystem's crawler wires its Cobra root.
package server

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the root Cobra command with every subcommand
// attached.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "media-clustering",
		Short: "Pet media clustering service",
		Long:  "Consumes clustering jobs from a Redis stream, clusters pet images, and caches the result.",
	}

	root.AddCommand(newServeCommand())
	return root
}
