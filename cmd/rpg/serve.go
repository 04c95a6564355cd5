package main

import (
	"github.com/spf13/cobra"

	"rpg/internal/mcp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the MCP server over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("mcp")
			if err != nil {
				return err
			}
			defer eng.Close()

			// stdout carries the protocol; all logging goes to the file.
			server := mcp.NewServer(version, eng, cliLogger("mcp"))
			return server.Run()
		},
	}
}
