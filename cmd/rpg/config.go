package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"rpg/internal/config"
)

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage .rpg/config.toml",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the default configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.WriteDefault(flagRepoRoot)
			if err != nil {
				return err
			}
			fmt.Println("Wrote", path)
			return nil
		},
	})
	return cmd
}
