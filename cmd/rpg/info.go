package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func infoCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show graph statistics and health",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("info")
			if err != nil {
				return err
			}
			defer eng.Close()

			info, err := eng.Info()
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(info, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Printf("Revision:        %d\n", info.Revision)
			fmt.Printf("Base commit:     %s\n", info.BaseCommit)
			fmt.Printf("Entities:        %d across %d files\n", info.Metadata.TotalEntities, info.Metadata.TotalFiles)
			fmt.Printf("Edges:           %d (%d dependency, %d containment)\n",
				info.Metadata.TotalEdges, info.Metadata.DependencyEdges, info.Metadata.ContainmentEdges)
			fmt.Printf("Areas:           %d (semantic: %v)\n", info.Metadata.FunctionalAreas, info.Metadata.SemanticHierarchy)
			fmt.Printf("Lifted:          %.1f%%\n", info.LiftedPct)
			fmt.Printf("Pending routing: %d\n", info.PendingRouting)
			fmt.Printf("Embeddings:      %s\n", info.Embeddings)
			if info.SearchMetrics != nil && info.SearchMetrics.TotalSearches > 0 {
				fmt.Printf("Searches:        %d (avg %.1fms, %.0f%% empty)\n",
					info.SearchMetrics.TotalSearches, info.SearchMetrics.AvgDurationMs, info.SearchMetrics.ZeroResultPct)
			}
			if info.Stale {
				fmt.Println("\n[stale] the graph lags HEAD; run `rpg update`")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit JSON")
	return cmd
}
