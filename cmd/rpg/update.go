package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func updateCmd() *cobra.Command {
	var since string

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Reconcile the graph with the current working tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("update")
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, cancel := contextWithInterrupt()
			defer cancel()

			summary, err := eng.Update(ctx, since)
			if err != nil {
				return err
			}
			fmt.Printf("Updated graph: +%d entities, ~%d updated, -%d removed, %d files renamed\n",
				summary.EntitiesAdded, summary.EntitiesUpdated, summary.EntitiesRemoved, summary.FilesRenamed)
			if len(summary.NeedsRelift) > 0 {
				fmt.Printf("%d modified entities need re-lifting (see get_entities_for_lifting)\n", len(summary.NeedsRelift))
			}
			if len(summary.Inserted) > 0 {
				fmt.Printf("%d inserted entities queued for lifting and routing\n", len(summary.Inserted))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&since, "since", "", "base commit to diff against (defaults to the graph's base commit)")
	return cmd
}
