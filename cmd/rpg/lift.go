package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func liftCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lift",
		Short: "Lifting status and finalization",
	}
	cmd.AddCommand(liftStatusCmd(), liftFinalizeCmd(), liftEmbedCmd())
	return cmd
}

func liftStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show lifting coverage",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("lift")
			if err != nil {
				return err
			}
			defer eng.Close()

			status, err := eng.LiftingStatus()
			if err != nil {
				return err
			}
			fmt.Printf("Lifted %d/%d entities, %d pending routing\n",
				status.Lifted, status.Total, status.PendingSize)
			for _, id := range status.Unlifted {
				fmt.Println("  unlifted:", id)
			}
			return nil
		},
	}
}

func liftFinalizeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "finalize",
		Short: "Drain pending routing deterministically without the agent",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("lift")
			if err != nil {
				return err
			}
			defer eng.Close()

			drained, err := eng.FinalizeLifting()
			if err != nil {
				return err
			}
			fmt.Printf("Drained %d pending entities\n", len(drained))
			return nil
		},
	}
}

func liftEmbedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "embed",
		Short: "Sync the embedding index with current features",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("lift")
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx, cancel := contextWithInterrupt()
			defer cancel()

			updated, err := eng.SyncEmbeddings(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("Embedded %d entities\n", updated)
			return nil
		},
	}
}
