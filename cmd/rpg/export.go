package main

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"
)

func exportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write a zstd-compressed snapshot of the graph",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("export")
			if err != nil {
				return err
			}
			defer eng.Close()

			g := eng.Graph()
			if g == nil {
				return fmt.Errorf("no graph built yet, run `rpg build` first")
			}
			data, err := g.Marshal()
			if err != nil {
				return err
			}

			f, err := os.Create(output)
			if err != nil {
				return err
			}
			defer f.Close()

			enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
			if err != nil {
				return err
			}
			if _, err := enc.Write(data); err != nil {
				enc.Close()
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}
			fmt.Printf("Exported %d entities to %s\n", len(g.Entities), output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "rpg-export.json.zst", "output file")
	return cmd
}
