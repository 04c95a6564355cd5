package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"rpg/internal/hierarchy"
)

func hierarchyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hierarchy",
		Short: "Export and import the semantic hierarchy",
	}
	cmd.AddCommand(hierarchyExportCmd(), hierarchyImportCmd())
	return cmd
}

func hierarchyExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Dump the hierarchy as editable YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("hierarchy")
			if err != nil {
				return err
			}
			defer eng.Close()

			g := eng.Graph()
			if g == nil {
				return fmt.Errorf("no graph built yet, run `rpg build` first")
			}
			data, err := hierarchy.ExportYAML(g)
			if err != nil {
				return err
			}
			if output == "" || output == "-" {
				fmt.Print(string(data))
				return nil
			}
			return os.WriteFile(output, data, 0o644)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file (- for stdout)")
	return cmd
}

func hierarchyImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Apply an edited hierarchy YAML dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			assignments, err := hierarchy.ImportYAML(data)
			if err != nil {
				return err
			}

			eng, err := openEngine("hierarchy")
			if err != nil {
				return err
			}
			defer eng.Close()

			areas := make(map[string]bool)
			for _, path := range assignments {
				if segments := splitFirst(path); segments != "" {
					areas[segments] = true
				}
			}
			var areaList []string
			for a := range areas {
				areaList = append(areaList, a)
			}

			outcome, err := eng.SubmitHierarchy(areaList, assignments)
			if err != nil {
				return err
			}
			fmt.Printf("Applied %d assignments, rejected %d\n", len(outcome.Applied), len(outcome.Rejected))
			for key, reason := range outcome.Rejected {
				fmt.Printf("  rejected %s: %s\n", key, reason)
			}
			return nil
		},
	}
	return cmd
}

func splitFirst(path string) string {
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			return path[:i]
		}
	}
	return path
}
