package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"rpg/internal/search"
)

func searchCmd() *cobra.Command {
	var (
		mode        string
		scope       string
		filePattern string
		limit       int
		sinceCommit string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Intent search over semantic features",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := openEngine("search")
			if err != nil {
				return err
			}
			defer eng.Close()

			opts := search.Options{
				Query:       strings.Join(args, " "),
				Mode:        search.Mode(mode),
				Limit:       limit,
				SinceCommit: sinceCommit,
				Filters: search.Filters{
					Scope:       scope,
					FilePattern: filePattern,
				},
			}
			results, err := eng.SearchNode(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if notice := eng.StaleNotice(); notice != "" {
				fmt.Println(notice)
			}
			if len(results) == 0 {
				fmt.Println("No matches.")
				return nil
			}
			for i, r := range results {
				marker := ""
				if r.Changed {
					marker = " [changed]"
				}
				fmt.Printf("%2d. %-50s %s:%d (%.3f)%s\n", i+1, r.EntityID, r.File, r.StartLine, r.Score, marker)
				if len(r.MatchedFeatures) > 0 {
					fmt.Printf("    %s\n", strings.Join(r.MatchedFeatures, "; "))
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "features", "features or snippets")
	cmd.Flags().StringVar(&scope, "scope", "", "hierarchy path prefix filter")
	cmd.Flags().StringVar(&filePattern, "files", "", "glob over entity file paths")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum results (default from config)")
	cmd.Flags().StringVar(&sinceCommit, "since", "", "boost entities changed since this commit")
	return cmd
}
