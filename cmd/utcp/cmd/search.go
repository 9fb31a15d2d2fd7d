package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchTags  []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the configured manuals' tools by name, tag, and description",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "maximum number of results (0 = unlimited)")
	searchCmd.Flags().StringSliceVar(&searchTags, "tag", nil, "restrict results to tools carrying at least one of these tags")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := ""
	if len(args) == 1 {
		query = args[0]
	}

	ctx := cmd.Context()
	c, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)

	tools, err := c.SearchTools(ctx, query, searchLimit, searchTags)
	if err != nil {
		return fmt.Errorf("search tools: %w", err)
	}
	if len(tools) == 0 {
		color.Yellow("no matching tools")
		return nil
	}
	for _, t := range tools {
		color.Cyan("%s", t.Name)
		if t.Description != "" {
			fmt.Printf("  %s\n", t.Description)
		}
	}
	return nil
}
