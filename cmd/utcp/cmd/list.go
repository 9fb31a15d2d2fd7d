package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List every tool exposed by the configured manuals",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	c, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)

	tools, err := c.SearchTools(ctx, "", 0, nil)
	if err != nil {
		return fmt.Errorf("list tools: %w", err)
	}
	for _, t := range tools {
		color.Cyan("%s", t.Name)
		if t.Description != "" {
			fmt.Printf("  %s\n", t.Description)
		}
		if len(t.Tags) > 0 {
			tagsJSON, _ := json.Marshal(t.Tags)
			fmt.Printf("  tags: %s\n", tagsJSON)
		}
	}
	return nil
}
