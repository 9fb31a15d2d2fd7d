package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var callArgsJSON string

var callCmd = &cobra.Command{
	Use:   "call <manual.tool>",
	Short: "Invoke a registered tool and print its result as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runCall,
}

func init() {
	callCmd.Flags().StringVar(&callArgsJSON, "args", "{}", "tool call arguments, as a JSON object")
	rootCmd.AddCommand(callCmd)
}

func runCall(cmd *cobra.Command, cmdArgs []string) error {
	toolName := cmdArgs[0]

	var args map[string]any
	if err := json.Unmarshal([]byte(callArgsJSON), &args); err != nil {
		return fmt.Errorf("--args is not a JSON object: %w", err)
	}

	ctx := cmd.Context()
	c, err := newClient(ctx)
	if err != nil {
		return err
	}
	defer c.Close(ctx)

	result, err := c.CallTool(ctx, toolName, args)
	if err != nil {
		color.Red("call failed: %v", err)
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
