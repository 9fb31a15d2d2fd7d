// Package cmd implements the utcp operator CLI's subcommands (spec §4.9's
// client surface exposed as a local tool): list, search, call.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"goa.design/utcp/pkg/client"
)

const Version = "0.1.0"

var (
	configPath string
	rootDir    string
)

var rootCmd = &cobra.Command{
	Use:     "utcp",
	Short:   "Universal Tool Calling Protocol client",
	Long:    `utcp discovers and invokes tools across HTTP, MCP, CLI, and other providers described by a UTCP configuration document.`,
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "utcp.json", "path to the UTCP configuration document (.json or .yaml)")
	rootDirDefault, err := os.Getwd()
	if err != nil {
		rootDirDefault = "."
	}
	rootCmd.PersistentFlags().StringVar(&rootDir, "root-dir", rootDirDefault, "root directory for resolving relative variable-loader file paths")
}

// Execute runs the root command, exiting the process with a non-zero status
// on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("utcp: %v", err)
		os.Exit(1)
	}
}

// newClient loads configPath and builds a client.Client over it, printing
// (but not failing on) per-manual registration errors — a manual failing to
// register shouldn't stop the operator from using the ones that did.
func newClient(ctx context.Context) (*client.Client, error) {
	cfg, err := client.LoadConfigFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", configPath, err)
	}
	c, errs := client.Create(ctx, rootDir, cfg)
	for _, e := range errs {
		color.Yellow("warning: %v", e)
	}
	if c == nil {
		return nil, fmt.Errorf("client initialization failed")
	}
	return c, nil
}
