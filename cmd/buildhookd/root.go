package main

import (
	"context"
	"fmt"

	buildhook "github.com/goliatone/go-buildhook"
	"github.com/goliatone/go-buildhook/config"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buildhookd",
		Short: "Receive, verify and index CI build webhooks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newSignCmd())
	cmd.AddCommand(newCheckCmd())
	return cmd
}

// Execute runs the root command with provided args.
func Execute(args []string) error {
	cmd := NewRootCmd()
	cmd.SetArgs(args)
	return cmd.Execute()
}

// loadConfig reads the config file (when given) and the environment, then
// applies runtime overrides.
func loadConfig(ctx context.Context, path string, runtime buildhook.Config) (buildhook.Config, error) {
	cfg, err := buildhook.LoadConfig(ctx, config.Sources(path), runtime)
	if err != nil {
		return buildhook.Config{}, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }

func (e exitError) ExitCode() int { return e.code }
