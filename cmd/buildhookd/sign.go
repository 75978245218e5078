package main

import (
	"fmt"
	"os"
	"time"

	buildhook "github.com/goliatone/go-buildhook"
	"github.com/goliatone/go-buildhook/core"
	"github.com/goliatone/go-buildhook/security"
	"github.com/goliatone/go-buildhook/webhooks"
	"github.com/spf13/cobra"
)

type signOptions struct {
	configPath  string
	payloadPath string
	stagePath   string
	at          string
}

// newSignCmd prints the headers a CI job must send with a payload.
func newSignCmd() *cobra.Command {
	opts := &signOptions{}
	cmd := &cobra.Command{
		Use:           "sign",
		Short:         "Print the authentication and checksum headers for a payload",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.payloadPath == "" {
				return fmt.Errorf("missing required flag: --payload")
			}
			cfg, err := loadConfig(cmd.Context(), opts.configPath, buildhook.Config{})
			if err != nil {
				return err
			}
			if err := cfg.ValidateSecrets(); err != nil {
				return err
			}

			at := time.Now()
			if opts.at != "" {
				at, err = time.Parse(time.RFC3339, opts.at)
				if err != nil {
					return fmt.Errorf("invalid --at value: %w", err)
				}
			}
			token, err := security.EncryptTimestamp([]byte(cfg.Auth.SecretKey), []byte(cfg.Auth.IV), at)
			if err != nil {
				return err
			}

			build, err := os.ReadFile(opts.payloadPath)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %s\n", core.HeaderEncryptedTimestamp, token)
			if opts.stagePath == "" {
				fmt.Fprintf(out, "%s: %s\n", core.HeaderChecksum, webhooks.Digest(build))
				return nil
			}
			stages, err := os.ReadFile(opts.stagePath)
			if err != nil {
				return fmt.Errorf("read stage data: %w", err)
			}
			fmt.Fprintf(out, "%s: %s\n", core.HeaderChecksumBuild, webhooks.Digest(build))
			fmt.Fprintf(out, "%s: %s\n", core.HeaderChecksumStage, webhooks.Digest(stages))
			return nil
		},
	}
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (.yaml, .yml or .cue)")
	cmd.Flags().StringVarP(&opts.payloadPath, "payload", "p", "", "Build payload file, or the build_data segment with --stage-data")
	cmd.Flags().StringVar(&opts.stagePath, "stage-data", "", "stage_data segment file for dual payloads")
	cmd.Flags().StringVar(&opts.at, "at", "", "Timestamp to encrypt (RFC 3339), defaults to now")
	return cmd
}
