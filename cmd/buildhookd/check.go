package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/goliatone/go-buildhook/core"
	"github.com/goliatone/go-buildhook/normalize"
	"github.com/goliatone/go-buildhook/schema"
	"github.com/spf13/cobra"
)

const exitViolations = 2

type checkReport struct {
	Valid      bool             `json:"valid"`
	Error      string           `json:"error,omitempty"`
	Violations []core.Violation `json:"violations"`
}

func newCheckCmd() *cobra.Command {
	var payloadPath string
	cmd := &cobra.Command{
		Use:           "check",
		Short:         "Normalize and validate a build payload offline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if payloadPath == "" {
				return fmt.Errorf("missing required flag: --payload")
			}
			body, err := os.ReadFile(payloadPath)
			if err != nil {
				return fmt.Errorf("read payload: %w", err)
			}

			report := checkReport{Violations: []core.Violation{}}
			record, err := normalize.NewNormalizer().Normalize(cmd.Context(), core.SourcePayload{Build: body})
			if err != nil {
				report.Error = core.ErrorEnvelope(err).Message
			} else {
				violations, err := schema.NewValidator().Validate(cmd.Context(), record)
				if err != nil {
					return err
				}
				report.Violations = append(report.Violations, violations...)
				report.Valid = len(violations) == 0
			}

			encoder := json.NewEncoder(cmd.OutOrStdout())
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(report); err != nil {
				return err
			}
			if !report.Valid {
				return exitError{code: exitViolations, msg: "payload rejected"}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&payloadPath, "payload", "p", "", "Build payload file (single body form)")
	return cmd
}
