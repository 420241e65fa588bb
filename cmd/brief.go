package cmd

import (
	"fmt"
	"os"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/spf13/cobra"
)

const briefFileMode = 0o644

func newBriefCmd(app *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "brief <incident-id>",
		Short: "Download the incident brief as a PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.IncidentID(args[0])
			if output == "" {
				output = fmt.Sprintf("incident-%s-brief.pdf", id)
			}

			pdf, err := app.api.DownloadBrief(cmd.Context(), id)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, pdf, briefFileMode); err != nil {
				return fmt.Errorf("write brief: %w", err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Saved brief for %s to %s (%d bytes)\n", id, output, len(pdf))
			return err
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default incident-<id>-brief.pdf)")

	return cmd
}
