package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bnema/incident-cli/internal/domain"
	"github.com/spf13/cobra"
)

func newSubmitCmd(app *app) *cobra.Command {
	var indicatorType string
	var value string
	var source string
	var track bool
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an indicator and start an incident analysis",
		Example: `  incident submit --type phone --value "+1 555 0100"
  incident submit --type transaction_id --value TX-48213 --track`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			indicator := domain.Indicator{
				Type:   domain.IndicatorType(indicatorType),
				Value:  value,
				Source: source,
			}

			submission, err := runSubmitProgress(cmd.Context(), cmd.ErrOrStderr(), indicator, func(ctx context.Context) (domain.Submission, error) {
				return app.submissions.Submit(ctx, indicator)
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(submission); err != nil {
					return err
				}
			} else if _, err := fmt.Fprintf(cmd.OutOrStdout(), "Incident %s submitted (status: %s)\n", submission.IncidentID, statusOrUnknown(submission.Status)); err != nil {
				return err
			}

			if !track {
				return nil
			}
			return runTrack(cmd, app, submission.IncidentID, "")
		},
	}

	cmd.Flags().StringVar(&indicatorType, "type", string(domain.IndicatorPhone), "Indicator type (phone, name, transaction_id, ...)")
	cmd.Flags().StringVar(&value, "value", "", "Indicator value")
	cmd.Flags().StringVar(&source, "source", domain.DefaultIndicatorSource, "Submission source")
	cmd.Flags().BoolVar(&track, "track", false, "Follow the analysis after submitting")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("value")

	return cmd
}

func statusOrUnknown(status string) string {
	if status == "" {
		return "unknown"
	}
	return status
}
