package cmd

import (
	"encoding/json"
	"fmt"

	incidentrender "github.com/bnema/incident-cli/internal/adapters/render/incident"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/spf13/cobra"
)

var sectionSteps = map[string]domain.Step{
	"risk":     domain.StepRisk,
	"dispatch": domain.StepDispatch,
	"summary":  domain.StepSummary,
}

func newStatusCmd(app *app) *cobra.Command {
	var sections []string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status <incident-id>",
		Short: "Fetch and display an incident's current status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps, err := parseSections(sections)
			if err != nil {
				return err
			}

			record, err := app.api.FetchStatus(cmd.Context(), domain.IncidentID(args[0]))
			if err != nil {
				return err
			}

			return writeStatusOutput(cmd, app, record, steps, asJSON)
		},
	}

	cmd.Flags().StringSliceVar(&sections, "section", nil, "Limit the report to risk, dispatch or summary (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func parseSections(names []string) ([]domain.Step, error) {
	steps := make([]domain.Step, 0, len(names))
	for _, name := range names {
		step, ok := sectionSteps[name]
		if !ok {
			return nil, fmt.Errorf("unknown section %q (want risk, dispatch or summary)", name)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

func writeStatusOutput(cmd *cobra.Command, app *app, record domain.StatusRecord, sections []domain.Step, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	rendered, err := app.reportRenderer(record, incidentrender.RenderOptions{
		Now:      app.now(),
		Sections: sections,
	})
	if err != nil {
		return fmt.Errorf("render status: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
	return err
}
