package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	incidentrender "github.com/bnema/incident-cli/internal/adapters/render/incident"
	"github.com/bnema/incident-cli/internal/domain"
	"github.com/spf13/cobra"
)

type sessionOutput struct {
	Active     bool              `json:"active"`
	IncidentID domain.IncidentID `json:"incident_id,omitempty"`
	Step       domain.Step       `json:"current_screen,omitempty"`
	SavedAt    *time.Time        `json:"saved_at,omitempty"`
	ExpiresAt  *time.Time        `json:"expires_at,omitempty"`
}

func newSessionCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or clear the resumable workflow session",
	}

	cmd.AddCommand(newSessionShowCmd(app), newSessionClearCmd(app))

	return cmd
}

func newSessionShowCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the active session, if any",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			record, active, err := app.sessions.Read(cmd.Context())
			if err != nil {
				return fmt.Errorf("read session: %w", err)
			}

			if asJSON {
				out := sessionOutput{Active: active}
				if active {
					saved := record.CreatedAt.UTC()
					expires := saved.Add(app.sessions.TTL())
					out.IncidentID = record.IncidentID
					out.Step = record.Step
					out.SavedAt = &saved
					out.ExpiresAt = &expires
				}
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), incidentrender.RenderSession(record, active, incidentrender.SessionOptions{
				Now: app.now(),
				TTL: app.sessions.TTL(),
			}))
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newSessionClearCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the active session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.sessions.Clear(cmd.Context()); err != nil {
				return fmt.Errorf("clear session: %w", err)
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Session cleared.")
			return err
		},
	}
}
