package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/contentforge/admin-console/internal/diagnostics"
)

// ErrUnhealthy is returned when at least one check failed.
var ErrUnhealthy = errors.New("console is unhealthy")

func newHealthCommand(rt Runtime) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run the diagnostics checks",
		Long:  "health runs the same checks as the /diagnostics page and exits non-zero when any of them errors.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, err := rt.Diagnostics(cmd.Context())
			if err != nil {
				return err
			}
			report := runner.Run(cmd.Context(), diagnostics.Session{})
			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(struct {
					Overall diagnostics.Status `json:"overall"`
					diagnostics.Report
				}{report.Overall(), report}); err != nil {
					return err
				}
			} else {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, c := range report.Sorted() {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", c.Status, c.Name, c.Message)
					if c.Action != "" {
						fmt.Fprintf(tw, "\t\t-> %s\n", c.Action)
					}
				}
				if err := tw.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\n%s: %d passed, %d warnings, %d errors\n", report.Overall(),
					report.Count(diagnostics.StatusSuccess), report.Count(diagnostics.StatusWarning), report.Count(diagnostics.StatusError))
			}
			if report.Overall() == diagnostics.StatusError {
				return ErrUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the report as JSON")
	return cmd
}
