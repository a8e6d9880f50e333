package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
)

func newBuildCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "build <collection>...",
		Short: "Rebuild the index of one or more collections",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var failed int
			for _, name := range args {
				report, err := opts.manager.Build(cmd.Context(), name)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", name, err)
					continue
				}
				if err := opts.print(cmd.OutOrStdout(), report, func(w io.Writer) {
					fmt.Fprintf(w, "%s: %s (%d terms, avgdl %.2f, %s)\n",
						report.Collection, report.Message, report.Terms, report.AvgDocLength, report.Duration.Round(time.Microsecond))
					if !report.Persisted {
						fmt.Fprintf(w, "%s: warning: sidecar was not written\n", report.Collection)
					}
				}); err != nil {
					return err
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d builds failed", failed, len(args))
			}
			return nil
		},
	}
}
