package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newListCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List collections and their index state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := opts.manager.Discover(ctx); err != nil {
				return err
			}
			infos, err := opts.manager.Collections(ctx)
			if err != nil {
				return err
			}
			return opts.print(cmd.OutOrStdout(), infos, func(w io.Writer) {
				if len(infos) == 0 {
					fmt.Fprintf(w, "No collections under %s\n", opts.cfg.Memory.Root)
					return
				}
				tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tINDEXED\tDOCUMENTS\tAVGDL\tSIDECAR")
				for _, info := range infos {
					fmt.Fprintf(tw, "%s\t%t\t%d\t%.2f\t%t\n",
						info.Name, info.Indexed, info.Documents, info.AvgDocLength, info.HasSidecar)
				}
				tw.Flush()
			})
		},
	}
}
