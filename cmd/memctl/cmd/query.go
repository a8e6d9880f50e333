package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Adithya-Monish-Kumar-K/novel-memory/internal/searcher/executor"
)

func newQueryCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "query <collection> <text>",
		Short: "Search one collection, building its index if needed",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			hits := opts.manager.Query(cmd.Context(), args[0], text, opts.topK)
			return opts.print(cmd.OutOrStdout(), hits, func(w io.Writer) { printHits(w, hits) })
		},
	}
}

func newSearchCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <text>",
		Short: "Search every collection and merge the results by score",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			hits := opts.manager.QueryAll(cmd.Context(), text, opts.topK)
			return opts.print(cmd.OutOrStdout(), hits, func(w io.Writer) { printHits(w, hits) })
		},
	}
}

func printHits(w io.Writer, hits []executor.Hit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}
	for i, h := range hits {
		fmt.Fprintf(w, "%d. [%.4f] %s (%s)\n   %s\n", i+1, h.Score, h.Path, h.Collection, h.Preview)
	}
}
