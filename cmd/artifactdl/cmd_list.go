package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/artifactdl/internal/stats"
)

func init() {
	rootCmd.AddCommand(listCmd)

	listCmd.Flags().Bool("dirs", false, "show paths as they would appear in directory mode")
	listCmd.Flags().Bool("tokens", true, "count tokens per artifact")
}

var listCmd = &cobra.Command{
	Use:   "list <id|url>",
	Short: "List the artifacts of a cached conversation without exporting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		id, err := resolveID(args[0])
		if err != nil {
			return err
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		dirs, _ := cmd.Flags().GetBool("dirs")
		if !cmd.Flags().Changed("dirs") {
			dirs = cfg.Export.DirectoryMode
		}
		payload, res, err := a.exporter.Walk(ctx, id, dirs)
		if err != nil {
			return err
		}

		if len(res.Entries) == 0 {
			fmt.Println("No artifacts found in this conversation.")
			return nil
		}

		var counter *stats.Counter
		if withTokens, _ := cmd.Flags().GetBool("tokens"); withTokens {
			counter, err = stats.NewCounter(cfg.Export.TokenModel)
			if err != nil {
				slog.Warn("token counts unavailable", "error", err)
			}
		}
		summary := stats.Summarize(res.Entries, counter)

		fmt.Fprintf(os.Stdout, "%s (%d messages)\n\n", payload.Name, res.Visited)
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "PATH\tLANGUAGE\tLINES\tBYTES\tTOKENS\tMESSAGE")
		for _, e := range summary.Entries {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n",
				e.Path,
				e.Language,
				e.Lines,
				e.Bytes,
				e.Tokens,
				e.MessageID,
			)
		}
		fmt.Fprintf(w, "TOTAL\t\t%d\t%d\t%d\t\n", summary.Lines, summary.Bytes, summary.Tokens)
		if err := w.Flush(); err != nil {
			return err
		}
		if res.Failed > 0 {
			fmt.Fprintf(os.Stdout, "\n%d messages could not be processed (see log).\n", res.Failed)
		}
		return nil
	},
}
