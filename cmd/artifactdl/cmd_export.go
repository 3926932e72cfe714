package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/artifactdl/internal/exporter"
	"github.com/user/artifactdl/internal/types"
)

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().Bool("dirs", false, "place artifacts in directories named after their titles")
	exportCmd.Flags().String("dest", "", "destination (file:<dir>, s3:<prefix>, telegram:<chat>)")
	exportCmd.Flags().String("out", "", "write the archive to this directory (shorthand for --dest file:<dir>)")
	exportCmd.Flags().Bool("fetch", false, "capture the conversation from the chat API first")
}

var exportCmd = &cobra.Command{
	Use:   "export <id|url>",
	Short: "Export a conversation's artifacts as a zip archive",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		id, err := resolveID(args[0])
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if fetch, _ := cmd.Flags().GetBool("fetch"); fetch {
			if _, err := a.fetchAndStore(ctx, id); err != nil {
				return err
			}
		}

		dirs, _ := cmd.Flags().GetBool("dirs")
		if !cmd.Flags().Changed("dirs") {
			dirs = cfg.Export.DirectoryMode
		}
		dest, _ := cmd.Flags().GetString("dest")
		if out, _ := cmd.Flags().GetString("out"); out != "" {
			dest = "file:" + out
		}
		if dest == "" {
			dest = a.defaultDestination()
		}

		report, err := a.exporter.Export(ctx, exporter.Request{
			ConversationID: id,
			Destination:    dest,
			DirectoryMode:  dirs,
		})
		if report.Status == types.ExportStatusNotFound {
			return fmt.Errorf("conversation %s is not cached; run `artifactdl capture` or use --fetch", id)
		}
		fmt.Fprintln(os.Stdout, report.Message())
		if report.Location != "" {
			fmt.Fprintf(os.Stdout, "Saved to %s\n", report.Location)
		}
		if report.Failed > 0 {
			fmt.Fprintf(os.Stdout, "%d messages could not be processed (see log).\n", report.Failed)
		}
		if report.Truncated {
			fmt.Fprintln(os.Stdout, "Conversation was deeper than the depth limit; some replies were skipped.")
		}
		// Nothing to export is informational, not a failure.
		if report.Status == types.ExportStatusFailed {
			return err
		}
		return nil
	},
}
