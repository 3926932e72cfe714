package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/artifactdl/internal/exporter"
	"github.com/user/artifactdl/internal/types"
)

func init() {
	rootCmd.AddCommand(captureCmd, ingestCmd)

	captureCmd.Flags().Bool("export", false, "export the conversation after capturing it")

	ingestCmd.Flags().String("id", "", "conversation id (defaults to the payload's uuid)")
}

var captureCmd = &cobra.Command{
	Use:   "capture <id|url>",
	Short: "Fetch a conversation from the chat API into the local cache",
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

		payload, err := a.fetchAndStore(ctx, id)
		if err != nil {
			return err
		}
		fmt.Fprintf(os.Stdout, "Captured %q (%d messages).\n", payload.Name, len(payload.ChatMessages))

		if export, _ := cmd.Flags().GetBool("export"); !export {
			return nil
		}
		report, err := a.exporter.Export(ctx, exporter.Request{
			ConversationID: id,
			Destination:    a.defaultDestination(),
			DirectoryMode:  cfg.Export.DirectoryMode,
		})
		fmt.Fprintln(os.Stdout, report.Message())
		if report.Location != "" {
			fmt.Fprintf(os.Stdout, "Saved to %s\n", report.Location)
		}
		if report.Status == types.ExportStatusFailed {
			return err
		}
		return nil
	},
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <file|->",
	Short: "Store a conversation payload read from a JSON file or stdin",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		var r io.Reader = os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open payload: %w", err)
			}
			defer f.Close()
			r = f
		}

		var payload types.Payload
		if err := json.NewDecoder(r).Decode(&payload); err != nil {
			return fmt.Errorf("decode payload: %w", err)
		}

		raw, _ := cmd.Flags().GetString("id")
		if raw == "" {
			raw = string(payload.UUID)
		}
		if raw == "" {
			return fmt.Errorf("payload has no uuid; pass --id")
		}
		id, err := resolveID(raw)
		if err != nil {
			return err
		}
		if payload.UUID == "" {
			payload.UUID = id
		}

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.payloads.Put(ctx, id, &payload); err != nil {
			return fmt.Errorf("store payload: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Stored %s (%d messages).\n", id, len(payload.ChatMessages))
		return nil
	},
}
