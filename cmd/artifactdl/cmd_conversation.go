package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(conversationCmd, historyCmd)
	conversationCmd.AddCommand(conversationListCmd, conversationDeleteCmd)

	historyCmd.Flags().Int("limit", 20, "number of most recent exports to show (0 for all)")
}

var conversationCmd = &cobra.Command{
	Use:     "conversation",
	Aliases: []string{"conv"},
	Short:   "Manage cached conversations",
}

var conversationListCmd = &cobra.Command{
	Use:   "list",
	Short: "List cached conversations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.payloads.List(ctx)
		if err != nil {
			return fmt.Errorf("list conversations: %w", err)
		}

		if len(ids) == 0 {
			fmt.Println("No conversations cached.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tMESSAGES\tEXPORTS\tUPDATED")
		for _, id := range ids {
			payload, err := a.payloads.Get(ctx, id)
			if err != nil {
				fmt.Fprintf(w, "%s\t(unreadable)\t-\t-\t-\n", id)
				continue
			}
			count, err := a.history.Count(ctx, id)
			if err != nil {
				count = 0
			}
			updated := "-"
			if !payload.UpdatedAt.IsZero() {
				updated = payload.UpdatedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				id,
				payload.Name,
				len(payload.ChatMessages),
				count,
				updated,
			)
		}
		return w.Flush()
	},
}

var conversationDeleteCmd = &cobra.Command{
	Use:   "delete <id|url>",
	Short: "Remove a conversation from the cache",
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

		if err := a.payloads.Delete(ctx, id); err != nil {
			return fmt.Errorf("delete conversation: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Conversation %s deleted.\n", id)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history <id|url>",
	Short: "Show the export history of a conversation",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		setupLogging(cfg)

		id, err := resolveID(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		ctx := context.Background()
		a, err := newApp(ctx, cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.history.Tail(ctx, id, limit)
		if err != nil {
			return fmt.Errorf("read history: %w", err)
		}

		if len(records) == 0 {
			fmt.Println("No exports recorded.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SEQ\tAT\tSTATUS\tARTIFACTS\tDESTINATION\tLOCATION\tERROR")
		for _, r := range records {
			fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n",
				r.Seq,
				r.At.Format("2006-01-02 15:04:05"),
				r.Status,
				r.Artifacts,
				r.Destination,
				r.Location,
				r.Error,
			)
		}
		return w.Flush()
	},
}
