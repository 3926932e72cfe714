package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/artifactdl/internal/scheduler"
	"github.com/user/artifactdl/internal/state"
)

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.AddCommand(watchAddCmd, watchListCmd, watchRemoveCmd, watchEnableCmd, watchDisableCmd)

	watchAddCmd.Flags().String("name", "", "watch name (required)")
	watchAddCmd.Flags().String("conversation", "", "conversation id or chat URL (required)")
	watchAddCmd.Flags().String("schedule", "", "cron schedule expression (required)")
	watchAddCmd.Flags().String("dest", "", "export destination after each capture (optional)")
	_ = watchAddCmd.MarkFlagRequired("name")
	_ = watchAddCmd.MarkFlagRequired("conversation")
	_ = watchAddCmd.MarkFlagRequired("schedule")
}

func watchStore() *state.WatchStore {
	cfg := loadConfig()
	return state.NewWatchStore(filepath.Join(cfg.DataDir, "watches.json"))
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Manage scheduled conversation captures",
}

var watchAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a new watch",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("name")
		conversation, _ := cmd.Flags().GetString("conversation")
		schedule, _ := cmd.Flags().GetString("schedule")
		dest, _ := cmd.Flags().GetString("dest")

		id, err := resolveID(conversation)
		if err != nil {
			return err
		}
		if err := scheduler.ValidateSchedule(schedule); err != nil {
			return fmt.Errorf("invalid schedule %q: %w", schedule, err)
		}

		store := watchStore()
		watch := &state.Watch{
			Name:           name,
			ConversationID: string(id),
			Schedule:       schedule,
			Destination:    dest,
			Enabled:        true,
		}
		if err := store.Add(watch); err != nil {
			return fmt.Errorf("add watch: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Watch %q added. Run `artifactdl reload` to schedule it in a running daemon.\n", name)
		return nil
	},
}

var watchListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all watches",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store := watchStore()
		watches, err := store.List()
		if err != nil {
			return fmt.Errorf("list watches: %w", err)
		}

		if len(watches) == 0 {
			fmt.Println("No watches configured.")
			return nil
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tSCHEDULE\tENABLED\tCONVERSATION\tDESTINATION")
		for _, wt := range watches {
			fmt.Fprintf(w, "%s\t%s\t%v\t%s\t%s\n",
				wt.Name,
				wt.Schedule,
				wt.Enabled,
				wt.ConversationID,
				wt.Destination,
			)
		}
		return w.Flush()
	},
}

var watchRemoveCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a watch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := watchStore()
		if err := store.Remove(args[0]); err != nil {
			return fmt.Errorf("remove watch: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Watch %q removed.\n", args[0])
		return nil
	},
}

var watchEnableCmd = &cobra.Command{
	Use:   "enable <name>",
	Short: "Enable a watch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := watchStore()
		if err := store.SetEnabled(args[0], true); err != nil {
			return fmt.Errorf("enable watch: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Watch %q enabled.\n", args[0])
		return nil
	},
}

var watchDisableCmd = &cobra.Command{
	Use:   "disable <name>",
	Short: "Disable a watch",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store := watchStore()
		if err := store.SetEnabled(args[0], false); err != nil {
			return fmt.Errorf("disable watch: %w", err)
		}
		fmt.Fprintf(os.Stdout, "Watch %q disabled.\n", args[0])
		return nil
	},
}
