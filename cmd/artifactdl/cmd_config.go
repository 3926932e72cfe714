package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/user/artifactdl/internal/config"
)

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configListCmd, configGetCmd, configSetCmd, configPathCmd)

	configListCmd.Flags().Bool("effective", false, "include environment overrides")
	configGetCmd.Flags().Bool("reveal", false, "print credentials unmasked")
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and change settings",
}

var configListCmd = &cobra.Command{
	Use:   "list [group]",
	Short: "List settings, optionally only one group (e.g. s3, export)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFile(cfgPath)
		if err != nil {
			return err
		}
		if effective, _ := cmd.Flags().GetBool("effective"); effective {
			cfg = loadConfig()
		}
		values := config.ListValues(cfg, true)

		group := ""
		if len(args) == 1 {
			group = strings.TrimSuffix(args[0], ".") + "."
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tVALUE")
		shown := 0
		for _, k := range config.Keys() {
			if group != "" && !strings.HasPrefix(k, group) {
				continue
			}
			fmt.Fprintf(w, "%s\t%v\n", k, values[k])
			shown++
		}
		if shown == 0 {
			return fmt.Errorf("no settings in group %q", args[0])
		}
		return w.Flush()
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one setting from the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		val, err := config.GetValue(cfgPath, args[0])
		if err != nil {
			return err
		}
		if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal && config.IsSecretKey(args[0]) {
			val = config.MaskSecret(val.(string))
		}
		fmt.Fprintln(os.Stdout, val)
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Validate and store one setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]
		// Creates the file with defaults on first use.
		if _, err := config.LoadFile(cfgPath); err != nil {
			return err
		}
		if err := config.SetValue(cfgPath, key, value); err != nil {
			return err
		}
		if config.IsSecretKey(key) {
			value = config.MaskSecret(value)
		}
		fmt.Fprintf(os.Stdout, "%s = %s\n", key, value)
		if key == "store.driver" {
			fmt.Println("Cached conversations are not migrated between stores.")
		}
		return nil
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(os.Stdout, cfgPath)
		return nil
	},
}
