package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/artifactdl/internal/config"
)

func init() {
	rootCmd.AddCommand(setupCmd)
}

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Interactive setup wizard",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		scanner := bufio.NewScanner(cmd.InOrStdin())

		fmt.Println("artifactdl Setup Wizard")
		fmt.Println("Press Enter to accept the default value shown in brackets.")
		fmt.Println()

		cfg.Capture.OrgID = prompt(scanner, "Chat organization ID", cfg.Capture.OrgID)
		cfg.Capture.SessionKey = prompt(scanner, "Chat session key (optional)", cfg.Capture.SessionKey)
		cfg.Export.OutputDir = prompt(scanner, "Archive output directory", cfg.Export.OutputDir)

		dirs := prompt(scanner, "Use directory mode (true/false)", strconv.FormatBool(cfg.Export.DirectoryMode))
		if b, err := strconv.ParseBool(dirs); err == nil {
			cfg.Export.DirectoryMode = b
		}

		cfg.Store.Driver = prompt(scanner, "Payload store (file/bolt)", cfg.Store.Driver)

		cfg.S3.Bucket = prompt(scanner, "S3 bucket (optional)", cfg.S3.Bucket)
		if cfg.S3.Bucket != "" {
			cfg.S3.Region = prompt(scanner, "S3 region", cfg.S3.Region)
			cfg.S3.Endpoint = prompt(scanner, "S3 endpoint (optional)", cfg.S3.Endpoint)
		}

		cfg.Telegram.Token = prompt(scanner, "Telegram bot token (optional)", cfg.Telegram.Token)
		if cfg.Telegram.Token != "" {
			chat := ""
			if cfg.Telegram.ChatID != 0 {
				chat = strconv.FormatInt(cfg.Telegram.ChatID, 10)
			}
			if n, err := strconv.ParseInt(prompt(scanner, "Telegram chat ID", chat), 10, 64); err == nil {
				cfg.Telegram.ChatID = n
			}
		}

		if err := config.Save(cfgPath, cfg); err != nil {
			return fmt.Errorf("save config: %w", err)
		}

		fmt.Println()
		fmt.Println("Configuration saved to", cfgPath)
		return nil
	},
}

// prompt displays a labeled prompt with a default value and reads user input.
// If the user enters nothing, the default is returned.
func prompt(scanner *bufio.Scanner, label, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", label, defaultVal)
	} else {
		fmt.Printf("%s: ", label)
	}
	if scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input != "" {
			return input
		}
	}
	return defaultVal
}
