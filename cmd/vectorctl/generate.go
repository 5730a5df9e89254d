package main

import (
	"fmt"
	"time"

	"github.com/aqora-io/vectorctl/internal/config"
	"github.com/aqora-io/vectorctl/internal/scaffold"
	"github.com/spf13/cobra"
)

var generateCmd = &cobra.Command{
	Use:   "generate <name>",
	Short: "Generate a new migration chained onto the most recent one",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.ApplyFlags(cmd.Flags())

		modulePath, _ := cmd.Flags().GetString("module-path")
		if modulePath == "" {
			return fmt.Errorf("generate: --module-path is required")
		}
		packageName, _ := cmd.Flags().GetString("package")

		name := args[0]
		message, _ := cmd.Flags().GetString("message")
		if message == "" {
			message = name
		}

		path, err := scaffold.Generate(cfg.MigrationDir, modulePath, packageName, name, message, time.Now())
		if err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
		return nil
	},
}

func init() {
	generateCmd.Flags().StringP("message", "m", "", "migration message (default: the generated name)")
	rootCmd.AddCommand(generateCmd)
}
