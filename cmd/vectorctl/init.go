package main

import (
	"fmt"

	"github.com/aqora-io/vectorctl/internal/config"
	"github.com/aqora-io/vectorctl/internal/scaffold"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Scaffold an empty migration package",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg.ApplyFlags(cmd.Flags())

		modulePath, _ := cmd.Flags().GetString("module-path")
		if modulePath == "" {
			return fmt.Errorf("init: --module-path is required")
		}
		packageName, _ := cmd.Flags().GetString("package")

		if err := scaffold.Init(cfg.MigrationDir, modulePath, packageName); err != nil {
			return err
		}
		fmt.Printf("initialized migration package %q in %s\n", packageName, cfg.MigrationDir)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
