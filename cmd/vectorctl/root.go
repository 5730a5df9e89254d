package main

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "vectorctl",
	Short:         "Scaffold vector-store schema migrations",
	Long:          `vectorctl generates migration source files and keeps their registration in sync. Applying and reverting migrations is done by your own binary, which links the vectorctl migration engine and calls internal/cli.NewRootCommand over its compiled-in migration set.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("migration-dir", "", "directory containing migration sources (env MIGRATION_DIR)")
	rootCmd.PersistentFlags().String("module-path", "", "Go module path the migration package is imported under")
	rootCmd.PersistentFlags().String("package", "migrations", "Go package name for generated migration sources")
}
