// Package cli assembles the up/down/refresh/reset/status command tree
// for an end-user binary to embed alongside its own compiled-in
// migration set. Go has no runtime plugin-loading mechanism for this,
// so the migration set must be compiled into the caller's binary;
// NewRootCommand is what that binary calls to get the operational
// command tree for free.
package cli

import (
	"fmt"
	"os"

	"github.com/aqora-io/vectorctl/internal/backend"
	"github.com/aqora-io/vectorctl/internal/backend/qdrant"
	"github.com/aqora-io/vectorctl/internal/config"
	"github.com/aqora-io/vectorctl/internal/lease"
	"github.com/aqora-io/vectorctl/internal/migration"
	"github.com/spf13/cobra"
)

// Opener swaps the concrete backend driver for tests; callers outside
// this package should pass nil to get the real qdrant.Open.
type Opener = backend.Opener

// Option configures optional NewRootCommand behavior.
type Option func(*settings)

type settings struct {
	contextSetup func(*migration.Context) error
}

// WithContextSetup registers a hook run once per command invocation right
// after the migration.Context is constructed and before any migration
// runs, letting the caller's binary inject auxiliary resources (e.g. a
// raw driver client or an unrelated SQL handle) via migration.InsertResource.
func WithContextSetup(fn func(*migration.Context) error) Option {
	return func(s *settings) { s.contextSetup = fn }
}

// NewRootCommand builds the "up/down/refresh/reset/status" command tree
// over a fixed migration set. open defaults to qdrant.Open when nil.
func NewRootCommand(use string, migrations []migration.Migration, open Opener, opts ...Option) *cobra.Command {
	if open == nil {
		open = qdrant.Open
	}
	s := &settings{}
	for _, opt := range opts {
		opt(s)
	}

	root := &cobra.Command{
		Use:           use,
		Short:         use + " applies and reverts vector-store schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String("database-url", "", "vector store URL (env DATABASE_URL)")
	root.PersistentFlags().String("database-api-key", "", "vector store API key (env DATABASE_API_KEY)")
	root.PersistentFlags().Bool("lease", true, "serialize concurrent invocations with a local file lease (env VECTORCTL_LEASE)")

	newMigrator := func(cmd *cobra.Command) (*migration.Migrator, error) {
		cfg, err := config.Load()
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg.ApplyFlags(cmd.Flags())

		b, err := open(cmd.Context(), cfg.DatabaseURL, cfg.DatabaseKey)
		if err != nil {
			return nil, err
		}

		mctx := migration.NewContext(b)
		if s.contextSetup != nil {
			if err := s.contextSetup(mctx); err != nil {
				return nil, fmt.Errorf("context setup: %w", err)
			}
		}

		var migratorOpts []migration.Option
		if cfg.UseLease {
			migratorOpts = append(migratorOpts, migration.WithLease(lease.ForTarget(cfg.DatabaseURL)))
		}
		return migration.New(mctx, migrations, migratorOpts...), nil
	}

	root.AddCommand(upCommand(newMigrator))
	root.AddCommand(downCommand(newMigrator))
	root.AddCommand(refreshCommand(newMigrator))
	root.AddCommand(resetCommand(newMigrator))
	root.AddCommand(statusCommand(newMigrator))

	return root
}

type migratorFactory func(cmd *cobra.Command) (*migration.Migrator, error)

func upCommand(newMigrator migratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			to, _ := cmd.Flags().GetString("to")
			var toPtr *string
			if to != "" {
				toPtr = &to
			}
			return m.Up(cmd.Context(), nil, toPtr)
		},
	}
	cmd.Flags().String("to", "", "stop after applying this revision (default: head)")
	return cmd
}

func downCommand(newMigrator migratorFactory) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "down",
		Short: "Revert applied migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			to, _ := cmd.Flags().GetString("to")
			var toPtr *string
			if to != "" {
				toPtr = &to
			}
			return m.Down(cmd.Context(), toPtr)
		},
	}
	cmd.Flags().String("to", "", "revert back to (exclusive of) this revision (default: root)")
	return cmd
}

func refreshCommand(newMigrator migratorFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Revert every migration, then reapply all of them",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			return m.Refresh(cmd.Context())
		},
	}
}

func resetCommand(newMigrator migratorFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Revert every applied migration back to the root",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			return m.Reset(cmd.Context())
		},
	}
}

func statusCommand(newMigrator migratorFactory) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "List every declared migration and whether it is applied",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := newMigrator(cmd)
			if err != nil {
				return err
			}
			lines, err := m.Status(cmd.Context())
			if err != nil {
				return err
			}
			for _, line := range lines {
				fmt.Fprintf(os.Stdout, "%-10s %s\n", line.Status, line.DisplayName)
			}
			return nil
		},
	}
}
