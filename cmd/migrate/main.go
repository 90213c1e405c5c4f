package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"
	"github.com/stemsi/exam-portal/internal/config"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply or roll back database migrations",
		SilenceUsage: true,
	}
	root.PersistentFlags().String("path", "migrations", "Path to migration files")
	root.PersistentFlags().String("database-url", "", "Database URL (defaults to DATABASE_URL)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up [n]",
			Short: "Apply all or n pending migrations",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrate(func(m *migrate.Migrate, args []string) error {
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid step count: %w", err)
					}
					return ignoreNoChange(m.Steps(n))
				}
				return ignoreNoChange(m.Up())
			}, "Migrated up successfully"),
		},
		&cobra.Command{
			Use:   "down [n]",
			Short: "Roll back all or n migrations",
			Args:  cobra.MaximumNArgs(1),
			RunE: withMigrate(func(m *migrate.Migrate, args []string) error {
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil {
						return fmt.Errorf("invalid step count: %w", err)
					}
					return ignoreNoChange(m.Steps(-n))
				}
				return ignoreNoChange(m.Down())
			}, "Migrated down successfully"),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the current migration version",
			RunE: withMigrate(func(m *migrate.Migrate, _ []string) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("Version: %d, Dirty: %t\n", version, dirty)
				return nil
			}, ""),
		},
		&cobra.Command{
			Use:   "force <version>",
			Short: "Set the version without running migrations",
			Args:  cobra.ExactArgs(1),
			RunE: withMigrate(func(m *migrate.Migrate, args []string) error {
				v, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("invalid version: %w", err)
				}
				return m.Force(v)
			}, "Forced version"),
		},
	)
	return root
}

// withMigrate opens a migrate instance from the persistent flags, runs fn
// and closes the instance.
func withMigrate(fn func(m *migrate.Migrate, args []string) error, done string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("path")
		dbURL, _ := cmd.Flags().GetString("database-url")
		if dbURL == "" {
			dbURL = config.Load().DatabaseURL
		}
		if dbURL == "" {
			return errors.New("DATABASE_URL is not set")
		}

		m, err := migrate.New("file://"+path, dbURL)
		if err != nil {
			return fmt.Errorf("initialize migrations: %w", err)
		}
		defer m.Close()

		if err := fn(m, args); err != nil {
			return err
		}
		if done != "" {
			fmt.Println(done)
		}
		return nil
	}
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
