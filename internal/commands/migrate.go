package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/xemwebe/finql/internal/database"
)

var resetConfirmed bool

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Database migration management",
	Long: `Manage the schema of the configured database with the migrations
embedded in the binary.

Examples:
  finql migrate up          # apply all pending migrations
  finql migrate down 2      # roll back the last two migrations
  finql migrate goto 1      # migrate up or down to version 1
  finql migrate version     # print the current version
  finql migrate force 1     # clear a dirty state by setting the version
  finql migrate reset --yes # roll back everything and re-apply`,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply all pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *database.Migrator) error {
			if err := mg.Up(); err != nil {
				return err
			}
			return printVersion(cmd, mg)
		})
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down [N]",
	Short: "Roll back the last N migrations (default 1)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		steps := 1
		if len(args) == 1 {
			n, err := strconv.Atoi(args[0])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid step count %q", args[0])
			}
			steps = n
		}
		return withMigrator(func(mg *database.Migrator) error {
			if err := mg.Down(steps); err != nil {
				return err
			}
			return printVersion(cmd, mg)
		})
	},
}

var migrateGotoCmd = &cobra.Command{
	Use:   "goto V",
	Short: "Migrate up or down to version V",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrator(func(mg *database.Migrator) error {
			if err := mg.To(uint(version)); err != nil {
				return err
			}
			return printVersion(cmd, mg)
		})
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current schema version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withMigrator(func(mg *database.Migrator) error {
			return printVersion(cmd, mg)
		})
	},
}

var migrateForceCmd = &cobra.Command{
	Use:   "force V",
	Short: "Set the schema version without running migrations",
	Long: `Set the recorded schema version and clear the dirty flag without
running any migration. Use this after repairing a failed migration by hand.
A version of -1 marks the database as unmigrated.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil || version < -1 {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return withMigrator(func(mg *database.Migrator) error {
			if err := mg.Force(version); err != nil {
				return err
			}
			return printVersion(cmd, mg)
		})
	},
}

var migrateResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Roll back every migration and re-apply them",
	Long:  "Roll back every migration and re-apply them. All stored data is lost.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetConfirmed {
			return fmt.Errorf("reset drops all data; pass --yes to confirm")
		}
		return withMigrator(func(mg *database.Migrator) error {
			if err := mg.Reset(); err != nil {
				return err
			}
			return printVersion(cmd, mg)
		})
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)

	migrateCmd.AddCommand(migrateUpCmd)
	migrateCmd.AddCommand(migrateDownCmd)
	migrateCmd.AddCommand(migrateGotoCmd)
	migrateCmd.AddCommand(migrateVersionCmd)
	migrateCmd.AddCommand(migrateForceCmd)
	migrateCmd.AddCommand(migrateResetCmd)

	migrateResetCmd.Flags().BoolVar(&resetConfirmed, "yes", false, "confirm that all data may be dropped")
}

func withMigrator(fn func(mg *database.Migrator) error) error {
	mg, err := database.NewMigrator(databaseConfig())
	if err != nil {
		return err
	}
	defer mg.Close()
	return fn(mg)
}

func printVersion(cmd *cobra.Command, mg *database.Migrator) error {
	version, dirty, err := mg.Version()
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(cmd.OutOrStdout(), "%d (dirty)\n", version)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d\n", version)
	return nil
}
