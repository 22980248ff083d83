package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/scaffold/internal/app"
	"github.com/conduit-lang/scaffold/internal/orm/codegen"
)

var (
	dbSchemaDrop bool
	dbSetupReset bool
)

// NewDBCommand creates the db command
func NewDBCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database schema commands",
		Long: `Create the tables that back the models.

Tables are created in dependency order so foreign keys always reference an
existing table. Existing tables are left untouched.`,
		Example: `  # Print the DDL for the configured driver
  scaffold db schema

  # Create missing tables
  scaffold db setup

  # Drop and recreate every model table
  scaffold db setup --reset`,
	}

	cmd.AddCommand(newDBSchemaCommand())
	cmd.AddCommand(newDBSetupCommand())

	return cmd
}

func newDBSchemaCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the DDL for every model",
		Long:  "Print CREATE TABLE statements for the configured database driver. The database is not contacted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd.Context(), app.Options{Offline: true})
			if err != nil {
				return err
			}
			defer a.Close()

			statements, err := generateDDL(a, dbSchemaDrop)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.Join(statements, "\n\n"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dbSchemaDrop, "drop", false, "Prefix the output with DROP TABLE statements")

	return cmd
}

func newDBSetupCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Create missing model tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			successColor := color.New(color.FgGreen, color.Bold)
			warningColor := color.New(color.FgYellow, color.Bold)
			out := cmd.OutOrStdout()

			a, err := loadApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			statements, err := generateDDL(a, dbSetupReset)
			if err != nil {
				return err
			}
			if dbSetupReset {
				warningColor.Fprintln(out, "⚠ Dropping existing model tables")
			}
			if err := codegen.Apply(cmd.Context(), a.DB(), statements); err != nil {
				return err
			}

			successColor.Fprintf(out, "✓ Schema ready for %d models\n", a.Registry().Count())
			return nil
		},
	}

	cmd.Flags().BoolVar(&dbSetupReset, "reset", false, "Drop model tables before creating them (destroys data)")

	return cmd
}

// generateDDL builds the statements for the app's driver, optionally
// preceded by drops
func generateDDL(a *app.App, drop bool) ([]string, error) {
	dialect, err := codegen.DialectFor(a.Config().Database.Driver)
	if err != nil {
		return nil, err
	}
	gen := codegen.NewDDLGenerator(dialect, a.Registry())

	var statements []string
	if drop {
		drops, err := gen.GenerateDropSchema()
		if err != nil {
			return nil, err
		}
		statements = append(statements, drops...)
	}

	creates, err := gen.GenerateSchema()
	if err != nil {
		return nil, err
	}
	return append(statements, creates...), nil
}
