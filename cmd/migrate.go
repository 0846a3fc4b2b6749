package cmd

import (
	"context"
	"fmt"

	"cabin-manager/feature/reservation"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var forceImport bool

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Prepare the database and import legacy data",
}

var migrateSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Create or upgrade the reservations table",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			if app.repository == nil {
				return fmt.Errorf("reservation store is %q, schema migration needs the db store", app.cfg.Reservation.Store)
			}
			// bootstrap already migrated; report the result.
			set, err := app.repository.Load(ctx)
			if err != nil {
				return err
			}
			app.logger.Info("Schema is up to date", zap.Int("reservations", set.Len()))
			return nil
		})
	},
}

var migrateCSVCmd = &cobra.Command{
	Use:   "csv <file>",
	Short: "Import a legacy reservations spreadsheet into the database",
	Long: `Import the reservations CSV the spreadsheet workflow produced. Rows whose
dates cannot be read are kept as malformed so nothing is lost. The import
refuses to overwrite a non-empty table unless --force is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			if app.repository == nil {
				return fmt.Errorf("reservation store is %q, import needs the db store", app.cfg.Reservation.Store)
			}

			set, err := reservation.NewCSVStore(args[0]).Load(ctx)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			tagged := set.MigrateSources(app.spec.Classifier)

			current, err := app.repository.Load(ctx)
			if err != nil {
				return err
			}
			if current.Len() > 0 && !forceImport {
				return fmt.Errorf("database already holds %d reservations, use --force to replace them", current.Len())
			}

			if err := app.repository.Save(ctx, set); err != nil {
				return fmt.Errorf("failed to import: %w", err)
			}

			malformed := 0
			for _, r := range set.Reservations {
				if r.Malformed() {
					malformed++
				}
			}
			app.logger.Info("Imported reservations",
				zap.String("file", args[0]),
				zap.Int("count", set.Len()),
				zap.Int("tagged", tagged),
				zap.Int("malformed", malformed),
			)
			return nil
		})
	},
}

func init() {
	migrateCSVCmd.Flags().BoolVar(&forceImport, "force", false, "Replace existing reservations")

	migrateCmd.AddCommand(migrateSchemaCmd, migrateCSVCmd)
	RootCmd.AddCommand(migrateCmd)
}
