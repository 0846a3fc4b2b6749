package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"cabin-manager/feature/integrity"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var fixFlag bool

// integrityCmd represents the integrity command
var integrityCmd = &cobra.Command{
	Use:   "integrity",
	Short: "Audit reservations, schema and published calendar",
	Long: `Reports malformed rows, overlapping stays, unknown cabins, schema drift,
the state of the published calendar and cabins without a feed.

With --fix, untagged legacy rows get their source persisted and the schema is migrated.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			svc := integrity.NewService(app.store, app.spec, app.integrityOptions(), app.logger)
			if fixFlag {
				if err := runIntegrityFixes(ctx, app, svc); err != nil {
					return err
				}
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(svc.CheckAll(ctx))
		})
	},
}

func runIntegrityFixes(ctx context.Context, app *application, svc *integrity.Service) error {
	if app.repository != nil {
		if err := svc.FixSchema(ctx); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	n, err := svc.FixReservations(ctx)
	if err != nil {
		return err
	}
	app.logger.Info("Integrity fixes applied", zap.Int("tagged", n))
	return nil
}

func init() {
	integrityCmd.Flags().BoolVar(&fixFlag, "fix", false, "Apply safe fixes before reporting")
	RootCmd.AddCommand(integrityCmd)
}
