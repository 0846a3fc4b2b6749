package cmd

import (
	"context"
	"fmt"
	"os"

	"cabin-manager/feature/calendar"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	exportOut     string
	exportPublish bool
)

var calendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: "Export or publish the reservation calendar",
}

var calendarExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Render the calendar to a file or stdout",
	Long: `Render every well-formed reservation as an all-day event.

Examples:
  # Print to stdout
  calendar export

  # Write a file and push to the configured publishers
  calendar export --out reservations.ics --publish`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(func(ctx context.Context, app *application) error {
			body, err := app.calendar.Render(ctx)
			if err != nil {
				return err
			}

			if exportOut == "" || exportOut == "-" {
				if _, err := os.Stdout.Write(body); err != nil {
					return err
				}
			} else {
				if err := calendar.NewFilePublisher(exportOut).Publish(ctx, body); err != nil {
					return err
				}
				app.logger.Info("Calendar written", zap.String("path", exportOut), zap.Int("bytes", len(body)))
			}

			if exportPublish {
				return publishCalendar(ctx, app)
			}
			return nil
		})
	},
}

var calendarPublishCmd = &cobra.Command{
	Use:   "publish",
	Short: "Push the calendar to every configured publisher",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(publishCalendar)
	},
}

func publishCalendar(ctx context.Context, app *application) error {
	if len(app.calendar.Publishers()) == 0 {
		return fmt.Errorf("no calendar publishers configured")
	}
	if err := app.calendar.Publish(ctx); err != nil {
		return fmt.Errorf("failed to publish calendar: %w", err)
	}
	for _, p := range app.calendar.Publishers() {
		app.logger.Info("Calendar published", zap.String("publisher", p.Name()))
	}
	return nil
}

func init() {
	calendarExportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (default stdout)")
	calendarExportCmd.Flags().BoolVar(&exportPublish, "publish", false, "Also push to the configured publishers")

	calendarCmd.AddCommand(calendarExportCmd, calendarPublishCmd)
	RootCmd.AddCommand(calendarCmd)
}
