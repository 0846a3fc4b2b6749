package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cabin-manager/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	dryRunSync   bool
	yesConfirm   bool
	publishAfter bool
	showSkipped  bool
)

// reconcileCmd runs one sync pass against the cabin feeds.
var reconcileCmd = &cobra.Command{
	Use:     "reconcile",
	Aliases: []string{"sync"},
	Short:   "Merge the cabin feeds into the reservation store",
	Long: `Fetch every cabin's iCal feed, admit new bookings and drop synced
reservations the feeds no longer report. Manual reservations are never touched,
and a cabin whose feed fails keeps all of its reservations.

Examples:
  # Report only
  reconcile --dry-run

  # Apply, asking before removing stale reservations
  reconcile

  # Apply non-interactively and republish the calendar
  reconcile --yes --publish`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&dryRunSync, "dry-run", false, "Compute the plan without saving it")
	reconcileCmd.Flags().BoolVar(&yesConfirm, "yes", false, "Auto-confirm destructive actions (non-interactive)")
	reconcileCmd.Flags().BoolVar(&publishAfter, "publish", false, "Publish the calendar even when nothing changed")
	reconcileCmd.Flags().BoolVar(&showSkipped, "show-skipped", false, "List every booking refused by policy")

	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer app.close()
	l := app.logger

	// Step 1: Plan (always runs)
	l.Info("Planning reconciliation...", zap.Strings("cabins", app.spec.CabinNames()))
	preview, err := app.reservations.Preview(ctx)
	if err != nil {
		return fmt.Errorf("failed to plan reconciliation: %w", err)
	}
	plan := preview.Plan
	printReconcileReport(l, plan)

	if dryRunSync {
		l.Info("Dry-run mode: No changes were made.")
		return nil
	}

	// Step 2: Apply
	if len(plan.Actions) == 0 {
		l.Info("No actions required.")
	} else {
		if plan.Summary.Removed > 0 && !confirmDestructiveAction() {
			l.Warn("Operation cancelled by user. No changes were made.")
			return nil
		}

		l.Info("Applying actions...")
		// Applied against the feeds shown above; removals beyond the report abort.
		applied, err := app.reservations.Apply(ctx, preview)
		if errors.Is(err, reconcile.ErrUnconfirmedRemoval) {
			return fmt.Errorf("reservations changed since the report, run reconcile again: %w", err)
		}
		if err != nil {
			return fmt.Errorf("failed to apply plan: %w", err)
		}
		l.Info("Successfully executed actions",
			zap.Int("count", len(applied.Actions)),
			zap.Int("admitted", applied.Summary.Admitted),
			zap.Int("removed", applied.Summary.Removed),
		)
	}

	if publishAfter && (len(plan.Actions) == 0 || !app.cfg.Calendar.PublishOnChange) {
		if err := app.calendar.Publish(ctx); err != nil {
			return fmt.Errorf("failed to publish calendar: %w", err)
		}
		l.Info("Calendar published")
	}
	return nil
}

// printReconcileReport prints a formatted reconciliation report using logger.
func printReconcileReport(l *zap.Logger, plan *reconcile.ReconcilePlan) {
	s := plan.Summary

	l.Info("Reconciliation report",
		zap.Int("loaded", s.Loaded),
		zap.Int("external", s.External),
		zap.Int("manual", s.Manual),
		zap.Int("malformed", s.Malformed),
		zap.Int("reported", s.Reported),
		zap.Int("unchanged", s.Unchanged),
		zap.Int("conflicts", s.Conflicts),
		zap.Int("skipped", s.Skipped),
	)

	if len(plan.FailedFeeds) > 0 {
		l.Warn("Feeds failed, their cabins keep every reservation", zap.Strings("cabins", plan.FailedFeeds))
	}

	for _, c := range plan.Conflicts {
		l.Warn("Feed booking overlaps an existing reservation",
			zap.String("cabin", c.Incoming.Resource),
			zap.String("start", c.Incoming.Start.String()),
			zap.String("end", c.Incoming.End.String()),
			zap.String("existing_guest", c.Existing.GuestName),
			zap.String("existing_id", c.Existing.ID),
		)
	}

	if showSkipped {
		for _, sk := range plan.Skipped {
			l.Info("Skipped booking",
				zap.String("cabin", sk.Booking.Resource),
				zap.String("start", sk.Booking.Start.String()),
				zap.String("reason", string(sk.Reason)),
			)
		}
	}

	if len(plan.Actions) > 0 {
		l.Info("Planned actions",
			zap.Int("admit_actions", s.Admitted),
			zap.Int("remove_actions", s.Removed),
			zap.Int("total_actions", len(plan.Actions)),
		)

		maxShow := min(5, len(plan.Actions))
		for _, action := range plan.Actions[:maxShow] {
			l.Info("Sample action",
				zap.String("type", string(action.Type)),
				zap.String("key", action.Key),
				zap.String("reason", action.Reason),
			)
		}
		if len(plan.Actions) > maxShow {
			l.Info("Additional actions not shown", zap.Int("count", len(plan.Actions)-maxShow))
		}
	}
}

// confirmDestructiveAction prompts the user for confirmation or uses --yes flag.
func confirmDestructiveAction() bool {
	if yesConfirm {
		fmt.Println("\n✓ Auto-confirmed via --yes flag")
		return true
	}

	fmt.Print("\n⚠️  Type 'yes' to remove stale reservations: ")
	reader := bufio.NewReader(os.Stdin)
	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	return strings.TrimSpace(response) == "yes"
}
