package reconcile

import (
	"context"
	"fmt"
	"strings"
)

// ReconcileWithPlan loads the current set from store and builds the plan for
// the already fetched feeds. It does NOT persist anything; use ApplyPlan for that.
func ReconcileWithPlan(
	ctx context.Context,
	spec *Spec,
	store Store,
	feeds []FeedResult,
	today Date,
) (*ReconcilePlan, error) {
	set, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load reservations: %w", err)
	}
	return Reconcile(spec, set, feeds, today), nil
}

// ApplyPlan persists the plan's working set with a single save.
// Returns the number of actions committed. Nothing is saved in dry-run mode,
// or when opts.Confirmed is set and the plan removes a row outside it.
func ApplyPlan(
	ctx context.Context,
	store Store,
	plan *ReconcilePlan,
	opts ReconcileOptions,
) (executed int, err error) {
	if opts.DryRun {
		return 0, nil
	}
	if opts.Confirmed != nil {
		confirmed := make(map[string]bool, len(opts.Confirmed))
		for _, id := range opts.Confirmed {
			confirmed[id] = true
		}
		var extra []string
		for _, id := range plan.Removals() {
			if !confirmed[id] {
				extra = append(extra, id)
			}
		}
		if len(extra) > 0 {
			return 0, fmt.Errorf("%w: %s", ErrUnconfirmedRemoval, strings.Join(extra, ", "))
		}
	}
	if err := store.Save(ctx, plan.Reservations); err != nil {
		return 0, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return len(plan.Actions), nil
}
