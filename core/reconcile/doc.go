// Package reconcile keeps the local reservation set consistent with the
// per-cabin calendar feeds of the rental platform.
//
// A pass ingests the intervals every feed reports, decides which are
// admissible, detects conflicts against existing bookings, removes synced
// bookings that disappeared upstream and guarantees that no cabin ends up
// with two overlapping stays.
//
// # Architecture
//
// The package consists of four parts:
//
// 1. Policy: pure admission rules for a feed booking. A booking needs a real
// guest name (placeholders such as "Reserved" or "Airbnb (Not available)" are
// refused), a stay between MinNights and MaxNights, and a start no later than
// HorizonMonths from today.
//
// 2. OverlapIndex: per-cabin conflict search. Stays are half-open [checkIn,
// checkOut) intervals; two stays sharing a single boundary day are a legal
// same-day changeover, an exact duplicate is a conflict.
//
// 3. Engine: Reconcile classifies loaded rows as manual or synced, drops
// synced rows a successful feed no longer reports (past stays, and cabins
// whose feed failed or was not fetched, are exempt), then admits each reported
// booking in feed order.
// Refusals and conflicts are recorded in the plan, never raised as errors.
//
// 4. Plan: ReconcileWithPlan and ApplyPlan split computing a pass from
// persisting it, so a pass can be previewed in dry-run mode. A pass touches
// the Store exactly once, with one Save. ReconcileOptions.Confirmed limits
// which rows a committed plan may remove.
//
// # Concurrency
//
// FetchAll fetches feeds concurrently with a per-feed timeout. Everything
// after the fetch is synchronous over one in-memory ReservationSet. The
// package does not lock the Store; callers sharing a store between passes
// and manual edits must hold a single writer lock from Load to Save.
//
// # Usage Example
//
//	spec, _ := cfg.Sync.Spec(30*time.Second, 4)
//	feeds := reconcile.FetchAll(ctx, spec, fetcher)
//	plan, err := reconcile.ReconcileWithPlan(ctx, spec, store, feeds, spec.Today(time.Now()))
//	if err != nil {
//	    return err
//	}
//	_, err = reconcile.ApplyPlan(ctx, store, plan, reconcile.ReconcileOptions{})
package reconcile
