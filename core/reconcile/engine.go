package reconcile

import (
	"fmt"
	"strings"

	"cabin-manager/core/normalize"

	"github.com/google/uuid"
)

type intervalKey struct {
	resource string
	checkIn  string
	checkOut string
}

func keyOf(resource string, checkIn, checkOut Date) intervalKey {
	return intervalKey{
		resource: normalize.Fold(resource),
		checkIn:  checkIn.String(),
		checkOut: checkOut.String(),
	}
}

// Reconcile runs one pass over set against the fetched feeds and returns the
// resulting plan. set is not modified; the new working set is plan.Reservations.
//
// Steps: classify loaded rows, drop external rows their successful feed no
// longer reports (unless already checked out before today), then admit each
// reported booking in cabin and feed order. Admissions are visible to later
// overlap checks in the same pass.
func Reconcile(spec *Spec, set *ReservationSet, feeds []FeedResult, today Date) *ReconcilePlan {
	working := set.Clone()
	plan := &ReconcilePlan{
		Actions:     []Action{},
		Conflicts:   []Conflict{},
		Skipped:     []Skip{},
		Warnings:    []Warning{},
		FailedFeeds: []string{},
	}
	plan.Summary.Loaded = working.Len()

	// A resource is only swept when a feed for it succeeded this pass. Rows of
	// cabins with no feed result at all (renamed, unconfigured) are kept.
	failed := make(map[string]bool)
	fetched := make(map[string]bool)
	reported := make(map[intervalKey]struct{})
	for _, fr := range feeds {
		if fr.Failed() {
			failed[normalize.Fold(fr.Cabin.Name)] = true
			plan.FailedFeeds = append(plan.FailedFeeds, fr.Cabin.Name)
			plan.Warnings = append(plan.Warnings, Warning{
				Resource: fr.Cabin.Name,
				Message:  fmt.Sprintf("feed unavailable, stale removal skipped: %v", fr.Err),
			})
			continue
		}
		fetched[normalize.Fold(fr.Cabin.Name)] = true
		for _, b := range fr.Bookings {
			reported[keyOf(bookingResource(b, fr.Cabin), b.Start, b.End)] = struct{}{}
			plan.Summary.Reported++
		}
	}

	// 1 + 2: classify and remove stale external rows.
	kept := make([]Reservation, 0, working.Len())
	for _, r := range working.Reservations {
		if r.Malformed() {
			plan.Summary.Malformed++
			plan.Warnings = append(plan.Warnings, Warning{
				Resource:      r.Resource,
				ReservationID: r.ID,
				Message:       fmt.Sprintf("%v: %s", ErrMalformedRecord, r.Defect.Reason),
			})
			kept = append(kept, r)
			continue
		}

		if spec.Classifier.Classify(r) != SourceExternalSync {
			plan.Summary.Manual++
			kept = append(kept, r)
			continue
		}
		plan.Summary.External++

		if isStale(r, reported, fetched, failed, today) {
			plan.Actions = append(plan.Actions, Action{
				Type:        ActionRemoveStale,
				Key:         r.ID,
				Reason:      "no longer reported by feed",
				Reservation: r,
			})
			plan.Summary.Removed++
			continue
		}
		kept = append(kept, r)
	}

	// 3: admission.
	index := NewOverlapIndex(kept)
	for _, fr := range feeds {
		if fr.Failed() {
			continue
		}
		for _, b := range fr.Bookings {
			b.Resource = bookingResource(b, fr.Cabin)

			if reason, ok := spec.Policy.Evaluate(b, today); !ok {
				plan.Skipped = append(plan.Skipped, Skip{Booking: b, Reason: reason})
				continue
			}

			if existing := index.FindExact(b.Resource, b.Start, b.End); existing != nil &&
				spec.Classifier.Classify(*existing) == SourceExternalSync {
				plan.Summary.Unchanged++
				continue
			}

			if existing := index.FindConflict(b.Resource, b.Start, b.End); existing != nil {
				plan.Conflicts = append(plan.Conflicts, Conflict{Incoming: b, Existing: *existing})
				continue
			}

			r := spec.admit(b)
			kept = append(kept, r)
			index.Add(r)
			plan.Actions = append(plan.Actions, Action{
				Type:        ActionAdmit,
				Key:         r.ID,
				Reason:      "reported by feed",
				Reservation: r,
			})
			plan.Summary.Admitted++
		}
	}

	working.Reservations = kept
	plan.Reservations = working
	plan.Summary.Conflicts = len(plan.Conflicts)
	plan.Summary.Skipped = len(plan.Skipped)
	plan.Summary.FailedFeeds = len(plan.FailedFeeds)
	return plan
}

func isStale(r Reservation, reported map[intervalKey]struct{}, fetched, failed map[string]bool, today Date) bool {
	if r.CheckOut.Before(today) {
		return false
	}
	resource := normalize.Fold(r.Resource)
	if !fetched[resource] || failed[resource] {
		return false
	}
	_, ok := reported[keyOf(r.Resource, r.CheckIn, r.CheckOut)]
	return !ok
}

// bookingResource resolves the cabin a booking belongs to; feeds that do not
// tag their bookings get the cabin they were fetched for.
func bookingResource(b ExternalBooking, cabin Cabin) string {
	if strings.TrimSpace(b.Resource) != "" {
		return b.Resource
	}
	return cabin.Name
}

// admit builds the external reservation for an accepted booking.
func (s *Spec) admit(b ExternalBooking) Reservation {
	newID := s.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	summary := strings.TrimSpace(b.Summary)
	notes := summary
	if s.Classifier.Marker != "" {
		notes = fmt.Sprintf("%s booking - %s", s.Classifier.Marker, summary)
	}
	return Reservation{
		ID:        newID(),
		GuestName: summary,
		CheckIn:   b.Start,
		CheckOut:  b.End,
		Nights:    b.Nights(),
		Resource:  b.Resource,
		Source:    SourceExternalSync,
		Notes:     notes,
	}
}
