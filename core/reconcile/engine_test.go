package reconcile

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	colibri  = Cabin{Name: "Colibri", FeedURL: "https://example.com/colibri.ics"}
	peperina = Cabin{Name: "Peperina", FeedURL: "https://example.com/peperina.ics"}
)

func testSpec() *Spec {
	n := 0
	return &Spec{
		Cabins:     []Cabin{colibri, peperina},
		Policy:     DefaultPolicy(),
		Classifier: Classifier{SentinelGuest: "Airbnb Guest", Marker: "Airbnb"},
		NewID: func() string {
			n++
			return fmt.Sprintf("id-%d", n)
		},
	}
}

func booking(cabin, in, out, summary string) ExternalBooking {
	return ExternalBooking{Start: d(in), End: d(out), Summary: summary, Resource: cabin}
}

func synced(id, cabin, in, out string) Reservation {
	r := res(id, cabin, in, out)
	r.Source = SourceExternalSync
	r.Notes = "Airbnb booking - " + r.GuestName
	return r
}

func ids(rs []Reservation) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.ID)
	}
	return out
}

// assertNoOverlaps checks that no cabin holds two clashing stays.
func assertNoOverlaps(t *testing.T, set *ReservationSet) {
	t.Helper()
	for i, a := range set.Reservations {
		for _, b := range set.Reservations[i+1:] {
			if a.Malformed() || b.Malformed() || a.Resource != b.Resource {
				continue
			}
			assert.False(t, conflicts(a, b.CheckIn, b.CheckOut), "%s overlaps %s", a.ID, b.ID)
		}
	}
}

func TestReconcile_AdmitsAndBuildsReservation(t *testing.T) {
	spec := testSpec()
	feeds := []FeedResult{
		{Cabin: colibri, Bookings: []ExternalBooking{booking("", "2025-07-10", "2025-07-15", "  Lucía Gómez ")}},
		{Cabin: peperina, Bookings: nil},
	}

	plan := Reconcile(spec, NewReservationSet(), feeds, d("2025-07-01"))

	require.Equal(t, 1, plan.Reservations.Len())
	r := plan.Reservations.Reservations[0]
	assert.Equal(t, "id-1", r.ID)
	assert.Equal(t, "Lucía Gómez", r.GuestName)
	assert.Equal(t, "Colibri", r.Resource, "untagged bookings take the fetched cabin")
	assert.Equal(t, 5, r.Nights)
	assert.Equal(t, SourceExternalSync, r.Source)
	assert.Equal(t, "Airbnb booking - Lucía Gómez", r.Notes)
	assert.Equal(t, Pricing{}, r.Pricing)

	require.Len(t, plan.Actions, 1)
	assert.Equal(t, ActionAdmit, plan.Actions[0].Type)
	assert.Equal(t, 1, plan.Summary.Admitted)
	assert.Equal(t, 1, plan.Summary.Reported)
}

func TestReconcile_BoundaryTouch(t *testing.T) {
	spec := testSpec()
	set := NewReservationSet(res("manual", "Colibri", "2025-07-10", "2025-07-15"))
	feeds := []FeedResult{{Cabin: colibri, Bookings: []ExternalBooking{
		booking("Colibri", "2025-07-15", "2025-07-20", "Touching Guest"),
		booking("Colibri", "2025-07-14", "2025-07-20", "Overlapping Guest"),
	}}}

	plan := Reconcile(spec, set, feeds, d("2025-07-01"))

	assert.Equal(t, 1, plan.Summary.Admitted)
	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, "Overlapping Guest", plan.Conflicts[0].Incoming.Summary)
	// Set order puts the manual row ahead of the fresh admission.
	assert.Equal(t, "manual", plan.Conflicts[0].Existing.ID)
	assertNoOverlaps(t, plan.Reservations)
}

func TestReconcile_AdmissionsAffectLaterBookings(t *testing.T) {
	spec := testSpec()
	feeds := []FeedResult{{Cabin: colibri, Bookings: []ExternalBooking{
		booking("Colibri", "2025-07-10", "2025-07-15", "First"),
		booking("Colibri", "2025-07-12", "2025-07-18", "Second"),
	}}}

	plan := Reconcile(spec, NewReservationSet(), feeds, d("2025-07-01"))

	require.Equal(t, 1, plan.Reservations.Len())
	require.Len(t, plan.Conflicts, 1)
	assert.Equal(t, "First", plan.Conflicts[0].Existing.GuestName)
	assert.Equal(t, "Second", plan.Conflicts[0].Incoming.Summary)
}

func TestReconcile_PolicyRejections(t *testing.T) {
	spec := testSpec()
	today := d("2025-01-01")
	feeds := []FeedResult{{Cabin: colibri, Bookings: []ExternalBooking{
		booking("Colibri", "2025-02-01", "2025-02-02", "One Night"),
		booking("Colibri", "2025-03-01", "2025-04-02", "Thirty Two"),
		booking("Colibri", "2025-05-01", "2025-05-05", "Airbnb (Not available)"),
		booking("Colibri", "2025-08-02", "2025-08-06", "Far Away"),
		booking("Colibri", "2025-08-01", "2025-08-04", "On Cutoff"),
	}}}

	plan := Reconcile(spec, NewReservationSet(), feeds, today)

	reasons := map[string]SkipReason{}
	for _, s := range plan.Skipped {
		reasons[s.Booking.Summary] = s.Reason
	}
	assert.Equal(t, map[string]SkipReason{
		"One Night":              SkipTooShort,
		"Thirty Two":             SkipTooLong,
		"Airbnb (Not available)": SkipNoGuestName,
		"Far Away":               SkipBeyondHorizon,
	}, reasons)
	require.Equal(t, 1, plan.Reservations.Len())
	assert.Equal(t, "On Cutoff", plan.Reservations.Reservations[0].GuestName)
	assert.Empty(t, plan.Conflicts)
}

func TestReconcile_StaleRemoval(t *testing.T) {
	today := d("2025-07-12")

	tests := []struct {
		name        string
		existing    Reservation
		feeds       []FeedResult
		wantRemoved bool
	}{
		{
			name:        "Future synced row gone from feed",
			existing:    synced("s", "Colibri", "2025-07-20", "2025-07-25"),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: true,
		},
		{
			name:        "Ongoing stay gone from feed",
			existing:    synced("s", "Colibri", "2025-07-10", "2025-07-14"),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: true,
		},
		{
			name:        "Checks out today",
			existing:    synced("s", "Colibri", "2025-07-08", "2025-07-12"),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: true,
		},
		{
			name:        "Checked out before today",
			existing:    synced("s", "Colibri", "2025-07-01", "2025-07-11"),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: false,
		},
		{
			name:     "Still reported",
			existing: synced("s", "Colibri", "2025-07-20", "2025-07-25"),
			feeds: []FeedResult{{Cabin: colibri, Bookings: []ExternalBooking{
				booking("colibrí", "2025-07-20", "2025-07-25", "Guest s"),
			}}},
			wantRemoved: false,
		},
		{
			name:     "Still reported but no longer admissible",
			existing: synced("s", "Colibri", "2025-07-20", "2025-07-21"),
			feeds: []FeedResult{{Cabin: colibri, Bookings: []ExternalBooking{
				booking("Colibri", "2025-07-20", "2025-07-21", "Reserved"),
			}}},
			wantRemoved: false,
		},
		{
			name:        "Feed failed",
			existing:    synced("s", "Colibri", "2025-07-20", "2025-07-25"),
			feeds:       []FeedResult{{Cabin: colibri, Err: errors.New("timeout")}},
			wantRemoved: false,
		},
		{
			name:        "Other cabin's feed failed",
			existing:    synced("s", "Colibri", "2025-07-20", "2025-07-25"),
			feeds:       []FeedResult{{Cabin: colibri}, {Cabin: peperina, Err: errors.New("timeout")}},
			wantRemoved: true,
		},
		{
			name:        "No feed result for the row's cabin",
			existing:    synced("s", "Peperina", "2025-07-20", "2025-07-25"),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: false,
		},
		{
			name:        "Cabin no longer configured",
			existing:    synced("s", "Airbnb Booking", "2025-07-20", "2025-07-25"),
			feeds:       []FeedResult{{Cabin: colibri}, {Cabin: peperina}},
			wantRemoved: false,
		},
		{
			name:        "Manual row never removed",
			existing:    res("m", "Colibri", "2025-07-20", "2025-07-25"),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: false,
		},
		{
			name: "Legacy sentinel row inferred as synced",
			existing: func() Reservation {
				r := res("legacy", "Colibri", "2025-07-20", "2025-07-25")
				r.Source = SourceUnknown
				r.GuestName = "Airbnb Guest"
				return r
			}(),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: true,
		},
		{
			name: "Legacy marker row inferred as synced",
			existing: func() Reservation {
				r := res("legacy", "Colibri", "2025-07-20", "2025-07-25")
				r.Source = SourceUnknown
				r.Notes = "Reserva de airbnb"
				return r
			}(),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: true,
		},
		{
			name: "Explicit manual tag beats marker",
			existing: func() Reservation {
				r := res("m", "Colibri", "2025-07-20", "2025-07-25")
				r.Notes = "came through Airbnb once"
				return r
			}(),
			feeds:       []FeedResult{{Cabin: colibri}},
			wantRemoved: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Reconcile(testSpec(), NewReservationSet(tt.existing), tt.feeds, today)
			if tt.wantRemoved {
				assert.Equal(t, 0, plan.Reservations.Len())
				require.Len(t, plan.Actions, 1)
				assert.Equal(t, ActionRemoveStale, plan.Actions[0].Type)
				assert.Equal(t, tt.existing.ID, plan.Actions[0].Key)
			} else {
				assert.Equal(t, []string{tt.existing.ID}, ids(plan.Reservations.Reservations))
				assert.Equal(t, 0, plan.Summary.Removed)
			}
		})
	}
}

func TestReconcile_FailedFeedIsReported(t *testing.T) {
	plan := Reconcile(testSpec(), NewReservationSet(), []FeedResult{
		{Cabin: colibri, Err: fmt.Errorf("%w: Colibri: boom", ErrFetchFailed)},
		{Cabin: peperina, Bookings: []ExternalBooking{booking("", "2025-07-10", "2025-07-13", "Ana")}},
	}, d("2025-07-01"))

	assert.Equal(t, []string{"Colibri"}, plan.FailedFeeds)
	assert.Equal(t, 1, plan.Summary.FailedFeeds)
	assert.Equal(t, 1, plan.Summary.Admitted)
	require.Len(t, plan.Warnings, 1)
	assert.Contains(t, plan.Warnings[0].Message, "boom")
}

func TestReconcile_Idempotent(t *testing.T) {
	spec := testSpec()
	today := d("2025-07-01")
	set := NewReservationSet(
		res("manual", "Colibri", "2025-07-20", "2025-07-25"),
		synced("old", "Peperina", "2025-08-01", "2025-08-03"),
	)
	feeds := []FeedResult{
		{Cabin: colibri, Bookings: []ExternalBooking{
			booking("", "2025-07-10", "2025-07-15", "Ana"),
			booking("", "2025-07-22", "2025-07-24", "Clashes With Manual"),
			booking("", "2025-07-15", "2025-07-18", "Changeover"),
		}},
		{Cabin: peperina, Bookings: []ExternalBooking{
			booking("", "2025-07-10", "2025-07-15", "Same Dates Other Cabin"),
		}},
	}

	first := Reconcile(spec, set, feeds, today)
	assert.Equal(t, 3, first.Summary.Admitted)
	assert.Equal(t, 1, first.Summary.Removed)
	require.Len(t, first.Conflicts, 1)
	assertNoOverlaps(t, first.Reservations)

	second := Reconcile(spec, first.Reservations, feeds, today)
	assert.Equal(t, 0, second.Summary.Admitted)
	assert.Equal(t, 0, second.Summary.Removed)
	assert.Equal(t, 3, second.Summary.Unchanged)
	assert.Empty(t, second.Actions)
	assert.Equal(t, first.Conflicts, second.Conflicts, "no new conflicts")
	assert.Equal(t, ids(first.Reservations.Reservations), ids(second.Reservations.Reservations))
}

func TestReconcile_CrossResourceIndependence(t *testing.T) {
	feeds := []FeedResult{
		{Cabin: colibri, Bookings: []ExternalBooking{booking("", "2025-07-10", "2025-07-15", "Ana")}},
		{Cabin: peperina, Bookings: []ExternalBooking{booking("", "2025-07-10", "2025-07-15", "Bruno")}},
	}

	plan := Reconcile(testSpec(), NewReservationSet(), feeds, d("2025-07-01"))
	assert.Equal(t, 2, plan.Summary.Admitted)
	assert.Empty(t, plan.Conflicts)
}

func TestReconcile_MalformedRowsWarnAndSurvive(t *testing.T) {
	broken := Reservation{
		ID:        "broken",
		GuestName: "Airbnb Guest",
		Resource:  "Colibri",
		Defect:    &Defect{Reason: "unparseable check-in", RawCheckIn: "soon"},
	}
	feeds := []FeedResult{{Cabin: colibri, Bookings: []ExternalBooking{
		booking("", "2025-07-10", "2025-07-15", "Ana"),
	}}}

	plan := Reconcile(testSpec(), NewReservationSet(broken), feeds, d("2025-07-01"))

	assert.Equal(t, []string{"broken", "id-1"}, ids(plan.Reservations.Reservations))
	assert.Equal(t, 1, plan.Summary.Malformed)
	require.Len(t, plan.Warnings, 1)
	assert.Equal(t, "broken", plan.Warnings[0].ReservationID)
	assert.Contains(t, plan.Warnings[0].Message, ErrMalformedRecord.Error())
}

func TestReconcile_DoesNotMutateInput(t *testing.T) {
	set := NewReservationSet(synced("s", "Colibri", "2025-07-20", "2025-07-25"))
	plan := Reconcile(testSpec(), set, []FeedResult{{Cabin: colibri}}, d("2025-07-01"))

	assert.Equal(t, 0, plan.Reservations.Len())
	assert.Equal(t, 1, set.Len())
}
