package reconcile

import (
	"sort"
	"strings"
	"time"

	"cabin-manager/core/normalize"
)

// Source tags where a reservation came from.
type Source string

const (
	// SourceUnknown marks legacy rows stored before the tag existed.
	SourceUnknown Source = ""
	// SourceManual is a reservation entered through a booking operation.
	SourceManual Source = "manual"
	// SourceExternalSync is a reservation admitted from an upstream feed.
	SourceExternalSync Source = "external_sync"
)

// Pricing holds the money fields of a reservation. The engine never reads them.
type Pricing struct {
	NightlyRate float64 `json:"nightly_rate"`
	Total       float64 `json:"total"`
	Paid        float64 `json:"paid"`
	Currency    string  `json:"currency,omitempty"`

	// Alt* carry an optional second-currency amount.
	AltTotal    float64 `json:"alt_total,omitempty"`
	AltPaid     float64 `json:"alt_paid,omitempty"`
	AltCurrency string  `json:"alt_currency,omitempty"`
}

// Defect records why a stored row could not be read as a valid interval.
// The raw values are kept so the row is written back exactly as found.
type Defect struct {
	Reason      string `json:"reason"`
	RawCheckIn  string `json:"raw_check_in,omitempty"`
	RawCheckOut string `json:"raw_check_out,omitempty"`
}

// Reservation is one row of the authoritative reservation set.
type Reservation struct {
	ID        string  `json:"id"`
	GuestName string  `json:"guest_name"`
	CheckIn   Date    `json:"check_in"`
	CheckOut  Date    `json:"check_out"`
	Nights    int     `json:"nights"`
	Resource  string  `json:"cabin"`
	Source    Source  `json:"source"`
	Pricing   Pricing `json:"pricing"`
	Notes     string  `json:"notes,omitempty"`
	Phone     string  `json:"phone,omitempty"`

	// Defect is set when the stored row is malformed.
	Defect *Defect `json:"defect,omitempty"`
}

// Malformed reports whether r was loaded from a defective row.
func (r Reservation) Malformed() bool { return r.Defect != nil }

// ExternalBooking is one interval reported by a feed, before admission.
type ExternalBooking struct {
	Resource string `json:"cabin"`
	Start    Date   `json:"start"`
	End      Date   `json:"end"`
	Summary  string `json:"summary"`
}

// Nights returns the stay length in whole days.
func (b ExternalBooking) Nights() int { return b.Start.DaysUntil(b.End) }

// Cabin identifies a bookable resource and its upstream feed.
type Cabin struct {
	Name    string `json:"name"`
	FeedURL string `json:"-"`
}

// FeedResult is the outcome of fetching one cabin's feed.
// Err distinguishes a failed fetch from one that returned no events.
type FeedResult struct {
	Cabin    Cabin
	Bookings []ExternalBooking
	Err      error
}

// Failed reports whether the fetch failed.
func (f FeedResult) Failed() bool { return f.Err != nil }

// Classifier decides whether a reservation is externally sourced.
// The explicit tag wins; the sentinel and marker only apply to untagged legacy rows.
type Classifier struct {
	// SentinelGuest is the guest name legacy syncs wrote for external rows.
	SentinelGuest string
	// Marker is the substring legacy syncs put in the notes of external rows.
	Marker string
}

// Infer derives a source from free text. Either condition qualifies a row as external.
func (c Classifier) Infer(guestName, notes string) Source {
	if c.SentinelGuest != "" && normalize.Equal(guestName, c.SentinelGuest) {
		return SourceExternalSync
	}
	if c.Marker != "" && strings.Contains(normalize.Fold(notes), normalize.Fold(c.Marker)) {
		return SourceExternalSync
	}
	return SourceManual
}

// Classify returns the effective source of r.
func (c Classifier) Classify(r Reservation) Source {
	if r.Source != SourceUnknown {
		return r.Source
	}
	return c.Infer(r.GuestName, r.Notes)
}

// ReservationSet is the working copy of all reservations, in stored order.
type ReservationSet struct {
	Reservations []Reservation `json:"reservations"`
}

// NewReservationSet returns a set holding rs.
func NewReservationSet(rs ...Reservation) *ReservationSet {
	return &ReservationSet{Reservations: rs}
}

// Len returns the number of reservations.
func (s *ReservationSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Reservations)
}

// Clone returns a copy that can be mutated without touching s.
func (s *ReservationSet) Clone() *ReservationSet {
	if s == nil {
		return NewReservationSet()
	}
	out := make([]Reservation, len(s.Reservations))
	copy(out, s.Reservations)
	return &ReservationSet{Reservations: out}
}

// ForResource returns the reservations of one cabin, in set order.
func (s *ReservationSet) ForResource(resource string) []Reservation {
	key := normalize.Fold(resource)
	var out []Reservation
	for _, r := range s.Reservations {
		if normalize.Fold(r.Resource) == key {
			out = append(out, r)
		}
	}
	return out
}

// MigrateSources stamps an explicit tag on every untagged row using c and
// returns how many rows changed. Tagged rows are never re-derived.
func (s *ReservationSet) MigrateSources(c Classifier) int {
	n := 0
	for i := range s.Reservations {
		if s.Reservations[i].Source == SourceUnknown {
			s.Reservations[i].Source = c.Classify(s.Reservations[i])
			n++
		}
	}
	return n
}

// Sorted returns the reservations ordered by check-in, then cabin.
// Malformed rows sort last.
func (s *ReservationSet) Sorted() []Reservation {
	out := make([]Reservation, len(s.Reservations))
	copy(out, s.Reservations)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Malformed() != b.Malformed() {
			return !a.Malformed()
		}
		if !a.CheckIn.Equal(b.CheckIn) {
			return a.CheckIn.Before(b.CheckIn)
		}
		return normalize.Fold(a.Resource) < normalize.Fold(b.Resource)
	})
	return out
}

// Export is the tuple handed to calendar renderers.
type Export struct {
	ID        string
	Resource  string
	CheckIn   Date
	CheckOut  Date
	Nights    int
	GuestName string
	Notes     string
	Phone     string
	Pricing   Pricing
}

// Exports returns one tuple per well-formed reservation, sorted by check-in.
func (s *ReservationSet) Exports() []Export {
	var out []Export
	for _, r := range s.Sorted() {
		if r.Malformed() {
			continue
		}
		out = append(out, Export{
			ID:        r.ID,
			Resource:  r.Resource,
			CheckIn:   r.CheckIn,
			CheckOut:  r.CheckOut,
			Nights:    r.Nights,
			GuestName: r.GuestName,
			Notes:     r.Notes,
			Phone:     r.Phone,
			Pricing:   r.Pricing,
		})
	}
	return out
}

// SkipReason explains a policy rejection.
type SkipReason string

const (
	SkipNoGuestName   SkipReason = "no_guest_name"
	SkipTooShort      SkipReason = "too_short"
	SkipTooLong       SkipReason = "too_long"
	SkipBeyondHorizon SkipReason = "beyond_horizon"
)

// Skip is a feed booking the policy refused.
type Skip struct {
	Booking ExternalBooking `json:"booking"`
	Reason  SkipReason      `json:"reason"`
}

// Conflict is a feed booking that overlaps an existing reservation.
type Conflict struct {
	Incoming ExternalBooking `json:"incoming"`
	Existing Reservation     `json:"existing"`
}

// Warning is a non-fatal problem noticed during a pass.
type Warning struct {
	Resource      string `json:"cabin,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	Message       string `json:"message"`
}

// ActionType represents the type of mutation action.
type ActionType string

const (
	// ActionAdmit appends a reservation admitted from a feed.
	ActionAdmit ActionType = "admit"
	// ActionRemoveStale drops an external reservation the feed no longer reports.
	ActionRemoveStale ActionType = "remove_stale"
)

// Action represents a planned mutation of the reservation set.
type Action struct {
	Type        ActionType  `json:"type"`
	Key         string      `json:"key"`
	Reason      string      `json:"reason"`
	Reservation Reservation `json:"reservation"`
}

// ReconcilePlan is the full outcome of one pass before it is persisted.
type ReconcilePlan struct {
	// Reservations is the resulting working set.
	Reservations *ReservationSet `json:"-"`

	Actions     []Action   `json:"actions"`
	Conflicts   []Conflict `json:"conflicts"`
	Skipped     []Skip     `json:"skipped"`
	Warnings    []Warning  `json:"warnings"`
	FailedFeeds []string   `json:"failed_feeds"`

	Summary PlanSummary `json:"summary"`
}

// Removals returns the IDs of the reservations the plan removes.
func (p *ReconcilePlan) Removals() []string {
	out := []string{}
	for _, a := range p.Actions {
		if a.Type == ActionRemoveStale {
			out = append(out, a.Key)
		}
	}
	return out
}

// PlanSummary provides aggregate statistics for a reconcile plan.
type PlanSummary struct {
	// Loaded is the size of the set before the pass.
	Loaded int `json:"loaded"`
	// External and Manual count loaded rows by effective source.
	External int `json:"external"`
	Manual   int `json:"manual"`
	// Malformed counts loaded rows carrying a defect.
	Malformed int `json:"malformed"`
	// Reported counts bookings from successful feeds.
	Reported int `json:"reported"`

	Admitted  int `json:"admitted"`
	Removed   int `json:"removed"`
	Unchanged int `json:"unchanged"`
	Conflicts int `json:"conflicts"`
	Skipped   int `json:"skipped"`

	FailedFeeds int `json:"failed_feeds"`
}

// ReconcileOptions controls how a plan is applied.
type ReconcileOptions struct {
	// DryRun computes the plan without saving it.
	DryRun bool
	// Confirmed, when non-nil, lists the IDs the caller agreed to remove.
	// ApplyPlan refuses a plan that removes any other reservation.
	Confirmed []string
}

// Spec defines the configuration for a reconciliation pass.
type Spec struct {
	// Cabins lists the resources, in the order their feeds are admitted.
	Cabins []Cabin

	Policy     Policy
	Classifier Classifier

	// FetchTimeout bounds each feed fetch. Zero means no extra bound.
	FetchTimeout time.Duration
	// FetchWorkers bounds concurrent fetches.
	FetchWorkers int

	// Location is the zone "today" is computed in.
	Location *time.Location

	// NewID generates reservation identifiers.
	NewID func() string
}

// CabinNames returns the configured cabin names.
func (s *Spec) CabinNames() []string {
	names := make([]string, 0, len(s.Cabins))
	for _, c := range s.Cabins {
		names = append(names, c.Name)
	}
	return names
}

// Cabin returns the configured cabin matching name, compared after folding.
func (s *Spec) Cabin(name string) (Cabin, bool) {
	key := normalize.Fold(name)
	for _, c := range s.Cabins {
		if normalize.Fold(c.Name) == key {
			return c, true
		}
	}
	return Cabin{}, false
}

// Today returns the reference date of a pass started at now.
func (s *Spec) Today(now time.Time) Date {
	return Today(now, s.Location)
}
