package checks

import (
	"fmt"

	"cabin-manager/core/reconcile"
)

// Finding is one problem found in the stored reservations.
type Finding struct {
	Cabin         string `json:"cabin,omitempty"`
	ReservationID string `json:"reservation_id,omitempty"`
	Message       string `json:"message"`
}

// ReservationReport strictly types the result of a reservation audit.
type ReservationReport struct {
	Total         int       `json:"total"`
	Malformed     []Finding `json:"malformed"`
	Overlaps      []Finding `json:"overlaps"`
	UnknownCabins []Finding `json:"unknown_cabins"`
	DuplicateIDs  []string  `json:"duplicate_ids"`
	// Untagged counts rows whose source is still inferred on every load.
	Untagged int    `json:"untagged"`
	Status   string `json:"status"` // "ok", "error"
}

// CheckReservations audits set as stored, before any source inference.
func CheckReservations(set *reconcile.ReservationSet, spec *reconcile.Spec) *ReservationReport {
	report := &ReservationReport{
		Total:         set.Len(),
		Malformed:     []Finding{},
		Overlaps:      []Finding{},
		UnknownCabins: []Finding{},
		DuplicateIDs:  []string{},
		Status:        "ok",
	}

	seen := make(map[string]int)
	ix := reconcile.NewOverlapIndex(nil)

	for _, r := range set.Reservations {
		if r.Source == reconcile.SourceUnknown {
			report.Untagged++
		}

		if r.ID != "" {
			seen[r.ID]++
			if seen[r.ID] == 2 {
				report.DuplicateIDs = append(report.DuplicateIDs, r.ID)
			}
		}

		if r.Malformed() {
			report.Malformed = append(report.Malformed, Finding{
				Cabin:         r.Resource,
				ReservationID: r.ID,
				Message:       fmt.Sprintf("%s (check-in %q, check-out %q)", r.Defect.Reason, r.Defect.RawCheckIn, r.Defect.RawCheckOut),
			})
			continue
		}

		if spec != nil {
			if _, ok := spec.Cabin(r.Resource); !ok {
				report.UnknownCabins = append(report.UnknownCabins, Finding{
					Cabin:         r.Resource,
					ReservationID: r.ID,
					Message:       "cabin is not configured",
				})
			}
		}

		for _, other := range ix.FindConflicts(r.Resource, r.CheckIn, r.CheckOut, r.ID) {
			report.Overlaps = append(report.Overlaps, Finding{
				Cabin:         r.Resource,
				ReservationID: r.ID,
				Message: fmt.Sprintf("%s %s..%s overlaps %s (%s) %s..%s",
					r.GuestName, r.CheckIn, r.CheckOut, other.GuestName, other.ID, other.CheckIn, other.CheckOut),
			})
		}
		ix.Add(r)
	}

	if len(report.Malformed)+len(report.Overlaps)+len(report.UnknownCabins)+len(report.DuplicateIDs) > 0 {
		report.Status = "error"
	}
	return report
}

// CheckFeeds returns the configured cabins that have no feed URL. Their
// synced reservations are never refreshed or removed.
func CheckFeeds(spec *reconcile.Spec) []string {
	missing := []string{}
	for _, c := range spec.Cabins {
		if c.FeedURL == "" {
			missing = append(missing, c.Name)
		}
	}
	return missing
}
