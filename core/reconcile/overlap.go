package reconcile

import "cabin-manager/core/normalize"

// OverlapIndex answers conflict queries against reservations grouped by
// folded cabin name. Rows keep their set order inside each group.
// Malformed rows are never indexed.
type OverlapIndex struct {
	byResource map[string][]Reservation
}

// NewOverlapIndex indexes every well-formed reservation in rs.
func NewOverlapIndex(rs []Reservation) *OverlapIndex {
	ix := &OverlapIndex{byResource: make(map[string][]Reservation)}
	for _, r := range rs {
		ix.Add(r)
	}
	return ix
}

// Add indexes r after the rows already present for its cabin.
func (ix *OverlapIndex) Add(r Reservation) {
	if r.Malformed() {
		return
	}
	key := normalize.Fold(r.Resource)
	ix.byResource[key] = append(ix.byResource[key], r)
}

// FindConflict returns the first reservation of resource that [start, end)
// may not coexist with, or nil.
func (ix *OverlapIndex) FindConflict(resource string, start, end Date) *Reservation {
	for _, r := range ix.byResource[normalize.Fold(resource)] {
		if conflicts(r, start, end) {
			found := r
			return &found
		}
	}
	return nil
}

// FindConflicts returns every conflicting reservation of resource, skipping
// the one whose ID equals excludeID.
func (ix *OverlapIndex) FindConflicts(resource string, start, end Date, excludeID string) []Reservation {
	var out []Reservation
	for _, r := range ix.byResource[normalize.Fold(resource)] {
		if excludeID != "" && r.ID == excludeID {
			continue
		}
		if conflicts(r, start, end) {
			out = append(out, r)
		}
	}
	return out
}

// FindExact returns the reservation of resource holding exactly [start, end), or nil.
func (ix *OverlapIndex) FindExact(resource string, start, end Date) *Reservation {
	for _, r := range ix.byResource[normalize.Fold(resource)] {
		if r.CheckIn.Equal(start) && r.CheckOut.Equal(end) {
			found := r
			return &found
		}
	}
	return nil
}

// conflicts reports whether a candidate [start, end) clashes with r.
// An exact duplicate clashes; intervals sharing only a boundary day do not.
func conflicts(r Reservation, start, end Date) bool {
	if start.Equal(r.CheckIn) && end.Equal(r.CheckOut) {
		return true
	}
	if start.Before(r.CheckOut) && r.CheckIn.Before(end) {
		if start.Equal(r.CheckOut) || end.Equal(r.CheckIn) {
			return false
		}
		return true
	}
	return false
}
