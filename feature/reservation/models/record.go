package models

import (
	"strings"

	"cabin-manager/core/reconcile"
)

// ReservationRecord is the reservations table row. Dates are stored as text so
// rows with unreadable dates survive a load and save untouched.
type ReservationRecord struct {
	ID          string  `gorm:"column:id;primaryKey;size:64"`
	Position    int     `gorm:"column:position;index"`
	GuestName   string  `gorm:"column:guest_name;size:255"`
	CheckIn     string  `gorm:"column:check_in;size:32"`
	CheckOut    string  `gorm:"column:check_out;size:32"`
	Nights      int     `gorm:"column:nights"`
	Cabin       string  `gorm:"column:cabin;size:64;index"`
	Source      string  `gorm:"column:source;size:32"`
	NightlyRate float64 `gorm:"column:nightly_rate"`
	Total       float64 `gorm:"column:total"`
	Paid        float64 `gorm:"column:paid"`
	Currency    string  `gorm:"column:currency;size:8"`
	AltTotal    float64 `gorm:"column:alt_total"`
	AltPaid     float64 `gorm:"column:alt_paid"`
	AltCurrency string  `gorm:"column:alt_currency;size:8"`
	Phone       string  `gorm:"column:phone;size:64"`
	Notes       string  `gorm:"column:notes;type:text"`
}

// TableName overrides the table name used by ReservationRecord.
func (ReservationRecord) TableName() string {
	return "reservations"
}

// ToReservation converts the row to the domain type. Rows with unreadable
// dates, an inverted interval or a missing cabin or guest get a Defect.
func (r ReservationRecord) ToReservation() reconcile.Reservation {
	res := reconcile.Reservation{
		ID:        r.ID,
		GuestName: strings.TrimSpace(r.GuestName),
		Nights:    r.Nights,
		Resource:  strings.TrimSpace(r.Cabin),
		Source:    reconcile.Source(r.Source),
		Pricing: reconcile.Pricing{
			NightlyRate: r.NightlyRate,
			Total:       r.Total,
			Paid:        r.Paid,
			Currency:    r.Currency,
			AltTotal:    r.AltTotal,
			AltPaid:     r.AltPaid,
			AltCurrency: r.AltCurrency,
		},
		Notes: r.Notes,
		Phone: r.Phone,
	}

	defect := func(reason string) reconcile.Reservation {
		res.CheckIn, res.CheckOut = reconcile.Date{}, reconcile.Date{}
		res.Defect = &reconcile.Defect{Reason: reason, RawCheckIn: r.CheckIn, RawCheckOut: r.CheckOut}
		return res
	}

	in, err := reconcile.ParseDate(r.CheckIn)
	if err != nil {
		return defect("unreadable check-in " + quote(r.CheckIn))
	}
	out, err := reconcile.ParseDate(r.CheckOut)
	if err != nil {
		return defect("unreadable check-out " + quote(r.CheckOut))
	}
	// Same-day rows are legacy manual entries and stay usable. An inverted
	// pair has no extent to compare or publish.
	if out.Before(in) {
		return defect("check-out " + out.String() + " is before check-in " + in.String())
	}
	if res.Resource == "" {
		return defect("missing cabin")
	}
	if res.GuestName == "" {
		return defect("missing guest name")
	}

	res.CheckIn, res.CheckOut = in, out
	if res.Nights <= 0 {
		res.Nights = in.DaysUntil(out)
	}
	return res
}

// FromReservation builds the row for r at position pos. Defective rows keep
// their raw date text.
func FromReservation(r reconcile.Reservation, pos int) ReservationRecord {
	rec := ReservationRecord{
		ID:          r.ID,
		Position:    pos,
		GuestName:   r.GuestName,
		Nights:      r.Nights,
		Cabin:       r.Resource,
		Source:      string(r.Source),
		NightlyRate: r.Pricing.NightlyRate,
		Total:       r.Pricing.Total,
		Paid:        r.Pricing.Paid,
		Currency:    r.Pricing.Currency,
		AltTotal:    r.Pricing.AltTotal,
		AltPaid:     r.Pricing.AltPaid,
		AltCurrency: r.Pricing.AltCurrency,
		Phone:       r.Phone,
		Notes:       r.Notes,
	}
	if r.Defect != nil {
		rec.CheckIn, rec.CheckOut = r.Defect.RawCheckIn, r.Defect.RawCheckOut
	} else {
		rec.CheckIn, rec.CheckOut = r.CheckIn.String(), r.CheckOut.String()
	}
	return rec
}

func quote(s string) string {
	if s == "" {
		return "(empty)"
	}
	return `"` + s + `"`
}
