// Package models defines the persisted form of reservations.
//
// ReservationRecord maps to the reservations table. The position column keeps
// the set order across saves, since the engine admits by stored order.
package models
