// Package reservation implements manual booking operations and sync passes
// over the reservation store.
//
// # Stores
//
// Two reconcile.Store implementations are provided:
//   - Repository: a GORM table, saved in one delete-and-insert transaction.
//   - CSVStore: the legacy spreadsheet file, written through a temp file and rename.
//
// # Service
//
// Service serializes every writer behind one lock. Book, Modify and Delete
// reject overlapping stays with a ConflictError listing what they collide with.
// Sync fetches the cabin feeds, runs the reconcile engine and commits the plan;
// concurrent Sync calls share one pass. Subscribe registers hooks that run
// after each commit, used to republish the calendar.
//
// # HTTP
//
//	GET    /reservations
//	GET    /reservations/upcoming?limit=3
//	POST   /reservations
//	PATCH  /reservations/:key
//	DELETE /reservations/:key
//	POST   /sync?dry_run=true
package reservation
