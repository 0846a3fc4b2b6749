// Package database handles database connections and schema inspection.
//
// It wraps GORM to open MySQL or SQLite connections from the application's
// configuration. SQLite is the default; a single connection is used so an
// in-memory database is shared by every query.
//
// # Schema Inspection
//
// GetTableColumns and HasColumn read the live column set of a table. The
// reservation store uses them to detect legacy schemas before migrating.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    log.Fatal("Database connection failed", err)
//	}
//
//	ok, err := database.HasColumn(db, "reservations", "source")
package database
