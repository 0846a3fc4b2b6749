package checks

import (
	"errors"
	"regexp"
	"testing"

	"cabin-manager/core/database"
	"cabin-manager/feature/reservation/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return gormDB, mock
}

func setupSQLite(t *testing.T) *gorm.DB {
	db, err := database.Connect(database.Config{Driver: "sqlite", Name: ":memory:"})
	require.NoError(t, err)
	return db
}

func TestCheckSchema_NilDB(t *testing.T) {
	report, err := CheckSchema(nil)
	assert.Error(t, err)
	assert.Nil(t, report)
}

func TestCheckSchema_Migrated(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, db.AutoMigrate(&models.ReservationRecord{}))

	report, err := CheckSchema(db)
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Equal(t, "sqlite", report.Driver)
	assert.Equal(t, "ok", report.Tables["reservations"].Status)
	assert.Empty(t, report.Errors)
}

func TestCheckSchema_LegacyTable(t *testing.T) {
	db := setupSQLite(t)
	require.NoError(t, db.Exec("CREATE TABLE reservations (id TEXT PRIMARY KEY, position INTEGER, guest_name TEXT, check_in TEXT, check_out TEXT, nights INTEGER, cabin TEXT, nightly_rate REAL, total REAL, paid REAL, currency TEXT, alt_total REAL, alt_paid REAL, alt_currency TEXT, phone TEXT, notes VARCHAR(200))").Error)

	report, err := CheckSchema(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)

	tbl := report.Tables["reservations"]
	assert.Equal(t, "error", tbl.Status)
	assert.Equal(t, []string{"source"}, tbl.MissingColumns)
	require.Len(t, tbl.TypeMismatches, 1)
	assert.Contains(t, tbl.TypeMismatches[0], "notes: expected text")
}

func TestCheckSchema_MissingTable(t *testing.T) {
	report, err := CheckSchema(setupSQLite(t))
	require.NoError(t, err)
	assert.False(t, report.Matched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "does not exist")
}

func TestCheckSchema_MySQL(t *testing.T) {
	db, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"Field", "Type", "Null", "Key", "Default", "Extra"})
	for _, col := range []string{"id", "position", "guest_name", "check_in", "check_out", "nights", "cabin", "source",
		"nightly_rate", "total", "paid", "currency", "alt_total", "alt_paid", "alt_currency", "phone"} {
		rows.AddRow(col, "varchar(64)", "YES", "", nil, "")
	}
	rows.AddRow("notes", "TEXT", "YES", "", nil, "")
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `reservations`")).WillReturnRows(rows)

	report, err := CheckSchema(db)
	require.NoError(t, err)
	assert.True(t, report.Matched)
	assert.Equal(t, "mysql", report.Driver)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCheckSchema_MySQLError(t *testing.T) {
	db, mock := setupMockDB(t)
	mock.ExpectQuery(regexp.QuoteMeta("SHOW COLUMNS FROM `reservations`")).WillReturnError(errors.New("access denied"))

	report, err := CheckSchema(db)
	require.NoError(t, err)
	assert.False(t, report.Matched)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "access denied")
}

func TestParseGormTags(t *testing.T) {
	assert.Equal(t, "notes", parseGormColumn("column:notes;type:text"))
	assert.Equal(t, "text", parseGormType("column:notes;type:text"))
	assert.Empty(t, parseGormType("column:id;primaryKey;size:64"))
	assert.Empty(t, parseGormColumn("primaryKey"))
}
