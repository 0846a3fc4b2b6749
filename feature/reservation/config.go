package reservation

// Config holds configuration for manual reservation operations.
type Config struct {
	// NightlyRate prices a booking when no total is given.
	NightlyRate float64 `mapstructure:"nightly_rate" default:"150"`
	// Currency is stamped on new bookings.
	Currency string `mapstructure:"currency" default:"ARS"`
	// Store selects the backend (db, csv).
	Store string `mapstructure:"store" default:"db"`
	// CSVPath is the legacy spreadsheet file used by the csv store.
	CSVPath string `mapstructure:"csv_path" default:"reservations.csv"`
	// UpcomingLimit is the default size of the upcoming list.
	UpcomingLimit int `mapstructure:"upcoming_limit" default:"3"`
	// BatchSize bounds rows per INSERT when saving.
	BatchSize int `mapstructure:"batch_size" default:"200"`
}

const (
	StoreDB  = "db"
	StoreCSV = "csv"
)
