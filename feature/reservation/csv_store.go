package reservation

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cabin-manager/core/reconcile"
	"cabin-manager/core/utils"
	"cabin-manager/feature/reservation/models"

	"github.com/google/uuid"
)

// csvColumns is the written header. The first nine are the legacy spreadsheet
// columns; files that only carry those still load.
var csvColumns = []string{
	"guest_names", "check_in_dates", "check_out_dates", "cellphone_numbers",
	"total_nights", "reservation_total", "reservation_payed", "notes", "cabin",
	"id", "source", "currency", "nightly_rate", "alt_total", "alt_paid", "alt_currency",
}

// CSVStore keeps the reservation set in a spreadsheet-compatible CSV file.
// It implements reconcile.Store.
type CSVStore struct {
	path string
}

// NewCSVStore returns a store over the file at path.
func NewCSVStore(path string) *CSVStore {
	return &CSVStore{path: path}
}

// Path returns the backing file.
func (s *CSVStore) Path() string { return s.path }

// Load reads the file. A missing file is an empty set.
func (s *CSVStore) Load(ctx context.Context) (*reconcile.ReservationSet, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return reconcile.NewReservationSet(), nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadCSV(f)
}

// ReadCSV parses reservations from r, matching columns by header name.
// Rows without an id get one derived from their content.
func ReadCSV(r io.Reader) (*reconcile.ReservationSet, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return reconcile.NewReservationSet(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := index["guest_names"]; !ok {
		return nil, fmt.Errorf("%w: csv has no guest_names column", reconcile.ErrMalformedRecord)
	}

	set := reconcile.NewReservationSet()
	ids := make(map[string]struct{})
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		cell := func(name string) string {
			if i, ok := index[name]; ok && i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}
		if strings.Join(row, "") == "" {
			continue
		}

		rec := models.ReservationRecord{
			ID:          cell("id"),
			GuestName:   cell("guest_names"),
			CheckIn:     cell("check_in_dates"),
			CheckOut:    cell("check_out_dates"),
			Phone:       cleanPhone(cell("cellphone_numbers")),
			Nights:      utils.ToInt(cell("total_nights")),
			Total:       utils.ToFloat(cell("reservation_total")),
			Paid:        utils.ToFloat(cell("reservation_payed")),
			Notes:       cleanNaN(cell("notes")),
			Cabin:       cell("cabin"),
			Source:      cell("source"),
			Currency:    cell("currency"),
			NightlyRate: utils.ToFloat(cell("nightly_rate")),
			AltTotal:    utils.ToFloat(cell("alt_total")),
			AltPaid:     utils.ToFloat(cell("alt_paid")),
			AltCurrency: cell("alt_currency"),
		}
		if rec.ID == "" {
			rec.ID = contentID(rec, ids)
		}
		ids[rec.ID] = struct{}{}
		set.Reservations = append(set.Reservations, rec.ToReservation())
	}
	return set, nil
}

// Save writes the set to a temporary file in the same directory and renames
// it over the original, so readers never see a partial file.
func (s *CSVStore) Save(ctx context.Context, set *reconcile.ReservationSet) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".reservations-*.csv")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, set); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// WriteCSV writes set to w with the full header.
func WriteCSV(w io.Writer, set *reconcile.ReservationSet) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvColumns); err != nil {
		return err
	}
	for i, res := range set.Reservations {
		rec := models.FromReservation(res, i)
		row := []string{
			rec.GuestName, rec.CheckIn, rec.CheckOut, rec.Phone,
			strconv.Itoa(rec.Nights), formatAmount(rec.Total), formatAmount(rec.Paid), rec.Notes, rec.Cabin,
			rec.ID, rec.Source, rec.Currency, formatAmount(rec.NightlyRate),
			formatAmount(rec.AltTotal), formatAmount(rec.AltPaid), rec.AltCurrency,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatAmount(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// cleanNaN drops the "nan" placeholders spreadsheets export for empty cells.
func cleanNaN(s string) string {
	if strings.EqualFold(s, "nan") {
		return ""
	}
	return s
}

// cleanPhone undoes spreadsheet float formatting of phone numbers ("3512345678.0").
func cleanPhone(s string) string {
	s = cleanNaN(s)
	return strings.TrimSuffix(s, ".0")
}

func contentID(rec models.ReservationRecord, taken map[string]struct{}) string {
	name := strings.Join([]string{rec.GuestName, rec.CheckIn, rec.CheckOut, rec.Cabin}, "|")
	id := uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
	for n := 2; ; n++ {
		if _, dup := taken[id]; !dup {
			return id
		}
		id = uuid.NewSHA1(uuid.NameSpaceOID, []byte(name+"|"+strconv.Itoa(n))).String()
	}
}
