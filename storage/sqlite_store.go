package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"terminy/appointment"
)

type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.ensureSchema(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) ensureSchema() error {
	// One row per queue listing; re-importing the same sheet is a no-op
	// because of the UNIQUE constraint.
	const schema = `
CREATE TABLE IF NOT EXISTS appointments (
	id TEXT PRIMARY KEY,
	source_id TEXT NOT NULL DEFAULT '',
	region TEXT NOT NULL,
	facility_name TEXT NOT NULL,
	service_name TEXT NOT NULL,
	location TEXT NOT NULL,
	address TEXT NOT NULL DEFAULT '',
	phone TEXT NOT NULL DEFAULT '',
	place_name TEXT NOT NULL DEFAULT '',
	first_available_date TEXT NOT NULL DEFAULT '',
	waiting_time TEXT NOT NULL DEFAULT '',
	waiting_count INTEGER CHECK(waiting_count IS NULL OR waiting_count >= 0),
	average_wait_days INTEGER,
	medical_category TEXT NOT NULL DEFAULT '',
	case_type INTEGER NOT NULL DEFAULT 0,
	latitude REAL,
	longitude REAL,
	data_prepared_at TEXT NOT NULL DEFAULT '',
	last_updated TEXT NOT NULL,
	UNIQUE(region, facility_name, service_name, location, place_name, first_available_date)
);
CREATE INDEX IF NOT EXISTS idx_appointments_region ON appointments(region);
CREATE TABLE IF NOT EXISTS geocode_cache (
	query TEXT PRIMARY KEY,
	latitude REAL NOT NULL,
	longitude REAL NOT NULL,
	created_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// InsertAppointments stores the appointments and returns how many rows were
// new. Duplicates of already stored listings are ignored.
func (s *SQLiteStore) InsertAppointments(list []appointment.Appointment) (int, error) {
	if len(list) == 0 {
		return 0, nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}

	const insertStmt = `
INSERT OR IGNORE INTO appointments (
	id,
	source_id,
	region,
	facility_name,
	service_name,
	location,
	address,
	phone,
	place_name,
	first_available_date,
	waiting_time,
	waiting_count,
	average_wait_days,
	medical_category,
	case_type,
	latitude,
	longitude,
	data_prepared_at,
	last_updated
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`

	stmt, err := tx.Prepare(insertStmt)
	if err != nil {
		_ = tx.Rollback()
		return 0, fmt.Errorf("prepare insert statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, a := range list {
		if !a.Valid() {
			continue
		}
		id := a.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		lastUpdated := a.LastUpdated
		if lastUpdated.IsZero() {
			lastUpdated = time.Now()
		}

		res, err := stmt.Exec(
			id.String(),
			a.SourceID,
			a.Region,
			a.FacilityName,
			a.ServiceName,
			a.Location,
			a.Address,
			a.Phone,
			a.PlaceName,
			a.FirstAvailableDate,
			a.WaitingTime,
			nullInt(a.WaitingCount),
			nullInt(a.AverageWaitDays),
			a.MedicalCategory,
			int(a.CaseType),
			nullFloat(a.Latitude),
			nullFloat(a.Longitude),
			a.DataPreparedAt,
			lastUpdated.Format(time.RFC3339),
		)
		if err != nil {
			_ = tx.Rollback()
			return inserted, fmt.Errorf("insert appointment: %w", err)
		}

		rows, err := res.RowsAffected()
		if err == nil && rows > 0 {
			inserted++
		}
	}

	if err := tx.Commit(); err != nil {
		return inserted, fmt.Errorf("commit transaction: %w", err)
	}

	return inserted, nil
}

// ListAppointments returns the stored appointments of a region, or of every
// region when region is empty.
func (s *SQLiteStore) ListAppointments(region string) ([]appointment.Appointment, error) {
	query := `
SELECT
	id,
	source_id,
	region,
	facility_name,
	service_name,
	location,
	address,
	phone,
	place_name,
	first_available_date,
	waiting_time,
	waiting_count,
	average_wait_days,
	medical_category,
	case_type,
	latitude,
	longitude,
	data_prepared_at,
	last_updated
FROM appointments`
	args := make([]any, 0, 1)
	if region = strings.TrimSpace(region); region != "" {
		query += "\nWHERE region = ?"
		args = append(args, region)
	}
	query += "\nORDER BY region, service_name, facility_name, rowid;"

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query appointments: %w", err)
	}
	defer rows.Close()

	list := make([]appointment.Appointment, 0, 256)
	for rows.Next() {
		var (
			a              appointment.Appointment
			idRaw          string
			caseType       int
			waitingCount   sql.NullInt64
			averageWait    sql.NullInt64
			latitude       sql.NullFloat64
			longitude      sql.NullFloat64
			lastUpdatedRaw string
		)

		if err := rows.Scan(
			&idRaw,
			&a.SourceID,
			&a.Region,
			&a.FacilityName,
			&a.ServiceName,
			&a.Location,
			&a.Address,
			&a.Phone,
			&a.PlaceName,
			&a.FirstAvailableDate,
			&a.WaitingTime,
			&waitingCount,
			&averageWait,
			&a.MedicalCategory,
			&caseType,
			&latitude,
			&longitude,
			&a.DataPreparedAt,
			&lastUpdatedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}

		a.ID, err = uuid.Parse(idRaw)
		if err != nil {
			return nil, fmt.Errorf("parse appointment id %q: %w", idRaw, err)
		}
		a.LastUpdated, err = time.Parse(time.RFC3339, lastUpdatedRaw)
		if err != nil {
			return nil, fmt.Errorf("parse last updated %q: %w", lastUpdatedRaw, err)
		}
		a.CaseType = appointment.CaseType(caseType)
		a.WaitingCount = intFromNull(waitingCount)
		a.AverageWaitDays = intFromNull(averageWait)
		a.Latitude = floatFromNull(latitude)
		a.Longitude = floatFromNull(longitude)

		list = append(list, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}

	return list, nil
}

// DeleteRegion removes every stored appointment of a region.
func (s *SQLiteStore) DeleteRegion(region string) (int64, error) {
	res, err := s.db.Exec(`DELETE FROM appointments WHERE region = ?;`, strings.TrimSpace(region))
	if err != nil {
		return 0, fmt.Errorf("delete appointments of %s: %w", region, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read deleted row count: %w", err)
	}
	return rows, nil
}

func (s *SQLiteStore) DeleteAllAppointments() (int64, error) {
	res, err := s.db.Exec(`DELETE FROM appointments;`)
	if err != nil {
		return 0, fmt.Errorf("delete appointments: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("read deleted row count: %w", err)
	}
	return rows, nil
}

// GeocodeLookup returns a previously resolved coordinate for a query string.
func (s *SQLiteStore) GeocodeLookup(query string) (float64, float64, bool, error) {
	var latitude, longitude float64
	err := s.db.QueryRow(
		`SELECT latitude, longitude FROM geocode_cache WHERE query = ?;`,
		normalizeGeocodeQuery(query),
	).Scan(&latitude, &longitude)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, 0, false, nil
		}
		return 0, 0, false, fmt.Errorf("query geocode cache: %w", err)
	}
	return latitude, longitude, true, nil
}

func (s *SQLiteStore) GeocodeStore(query string, latitude, longitude float64) error {
	_, err := s.db.Exec(
		`INSERT OR REPLACE INTO geocode_cache (query, latitude, longitude) VALUES (?, ?, ?);`,
		normalizeGeocodeQuery(query),
		latitude,
		longitude,
	)
	if err != nil {
		return fmt.Errorf("store geocode result: %w", err)
	}
	return nil
}

func normalizeGeocodeQuery(query string) string {
	return strings.ToLower(strings.Join(strings.Fields(query), " "))
}

func nullInt(value *int) sql.NullInt64 {
	if value == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*value), Valid: true}
}

func nullFloat(value *float64) sql.NullFloat64 {
	if value == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *value, Valid: true}
}

func intFromNull(value sql.NullInt64) *int {
	if !value.Valid {
		return nil
	}
	return appointment.IntPtr(int(value.Int64))
}

func floatFromNull(value sql.NullFloat64) *float64 {
	if !value.Valid {
		return nil
	}
	return appointment.FloatPtr(value.Float64)
}
