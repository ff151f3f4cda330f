package main

import (
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS defects (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		defect_code TEXT NOT NULL UNIQUE,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS lots (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		lot_id     TEXT NOT NULL UNIQUE,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS inspection_records (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		inspection_id    TEXT NOT NULL UNIQUE,
		lot_id           INTEGER NOT NULL REFERENCES lots(id) ON DELETE CASCADE,
		defect_id        INTEGER NOT NULL REFERENCES defects(id) ON DELETE CASCADE,
		inspection_date  DATE NOT NULL,
		qty_defects      INTEGER NOT NULL CHECK (qty_defects >= 0),
		is_data_complete BOOLEAN NOT NULL DEFAULT 1,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_ir_date ON inspection_records(inspection_date);
	CREATE INDEX IF NOT EXISTS idx_ir_defect_date ON inspection_records(defect_id, inspection_date);
	`
	_, err = db.Exec(schema)
	if err != nil {
		return nil, err
	}
	return db, nil
}

// Store is the record source handed to the classifier. It is an explicit
// handle, not a package-level singleton; callers own its lifecycle.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const recordColumns = `r.id, r.inspection_id, l.lot_id, d.defect_code, r.inspection_date, r.qty_defects, r.is_data_complete, r.created_at`

func scanRecords(rows *sql.Rows) ([]InspectionRecord, error) {
	var records []InspectionRecord
	for rows.Next() {
		var rec InspectionRecord
		err := rows.Scan(
			&rec.ID, &rec.InspectionID, &rec.LotID, &rec.DefectCode,
			&rec.InspectionDate, &rec.QtyDefects, &rec.IsDataComplete, &rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		rec.InspectionDate = dateOnly(rec.InspectionDate)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DistinctDefectCodes returns every defect code with any record (qualifying
// or not) in the inclusive date range.
func (s *Store) DistinctDefectCodes(from, to time.Time) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT DISTINCT d.defect_code
		 FROM inspection_records r
		 JOIN defects d ON d.id = r.defect_id
		 WHERE r.inspection_date >= ? AND r.inspection_date < ?
		 ORDER BY d.defect_code`,
		dateOnly(from), dateOnly(to).AddDate(0, 0, 1),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

// QualifyingRecords returns records with qty_defects > 0 for one defect code
// in the inclusive date range, sorted by date ascending.
func (s *Store) QualifyingRecords(defectCode string, from, to time.Time) ([]InspectionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+recordColumns+`
		 FROM inspection_records r
		 JOIN lots l ON l.id = r.lot_id
		 JOIN defects d ON d.id = r.defect_id
		 WHERE d.defect_code = ? AND r.qty_defects > 0
		   AND r.inspection_date >= ? AND r.inspection_date < ?
		 ORDER BY r.inspection_date, l.lot_id, r.id`,
		defectCode, dateOnly(from), dateOnly(to).AddDate(0, 0, 1),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

// IncompleteRecords returns records flagged is_data_complete = false in the
// inclusive date range, sorted by date ascending. The classifier merges them
// into periods itself.
func (s *Store) IncompleteRecords(from, to time.Time) ([]InspectionRecord, error) {
	rows, err := s.db.Query(
		`SELECT `+recordColumns+`
		 FROM inspection_records r
		 JOIN lots l ON l.id = r.lot_id
		 JOIN defects d ON d.id = r.defect_id
		 WHERE r.is_data_complete = 0
		   AND r.inspection_date >= ? AND r.inspection_date < ?
		 ORDER BY r.inspection_date, r.id`,
		dateOnly(from), dateOnly(to).AddDate(0, 0, 1),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanRecords(rows)
}

func (s *Store) InspectionIDExists(inspectionID string) (bool, error) {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM inspection_records WHERE inspection_id = ?`,
		inspectionID,
	).Scan(&count)
	return count > 0, err
}

// InsertInspectionRecords stores a batch in one transaction, creating defect
// and lot master rows as needed. Returns the number inserted.
func (s *Store) InsertInspectionRecords(records []InspectionRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	tx, err := s.db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	ensureDefect, err := tx.Prepare(`INSERT OR IGNORE INTO defects (defect_code) VALUES (?)`)
	if err != nil {
		return 0, err
	}
	defer ensureDefect.Close()

	ensureLot, err := tx.Prepare(`INSERT OR IGNORE INTO lots (lot_id) VALUES (?)`)
	if err != nil {
		return 0, err
	}
	defer ensureLot.Close()

	insert, err := tx.Prepare(
		`INSERT INTO inspection_records (inspection_id, lot_id, defect_id, inspection_date, qty_defects, is_data_complete)
		 VALUES (?,
		         (SELECT id FROM lots WHERE lot_id = ?),
		         (SELECT id FROM defects WHERE defect_code = ?),
		         ?, ?, ?)`,
	)
	if err != nil {
		return 0, err
	}
	defer insert.Close()

	inserted := 0
	for _, rec := range records {
		if _, err := ensureDefect.Exec(rec.DefectCode); err != nil {
			return inserted, err
		}
		if _, err := ensureLot.Exec(rec.LotID); err != nil {
			return inserted, err
		}
		_, err := insert.Exec(
			rec.InspectionID, rec.LotID, rec.DefectCode,
			dateOnly(rec.InspectionDate), rec.QtyDefects, rec.IsDataComplete,
		)
		if err != nil {
			return inserted, err
		}
		inserted++
	}
	return inserted, tx.Commit()
}
