package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ImportResult tracks separate counters for each skip reason.
type ImportResult struct {
	TotalRows      int
	Inserted       int
	AlreadyTracked int
	SkippedInvalid int
	Errors         []string
}

// ImportInspectionCSV loads an MES inspection export into the store.
// Expected header: inspection_id, lot_id, defect_code, inspection_date,
// qty_defects, is_data_complete. Rows missing an inspection_id get one
// minted; rows already in the store or malformed are counted and skipped.
func ImportInspectionCSV(store *Store, path string) (ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ImportResult{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return ImportResult{}, fmt.Errorf("reading header of %s: %w", path, err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"lot_id", "defect_code", "inspection_date", "qty_defects"} {
		if _, ok := col[name]; !ok {
			return ImportResult{}, fmt.Errorf("%s: missing required column '%s'", path, name)
		}
	}

	var result ImportResult
	var newRecords []InspectionRecord

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		result.TotalRows++

		// A malformed line (wrong field count, bad quoting) skips that row
		// only; the reader resumes on the next line. Anything else is an I/O
		// failure and aborts the import.
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			log.Printf("import skipped row %d: %v", result.TotalRows, err)
			result.SkippedInvalid++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", result.TotalRows, err))
			continue
		}
		if err != nil {
			return result, fmt.Errorf("reading %s: %w", path, err)
		}

		rec, rowErr := parseInspectionRow(row, col)
		if rowErr != nil {
			log.Printf("import skipped row %d: %v", result.TotalRows, rowErr)
			result.SkippedInvalid++
			result.Errors = append(result.Errors, fmt.Sprintf("row %d: %v", result.TotalRows, rowErr))
			continue
		}
		if rec.InspectionID == "" {
			rec.InspectionID = uuid.NewString()
		} else {
			exists, dbErr := store.InspectionIDExists(rec.InspectionID)
			if dbErr != nil {
				return result, fmt.Errorf("checking inspection %s: %w", rec.InspectionID, dbErr)
			}
			if exists {
				result.AlreadyTracked++
				continue
			}
		}
		newRecords = append(newRecords, rec)
	}

	if len(newRecords) > 0 {
		inserted, err := store.InsertInspectionRecords(newRecords)
		result.Inserted = inserted
		if err != nil {
			return result, fmt.Errorf("storing inspection records: %w", err)
		}
	}
	return result, nil
}

func parseInspectionRow(row []string, col map[string]int) (InspectionRecord, error) {
	field := func(name string) string {
		idx, ok := col[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	var rec InspectionRecord
	rec.InspectionID = field("inspection_id")
	rec.LotID = field("lot_id")
	rec.DefectCode = field("defect_code")
	if rec.LotID == "" || rec.DefectCode == "" {
		return rec, fmt.Errorf("lot_id and defect_code are required")
	}

	date, err := time.Parse("2006-01-02", field("inspection_date"))
	if err != nil {
		return rec, fmt.Errorf("invalid inspection_date %q", field("inspection_date"))
	}
	rec.InspectionDate = date

	qty, err := strconv.Atoi(field("qty_defects"))
	if err != nil || qty < 0 {
		return rec, fmt.Errorf("invalid qty_defects %q", field("qty_defects"))
	}
	rec.QtyDefects = qty

	rec.IsDataComplete = true
	if raw := field("is_data_complete"); raw != "" {
		complete, err := strconv.ParseBool(raw)
		if err != nil {
			return rec, fmt.Errorf("invalid is_data_complete %q", raw)
		}
		rec.IsDataComplete = complete
	}
	return rec, nil
}

// FormatImportSummary returns a human-readable summary of an ImportResult.
func FormatImportSummary(result ImportResult) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%d new", result.Inserted))
	if result.AlreadyTracked > 0 {
		parts = append(parts, fmt.Sprintf("%d already tracked", result.AlreadyTracked))
	}
	if result.SkippedInvalid > 0 {
		parts = append(parts, fmt.Sprintf("%d invalid", result.SkippedInvalid))
	}
	msg := fmt.Sprintf("Imported %d rows: %s", result.TotalRows, strings.Join(parts, ", "))
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("\nWarnings:\n%s", strings.Join(result.Errors, "\n"))
	}
	return msg
}
