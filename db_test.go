package main

import (
	"path/filepath"
	"reflect"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "defectwatch-test.db")
	db, err := InitDB(dbPath)
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func seedTestRecords(t *testing.T, store *Store) {
	t.Helper()
	records := []InspectionRecord{
		{InspectionID: "INS-001", LotID: "LOT-A", DefectCode: "DEF-001", InspectionDate: day(2026, 1, 5), QtyDefects: 1, IsDataComplete: true},
		{InspectionID: "INS-002", LotID: "LOT-B", DefectCode: "DEF-001", InspectionDate: day(2026, 1, 12), QtyDefects: 3, IsDataComplete: true},
		{InspectionID: "INS-003", LotID: "LOT-A", DefectCode: "DEF-002", InspectionDate: day(2026, 1, 7), QtyDefects: 0, IsDataComplete: true},
		{InspectionID: "INS-004", LotID: "LOT-C", DefectCode: "DEF-003", InspectionDate: day(2026, 1, 9), QtyDefects: 2, IsDataComplete: false},
		{InspectionID: "INS-005", LotID: "LOT-A", DefectCode: "DEF-001", InspectionDate: day(2026, 2, 2), QtyDefects: 5, IsDataComplete: true},
	}
	inserted, err := store.InsertInspectionRecords(records)
	if err != nil {
		t.Fatalf("InsertInspectionRecords failed: %v", err)
	}
	if inserted != len(records) {
		t.Fatalf("expected %d inserted, got %d", len(records), inserted)
	}
}

func TestDistinctDefectCodesIncludesZeroQtyDefects(t *testing.T) {
	store := newTestStore(t)
	seedTestRecords(t, store)

	codes, err := store.DistinctDefectCodes(day(2026, 1, 1), day(2026, 1, 31))
	if err != nil {
		t.Fatalf("DistinctDefectCodes failed: %v", err)
	}
	// DEF-002 has only a clean inspection but still has *a* record in range.
	want := []string{"DEF-001", "DEF-002", "DEF-003"}
	if !reflect.DeepEqual(codes, want) {
		t.Fatalf("unexpected codes: got %v want %v", codes, want)
	}
}

func TestQualifyingRecordsFilterAndOrder(t *testing.T) {
	store := newTestStore(t)
	seedTestRecords(t, store)

	records, err := store.QualifyingRecords("DEF-001", day(2026, 1, 1), day(2026, 1, 31))
	if err != nil {
		t.Fatalf("QualifyingRecords failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records in January, got %d", len(records))
	}
	if records[0].InspectionID != "INS-001" || records[1].InspectionID != "INS-002" {
		t.Fatalf("records not in date order: %s, %s", records[0].InspectionID, records[1].InspectionID)
	}
	if records[0].LotID != "LOT-A" || records[0].DefectCode != "DEF-001" {
		t.Fatalf("join columns wrong: %+v", records[0])
	}
	if !sameDate(records[0].InspectionDate, day(2026, 1, 5)) {
		t.Fatalf("unexpected scanned date: %s", records[0].InspectionDate)
	}

	zeroQty, err := store.QualifyingRecords("DEF-002", day(2026, 1, 1), day(2026, 1, 31))
	if err != nil {
		t.Fatalf("QualifyingRecords failed: %v", err)
	}
	if len(zeroQty) != 0 {
		t.Fatalf("zero-qty records must not qualify, got %d", len(zeroQty))
	}
}

func TestQualifyingRecordsRangeIsInclusive(t *testing.T) {
	store := newTestStore(t)
	seedTestRecords(t, store)

	records, err := store.QualifyingRecords("DEF-001", day(2026, 1, 5), day(2026, 1, 12))
	if err != nil {
		t.Fatalf("QualifyingRecords failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected records on both range endpoints, got %d", len(records))
	}
}

func TestIncompleteRecordsQuery(t *testing.T) {
	store := newTestStore(t)
	seedTestRecords(t, store)

	flagged, err := store.IncompleteRecords(day(2026, 1, 1), day(2026, 1, 31))
	if err != nil {
		t.Fatalf("IncompleteRecords failed: %v", err)
	}
	if len(flagged) != 1 || flagged[0].InspectionID != "INS-004" {
		t.Fatalf("unexpected flagged records: %+v", flagged)
	}
	if flagged[0].IsDataComplete {
		t.Fatal("flagged record scanned as complete")
	}
}

func TestInspectionIDExists(t *testing.T) {
	store := newTestStore(t)
	seedTestRecords(t, store)

	exists, err := store.InspectionIDExists("INS-001")
	if err != nil {
		t.Fatalf("InspectionIDExists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected INS-001 to exist")
	}
	exists, err = store.InspectionIDExists("INS-999")
	if err != nil {
		t.Fatalf("InspectionIDExists failed: %v", err)
	}
	if exists {
		t.Fatal("expected INS-999 to be absent")
	}
}

func TestInsertRejectsDuplicateInspectionID(t *testing.T) {
	store := newTestStore(t)
	seedTestRecords(t, store)

	_, err := store.InsertInspectionRecords([]InspectionRecord{
		{InspectionID: "INS-001", LotID: "LOT-A", DefectCode: "DEF-001", InspectionDate: day(2026, 3, 1), QtyDefects: 1, IsDataComplete: true},
	})
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestInsertRejectsNegativeQty(t *testing.T) {
	store := newTestStore(t)

	_, err := store.InsertInspectionRecords([]InspectionRecord{
		{InspectionID: "INS-NEG", LotID: "LOT-A", DefectCode: "DEF-001", InspectionDate: day(2026, 1, 5), QtyDefects: -1, IsDataComplete: true},
	})
	if err == nil {
		t.Fatal("expected CHECK constraint violation for negative qty_defects")
	}
}

func TestClassifyAgainstSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	seedTestRecords(t, store)
	classifier := NewClassifier(store)

	results, err := classifier.Classify(day(2026, 1, 1), day(2026, 2, 28))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	// DEF-002 has only a clean inspection and must produce no row.
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d: %+v", len(results), results)
	}

	byCode := make(map[string]ClassificationResult)
	for _, r := range results {
		byCode[r.DefectCode] = r
	}
	def1 := byCode["DEF-001"]
	if def1.Status != StatusInsufficientData {
		// DEF-003's flagged gap on Jan 9 falls inside DEF-001's range.
		t.Fatalf("expected DEF-001 Insufficient data, got %s", def1.Status)
	}
	if def1.NumWeeks != 3 || def1.NumLots != 2 || def1.TotalQty != 9 {
		t.Fatalf("unexpected DEF-001 aggregates: %+v", def1)
	}
	def3 := byCode["DEF-003"]
	if def3.Status != StatusInsufficientData {
		t.Fatalf("expected DEF-003 Insufficient data, got %s", def3.Status)
	}
}
