package main

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func detailOf(t *testing.T, records []InspectionRecord, code string, from, to time.Time) DefectDetail {
	t.Helper()
	c := NewClassifier(&fakeSource{records: records})
	detail, err := c.Detail(code, from, to)
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	return detail
}

func TestDetailWeeklyBreakdown(t *testing.T) {
	records := []InspectionRecord{
		rec("D1", "L2", day(2026, 1, 7), 2),
		rec("D1", "L1", day(2026, 1, 5), 1),
		rec("D1", "L1", day(2026, 1, 14), 4),
		rec("D1", "L1", day(2026, 1, 7), 0), // clean inspection, excluded upstream
		rec("D2", "L9", day(2026, 1, 7), 9), // other defect
	}
	detail := detailOf(t, records, "D1", day(2026, 1, 1), day(2026, 1, 18))

	if detail.Status != StatusRecurring {
		t.Fatalf("expected Recurring, got %s", detail.Status)
	}
	if len(detail.Weeks) != 2 {
		t.Fatalf("expected 2 weeks, got %d", len(detail.Weeks))
	}

	week2 := detail.Weeks[0]
	if week2.Key != (WeekKey{Year: 2026, Week: 2}) {
		t.Fatalf("unexpected first week key: %+v", week2.Key)
	}
	if !sameDate(week2.WeekStart, day(2026, 1, 5)) || !sameDate(week2.WeekEnd, day(2026, 1, 11)) {
		t.Fatalf("unexpected week 2 bounds: %s / %s", week2.WeekStart, week2.WeekEnd)
	}
	if !reflect.DeepEqual(week2.Lots, []string{"L1", "L2"}) {
		t.Fatalf("expected sorted distinct lots, got %v", week2.Lots)
	}
	if week2.TotalQty != 3 {
		t.Fatalf("expected week 2 qty 3, got %d", week2.TotalQty)
	}
	if len(week2.Records) != 2 {
		t.Fatalf("expected 2 contributing records in week 2, got %d", len(week2.Records))
	}

	week3 := detail.Weeks[1]
	if week3.Key.Week != 3 || week3.TotalQty != 4 {
		t.Fatalf("unexpected week 3 summary: %+v", week3)
	}

	if len(detail.Records) != 3 {
		t.Fatalf("expected 3 qualifying records overall, got %d", len(detail.Records))
	}
}

func TestDetailWeeksAscendAcrossYearBoundary(t *testing.T) {
	records := []InspectionRecord{
		rec("D1", "L1", day(2026, 1, 8), 1),   // 2026 week 2
		rec("D1", "L1", day(2025, 12, 22), 1), // 2025 week 52
		rec("D1", "L1", day(2025, 12, 31), 1), // 2026 week 1
	}
	detail := detailOf(t, records, "D1", day(2025, 12, 1), day(2026, 1, 31))

	keys := make([]WeekKey, 0, len(detail.Weeks))
	for _, w := range detail.Weeks {
		keys = append(keys, w.Key)
	}
	want := []WeekKey{{2025, 52}, {2026, 1}, {2026, 2}}
	if !reflect.DeepEqual(keys, want) {
		t.Fatalf("weeks not ascending across year boundary: %v", keys)
	}
}

func TestDetailNotFound(t *testing.T) {
	c := NewClassifier(&fakeSource{records: []InspectionRecord{
		rec("D1", "L1", day(2026, 1, 5), 1),
	}})

	_, err := c.Detail("NONEXISTENT", day(2026, 1, 1), day(2026, 1, 31))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	// Present defect outside the window is also not found.
	_, err = c.Detail("D1", day(2026, 2, 1), day(2026, 2, 28))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound outside window, got %v", err)
	}

	// Only zero-qty records in range: no qualifying data.
	c = NewClassifier(&fakeSource{records: []InspectionRecord{
		rec("D1", "L1", day(2026, 1, 5), 0),
	}})
	_, err = c.Detail("D1", day(2026, 1, 1), day(2026, 1, 31))
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for zero-qty only, got %v", err)
	}
}

func TestDetailInvalidRange(t *testing.T) {
	c := NewClassifier(&fakeSource{})
	_, err := c.Detail("D1", day(2026, 1, 10), day(2026, 1, 1))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

// Incomplete periods ride along even when the defect's own status is clean.
func TestDetailAttachesIncompletePeriodsUnconditionally(t *testing.T) {
	records := []InspectionRecord{
		rec("D1", "L1", day(2026, 1, 5), 1),
		rec("D1", "L2", day(2026, 1, 12), 1),
		// Gap far from D1's observed range.
		incomplete(rec("D2", "L3", day(2026, 1, 16), 0)),
	}
	detail := detailOf(t, records, "D1", day(2026, 1, 1), day(2026, 1, 18))

	if detail.Status != StatusRecurring {
		t.Fatalf("expected Recurring, got %s", detail.Status)
	}
	want := []IncompletePeriod{{Start: day(2026, 1, 16), End: day(2026, 1, 16)}}
	if !reflect.DeepEqual(detail.IncompletePeriods, want) {
		t.Fatalf("expected window periods attached unconditionally, got %+v", detail.IncompletePeriods)
	}
}

func TestDetailStatusMatchesClassify(t *testing.T) {
	records := []InspectionRecord{
		rec("D1", "L1", day(2026, 1, 5), 1),
		rec("D1", "L2", day(2026, 1, 12), 1),
		incomplete(rec("D1", "L1", day(2026, 1, 6), 0)),
	}
	c := NewClassifier(&fakeSource{records: records})

	results, err := c.Classify(day(2026, 1, 1), day(2026, 1, 18))
	if err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	detail, err := c.Detail("D1", day(2026, 1, 1), day(2026, 1, 18))
	if err != nil {
		t.Fatalf("Detail failed: %v", err)
	}
	if results[0].Status != detail.Status {
		t.Fatalf("status mismatch: classify=%s detail=%s", results[0].Status, detail.Status)
	}
	if detail.Status != StatusInsufficientData {
		t.Fatalf("expected Insufficient data, got %s", detail.Status)
	}
}
