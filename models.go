package main

import "time"

type DefectStatus string

const (
	StatusRecurring        DefectStatus = "Recurring"
	StatusNotRecurring     DefectStatus = "Not recurring"
	StatusInsufficientData DefectStatus = "Insufficient data"
)

// statusPriority drives the default sort: Recurring rows first, then
// Insufficient data, then Not recurring.
func statusPriority(s DefectStatus) int {
	switch s {
	case StatusRecurring:
		return 0
	case StatusInsufficientData:
		return 1
	default:
		return 2
	}
}

type InspectionRecord struct {
	ID             int64
	InspectionID   string // business key from the MES, unique
	LotID          string
	DefectCode     string
	InspectionDate time.Time // date only, midnight in the store's location
	QtyDefects     int       // >= 0; 0 means inspected and found clean
	IsDataComplete bool
	CreatedAt      time.Time
}

// WeekKey identifies an ISO 8601 week. Cross-year weeks carry the ISO year,
// not the calendar year, so Dec 29 2025 and Jan 1 2026 share a key.
type WeekKey struct {
	Year int
	Week int
}

// IncompletePeriod is an inclusive date range over which recorded data
// cannot be trusted. Start <= End always holds; a single flagged day is a
// zero-length period.
type IncompletePeriod struct {
	Start time.Time
	End   time.Time
}

type ClassificationResult struct {
	DefectCode        string
	Status            DefectStatus
	NumWeeks          int // distinct ISO weeks with qualifying records
	NumLots           int // distinct lots among qualifying records
	FirstSeen         time.Time
	LastSeen          time.Time
	TotalQty          int
	IncompletePeriods []IncompletePeriod
}

type WeekSummary struct {
	Key       WeekKey
	WeekStart time.Time
	WeekEnd   time.Time
	Lots      []string // distinct, sorted
	TotalQty  int
	Records   []InspectionRecord
}

type DefectDetail struct {
	DefectCode        string
	Status            DefectStatus
	Weeks             []WeekSummary // ascending by (ISO year, week)
	Records           []InspectionRecord
	IncompletePeriods []IncompletePeriod
}

func WeekOf(d time.Time) WeekKey {
	year, week := d.ISOWeek()
	return WeekKey{Year: year, Week: week}
}

// WeekStart returns the Monday of d's ISO week at midnight.
func WeekStart(d time.Time) time.Time {
	daysFromMonday := (int(d.Weekday()) + 6) % 7
	return time.Date(d.Year(), d.Month(), d.Day()-daysFromMonday, 0, 0, 0, 0, d.Location())
}

func WeekEnd(d time.Time) time.Time {
	return WeekStart(d).AddDate(0, 0, 6)
}

// ReportRange returns the window for a scheduled report: from the Monday
// `weeks-1` weeks back through today, inclusive.
func ReportRange(now time.Time, weeks int) (time.Time, time.Time) {
	if weeks < 1 {
		weeks = 1
	}
	end := dateOnly(now)
	start := WeekStart(end).AddDate(0, 0, -7*(weeks-1))
	return start, end
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func sameDate(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
