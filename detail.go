package main

import (
	"fmt"
	"sort"
	"time"
)

// Detail builds the week-by-week drill-down for one defect code. It returns
// ErrNotFound when the defect has no qualifying records in the window.
// Incomplete periods for the whole window are attached regardless of the
// defect's status, so callers can always show where the data is shaky.
func (c *Classifier) Detail(defectCode string, start, end time.Time) (DefectDetail, error) {
	start, end = dateOnly(start), dateOnly(end)
	if start.After(end) {
		return DefectDetail{}, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	records, err := c.src.QualifyingRecords(defectCode, start, end)
	if err != nil {
		return DefectDetail{}, err
	}

	incomplete, err := c.incompletePeriods(start, end)
	if err != nil {
		return DefectDetail{}, err
	}

	res, ok, err := classifyOne(defectCode, records, incomplete)
	if err != nil {
		return DefectDetail{}, err
	}
	if !ok {
		return DefectDetail{}, fmt.Errorf("%w: %s", ErrNotFound, defectCode)
	}

	detail := DefectDetail{
		DefectCode:        defectCode,
		Status:            res.Status,
		Records:           records,
		IncompletePeriods: incomplete,
		Weeks:             buildWeekSummaries(records),
	}
	return detail, nil
}

// buildWeekSummaries groups qualifying records by ISO week. Records arrive
// sorted by date, so each week's record list stays in date order.
func buildWeekSummaries(records []InspectionRecord) []WeekSummary {
	byWeek := make(map[WeekKey]*WeekSummary)
	lotsSeen := make(map[WeekKey]map[string]bool)

	var keys []WeekKey
	for _, rec := range records {
		d := dateOnly(rec.InspectionDate)
		key := WeekOf(d)
		week, found := byWeek[key]
		if !found {
			week = &WeekSummary{
				Key:       key,
				WeekStart: WeekStart(d),
				WeekEnd:   WeekEnd(d),
			}
			byWeek[key] = week
			lotsSeen[key] = make(map[string]bool)
			keys = append(keys, key)
		}
		if !lotsSeen[key][rec.LotID] {
			lotsSeen[key][rec.LotID] = true
			week.Lots = append(week.Lots, rec.LotID)
		}
		week.TotalQty += rec.QtyDefects
		week.Records = append(week.Records, rec)
	}

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Year != keys[j].Year {
			return keys[i].Year < keys[j].Year
		}
		return keys[i].Week < keys[j].Week
	})

	summaries := make([]WeekSummary, 0, len(keys))
	for _, key := range keys {
		week := byWeek[key]
		sort.Strings(week.Lots)
		summaries = append(summaries, *week)
	}
	return summaries
}
