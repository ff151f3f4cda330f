package main

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	ErrInvalidRange  = errors.New("start date is after end date")
	ErrNotFound      = errors.New("no qualifying inspection records for defect")
	ErrInvalidRecord = errors.New("invalid inspection record")
)

// RecordSource is the single capability interface the classifier consumes.
// Implementations must be safe for concurrent reads.
type RecordSource interface {
	// DistinctDefectCodes lists defect codes with any record in range.
	DistinctDefectCodes(from, to time.Time) ([]string, error)
	// QualifyingRecords returns qty > 0 records for one defect, date ascending.
	QualifyingRecords(defectCode string, from, to time.Time) ([]InspectionRecord, error)
	// IncompleteRecords returns records flagged incomplete, date ascending.
	IncompleteRecords(from, to time.Time) ([]InspectionRecord, error)
}

// Classifier evaluates defect recurrence over a date window. It holds no
// state between calls; every invocation is a fresh computation over what the
// record source returns.
type Classifier struct {
	src RecordSource
}

func NewClassifier(src RecordSource) *Classifier {
	return &Classifier{src: src}
}

// Classify evaluates every defect with a qualifying record in the inclusive
// [start, end] window and returns one row per defect in the default order.
//
// Classification contract: a defect is Recurring when its qualifying records
// span more than one ISO week in the window, regardless of lot count.
// Records with qty_defects = 0 never count toward weeks, lots, totals, or
// date bounds. A defect whose observed [firstSeen, lastSeen] range overlaps
// any incomplete period in the window is Insufficient data, overriding the
// week rule.
func (c *Classifier) Classify(start, end time.Time) ([]ClassificationResult, error) {
	start, end = dateOnly(start), dateOnly(end)
	if start.After(end) {
		return nil, fmt.Errorf("%w: %s > %s", ErrInvalidRange,
			start.Format("2006-01-02"), end.Format("2006-01-02"))
	}

	incomplete, err := c.incompletePeriods(start, end)
	if err != nil {
		return nil, err
	}

	codes, err := c.src.DistinctDefectCodes(start, end)
	if err != nil {
		return nil, err
	}

	var results []ClassificationResult
	for _, code := range codes {
		records, err := c.src.QualifyingRecords(code, start, end)
		if err != nil {
			return nil, err
		}
		res, ok, err := classifyOne(code, records, incomplete)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		results = append(results, res)
	}

	sortResults(results)
	return results, nil
}

// classifyOne aggregates one defect's records and applies the status rules.
// ok is false when no qualifying records remain, in which case the defect
// produces no row.
func classifyOne(code string, records []InspectionRecord, incomplete []IncompletePeriod) (ClassificationResult, bool, error) {
	res := ClassificationResult{DefectCode: code}
	weeks := make(map[WeekKey]struct{})
	lots := make(map[string]struct{})

	for _, rec := range records {
		if rec.QtyDefects < 0 {
			return res, false, fmt.Errorf("%w: %s has negative qty_defects %d",
				ErrInvalidRecord, rec.InspectionID, rec.QtyDefects)
		}
		if rec.QtyDefects == 0 {
			// Evidence of a clean inspection, never an occurrence.
			continue
		}
		d := dateOnly(rec.InspectionDate)
		weeks[WeekOf(d)] = struct{}{}
		lots[rec.LotID] = struct{}{}
		if res.FirstSeen.IsZero() || d.Before(res.FirstSeen) {
			res.FirstSeen = d
		}
		if d.After(res.LastSeen) {
			res.LastSeen = d
		}
		res.TotalQty += rec.QtyDefects
	}

	if len(weeks) == 0 {
		return res, false, nil
	}

	res.NumWeeks = len(weeks)
	res.NumLots = len(lots)
	if res.NumWeeks > 1 {
		res.Status = StatusRecurring
	} else {
		res.Status = StatusNotRecurring
	}

	for _, p := range incomplete {
		if overlaps(p, res.FirstSeen, res.LastSeen) {
			res.Status = StatusInsufficientData
			res.IncompletePeriods = incomplete
			break
		}
	}
	return res, true, nil
}

func overlaps(p IncompletePeriod, first, last time.Time) bool {
	return !p.Start.After(last) && !p.End.Before(first)
}

func (c *Classifier) incompletePeriods(start, end time.Time) ([]IncompletePeriod, error) {
	flagged, err := c.src.IncompleteRecords(start, end)
	if err != nil {
		return nil, err
	}
	return MergeIncompletePeriods(flagged), nil
}

// MergeIncompletePeriods collapses incomplete-flagged records, already
// ordered by date, into disjoint inclusive periods. A record on the same day
// as, or the day after, the running period's end extends it; anything
// further starts a new period. Absence of records is never itself a gap;
// only explicitly flagged rows contribute.
func MergeIncompletePeriods(flagged []InspectionRecord) []IncompletePeriod {
	if len(flagged) == 0 {
		return nil
	}
	first := dateOnly(flagged[0].InspectionDate)
	current := IncompletePeriod{Start: first, End: first}

	var periods []IncompletePeriod
	for _, rec := range flagged[1:] {
		d := dateOnly(rec.InspectionDate)
		if !d.After(current.End.AddDate(0, 0, 1)) {
			if d.After(current.End) {
				current.End = d
			}
			continue
		}
		periods = append(periods, current)
		current = IncompletePeriod{Start: d, End: d}
	}
	return append(periods, current)
}

// sortResults applies the default order: status priority, then weeks
// descending, lots descending, defect code ascending. The final key makes
// the order total, so equal-looking rows can only tie on identical codes.
func sortResults(results []ClassificationResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if pa, pb := statusPriority(a.Status), statusPriority(b.Status); pa != pb {
			return pa < pb
		}
		if a.NumWeeks != b.NumWeeks {
			return a.NumWeeks > b.NumWeeks
		}
		if a.NumLots != b.NumLots {
			return a.NumLots > b.NumLots
		}
		return a.DefectCode < b.DefectCode
	})
}
