package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const dateFormat = "2006-01-02"

// BuildDefectReport renders the classification results as a Markdown report:
// a status breakdown, the summary table in the default order, and an
// incomplete-period appendix when any defect lacked trustworthy data.
func BuildDefectReport(results []ClassificationResult, from, to time.Time, plantName string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Recurring Defect Report — %s\n", plantName)
	fmt.Fprintf(&b, "%s to %s\n\n", from.Format(dateFormat), to.Format(dateFormat))

	if len(results) == 0 {
		b.WriteString("No defect occurrences recorded in this range.\n")
		return b.String()
	}

	counts := make(map[DefectStatus]int)
	for _, r := range results {
		counts[r.Status]++
	}
	fmt.Fprintf(&b, "**%d defects**: %d recurring, %d insufficient data, %d not recurring\n\n",
		len(results), counts[StatusRecurring], counts[StatusInsufficientData], counts[StatusNotRecurring])

	b.WriteString("| Defect | Status | Weeks | Lots | First seen | Last seen | Total qty |\n")
	b.WriteString("|---|---|---:|---:|---|---|---:|\n")
	for _, r := range results {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %s | %s | %d |\n",
			r.DefectCode, r.Status, r.NumWeeks, r.NumLots,
			r.FirstSeen.Format(dateFormat), r.LastSeen.Format(dateFormat), r.TotalQty)
	}

	if periods := reportIncompletePeriods(results); len(periods) > 0 {
		b.WriteString("\n#### Incomplete data periods\n")
		for _, p := range periods {
			b.WriteString("- " + formatPeriod(p) + "\n")
		}
	}
	return b.String()
}

// reportIncompletePeriods collects the window-wide period list off the first
// result that carries one; every flagged result holds the same full list.
func reportIncompletePeriods(results []ClassificationResult) []IncompletePeriod {
	for _, r := range results {
		if len(r.IncompletePeriods) > 0 {
			return r.IncompletePeriods
		}
	}
	return nil
}

// BuildDetailText renders a drill-down as Slack-friendly Markdown.
func BuildDetailText(detail DefectDetail, from, to time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### %s — %s\n", detail.DefectCode, detail.Status)
	fmt.Fprintf(&b, "%s to %s\n\n", from.Format(dateFormat), to.Format(dateFormat))

	for _, week := range detail.Weeks {
		fmt.Fprintf(&b, "**Week %d (%s – %s)**: qty %d, lots %s\n",
			week.Key.Week,
			week.WeekStart.Format(dateFormat), week.WeekEnd.Format(dateFormat),
			week.TotalQty, strings.Join(week.Lots, ", "))
		for _, rec := range week.Records {
			fmt.Fprintf(&b, "- %s lot %s qty %d\n",
				rec.InspectionDate.Format(dateFormat), rec.LotID, rec.QtyDefects)
		}
	}

	if len(detail.IncompletePeriods) > 0 {
		b.WriteString("\nIncomplete data periods:\n")
		for _, p := range detail.IncompletePeriods {
			b.WriteString("- " + formatPeriod(p) + "\n")
		}
	}
	return b.String()
}

func formatPeriod(p IncompletePeriod) string {
	if sameDate(p.Start, p.End) {
		return p.Start.Format(dateFormat)
	}
	return fmt.Sprintf("%s to %s", p.Start.Format(dateFormat), p.End.Format(dateFormat))
}

func WriteReportFile(content, outputDir string, reportDate time.Time, plantName string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", err
	}
	filename := fmt.Sprintf("%s_%s.md", sanitizeFilename(plantName), reportDate.Format("20060102"))
	path := filepath.Join(outputDir, filename)
	return path, os.WriteFile(path, []byte(content), 0644)
}

// GenerateDefectReport classifies the window, renders the Markdown report
// (with the optional LLM narrative prepended) and writes it to the output
// dir. Returns the report content and the written file path. A failed LLM
// call degrades to a report without the narrative rather than failing the run.
func GenerateDefectReport(cfg Config, classifier *Classifier, from, to time.Time) (string, string, error) {
	results, err := classifier.Classify(from, to)
	if err != nil {
		return "", "", err
	}

	content := BuildDefectReport(results, from, to, cfg.PlantName)
	if cfg.LLMSummaryEnabled && len(results) > 0 {
		summary, usage, err := SummarizeReport(cfg, results, from, to)
		if err != nil {
			log.Printf("llm summary error, report continues without narrative: %v", err)
		} else if summary != "" {
			log.Printf("llm summary tokens=%d", usage.TotalTokens())
			content = fmt.Sprintf("#### Summary\n%s\n\n%s", strings.TrimSpace(summary), content)
		}
	}

	path, err := WriteReportFile(content, cfg.ReportOutputDir, to, cfg.PlantName)
	if err != nil {
		return content, "", err
	}
	return content, path, nil
}

func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", ":", "_", "*", "_", "?", "_", "\"", "_", "<", "_", ">", "_", "|", "_", ".", "_")
	return replacer.Replace(s)
}
