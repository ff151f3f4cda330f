package main

import (
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/slack-go/slack"
)

// StartReportScheduler starts a cron-based scheduler that periodically
// generates the defect report over the configured window and posts it to the
// report channel. The schedule is a standard 5-field cron expression
// (minute hour day-of-month month day-of-week).
// Examples: "0 8 * * 1" (Mondays 8am), "0 8 * * 1-5" (weekdays 8am).
func StartReportScheduler(cfg Config, classifier *Classifier, api *slack.Client) {
	schedule := strings.TrimSpace(cfg.ReportSchedule)
	if schedule == "" {
		log.Println("Scheduled reports disabled (report_schedule not set)")
		return
	}
	if cfg.ReportChannelID == "" {
		log.Println("Scheduled reports disabled: report_channel_id not set")
		return
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	sched, err := parser.Parse(schedule)
	if err != nil {
		log.Printf("Invalid report_schedule '%s': %v (scheduled reports disabled)", schedule, err)
		return
	}

	log.Printf("Defect report scheduled (cron: %s), window %d weeks", schedule, cfg.ReportWeeks)

	go func() {
		for {
			now := time.Now().In(cfg.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next scheduled report at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			time.Sleep(wait)

			now = time.Now().In(cfg.Location)
			from, to := ReportRange(now, cfg.ReportWeeks)
			content, path, err := GenerateDefectReport(cfg, classifier, from, to)
			if err != nil {
				log.Printf("Scheduled report error: %v", err)
				continue
			}
			log.Printf("Scheduled report written to %s", path)

			if _, _, err := api.PostMessage(cfg.ReportChannelID, slack.MsgOptionText(content, false)); err != nil {
				log.Printf("Scheduled report post error: %v", err)
			}
		}
	}()
}
