package main

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

func StartSlackBot(cfg Config, classifier *Classifier, store *Store, api *slack.Client) error {
	client := socketmode.New(api)

	go func() {
		for evt := range client.Events {
			switch evt.Type {
			case socketmode.EventTypeSlashCommand:
				client.Ack(*evt.Request)
				cmd, ok := evt.Data.(slack.SlashCommand)
				if !ok {
					continue
				}
				log.Printf("Slash command received: %s from user=%s channel=%s", cmd.Command, cmd.UserID, cmd.ChannelID)
				go handleSlashCommand(api, classifier, store, cfg, cmd)
			}
		}
	}()

	log.Println("Slack bot connected via Socket Mode")
	return client.Run()
}

func handleSlashCommand(api *slack.Client, classifier *Classifier, store *Store, cfg Config, cmd slack.SlashCommand) {
	switch cmd.Command {
	case "/defects":
		handleDefects(api, classifier, cfg, cmd)
	case "/defect":
		handleDefectDetail(api, classifier, cfg, cmd)
	case "/defect-report":
		handleDefectReport(api, classifier, cfg, cmd)
	case "/import-inspections":
		handleImportInspections(api, store, cfg, cmd)
	case "/defects-help":
		handleHelp(api, cmd)
	}
}

func handleDefects(api *slack.Client, classifier *Classifier, cfg Config, cmd slack.SlashCommand) {
	from, to, err := parseDateRange(cmd.Text, cfg, time.Now().In(cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Usage: /defects [YYYY-MM-DD YYYY-MM-DD] — %v", err))
		return
	}

	results, err := classifier.Classify(from, to)
	if errors.Is(err, ErrInvalidRange) {
		postEphemeral(api, cmd, "Start date must not be after end date — adjust your range.")
		return
	}
	if err != nil {
		log.Printf("classify error: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Error classifying defects: %v", err))
		return
	}

	text := buildSlackSummary(results, from, to)
	if _, _, err := api.PostMessage(cmd.ChannelID, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("post /defects result error: %v", err)
	}
}

func handleDefectDetail(api *slack.Client, classifier *Classifier, cfg Config, cmd slack.SlashCommand) {
	fields := strings.Fields(cmd.Text)
	if len(fields) == 0 {
		postEphemeral(api, cmd, "Usage: /defect CODE [YYYY-MM-DD YYYY-MM-DD]")
		return
	}
	code := fields[0]
	from, to, err := parseDateRange(strings.Join(fields[1:], " "), cfg, time.Now().In(cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Usage: /defect CODE [YYYY-MM-DD YYYY-MM-DD] — %v", err))
		return
	}

	detail, err := classifier.Detail(code, from, to)
	if errors.Is(err, ErrNotFound) {
		postEphemeral(api, cmd, fmt.Sprintf("No data for defect %s in %s to %s.",
			code, from.Format(dateFormat), to.Format(dateFormat)))
		return
	}
	if errors.Is(err, ErrInvalidRange) {
		postEphemeral(api, cmd, "Start date must not be after end date — adjust your range.")
		return
	}
	if err != nil {
		log.Printf("detail error: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Error building defect detail: %v", err))
		return
	}

	text := BuildDetailText(detail, from, to)
	if _, _, err := api.PostMessage(cmd.ChannelID, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("post /defect result error: %v", err)
	}
}

func handleDefectReport(api *slack.Client, classifier *Classifier, cfg Config, cmd slack.SlashCommand) {
	from, to, err := parseDateRange(cmd.Text, cfg, time.Now().In(cfg.Location))
	if err != nil {
		postEphemeral(api, cmd, fmt.Sprintf("Usage: /defect-report [YYYY-MM-DD YYYY-MM-DD] — %v", err))
		return
	}

	postEphemeral(api, cmd, "Generating defect report...")
	content, path, err := GenerateDefectReport(cfg, classifier, from, to)
	if errors.Is(err, ErrInvalidRange) {
		postEphemeral(api, cmd, "Start date must not be after end date — adjust your range.")
		return
	}
	if err != nil {
		log.Printf("report generation error: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Error generating report: %v", err))
		return
	}
	log.Printf("report written to %s", path)

	channel := cmd.ChannelID
	if cfg.ReportChannelID != "" {
		channel = cfg.ReportChannelID
	}
	if _, _, err := api.PostMessage(channel, slack.MsgOptionText(content, false)); err != nil {
		log.Printf("post report error: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Report written to %s but posting failed: %v", path, err))
	}
}

func handleImportInspections(api *slack.Client, store *Store, cfg Config, cmd slack.SlashCommand) {
	path := strings.TrimSpace(cmd.Text)
	if path == "" {
		postEphemeral(api, cmd, "Usage: /import-inspections /path/to/export.csv")
		return
	}

	result, err := ImportInspectionCSV(store, path)
	if err != nil {
		log.Printf("import error: %v", err)
		postEphemeral(api, cmd, fmt.Sprintf("Import failed: %v", err))
		return
	}
	postEphemeral(api, cmd, FormatImportSummary(result))
}

func handleHelp(api *slack.Client, cmd slack.SlashCommand) {
	help := `*Defect Recurrence Bot*
- /defects [from to] — classification summary for a date range (defaults to the configured report window)
- /defect CODE [from to] — week-by-week drill-down for one defect
- /defect-report [from to] — generate the Markdown report, write it to disk and post it
- /import-inspections PATH — load an MES inspection CSV export
Dates are YYYY-MM-DD, ranges inclusive.`
	postEphemeral(api, cmd, help)
}

func buildSlackSummary(results []ClassificationResult, from, to time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*Defect classification %s to %s*\n", from.Format(dateFormat), to.Format(dateFormat))
	if len(results) == 0 {
		b.WriteString("No defect occurrences recorded in this range.")
		return b.String()
	}
	for _, r := range results {
		fmt.Fprintf(&b, "• %s — %s (weeks %d, lots %d, qty %d, %s → %s)\n",
			r.DefectCode, r.Status, r.NumWeeks, r.NumLots, r.TotalQty,
			r.FirstSeen.Format(dateFormat), r.LastSeen.Format(dateFormat))
	}
	return b.String()
}

func postEphemeral(api *slack.Client, cmd slack.SlashCommand, text string) {
	if _, err := api.PostEphemeral(cmd.ChannelID, cmd.UserID, slack.MsgOptionText(text, false)); err != nil {
		log.Printf("Error posting ephemeral message: %v", err)
	}
}
