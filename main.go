package main

import (
	"log"
	"os"

	"github.com/slack-go/slack"
)

func main() {
	cfg := LoadConfig()
	appliedHTTPTimeout := ConfigureExternalHTTPClient(cfg.ExternalHTTPTimeoutSeconds)
	log.Printf("Config loaded. Plant=%s Timezone=%s ReportWeeks=%d LLMSummary=%v ExternalHTTPTimeout=%s",
		cfg.PlantName, cfg.Timezone, cfg.ReportWeeks, cfg.LLMSummaryEnabled, appliedHTTPTimeout)

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	log.Printf("Database initialized at %s", cfg.DBPath)
	defer db.Close()

	store := NewStore(db)
	classifier := NewClassifier(store)

	os.MkdirAll(cfg.ReportOutputDir, 0755)

	if cfg.SeedCSVPath != "" {
		result, err := ImportInspectionCSV(store, cfg.SeedCSVPath)
		if err != nil {
			log.Fatalf("Seed import from %s failed: %v", cfg.SeedCSVPath, err)
		}
		log.Printf("Seed import: %s", FormatImportSummary(result))
	}

	api := slack.New(
		cfg.SlackBotToken,
		slack.OptionAppLevelToken(cfg.SlackAppToken),
	)

	StartReportScheduler(cfg, classifier, api)

	log.Println("Starting Defect Recurrence Bot...")
	if err := StartSlackBot(cfg, classifier, store, api); err != nil {
		log.Fatalf("Slack bot error: %v", err)
	}
}
