package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultExternalHTTPTimeout = 90 * time.Second
const defaultExternalHTTPTimeoutSeconds = int(defaultExternalHTTPTimeout / time.Second)

type Config struct {
	SlackBotToken string `yaml:"slack_bot_token"`
	SlackAppToken string `yaml:"slack_app_token"`

	DBPath          string `yaml:"db_path"`
	SeedCSVPath     string `yaml:"seed_csv_path"`
	ReportOutputDir string `yaml:"report_output_dir"`
	ReportChannelID string `yaml:"report_channel_id"`
	ReportSchedule  string `yaml:"report_schedule"` // 5-field cron; empty disables
	ReportWeeks     int    `yaml:"report_weeks"`    // window length for scheduled reports

	LLMSummaryEnabled bool   `yaml:"llm_summary_enabled"`
	LLMProvider       string `yaml:"llm_provider"`
	LLMModel          string `yaml:"llm_model"`
	AnthropicAPIKey   string `yaml:"anthropic_api_key"`
	OpenAIAPIKey      string `yaml:"openai_api_key"`

	ExternalHTTPTimeoutSeconds int    `yaml:"external_http_timeout_seconds"`
	Timezone                   string `yaml:"timezone"`
	PlantName                  string `yaml:"plant_name"`

	Location *time.Location `yaml:"-"` // computed from Timezone, not from YAML
}

func LoadConfig() Config {
	var cfg Config

	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackAppToken, "SLACK_APP_TOKEN")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.SeedCSVPath, "SEED_CSV_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.ReportSchedule, "REPORT_SCHEDULE")
	envOverrideInt(&cfg.ReportWeeks, "REPORT_WEEKS")
	envOverrideBool(&cfg.LLMSummaryEnabled, "LLM_SUMMARY_ENABLED")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverrideInt(&cfg.ExternalHTTPTimeoutSeconds, "EXTERNAL_HTTP_TIMEOUT_SECONDS")
	envOverride(&cfg.Timezone, "TIMEZONE")
	envOverride(&cfg.PlantName, "PLANT_NAME")

	// Defaults
	if cfg.DBPath == "" {
		cfg.DBPath = "./defectwatch.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if cfg.ReportWeeks == 0 {
		cfg.ReportWeeks = 8
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}
	if cfg.ExternalHTTPTimeoutSeconds == 0 {
		cfg.ExternalHTTPTimeoutSeconds = defaultExternalHTTPTimeoutSeconds
	}
	if cfg.PlantName == "" {
		cfg.PlantName = "Main Plant"
	}
	if cfg.Timezone == "" {
		cfg.Timezone = "Local"
	}

	// Validate required fields
	required := map[string]string{
		"slack_bot_token": cfg.SlackBotToken,
		"slack_app_token": cfg.SlackAppToken,
	}
	for name, val := range required {
		if val == "" {
			log.Fatalf("Required config '%s' is not set (via config.yaml or env var)", name)
		}
	}

	if cfg.LLMSummaryEnabled {
		switch cfg.LLMProvider {
		case "anthropic":
			if cfg.AnthropicAPIKey == "" {
				log.Fatalf("anthropic_api_key is required when llm_summary_enabled and llm_provider=anthropic")
			}
		case "openai":
			if cfg.OpenAIAPIKey == "" {
				log.Fatalf("openai_api_key is required when llm_summary_enabled and llm_provider=openai")
			}
		default:
			log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
		}
	}

	if cfg.ReportWeeks < 1 {
		log.Fatalf("invalid report_weeks '%d': must be >= 1", cfg.ReportWeeks)
	}
	if cfg.ExternalHTTPTimeoutSeconds < 1 {
		log.Fatalf("invalid external_http_timeout_seconds '%d': must be >= 1", cfg.ExternalHTTPTimeoutSeconds)
	}

	if strings.EqualFold(cfg.Timezone, "Local") {
		cfg.Location = time.Local
	} else {
		loc, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			log.Fatalf("invalid timezone '%s': %v", cfg.Timezone, err)
		}
		cfg.Location = loc
	}

	return cfg
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

// parseDateRange parses "YYYY-MM-DD YYYY-MM-DD" command arguments. An empty
// input falls back to the configured report window ending today.
func parseDateRange(args string, cfg Config, now time.Time) (time.Time, time.Time, error) {
	fields := strings.Fields(args)
	if len(fields) == 0 {
		from, to := ReportRange(now, cfg.ReportWeeks)
		return from, to, nil
	}
	if len(fields) != 2 {
		return time.Time{}, time.Time{}, fmt.Errorf("expected two dates YYYY-MM-DD YYYY-MM-DD, got %q", args)
	}
	from, err := time.ParseInLocation("2006-01-02", fields[0], cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid start date %q: %v", fields[0], err)
	}
	to, err := time.ParseInLocation("2006-01-02", fields[1], cfg.Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid end date %q: %v", fields[1], err)
	}
	return from, to, nil
}
