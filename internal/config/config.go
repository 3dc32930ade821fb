package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"synkcal/internal/core"
)

const defaultLookaheadHours = 48

// Config is the effective application configuration, parsed from the
// environment. Invalid timezone, webhook URL, or reminder-settings JSON
// fail loading outright so the process never runs half-configured.
type Config struct {
	// CalendarIDs are the Google calendar ids to poll, from the
	// comma-separated CALENDAR_IDS variable.
	CalendarIDs []string

	// Timezone is the zone in which day-before reminder times are
	// evaluated. Defaults to UTC.
	Timezone     *time.Location
	TimezoneName string

	// ReminderTemplate and DayBeforeTemplate override the rendered
	// message for each timing variant. Empty means the built-in default.
	ReminderTemplate  string
	DayBeforeTemplate string

	// ReminderSettings are global settings applied to every recipient
	// when no per-user settings store is configured (REMINDER_SETTINGS,
	// JSON array).
	ReminderSettings []core.ReminderSetting

	// WebhookURL, when set, enables the "webhook" notification channel.
	WebhookURL string

	// Lookahead is the forward window scanned for candidate reminders.
	Lookahead time.Duration

	// GroupCustomerID enables group expansion via the Cloud Identity API.
	GroupCustomerID string

	// SettingsFile, when set, switches reminder settings to a per-user
	// JSON file store instead of the global REMINDER_SETTINGS.
	SettingsFile string

	GoogleClientID     string
	GoogleClientSecret string
	GoogleAuthSubject  string

	// CalDAV source, optional. CalDAVCalendars lists calendar paths on
	// the server to poll in addition to the Google calendars.
	CalDAVEndpoint  string
	CalDAVUsername  string
	CalDAVPassword  string
	CalDAVCalendars []string
}

// Load parses configuration from the process environment.
func Load() (*Config, error) {
	return parse(os.Getenv)
}

func parse(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		CalendarIDs:        splitList(getenv("CALENDAR_IDS")),
		TimezoneName:       getenv("TIMEZONE"),
		ReminderTemplate:   getenv("REMINDER_TEMPLATE"),
		DayBeforeTemplate:  getenv("REMINDER_DAY_BEFORE_TEMPLATE"),
		WebhookURL:         getenv("WEBHOOK_URL"),
		GroupCustomerID:    getenv("GROUP_CUSTOMER_ID"),
		SettingsFile:       getenv("SETTINGS_FILE"),
		GoogleClientID:     getenv("GOOGLE_CLIENT_ID"),
		GoogleClientSecret: getenv("GOOGLE_CLIENT_SECRET"),
		GoogleAuthSubject:  getenv("GOOGLE_AUTH_SUBJECT"),
		CalDAVEndpoint:     getenv("CALDAV_ENDPOINT"),
		CalDAVUsername:     getenv("CALDAV_USERNAME"),
		CalDAVPassword:     getenv("CALDAV_PASSWORD"),
		CalDAVCalendars:    splitList(getenv("CALDAV_CALENDARS")),
	}

	if cfg.TimezoneName == "" {
		cfg.TimezoneName = "UTC"
	}
	loc, err := time.LoadLocation(cfg.TimezoneName)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.TimezoneName, err)
	}
	cfg.Timezone = loc

	if raw := getenv("REMINDER_SETTINGS"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &cfg.ReminderSettings); err != nil {
			return nil, fmt.Errorf("invalid REMINDER_SETTINGS JSON: %w", err)
		}
	}

	if cfg.WebhookURL != "" {
		u, err := url.Parse(cfg.WebhookURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid WEBHOOK_URL %q", cfg.WebhookURL)
		}
	}

	cfg.Lookahead = defaultLookaheadHours * time.Hour
	if raw := getenv("LOOKAHEAD_HOURS"); raw != "" {
		hours, err := strconv.Atoi(raw)
		if err != nil || hours <= 0 {
			return nil, fmt.Errorf("invalid LOOKAHEAD_HOURS %q", raw)
		}
		cfg.Lookahead = time.Duration(hours) * time.Hour
	}

	return cfg, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
