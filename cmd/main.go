package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v2"
	"golang.org/x/oauth2"

	"synkcal/internal/caldav"
	"synkcal/internal/config"
	"synkcal/internal/core"
	"synkcal/internal/engine"
	"synkcal/internal/google"
	"synkcal/internal/notify"
	"synkcal/internal/settings"
)

func main() {
	// Load .env file first, but don't error if it doesn't exist.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "synkcal",
		Usage: "Send calendar event reminders based on per-user settings.",
		Commands: []*cli.Command{
			authCommand(),
			remindCommand(),
			targetsCommand(),
			watchCommand(),
			settingsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func authCommand() *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Authenticate with a Google account to get an API token.",
		Action: func(c *cli.Context) error {
			logger := setupLogger("info")
			logger.Info("Starting Google authentication flow.")

			oauthConfig, err := google.GetOAuthConfigForAuthFlow(os.Getenv("GOOGLE_CLIENT_ID"), os.Getenv("GOOGLE_CLIENT_SECRET"))
			if err != nil {
				return fmt.Errorf("failed to get google oauth config: %w", err)
			}

			authURL := oauthConfig.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
			fmt.Printf("Go to the following link in your browser then type the "+
				"authorization code: \n%v\n", authURL)

			fmt.Print("Enter Authorization Code: ")
			reader := bufio.NewReader(os.Stdin)
			authCode, _ := reader.ReadString('\n')
			authCode = strings.TrimSpace(authCode)

			token, err := google.TokenFromWeb(oauthConfig, authCode)
			if err != nil {
				return fmt.Errorf("unable to retrieve token from web: %w", err)
			}

			fmt.Print("Enter a name for this account (e.g., 'personal', 'work'): ")
			accountName, _ := reader.ReadString('\n')
			accountName = strings.TrimSpace(accountName)

			if err := google.SaveToken(accountName, token); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			logger.Info("Successfully authenticated and saved token.", "account", accountName)
			return nil
		},
	}
}

func remindCommand() *cli.Command {
	return &cli.Command{
		Name:  "remind",
		Usage: "Run a single reminder dispatch pass.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "base-time", Usage: "Minute-aligned dispatch instant (RFC 3339). Defaults to the current minute."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			baseTime := time.Now().Truncate(time.Minute)
			if raw := c.String("base-time"); raw != "" {
				baseTime, err = time.Parse(time.RFC3339, raw)
				if err != nil {
					return fmt.Errorf("invalid base-time %q: %w", raw, err)
				}
			}

			dispatcher, err := buildDispatcher(c.Context, logger, cfg)
			if err != nil {
				return err
			}
			return dispatcher.Dispatch(c.Context, baseTime)
		},
	}
}

func targetsCommand() *cli.Command {
	return &cli.Command{
		Name:  "targets",
		Usage: "List upcoming reminder targets for one recipient.",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "email", Required: true, Usage: "Recipient email to scope the view to."},
			&cli.IntFlag{Name: "days", Value: 7, Usage: "How many days ahead to scan."},
		},
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			collector, err := buildCollector(c.Context, logger, cfg)
			if err != nil {
				return err
			}

			now := time.Now()
			targets, err := collector.Collect(c.Context, now, now.AddDate(0, 0, c.Int("days")), c.String("email"))
			if err != nil {
				return err
			}

			for _, target := range targets {
				fmt.Printf("%s  [%s]  %s\n", target.SendAt.In(cfg.Timezone).Format(time.RFC3339), target.NotificationType, target.Message)
			}
			logger.Info("Listed reminder targets", "email", c.String("email"), "count", len(targets))
			return nil
		},
	}
}

func watchCommand() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Dispatch reminders once per minute until interrupted.",
		Action: func(c *cli.Context) error {
			logger := setupLogger(os.Getenv("LOG_LEVEL"))

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			dispatcher, err := buildDispatcher(c.Context, logger, cfg)
			if err != nil {
				return err
			}

			scheduler := cron.New()
			// Dispatch correctness relies on one minute-aligned pass per
			// minute, which is exactly what the cron schedule provides.
			_, err = scheduler.AddFunc("* * * * *", func() {
				baseTime := time.Now().Truncate(time.Minute)
				if err := dispatcher.Dispatch(c.Context, baseTime); err != nil {
					logger.Error("Dispatch pass failed", "baseTime", baseTime, "error", err)
				}
			})
			if err != nil {
				return fmt.Errorf("failed to schedule dispatch: %w", err)
			}

			logger.Info("Starting reminder watcher.")
			scheduler.Start()
			<-c.Context.Done()
			<-scheduler.Stop().Done()
			return nil
		},
	}
}

func settingsCommand() *cli.Command {
	return &cli.Command{
		Name:  "settings",
		Usage: "Show or update a recipient's reminder settings (file store only).",
		Subcommands: []*cli.Command{
			{
				Name:  "show",
				Usage: "Print a recipient's reminder settings as JSON.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					source := settingsSource(cfg)
					userSettings, err := source.GetReminderSettings(c.Context, c.String("email"))
					if err != nil {
						return err
					}
					return printJSON(userSettings)
				},
			},
			{
				Name:  "set",
				Usage: "Replace a recipient's reminder settings with a JSON array.",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "json", Required: true, Usage: `e.g. '[{"minutesBefore":10,"notificationType":"console"}]'`},
				},
				Action: func(c *cli.Context) error {
					cfg, err := config.Load()
					if err != nil {
						return err
					}
					var userSettings []core.ReminderSetting
					if err := json.Unmarshal([]byte(c.String("json")), &userSettings); err != nil {
						return fmt.Errorf("invalid settings JSON: %w", err)
					}
					source := settingsSource(cfg)
					return source.UpdateReminderSettings(c.Context, c.String("email"), userSettings)
				},
			},
		},
	}
}

// buildCollector wires the calendar sources, group source, settings source,
// and message formatter from the configuration.
func buildCollector(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*engine.Collector, error) {
	var sources []core.CalendarSource

	if len(cfg.CalendarIDs) > 0 {
		accounts, err := google.TokenAccounts()
		if err != nil {
			return nil, fmt.Errorf("could not find any google accounts, did you run auth command? %w", err)
		}
		if len(accounts) == 0 {
			return nil, fmt.Errorf("no google accounts found. Run the 'auth' command first")
		}
		for _, account := range accounts {
			client, err := google.NewClient(ctx, logger, cfg.GoogleClientID, cfg.GoogleClientSecret, account, cfg.Timezone)
			if err != nil {
				return nil, fmt.Errorf("failed to create google client for account %s: %w", account, err)
			}
			for _, calendarID := range cfg.CalendarIDs {
				sources = append(sources, client.Source(calendarID))
			}
		}
	}

	if cfg.CalDAVEndpoint != "" {
		client, err := caldav.NewClient(logger, cfg.CalDAVEndpoint, cfg.CalDAVUsername, cfg.CalDAVPassword, cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("failed to create caldav client: %w", err)
		}
		paths := cfg.CalDAVCalendars
		if len(paths) == 0 {
			paths, err = client.FindCalendars(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to discover caldav calendars: %w", err)
			}
		}
		for _, path := range paths {
			sources = append(sources, client.Source(path))
		}
	}

	if len(sources) == 0 {
		return nil, fmt.Errorf("no calendar sources configured; set CALENDAR_IDS or CALDAV_ENDPOINT")
	}

	var groups core.GroupSource
	if cfg.GroupCustomerID != "" {
		groupSource, err := google.NewGroupSource(ctx, logger, cfg.GroupCustomerID)
		if err != nil {
			return nil, err
		}
		groups = groupSource
	}

	formatter, err := engine.NewFormatter(cfg.ReminderTemplate, cfg.DayBeforeTemplate, cfg.Timezone)
	if err != nil {
		return nil, err
	}

	aggregator := engine.NewAggregator(logger, sources, groups)
	return engine.NewCollector(logger, aggregator, settingsSource(cfg), formatter, cfg.Timezone), nil
}

func buildDispatcher(ctx context.Context, logger *slog.Logger, cfg *config.Config) (*engine.Dispatcher, error) {
	collector, err := buildCollector(ctx, logger, cfg)
	if err != nil {
		return nil, err
	}

	channels := map[string]core.Channel{
		"console": notify.NewConsole(),
	}
	if cfg.WebhookURL != "" {
		channels["webhook"] = notify.NewWebhook(logger, cfg.WebhookURL)
	}

	return engine.NewDispatcher(logger, collector, channels, cfg.Lookahead), nil
}

func settingsSource(cfg *config.Config) core.SettingsSource {
	if cfg.SettingsFile != "" {
		return settings.NewFile(cfg.SettingsFile)
	}
	return settings.NewGlobal(cfg.ReminderSettings)
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func setupLogger(level string) *slog.Logger {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
}
