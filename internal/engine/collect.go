package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"synkcal/internal/core"
)

// Collector joins aggregated events with each attendee's reminder settings
// and produces the flat list of candidate reminder targets over a window.
type Collector struct {
	logger     *slog.Logger
	aggregator *Aggregator
	settings   core.SettingsSource
	formatter  *Formatter
	timezone   *time.Location
}

func NewCollector(logger *slog.Logger, aggregator *Aggregator, settings core.SettingsSource, formatter *Formatter, timezone *time.Location) *Collector {
	return &Collector{
		logger:     logger,
		aggregator: aggregator,
		settings:   settings,
		formatter:  formatter,
		timezone:   timezone,
	}
}

// Collect returns every candidate target whose event falls in
// [startDate, endDate). recipientFilter, when non-empty, restricts both the
// events and the emitted targets to that single recipient. A bad setting
// for one recipient never aborts collection for the rest; only upstream
// fetch failures propagate.
func (c *Collector) Collect(ctx context.Context, startDate, endDate time.Time, recipientFilter string) ([]core.Target, error) {
	events, err := c.aggregator.GetEvents(ctx, startDate, endDate, recipientFilter)
	if err != nil {
		return nil, err
	}

	cache := newSettingsCache(c.settings)
	var targets []core.Target

	for _, event := range events {
		for _, attendee := range event.Attendees {
			if attendee.Email == "" {
				continue
			}
			if recipientFilter != "" && attendee.Email != recipientFilter {
				continue
			}

			settings, err := cache.get(ctx, attendee.Email)
			if err != nil {
				return nil, err
			}
			if len(settings) == 0 {
				c.logger.Debug("No reminder settings for attendee", "email", attendee.Email)
				continue
			}

			for _, setting := range settings {
				target, err := c.buildTarget(event, attendee, setting)
				if err != nil {
					c.logger.Error("Skipping reminder target", "email", attendee.Email, "event", event.Title, "error", err)
					continue
				}
				targets = append(targets, target)
			}
		}
	}
	return targets, nil
}

func (c *Collector) buildTarget(event core.Event, attendee core.Attendee, setting core.ReminderSetting) (core.Target, error) {
	if err := setting.Timing.Validate(); err != nil {
		return core.Target{}, err
	}
	sendAt, err := ResolveTime(event.Start, setting.Timing, c.timezone)
	if err != nil {
		return core.Target{}, err
	}

	recipient := attendee.Email
	if setting.Target != "" {
		recipient = setting.Target
	}

	return core.Target{
		SendAt:           sendAt,
		NotificationType: setting.NotificationType,
		Recipient:        recipient,
		Message:          c.formatter.Render(event, setting, recipient),
	}, nil
}

// settingsCache memoizes per-recipient settings for one collection pass.
// Lookups for distinct recipients may run concurrently; singleflight keeps
// the fetch at one per recipient even so.
type settingsCache struct {
	source core.SettingsSource

	mu     sync.Mutex
	byUser map[string][]core.ReminderSetting
	flight singleflight.Group
}

func newSettingsCache(source core.SettingsSource) *settingsCache {
	return &settingsCache{source: source, byUser: make(map[string][]core.ReminderSetting)}
}

func (c *settingsCache) get(ctx context.Context, email string) ([]core.ReminderSetting, error) {
	c.mu.Lock()
	cached, ok := c.byUser[email]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	result, err, _ := c.flight.Do(email, func() (any, error) {
		settings, err := c.source.GetReminderSettings(ctx, email)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.byUser[email] = settings
		c.mu.Unlock()
		return settings, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]core.ReminderSetting), nil
}
