package google

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"synkcal/internal/core"
)

// Client wraps an authenticated Google Calendar API service. One client is
// shared across all calendar ids of the same account.
type Client struct {
	service  *calendar.Service
	logger   *slog.Logger
	timezone *time.Location
}

// NewClient creates a Google Calendar client for the given account. The
// account's token must have been stored beforehand via the auth flow.
func NewClient(ctx context.Context, logger *slog.Logger, clientID, clientSecret, accountName string, timezone *time.Location) (*Client, error) {
	config, err := getOAuthConfig(clientID, clientSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to get OAuth config: %w", err)
	}

	token, err := tokenFromFile(tokenFileName(accountName))
	if err != nil {
		return nil, fmt.Errorf("could not load token for account %s: %w. Please run the 'auth' command first", accountName, err)
	}

	service, err := calendar.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar service: %w", err)
	}

	return &Client{service: service, logger: logger, timezone: timezone}, nil
}

// EventSource adapts one calendar of a Client to core.CalendarSource.
type EventSource struct {
	client     *Client
	calendarID string
}

func (c *Client) Source(calendarID string) *EventSource {
	return &EventSource{client: c, calendarID: calendarID}
}

// GetEvents fetches single-instance events overlapping [minDate, maxDate).
// Recurring events are expanded server-side.
func (s *EventSource) GetEvents(ctx context.Context, minDate, maxDate time.Time) ([]core.Event, error) {
	s.client.logger.Debug("Fetching events", "calendarID", s.calendarID, "min", minDate, "max", maxDate)

	result, err := s.client.service.Events.List(s.calendarID).
		Context(ctx).
		ShowDeleted(false).
		SingleEvents(true).
		TimeMin(minDate.Format(time.RFC3339)).
		TimeMax(maxDate.Format(time.RFC3339)).
		OrderBy("startTime").
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve events for calendar %s: %w", s.calendarID, err)
	}

	events := make([]core.Event, 0, len(result.Items))
	for _, item := range result.Items {
		event, err := s.toCoreEvent(item)
		if err != nil {
			s.client.logger.Error("Skipping unparseable event", "calendarID", s.calendarID, "eventID", item.Id, "error", err)
			continue
		}
		events = append(events, event)
	}

	s.client.logger.Info("Fetched events from Google Calendar", "count", len(events), "calendarID", s.calendarID)
	return events, nil
}

func (s *EventSource) toCoreEvent(item *calendar.Event) (core.Event, error) {
	start, allDay, err := s.parseEventTime(item.Start)
	if err != nil {
		return core.Event{}, fmt.Errorf("bad start time: %w", err)
	}
	end, _, err := s.parseEventTime(item.End)
	if err != nil {
		return core.Event{}, fmt.Errorf("bad end time: %w", err)
	}

	event := core.Event{
		ID:          item.Id,
		Start:       start,
		End:         end,
		AllDay:      allDay,
		Title:       item.Summary,
		Location:    item.Location,
		Description: item.Description,
		CalendarID:  s.calendarID,
	}
	if item.HangoutLink != "" {
		event.Conference = &core.Conference{Name: "Google Meet", URL: item.HangoutLink}
	}

	for _, a := range item.Attendees {
		event.Attendees = append(event.Attendees, core.Attendee{
			Email:          a.Email,
			DisplayName:    a.DisplayName,
			ResponseStatus: core.ResponseStatus(a.ResponseStatus),
			Organizer:      a.Organizer,
		})
	}
	return event, nil
}

// parseEventTime handles both timed events (dateTime) and all-day events
// (date only). All-day starts become midnight in the configured timezone so
// day-before reminders resolve consistently.
func (s *EventSource) parseEventTime(t *calendar.EventDateTime) (time.Time, bool, error) {
	if t == nil {
		return time.Time{}, false, fmt.Errorf("missing event time")
	}
	if t.DateTime != "" {
		parsed, err := time.Parse(time.RFC3339, t.DateTime)
		return parsed, false, err
	}
	if t.Date != "" {
		parsed, err := time.ParseInLocation("2006-01-02", t.Date, s.client.timezone)
		return parsed, true, err
	}
	return time.Time{}, false, fmt.Errorf("event time has neither dateTime nor date")
}
