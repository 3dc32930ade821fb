package caldav

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/google/uuid"

	"synkcal/internal/core"
)

// customTransport adds Basic Auth and a User-Agent to every request.
type customTransport struct {
	Username  string
	Password  string
	Transport http.RoundTripper
}

func (t *customTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(t.Username, t.Password)
	req.Header.Set("User-Agent", "synkcal/1.0")
	return t.Transport.RoundTrip(req)
}

// Client is a read-only CalDAV client used to poll calendars on servers
// that are not reachable through the Google Calendar API.
type Client struct {
	caldavClient *caldav.Client
	logger       *slog.Logger
	timezone     *time.Location
}

func NewClient(logger *slog.Logger, endpoint, username, password string, timezone *time.Location) (*Client, error) {
	transport := &customTransport{
		Username:  username,
		Password:  password,
		Transport: http.DefaultTransport,
	}
	httpClient := &http.Client{Transport: transport}

	caldavClient, err := caldav.NewClient(httpClient, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create caldav client: %w", err)
	}

	return &Client{caldavClient: caldavClient, logger: logger, timezone: timezone}, nil
}

// FindCalendars discovers the calendar collection paths of the
// authenticated principal.
func (c *Client) FindCalendars(ctx context.Context) ([]string, error) {
	principalPath, err := c.caldavClient.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to find principal path: %w", err)
	}

	homeSetPath, err := c.caldavClient.FindCalendarHomeSet(ctx, principalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendar home set: %w", err)
	}

	calendars, err := c.caldavClient.FindCalendars(ctx, homeSetPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find calendars: %w", err)
	}

	paths := make([]string, 0, len(calendars))
	for _, cal := range calendars {
		paths = append(paths, cal.Path)
	}
	return paths, nil
}

// EventSource adapts one calendar collection to core.CalendarSource.
type EventSource struct {
	client       *Client
	calendarPath string
}

func (c *Client) Source(calendarPath string) *EventSource {
	return &EventSource{client: c, calendarPath: calendarPath}
}

// GetEvents runs a calendar-query REPORT for VEVENTs overlapping
// [minDate, maxDate). Recurrence expansion is the server's job through the
// time-range filter.
func (s *EventSource) GetEvents(ctx context.Context, minDate, maxDate time.Time) ([]core.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{{
				Name:  ical.CompEvent,
				Start: minDate,
				End:   maxDate,
			}},
		},
	}

	objects, err := s.client.caldavClient.QueryCalendar(ctx, s.calendarPath, query)
	if err != nil {
		return nil, fmt.Errorf("calendar query failed for %s: %w", s.calendarPath, err)
	}

	var events []core.Event
	for _, object := range objects {
		if object.Data == nil {
			continue
		}
		for _, vevent := range object.Data.Events() {
			event, err := s.toCoreEvent(vevent)
			if err != nil {
				s.client.logger.Error("Skipping unparseable VEVENT", "path", object.Path, "error", err)
				continue
			}
			events = append(events, event)
		}
	}

	s.client.logger.Info("Fetched events from CalDAV calendar", "count", len(events), "path", s.calendarPath)
	return events, nil
}

func (s *EventSource) toCoreEvent(vevent ical.Event) (core.Event, error) {
	start, err := vevent.DateTimeStart(s.client.timezone)
	if err != nil {
		return core.Event{}, fmt.Errorf("bad DTSTART: %w", err)
	}
	end, err := vevent.DateTimeEnd(s.client.timezone)
	if err != nil {
		return core.Event{}, fmt.Errorf("bad DTEND: %w", err)
	}

	event := core.Event{
		ID:         propText(vevent.Props, ical.PropUID),
		Start:      start,
		End:        end,
		AllDay:     isDateOnly(vevent.Props.Get(ical.PropDateTimeStart)),
		Title:      propText(vevent.Props, ical.PropSummary),
		Location:   propText(vevent.Props, ical.PropLocation),
		CalendarID: s.calendarPath,
	}
	if desc := propText(vevent.Props, ical.PropDescription); desc != "" {
		event.Description = desc
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	organizer := mailtoAddress(propText(vevent.Props, ical.PropOrganizer))
	for _, prop := range vevent.Props.Values(ical.PropAttendee) {
		email := mailtoAddress(prop.Value)
		event.Attendees = append(event.Attendees, core.Attendee{
			Email:          email,
			DisplayName:    prop.Params.Get(ical.ParamCommonName),
			ResponseStatus: responseStatus(prop.Params.Get(ical.ParamParticipationStatus)),
			Organizer:      organizer != "" && email == organizer,
		})
	}
	return event, nil
}

func propText(props ical.Props, name string) string {
	prop := props.Get(name)
	if prop == nil {
		return ""
	}
	text, err := prop.Text()
	if err != nil {
		return prop.Value
	}
	return text
}

func isDateOnly(prop *ical.Prop) bool {
	return prop != nil && prop.ValueType() == ical.ValueDate
}

func mailtoAddress(value string) string {
	return strings.TrimPrefix(strings.TrimPrefix(value, "mailto:"), "MAILTO:")
}

func responseStatus(partstat string) core.ResponseStatus {
	switch strings.ToUpper(partstat) {
	case "ACCEPTED":
		return core.ResponseAccepted
	case "DECLINED":
		return core.ResponseDeclined
	case "TENTATIVE":
		return core.ResponseTentative
	case "NEEDS-ACTION":
		return core.ResponseNeedsAction
	default:
		return ""
	}
}
