package core

import (
	"context"
	"time"
)

// ResponseStatus is an attendee's reply to an event invitation.
type ResponseStatus string

const (
	ResponseAccepted    ResponseStatus = "accepted"
	ResponseDeclined    ResponseStatus = "declined"
	ResponseNeedsAction ResponseStatus = "needsAction"
	ResponseTentative   ResponseStatus = "tentative"
)

// Attendee is a single invitee on an event. Email may be empty when the
// provider could not resolve an address; such attendees are passed through
// untouched and never matched against reminder settings.
type Attendee struct {
	Email          string
	DisplayName    string
	ResponseStatus ResponseStatus
	Organizer      bool
}

// Conference is an attached meeting link (Meet, Zoom, ...).
type Conference struct {
	Name string
	URL  string
}

// Event is the provider-independent calendar event.
// Start and End are absolute instants; End is exclusive. For all-day events
// the source adapter sets Start to midnight of the event's date in the
// configured timezone and AllDay to true.
type Event struct {
	ID          string
	Start       time.Time
	End         time.Time
	AllDay      bool
	Title       string
	Location    string
	Description string
	Conference  *Conference
	Attendees   []Attendee
	CalendarID  string
}

// CalendarSource fetches events overlapping [minDate, maxDate).
type CalendarSource interface {
	GetEvents(ctx context.Context, minDate, maxDate time.Time) ([]Event, error)
}
