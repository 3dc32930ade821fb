package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"synkcal/internal/core"
)

// Aggregator fetches events from every configured calendar source over a
// window and expands group attendees into individual recipients. Events are
// not deduplicated across sources: the same meeting on two calendars speaks
// to two audiences and yields reminders for both.
type Aggregator struct {
	logger  *slog.Logger
	sources []core.CalendarSource
	groups  core.GroupSource // nil disables group expansion
}

func NewAggregator(logger *slog.Logger, sources []core.CalendarSource, groups core.GroupSource) *Aggregator {
	return &Aggregator{logger: logger, sources: sources, groups: groups}
}

// GetEvents fetches events overlapping [minDate, maxDate) from all sources
// concurrently and returns them in source-list order, attendees expanded.
// When attendeeEmail is non-empty only events where that address appears
// among the expanded attendees are returned.
func (a *Aggregator) GetEvents(ctx context.Context, minDate, maxDate time.Time, attendeeEmail string) ([]core.Event, error) {
	var expander *groupExpander
	if a.groups != nil {
		expander = newGroupExpander(a.logger, a.groups)
		if err := expander.prime(ctx); err != nil {
			return nil, fmt.Errorf("failed to enumerate groups: %w", err)
		}
	}

	perSource := make([][]core.Event, len(a.sources))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, source := range a.sources {
		eg.Go(func() error {
			events, err := source.GetEvents(egCtx, minDate, maxDate)
			if err != nil {
				return fmt.Errorf("failed to fetch events from source %d: %w", i, err)
			}
			perSource[i] = events
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	var events []core.Event
	for _, sourceEvents := range perSource {
		events = append(events, sourceEvents...)
	}
	a.logger.Debug("Fetched events from all sources", "count", len(events))

	if expander != nil {
		for i := range events {
			events[i].Attendees = a.expandAttendees(ctx, expander, events[i].Attendees)
		}
	}

	if attendeeEmail != "" {
		events = filterByAttendee(events, attendeeEmail)
	}
	return events, nil
}

func (a *Aggregator) expandAttendees(ctx context.Context, expander *groupExpander, attendees []core.Attendee) []core.Attendee {
	var expanded []core.Attendee
	for _, attendee := range attendees {
		if members, ok := expander.expand(ctx, attendee); ok {
			expanded = append(expanded, members...)
		} else {
			expanded = append(expanded, attendee)
		}
	}
	return expanded
}

func filterByAttendee(events []core.Event, email string) []core.Event {
	var filtered []core.Event
	for _, event := range events {
		for _, attendee := range event.Attendees {
			if attendee.Email == email {
				filtered = append(filtered, event)
				break
			}
		}
	}
	return filtered
}
