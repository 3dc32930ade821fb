package engine

import (
	"fmt"
	"time"

	"synkcal/internal/core"
)

// ResolveTime computes the instant at which a reminder is due for an event
// starting at eventStart.
//
// The day-before variant works in civil time: the event's calendar date as
// observed in loc, minus one day, at the setting's wall-clock time. Going
// through time.Date keeps the result aligned with the zone's offset on the
// reminder day itself, so a DST change between reminder and event does not
// shift the local firing time.
func ResolveTime(eventStart time.Time, timing core.Timing, loc *time.Location) (time.Time, error) {
	switch timing.Kind {
	case core.TimingMinutesBefore:
		return eventStart.Add(-time.Duration(timing.MinutesBefore) * time.Minute), nil
	case core.TimingDayBefore:
		local := eventStart.In(loc)
		year, month, day := local.Date()
		return time.Date(year, month, day-1, timing.Hour, timing.Minute, 0, 0, loc), nil
	default:
		return time.Time{}, fmt.Errorf("unknown timing kind %d", timing.Kind)
	}
}
