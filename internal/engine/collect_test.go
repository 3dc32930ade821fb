package engine_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"synkcal/internal/core"
	"synkcal/internal/engine"
)

func newCollector(t *testing.T, cal core.CalendarSource, groups core.GroupSource, settings core.SettingsSource) *engine.Collector {
	t.Helper()
	formatter, err := engine.NewFormatter("", "", time.UTC)
	if err != nil {
		t.Fatalf("new formatter: %v", err)
	}
	agg := engine.NewAggregator(testLogger(), []core.CalendarSource{cal}, groups)
	return engine.NewCollector(testLogger(), agg, settings, formatter, time.UTC)
}

func TestCollectProducesTargets(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 10, 0, 0, time.UTC)
	cal := &fakeCalendar{events: []core.Event{timedEvent("1", "Event 1", start, core.Attendee{Email: "user1@example.com"})}}
	settings := &fakeSettings{byUser: map[string][]core.ReminderSetting{
		"user1@example.com": {
			{NotificationType: "console", Timing: core.Timing{Kind: core.TimingMinutesBefore, MinutesBefore: 10}},
			{NotificationType: "webhook", Timing: core.Timing{Kind: core.TimingDayBefore, Hour: 19, Minute: 0}},
		},
	}}

	collector := newCollector(t, cal, nil, settings)
	targets, err := collector.Collect(context.Background(), start.Add(-time.Hour), start.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}

	if len(targets) != 2 {
		t.Fatalf("got %d targets, want 2", len(targets))
	}

	relative := targets[0]
	if want := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC); !relative.SendAt.Equal(want) {
		t.Errorf("relative SendAt = %v, want %v", relative.SendAt, want)
	}
	if relative.NotificationType != "console" || relative.Recipient != "user1@example.com" {
		t.Errorf("unexpected relative target %+v", relative)
	}
	if !strings.Contains(relative.Message, "Event 1") || !strings.Contains(relative.Message, "10 minutes") {
		t.Errorf("relative message %q missing event title or offset", relative.Message)
	}

	dayBefore := targets[1]
	if want := time.Date(2023, 5, 31, 19, 0, 0, 0, time.UTC); !dayBefore.SendAt.Equal(want) {
		t.Errorf("day-before SendAt = %v, want %v", dayBefore.SendAt, want)
	}
	if !strings.Contains(dayBefore.Message, "tomorrow at 19:00") {
		t.Errorf("day-before message %q missing wall-clock time", dayBefore.Message)
	}
}

func TestCollectFetchesSettingsOncePerRecipient(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	attendee := core.Attendee{Email: "user1@example.com"}
	cal := &fakeCalendar{events: []core.Event{
		timedEvent("1", "First", start, attendee, core.Attendee{Email: "user2@example.com"}),
		timedEvent("2", "Second", start.Add(time.Hour), attendee),
	}}
	settings := &fakeSettings{byUser: map[string][]core.ReminderSetting{
		"user1@example.com": {{NotificationType: "console", Timing: core.Timing{Kind: core.TimingMinutesBefore, MinutesBefore: 5}}},
	}}

	collector := newCollector(t, cal, nil, settings)
	if _, err := collector.Collect(context.Background(), start, start.Add(2*time.Hour), ""); err != nil {
		t.Fatalf("collect: %v", err)
	}

	for _, email := range []string{"user1@example.com", "user2@example.com"} {
		if calls := settings.calls[email]; calls != 1 {
			t.Errorf("GetReminderSettings(%s) called %d times, want 1", email, calls)
		}
	}
}

func TestCollectSkipsRecipientsWithoutSettings(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{events: []core.Event{timedEvent("1", "Event", start, core.Attendee{Email: "nobody@example.com"})}}
	settings := &fakeSettings{byUser: map[string][]core.ReminderSetting{}}

	collector := newCollector(t, cal, nil, settings)
	targets, err := collector.Collect(context.Background(), start, start.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("no settings is the common case, not an error: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("got %d targets, want 0", len(targets))
	}
}

func TestCollectIgnoresAttendeesWithoutEmail(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{events: []core.Event{timedEvent("1", "Event", start, core.Attendee{DisplayName: "Unresolvable Room"})}}
	settings := &fakeSettings{}

	collector := newCollector(t, cal, nil, settings)
	targets, err := collector.Collect(context.Background(), start, start.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(targets) != 0 {
		t.Errorf("got %d targets, want 0", len(targets))
	}
	if len(settings.calls) != 0 {
		t.Errorf("settings were fetched for an attendee without email: %v", settings.calls)
	}
}

func TestCollectIsolatesBadSettings(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 10, 0, 0, time.UTC)
	cal := &fakeCalendar{events: []core.Event{timedEvent("1", "Event 1", start, core.Attendee{Email: "user1@example.com"})}}
	settings := &fakeSettings{byUser: map[string][]core.ReminderSetting{
		"user1@example.com": {
			{NotificationType: "console", Timing: core.Timing{Kind: core.TimingKind(42)}},
			{NotificationType: "console", Timing: core.Timing{Kind: core.TimingMinutesBefore, MinutesBefore: 10}},
		},
	}}

	collector := newCollector(t, cal, nil, settings)
	targets, err := collector.Collect(context.Background(), start.Add(-time.Hour), start.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("one bad setting must not abort collection: %v", err)
	}
	if len(targets) != 1 {
		t.Fatalf("got %d targets, want 1 (the valid setting)", len(targets))
	}
	if targets[0].NotificationType != "console" || targets[0].Recipient != "user1@example.com" {
		t.Errorf("unexpected surviving target %+v", targets[0])
	}
}

func TestCollectSettingsFetchFailurePropagates(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{events: []core.Event{timedEvent("1", "Event", start, core.Attendee{Email: "user1@example.com"})}}
	settings := &fakeSettings{err: errors.New("settings store down")}

	collector := newCollector(t, cal, nil, settings)
	if _, err := collector.Collect(context.Background(), start, start.Add(time.Hour), ""); err == nil {
		t.Fatal("expected error when the settings source fails")
	}
}

func TestCollectHonorsTargetOverride(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{events: []core.Event{timedEvent("1", "Event", start, core.Attendee{Email: "user1@example.com"})}}
	settings := &fakeSettings{byUser: map[string][]core.ReminderSetting{
		"user1@example.com": {{
			NotificationType: "webhook",
			Target:           "channel-42",
			Timing:           core.Timing{Kind: core.TimingMinutesBefore, MinutesBefore: 10},
		}},
	}}

	collector := newCollector(t, cal, nil, settings)
	targets, err := collector.Collect(context.Background(), start.Add(-time.Hour), start.Add(time.Hour), "")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(targets) != 1 || targets[0].Recipient != "channel-42" {
		t.Fatalf("expected delivery target override, got %+v", targets)
	}
}

func TestCollectRecipientFilterScopesTargets(t *testing.T) {
	start := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	cal := &fakeCalendar{events: []core.Event{timedEvent("1", "Shared", start,
		core.Attendee{Email: "me@example.com"},
		core.Attendee{Email: "other@example.com"},
	)}}
	settings := &fakeSettings{byUser: map[string][]core.ReminderSetting{
		"me@example.com":    {{NotificationType: "console", Timing: core.Timing{Kind: core.TimingMinutesBefore, MinutesBefore: 5}}},
		"other@example.com": {{NotificationType: "console", Timing: core.Timing{Kind: core.TimingMinutesBefore, MinutesBefore: 5}}},
	}}

	collector := newCollector(t, cal, nil, settings)
	targets, err := collector.Collect(context.Background(), start.Add(-time.Hour), start.Add(time.Hour), "me@example.com")
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if len(targets) != 1 || targets[0].Recipient != "me@example.com" {
		t.Fatalf("expected only the filtered recipient's target, got %+v", targets)
	}
	if settings.calls["other@example.com"] != 0 {
		t.Errorf("fetched settings for a recipient outside the filter")
	}
}
