package core

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// TimingKind discriminates the two reminder timing variants.
type TimingKind int

const (
	// TimingMinutesBefore fires a fixed number of minutes before the
	// event start; timezone-independent.
	TimingMinutesBefore TimingKind = iota
	// TimingDayBefore fires at a fixed wall-clock time on the calendar
	// day before the event, evaluated in the configured timezone.
	TimingDayBefore
)

// Timing is the tagged union of the two variants. Only the fields of the
// active variant are meaningful.
type Timing struct {
	Kind          TimingKind
	MinutesBefore int // TimingMinutesBefore: non-negative offset
	Hour          int // TimingDayBefore: 0..23
	Minute        int // TimingDayBefore: 0..59
}

// Validate checks the active variant's field ranges.
func (t Timing) Validate() error {
	switch t.Kind {
	case TimingMinutesBefore:
		if t.MinutesBefore < 0 {
			return fmt.Errorf("minutesBefore must be non-negative, got %d", t.MinutesBefore)
		}
	case TimingDayBefore:
		if t.Hour < 0 || t.Hour > 23 {
			return fmt.Errorf("hour must be in [0,23], got %d", t.Hour)
		}
		if t.Minute < 0 || t.Minute > 59 {
			return fmt.Errorf("minute must be in [0,59], got %d", t.Minute)
		}
	default:
		return fmt.Errorf("unknown timing kind %d", t.Kind)
	}
	return nil
}

// ReminderSetting is one stored notification preference of a user.
type ReminderSetting struct {
	ID               string
	NotificationType string
	Target           string // optional delivery override; empty means the recipient's email
	Timing           Timing
}

// reminderSettingWire is the JSON shape shared with stored settings: the
// timing variant is encoded by field presence, not by an explicit tag.
type reminderSettingWire struct {
	ID               json.RawMessage `json:"id,omitempty"`
	MinutesBefore    *int            `json:"minutesBefore,omitempty"`
	Hour             *int            `json:"hour,omitempty"`
	Minute           *int            `json:"minute,omitempty"`
	NotificationType string          `json:"notificationType"`
	Target           string          `json:"target,omitempty"`
}

func (s ReminderSetting) MarshalJSON() ([]byte, error) {
	w := reminderSettingWire{
		NotificationType: s.NotificationType,
		Target:           s.Target,
	}
	if s.ID != "" {
		w.ID = json.RawMessage(strconv.Quote(s.ID))
	}
	switch s.Timing.Kind {
	case TimingMinutesBefore:
		m := s.Timing.MinutesBefore
		w.MinutesBefore = &m
	case TimingDayBefore:
		h, min := s.Timing.Hour, s.Timing.Minute
		w.Hour = &h
		w.Minute = &min
	}
	return json.Marshal(w)
}

func (s *ReminderSetting) UnmarshalJSON(data []byte) error {
	var w reminderSettingWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.NotificationType == "" {
		return fmt.Errorf("reminder setting is missing notificationType")
	}

	out := ReminderSetting{
		NotificationType: w.NotificationType,
		Target:           w.Target,
	}
	if len(w.ID) > 0 {
		// IDs arrive as either strings or numbers; normalize to string.
		var str string
		if err := json.Unmarshal(w.ID, &str); err != nil {
			str = string(w.ID)
		}
		out.ID = str
	}

	switch {
	case w.MinutesBefore != nil && w.Hour == nil && w.Minute == nil:
		out.Timing = Timing{Kind: TimingMinutesBefore, MinutesBefore: *w.MinutesBefore}
	case w.MinutesBefore == nil && w.Hour != nil && w.Minute != nil:
		out.Timing = Timing{Kind: TimingDayBefore, Hour: *w.Hour, Minute: *w.Minute}
	default:
		return fmt.Errorf("reminder setting must have either minutesBefore or hour+minute")
	}
	if err := out.Timing.Validate(); err != nil {
		return err
	}

	*s = out
	return nil
}

// SettingsSource stores per-user reminder settings, keyed by email.
// The update path serves the settings-management surface only; the dispatch
// flow is read-only.
type SettingsSource interface {
	GetReminderSettings(ctx context.Context, userKey string) ([]ReminderSetting, error)
	UpdateReminderSettings(ctx context.Context, userKey string, settings []ReminderSetting) error
}

// Target is a fully resolved reminder: who to notify, through which
// channel, when, and with what message. Targets are derived fresh on every
// pass and never persisted.
type Target struct {
	SendAt           time.Time
	NotificationType string
	Recipient        string
	Message          string
}
