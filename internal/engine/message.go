package engine

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"synkcal/internal/core"
)

// Default message shapes, one per timing variant.
const (
	DefaultTemplate          = `Reminder: "{{title}}" starts in {{minutesBefore}} minutes.`
	DefaultDayBeforeTemplate = `Reminder: "{{title}}" starts tomorrow at {{hour}}:{{minute}}.`
)

var placeholderPattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

var knownPlaceholders = map[string]bool{
	"title":         true,
	"location":      true,
	"description":   true,
	"start":         true,
	"minutesBefore": true,
	"hour":          true,
	"minute":        true,
	"recipient":     true,
	"timezone":      true,
}

// Formatter renders reminder messages. It is a fixed two-shape formatter,
// not a template engine: the shape is selected by the setting's timing
// variant and known placeholders are substituted.
type Formatter struct {
	relative  string
	dayBefore string
	timezone  *time.Location
}

// NewFormatter builds a Formatter from the two shape templates. Empty
// strings select the defaults. Unknown placeholders are a configuration
// error, reported here so startup fails instead of a dispatch pass.
func NewFormatter(relative, dayBefore string, timezone *time.Location) (*Formatter, error) {
	if relative == "" {
		relative = DefaultTemplate
	}
	if dayBefore == "" {
		dayBefore = DefaultDayBeforeTemplate
	}
	for _, tmpl := range []string{relative, dayBefore} {
		for _, match := range placeholderPattern.FindAllStringSubmatch(tmpl, -1) {
			if !knownPlaceholders[match[1]] {
				return nil, fmt.Errorf("unknown placeholder {{%s}} in reminder template", match[1])
			}
		}
	}
	return &Formatter{relative: relative, dayBefore: dayBefore, timezone: timezone}, nil
}

// Render produces the notification message for one (event, setting,
// recipient) combination.
func (f *Formatter) Render(event core.Event, setting core.ReminderSetting, recipient string) string {
	tmpl := f.relative
	if setting.Timing.Kind == core.TimingDayBefore {
		tmpl = f.dayBefore
	}

	replacements := map[string]string{
		"title":         event.Title,
		"location":      event.Location,
		"description":   event.Description,
		"start":         event.Start.In(f.timezone).Format(time.RFC3339),
		"minutesBefore": fmt.Sprintf("%d", setting.Timing.MinutesBefore),
		"hour":          fmt.Sprintf("%02d", setting.Timing.Hour),
		"minute":        fmt.Sprintf("%02d", setting.Timing.Minute),
		"recipient":     recipient,
		"timezone":      f.timezone.String(),
	}

	return placeholderPattern.ReplaceAllStringFunc(tmpl, func(token string) string {
		name := strings.Trim(token, "{}")
		return replacements[name]
	})
}
