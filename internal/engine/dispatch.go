package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"synkcal/internal/core"
)

// DefaultLookahead is the forward window scanned per dispatch pass. It must
// cover the farthest-out reminder that can be due right now: a day-before
// setting for an event almost two days away, hence 48h rather than 24h.
const DefaultLookahead = 48 * time.Hour

// Dispatcher runs one reminder pass: collect candidate targets over the
// lookahead window, keep the ones due this minute, and fan them out to
// their notification channels.
//
// There is no retry and no sent-state; duplicate suppression relies on the
// external trigger invoking Dispatch at most once per minute with a
// minute-aligned base instant.
type Dispatcher struct {
	logger    *slog.Logger
	collector *Collector
	channels  map[string]core.Channel
	lookahead time.Duration
}

func NewDispatcher(logger *slog.Logger, collector *Collector, channels map[string]core.Channel, lookahead time.Duration) *Dispatcher {
	if lookahead <= 0 {
		lookahead = DefaultLookahead
	}
	return &Dispatcher{logger: logger, collector: collector, channels: channels, lookahead: lookahead}
}

// Dispatch sends every reminder due in the same minute as baseTime. Channel
// failures are isolated per notification and never surface to the caller;
// only a collection-phase failure returns an error.
func (d *Dispatcher) Dispatch(ctx context.Context, baseTime time.Time) error {
	targets, err := d.collector.Collect(ctx, baseTime, baseTime.Add(d.lookahead), "")
	if err != nil {
		return err
	}

	base := baseTime.Truncate(time.Minute)
	var due []core.Target
	for _, target := range targets {
		if !target.SendAt.Truncate(time.Minute).Equal(base) {
			d.logger.Debug("Reminder not due this minute",
				"recipient", target.Recipient, "sendAt", target.SendAt, "baseTime", baseTime)
			continue
		}
		if _, ok := d.channels[target.NotificationType]; !ok {
			d.logger.Error("No notification channel registered",
				"notificationType", target.NotificationType, "recipient", target.Recipient)
			continue
		}
		due = append(due, target)
	}

	d.logger.Info("Dispatching reminders", "candidates", len(targets), "due", len(due))

	var wg sync.WaitGroup
	for _, target := range due {
		wg.Add(1)
		go func() {
			defer wg.Done()
			channel := d.channels[target.NotificationType]
			if err := channel.Notify(ctx, target.Recipient, target.Message); err != nil {
				d.logger.Error("Failed to send notification",
					"notificationType", target.NotificationType, "recipient", target.Recipient, "error", err)
			}
		}()
	}
	wg.Wait()
	return nil
}
