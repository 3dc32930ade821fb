package settings

import (
	"context"
	"errors"

	"synkcal/internal/core"
)

// Global applies the same environment-configured reminder settings to every
// recipient. It has no per-user state and cannot be updated.
type Global struct {
	settings []core.ReminderSetting
}

func NewGlobal(settings []core.ReminderSetting) *Global {
	return &Global{settings: settings}
}

func (g *Global) GetReminderSettings(ctx context.Context, userKey string) ([]core.ReminderSetting, error) {
	return g.settings, nil
}

func (g *Global) UpdateReminderSettings(ctx context.Context, userKey string, settings []core.ReminderSetting) error {
	return errors.New("setting reminders is not supported in global settings")
}
