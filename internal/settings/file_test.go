package settings_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"synkcal/internal/core"
	"synkcal/internal/settings"
)

func relativeSetting(minutes int) core.ReminderSetting {
	return core.ReminderSetting{
		NotificationType: "console",
		Timing:           core.Timing{Kind: core.TimingMinutesBefore, MinutesBefore: minutes},
	}
}

func TestFileStoreMissingFileMeansNoSettings(t *testing.T) {
	store := settings.NewFile(filepath.Join(t.TempDir(), "reminders.json"))

	got, err := store.GetReminderSettings(context.Background(), "user1@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d settings from a missing file, want 0", len(got))
	}
}

func TestFileStoreUpdateAndGet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	store := settings.NewFile(path)
	ctx := context.Background()

	if err := store.UpdateReminderSettings(ctx, "user1@example.com", []core.ReminderSetting{relativeSetting(10)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdateReminderSettings(ctx, "user2@example.com", []core.ReminderSetting{relativeSetting(30)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	// A fresh store over the same file sees the persisted settings.
	reopened := settings.NewFile(path)
	got, err := reopened.GetReminderSettings(ctx, "user1@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 1 || got[0].Timing.MinutesBefore != 10 {
		t.Errorf("unexpected settings %+v", got)
	}
}

func TestFileStoreUpdateWithEmptyRemoves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	store := settings.NewFile(path)
	ctx := context.Background()

	if err := store.UpdateReminderSettings(ctx, "user1@example.com", []core.ReminderSetting{relativeSetting(10)}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.UpdateReminderSettings(ctx, "user1@example.com", nil); err != nil {
		t.Fatalf("clear: %v", err)
	}

	got, err := store.GetReminderSettings(ctx, "user1@example.com")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("got %d settings after clearing, want 0", len(got))
	}
}

func TestFileStoreRejectsInvalidSettings(t *testing.T) {
	store := settings.NewFile(filepath.Join(t.TempDir(), "reminders.json"))
	bad := core.ReminderSetting{
		NotificationType: "console",
		Timing:           core.Timing{Kind: core.TimingDayBefore, Hour: 25, Minute: 0},
	}
	if err := store.UpdateReminderSettings(context.Background(), "user1@example.com", []core.ReminderSetting{bad}); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestFileStoreCorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reminders.json")
	if err := os.WriteFile(path, []byte("{corrupt"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	store := settings.NewFile(path)
	if _, err := store.GetReminderSettings(context.Background(), "user1@example.com"); err == nil {
		t.Fatal("expected error for corrupt settings file")
	}
}

func TestGlobalStore(t *testing.T) {
	global := settings.NewGlobal([]core.ReminderSetting{relativeSetting(10)})
	ctx := context.Background()

	for _, email := range []string{"user1@example.com", "user2@example.com"} {
		got, err := global.GetReminderSettings(ctx, email)
		if err != nil {
			t.Fatalf("get %s: %v", email, err)
		}
		if len(got) != 1 || got[0].Timing.MinutesBefore != 10 {
			t.Errorf("unexpected settings for %s: %+v", email, got)
		}
	}

	if err := global.UpdateReminderSettings(ctx, "user1@example.com", nil); err == nil {
		t.Fatal("global settings must not be updatable")
	}
}
