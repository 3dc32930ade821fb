package engine_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"synkcal/internal/core"
)

type fakeCalendar struct {
	events []core.Event
	err    error
	calls  int
}

func (f *fakeCalendar) GetEvents(ctx context.Context, minDate, maxDate time.Time) ([]core.Event, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeGroups struct {
	groups      []core.Group
	members     map[string][]core.GroupMember // keyed by group id
	groupsErr   error
	membersErr  map[string]error
	mu          sync.Mutex
	memberCalls map[string]int
}

func (f *fakeGroups) GetGroups(ctx context.Context) ([]core.Group, error) {
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return f.groups, nil
}

func (f *fakeGroups) GetGroupMembers(ctx context.Context, groupID string) ([]core.GroupMember, error) {
	f.mu.Lock()
	if f.memberCalls == nil {
		f.memberCalls = make(map[string]int)
	}
	f.memberCalls[groupID]++
	f.mu.Unlock()

	if err := f.membersErr[groupID]; err != nil {
		return nil, err
	}
	members, ok := f.members[groupID]
	if !ok {
		return nil, fmt.Errorf("unknown group %s", groupID)
	}
	return members, nil
}

type fakeSettings struct {
	byUser map[string][]core.ReminderSetting
	err    error
	mu     sync.Mutex
	calls  map[string]int
}

func (f *fakeSettings) GetReminderSettings(ctx context.Context, userKey string) ([]core.ReminderSetting, error) {
	f.mu.Lock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[userKey]++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userKey], nil
}

func (f *fakeSettings) UpdateReminderSettings(ctx context.Context, userKey string, settings []core.ReminderSetting) error {
	return fmt.Errorf("not supported")
}

type fakeChannel struct {
	err error
	mu  sync.Mutex

	targets  []string
	messages []string
}

func (f *fakeChannel) Notify(ctx context.Context, target, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.targets = append(f.targets, target)
	f.messages = append(f.messages, message)
	return nil
}

func (f *fakeChannel) notifications() ([]string, []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.targets...), append([]string(nil), f.messages...)
}
