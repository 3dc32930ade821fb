package engine

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"synkcal/internal/core"
)

// groupExpander resolves group-address attendees to their members. It lives
// for a single aggregation pass: group addresses are enumerated once up
// front, memberships are fetched lazily on first use and cached for the
// rest of the pass.
type groupExpander struct {
	logger *slog.Logger
	source core.GroupSource

	mu      sync.Mutex
	entries map[string]*groupEntry // keyed by group email
	flight  singleflight.Group
}

type groupEntry struct {
	group   core.Group
	members []core.GroupMember
	fetched bool
}

func newGroupExpander(logger *slog.Logger, source core.GroupSource) *groupExpander {
	return &groupExpander{
		logger:  logger,
		source:  source,
		entries: make(map[string]*groupEntry),
	}
}

// prime enumerates all groups so that attendee emails can be recognized as
// group addresses without fetching any membership yet. A failure here is a
// top-level fetch failure and propagates.
func (e *groupExpander) prime(ctx context.Context) error {
	groups, err := e.source.GetGroups(ctx)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, group := range groups {
		e.entries[group.Email] = &groupEntry{group: group}
	}
	return nil
}

// expand resolves one attendee. The second return is false when the
// attendee is not a group address, or when the membership fetch failed; in
// both cases the caller keeps the original attendee. Members inherit the
// placeholder's response status and are never the organizer.
func (e *groupExpander) expand(ctx context.Context, attendee core.Attendee) ([]core.Attendee, bool) {
	if attendee.Email == "" {
		return nil, false
	}

	e.mu.Lock()
	entry, ok := e.entries[attendee.Email]
	e.mu.Unlock()
	if !ok {
		return nil, false
	}

	members, err := e.membersOf(ctx, entry)
	if err != nil {
		// Fail open: an unavailable membership list must not cost the
		// group its reminder entirely.
		e.logger.Error("Failed to expand group, keeping original attendee", "group", attendee.Email, "error", err)
		return nil, false
	}

	expanded := make([]core.Attendee, 0, len(members))
	for _, member := range members {
		expanded = append(expanded, core.Attendee{
			Email:          member.Email,
			ResponseStatus: attendee.ResponseStatus,
			Organizer:      false,
		})
	}
	return expanded, true
}

// membersOf returns the cached membership, fetching it at most once per
// pass even under concurrent expansion of the same group.
func (e *groupExpander) membersOf(ctx context.Context, entry *groupEntry) ([]core.GroupMember, error) {
	e.mu.Lock()
	if entry.fetched {
		members := entry.members
		e.mu.Unlock()
		return members, nil
	}
	e.mu.Unlock()

	result, err, _ := e.flight.Do(entry.group.Email, func() (any, error) {
		members, err := e.source.GetGroupMembers(ctx, entry.group.ID)
		if err != nil {
			return nil, err
		}
		e.mu.Lock()
		entry.members = members
		entry.fetched = true
		e.mu.Unlock()
		return members, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]core.GroupMember), nil
}
