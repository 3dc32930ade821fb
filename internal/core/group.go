package core

import "context"

// Group is a distribution-list style address that may appear as an event
// attendee and stands for its members.
type Group struct {
	ID          string
	Email       string
	Name        string
	Description string
}

// GroupMember is one entry of a group's membership. Type distinguishes user
// members from nested groups; nested groups are not expanded further.
type GroupMember struct {
	ID    string
	Email string
	Type  string
}

// GroupSource enumerates groups and resolves their memberships.
type GroupSource interface {
	GetGroups(ctx context.Context) ([]Group, error)
	GetGroupMembers(ctx context.Context, groupID string) ([]GroupMember, error)
}
