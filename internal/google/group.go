package google

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/api/cloudidentity/v1"

	"synkcal/internal/core"
)

// GroupSource resolves Workspace groups and memberships through the Cloud
// Identity API, using application default credentials with the readonly
// groups scope.
type GroupSource struct {
	service    *cloudidentity.Service
	logger     *slog.Logger
	customerID string
}

func NewGroupSource(ctx context.Context, logger *slog.Logger, customerID string) (*GroupSource, error) {
	service, err := cloudidentity.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create cloud identity service: %w", err)
	}
	return &GroupSource{service: service, logger: logger, customerID: customerID}, nil
}

// GetGroups lists every group of the configured customer.
func (g *GroupSource) GetGroups(ctx context.Context) ([]core.Group, error) {
	var groups []core.Group
	call := g.service.Groups.List().
		Parent(fmt.Sprintf("customers/%s", g.customerID)).
		View("BASIC").
		PageSize(1000)
	err := call.Pages(ctx, func(resp *cloudidentity.ListGroupsResponse) error {
		for _, group := range resp.Groups {
			email := ""
			if group.GroupKey != nil {
				email = group.GroupKey.Id
			}
			groups = append(groups, core.Group{
				ID:          group.Name,
				Email:       email,
				Name:        group.DisplayName,
				Description: group.Description,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list groups: %w", err)
	}

	g.logger.Debug("Fetched groups", "count", len(groups))
	return groups, nil
}

// GetGroupMembers lists the direct members of one group. Nested groups come
// back with type GROUP and are not expanded further.
func (g *GroupSource) GetGroupMembers(ctx context.Context, groupID string) ([]core.GroupMember, error) {
	var members []core.GroupMember
	call := g.service.Groups.Memberships.List(groupID).PageSize(1000)
	err := call.Pages(ctx, func(resp *cloudidentity.ListMembershipsResponse) error {
		for _, membership := range resp.Memberships {
			email := ""
			if membership.PreferredMemberKey != nil {
				email = membership.PreferredMemberKey.Id
			}
			members = append(members, core.GroupMember{
				ID:    membership.Name,
				Email: email,
				Type:  membership.Type,
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list members of group %s: %w", groupID, err)
	}

	g.logger.Debug("Fetched group members", "groupID", groupID, "count", len(members))
	return members, nil
}
