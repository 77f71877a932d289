// Package store defines the resource storage contract shared by the
// relational and in-memory backends (spec.md §4.5).
package store

import (
	"context"

	"github.com/scimcore/idp-gateway/resource"
)

// SearchResult is the paginated result of a SearchUsers or SearchGroups
// call.
type SearchResult[T any] struct {
	Resources []T
	Total     int
}

// MemberRef is the minimal shape returned by SearchMembers.
type MemberRef struct {
	Value string
}

// Store is the storage contract every backend (relational, in-memory)
// implements, per spec.md §4.5's operation table.
type Store interface {
	// Users

	GetUser(ctx context.Context, id string) (*resource.User, error)
	SearchUsers(ctx context.Context, filterExpr string, start, count int) (SearchResult[*resource.User], error)
	CreateUser(ctx context.Context, u *resource.User) (*resource.User, error)
	UpdateUser(ctx context.Context, id string, patch map[string]any) (*resource.User, error)
	DeleteUser(ctx context.Context, id string) error

	// Groups

	GetGroup(ctx context.Context, id string) (*resource.Group, error)
	SearchGroups(ctx context.Context, filterExpr string, start, count int) (SearchResult[*resource.Group], error)
	CreateGroup(ctx context.Context, g *resource.Group) (*resource.Group, error)
	UpdateGroup(ctx context.Context, id string, patch map[string]any) (*resource.Group, error)
	DeleteGroup(ctx context.Context, id string) error

	// Membership

	AddUserToGroup(ctx context.Context, userID, groupID string) error
	RemoveUsersFromGroup(ctx context.Context, userIDs []string, groupID string) error
	SetGroupMembers(ctx context.Context, userIDs []string, groupID string) error
	SearchMembers(ctx context.Context, filterExpr string, groupID string) ([]MemberRef, error)
}
