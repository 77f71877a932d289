// Package inmemory is a map-backed store.Store implementation: a
// development/test backend, not a production store (spec.md §4.7).
package inmemory

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/scimcore/idp-gateway/filter"
	"github.com/scimcore/idp-gateway/resource"
	"github.com/scimcore/idp-gateway/store"
)

// Store implements store.Store over two resource maps plus a membership
// map, guarded by one sync.RWMutex: mutations take it exclusively,
// reads take it shared. Grounded on the teacher's memory/memory.go map+mutex
// shape, generalized in two ways spec.md §4.7 requires: it enforces
// userName/displayName uniqueness itself (the teacher's plugin doesn't),
// and it filters/paginates directly by reusing the filter package instead
// of delegating to an adapter layer.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*resource.User
	groups  map[string]*resource.Group
	members map[string]map[string]string // groupID -> userID -> displayName
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		users:   make(map[string]*resource.User),
		groups:  make(map[string]*resource.Group),
		members: make(map[string]map[string]string),
	}
}

func toRecord(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{}
	}
	return m
}

func cloneUser(u *resource.User) *resource.User {
	cp := *u
	return &cp
}

func cloneGroup(g *resource.Group) *resource.Group {
	cp := *g
	return &cp
}

// GetUser returns a sanitized copy of the user, or NotFoundError.
func (s *Store) GetUser(ctx context.Context, id string) (*resource.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, &store.NotFoundError{ResourceType: "User", ID: id}
	}
	return resource.SanitizeUser(cloneUser(u)), nil
}

// SearchUsers filters, paginates, and sanitizes users.
func (s *Store) SearchUsers(ctx context.Context, filterExpr string, start, count int) (store.SearchResult[*resource.User], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var node filter.Node
	if filterExpr != "" {
		n, err := filter.Parse(filterExpr)
		if err != nil {
			return store.SearchResult[*resource.User]{}, &store.FilterParseError{Filter: filterExpr, Err: err}
		}
		node = n
	}

	matched := make([]*resource.User, 0, len(s.users))
	for _, u := range s.users {
		if node == nil || filter.Matches(node, toRecord(u)) {
			matched = append(matched, u)
		}
	}

	page := paginate(matched, start, count)
	out := make([]*resource.User, len(page))
	for i, u := range page {
		out[i] = resource.SanitizeUser(cloneUser(u))
	}
	return store.SearchResult[*resource.User]{Resources: out, Total: len(matched)}, nil
}

// CreateUser assigns an id if absent, enforces userName uniqueness, and
// stores the user.
func (s *Store) CreateUser(ctx context.Context, u *resource.User) (*resource.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	if len(u.Schemas) == 0 {
		u.Schemas = []string{resource.SchemaUser}
	}

	for _, existing := range s.users {
		if strings.EqualFold(existing.UserName, u.UserName) {
			return nil, &store.AlreadyExistsError{ResourceType: "User", Field: "userName", Value: u.UserName}
		}
	}

	stored := cloneUser(u)
	s.users[stored.ID] = stored
	return resource.SanitizeUser(cloneUser(stored)), nil
}

// UpdateUser applies a partial attribute patch and returns the refreshed,
// sanitized user.
func (s *Store) UpdateUser(ctx context.Context, id string, patch map[string]any) (*resource.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, &store.NotFoundError{ResourceType: "User", ID: id}
	}
	applyUserPatch(u, patch)
	return resource.SanitizeUser(cloneUser(u)), nil
}

// DeleteUser removes a user and its membership entries.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return &store.NotFoundError{ResourceType: "User", ID: id}
	}
	delete(s.users, id)
	for _, set := range s.members {
		delete(set, id)
	}
	return nil
}

// GetGroup returns a copy of the group, with Members projected from the
// membership sub-store.
func (s *Store) GetGroup(ctx context.Context, id string) (*resource.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.projectGroupLocked(id)
}

func (s *Store) projectGroupLocked(id string) (*resource.Group, error) {
	g, ok := s.groups[id]
	if !ok {
		return nil, &store.NotFoundError{ResourceType: "Group", ID: id}
	}
	out := cloneGroup(g)
	out.Members = s.memberRefsLocked(id)
	return out, nil
}

func (s *Store) memberRefsLocked(groupID string) []resource.MemberRef {
	set := s.members[groupID]
	refs := make([]resource.MemberRef, 0, len(set))
	for userID, display := range set {
		refs = append(refs, resource.MemberRef{Value: userID, Display: display})
	}
	return refs
}

// SearchGroups filters, paginates, and projects groups.
func (s *Store) SearchGroups(ctx context.Context, filterExpr string, start, count int) (store.SearchResult[*resource.Group], error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var node filter.Node
	if filterExpr != "" {
		n, err := filter.Parse(filterExpr)
		if err != nil {
			return store.SearchResult[*resource.Group]{}, &store.FilterParseError{Filter: filterExpr, Err: err}
		}
		node = n
	}

	matched := make([]*resource.Group, 0, len(s.groups))
	for id, g := range s.groups {
		projected := cloneGroup(g)
		projected.Members = s.memberRefsLocked(id)
		if node == nil || filter.Matches(node, toRecord(projected)) {
			matched = append(matched, projected)
		}
	}

	page := paginate(matched, start, count)
	return store.SearchResult[*resource.Group]{Resources: page, Total: len(matched)}, nil
}

// CreateGroup assigns an id if absent, enforces displayName uniqueness,
// and seeds the membership sub-store from any supplied members.
func (s *Store) CreateGroup(ctx context.Context, g *resource.Group) (*resource.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.ID == "" {
		g.ID = uuid.New().String()
	}
	if len(g.Schemas) == 0 {
		g.Schemas = []string{resource.SchemaGroup}
	}

	for _, existing := range s.groups {
		if strings.EqualFold(existing.DisplayName, g.DisplayName) {
			return nil, &store.AlreadyExistsError{ResourceType: "Group", Field: "displayName", Value: g.DisplayName}
		}
	}

	stored := &resource.Group{ID: g.ID, Schemas: g.Schemas, DisplayName: g.DisplayName}
	s.groups[stored.ID] = stored

	set := make(map[string]string, len(g.Members))
	for _, m := range g.Members {
		display := m.Display
		if display == "" {
			if u, ok := s.users[m.Value]; ok {
				display = u.UserName
			}
		}
		set[m.Value] = display
	}
	s.members[stored.ID] = set

	return s.projectGroupLocked(stored.ID)
}

// UpdateGroup applies a partial attribute patch (non-membership columns
// only) and returns the refreshed group.
func (s *Store) UpdateGroup(ctx context.Context, id string, patch map[string]any) (*resource.Group, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, &store.NotFoundError{ResourceType: "Group", ID: id}
	}
	if dn, ok := patch["displayName"].(string); ok {
		g.DisplayName = dn
	}
	return s.projectGroupLocked(id)
}

// DeleteGroup removes a group and its membership set.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return &store.NotFoundError{ResourceType: "Group", ID: id}
	}
	delete(s.groups, id)
	delete(s.members, id)
	return nil
}

// AddUserToGroup is idempotent: adding an already-present member is a
// no-op.
func (s *Store) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}
	display := ""
	if u, ok := s.users[userID]; ok {
		display = u.UserName
	}
	if s.members[groupID] == nil {
		s.members[groupID] = make(map[string]string)
	}
	s.members[groupID][userID] = display
	return nil
}

// RemoveUsersFromGroup ignores ids that aren't currently members.
func (s *Store) RemoveUsersFromGroup(ctx context.Context, userIDs []string, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}
	set := s.members[groupID]
	for _, id := range userIDs {
		delete(set, id)
	}
	return nil
}

// SetGroupMembers replaces the full membership set.
func (s *Store) SetGroupMembers(ctx context.Context, userIDs []string, groupID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[groupID]; !ok {
		return &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}
	set := make(map[string]string, len(userIDs))
	for _, id := range userIDs {
		display := ""
		if u, ok := s.users[id]; ok {
			display = u.UserName
		}
		set[id] = display
	}
	s.members[groupID] = set
	return nil
}

// SearchMembers evaluates a sub-filter against the group's member set,
// reusing the same filter engine as SearchUsers/SearchGroups (spec.md
// §4.7's point of the embedded member sub-store).
func (s *Store) SearchMembers(ctx context.Context, filterExpr string, groupID string) ([]store.MemberRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.groups[groupID]; !ok {
		return nil, &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}

	var node filter.Node
	if filterExpr != "" {
		n, err := filter.Parse(filterExpr)
		if err != nil {
			return nil, &store.FilterParseError{Filter: filterExpr, Err: err}
		}
		node = n
	}

	var out []store.MemberRef
	for userID, display := range s.members[groupID] {
		record := map[string]any{"value": userID, "display": display}
		if node == nil || filter.Matches(node, record) {
			out = append(out, store.MemberRef{Value: userID})
		}
	}
	return out, nil
}

// paginate applies 1-based start/count slicing, per spec.md §4.5/§4.6.
func paginate[T any](items []T, start, count int) []T {
	if start < 1 {
		start = 1
	}
	idx := start - 1
	if idx >= len(items) {
		return []T{}
	}
	end := idx + count
	if count <= 0 || end > len(items) {
		end = len(items)
	}
	return items[idx:end]
}

// applyUserPatch projects a partial attribute map onto known User fields,
// mirroring the relational store's column projection for update (spec.md
// §4.6's update semantics, applied here since the in-memory backend has
// no column list to project against, only the Go struct itself).
func applyUserPatch(u *resource.User, patch map[string]any) {
	if v, ok := patch["userName"].(string); ok {
		u.UserName = v
	}
	if v, ok := patch["displayName"].(string); ok {
		u.DisplayName = v
	}
	if v, ok := patch["externalId"].(string); ok {
		u.ExternalID = v
	}
	if v, ok := patch["locale"].(string); ok {
		u.Locale = v
	}
	if v, ok := patch["active"].(bool); ok {
		u.Active = resource.BoolPtr(v)
	}
	if v, ok := patch["password"].(string); ok {
		u.Password = v
	}
	if raw, ok := patch["name"].(map[string]any); ok {
		if u.Name == nil {
			u.Name = &resource.Name{}
		}
		if v, ok := raw["formatted"].(string); ok {
			u.Name.Formatted = v
		}
		if v, ok := raw["familyName"].(string); ok {
			u.Name.FamilyName = v
		}
		if v, ok := raw["givenName"].(string); ok {
			u.Name.GivenName = v
		}
	}
	if raw, ok := patch["emails"].([]any); ok {
		emails := make([]resource.Email, 0, len(raw))
		for _, e := range raw {
			m, ok := e.(map[string]any)
			if !ok {
				continue
			}
			email := resource.Email{}
			if v, ok := m["value"].(string); ok {
				email.Value = v
			}
			if v, ok := m["type"].(string); ok {
				email.Type = v
			}
			emails = append(emails, email)
		}
		u.Emails = emails
	}
}
