package relational

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/scimcore/idp-gateway/filter"
	"github.com/scimcore/idp-gateway/resource"
	"github.com/scimcore/idp-gateway/store"
)

// membersSubquery projects each membership row by ug.user_id rather than
// mu.id and left-joins users, so a membership referencing a user id that
// no longer exists still surfaces (with an empty display) instead of
// silently vanishing from the group - matching the in-memory store's
// memberRefsLocked, which has no foreign key to enforce and keeps the
// membership with a blank display in that case.
func (s *Store) membersSubquery() string {
	obj := s.jsonBuildObject("'value'", "ug.user_id", "'display'", "mu.username")
	return fmt.Sprintf("(SELECT %s FROM users_groups ug LEFT JOIN users mu ON mu.id = ug.user_id WHERE ug.group_id = g.id)", s.jsonArrayAgg(obj))
}

const groupSelectColumns = `g.id, g.display_name, g.schemas`

func (s *Store) groupAttributeMap() filter.AttributeMap {
	m := filter.NewAttributeMap()
	m.Add("id", "", filter.Column{Expr: "g.id", CI: true})
	m.Add("displayName", "", filter.Column{Expr: "g.display_name"})

	membersExists := "EXISTS (SELECT 1 FROM users_groups ug WHERE ug.group_id = g.id AND %s)"
	m.Add("members", "", filter.Column{Expr: membersExists, Subquery: true, Inner: "ug.user_id", CI: true})
	m.Add("members", "value", filter.Column{Expr: membersExists, Subquery: true, Inner: "ug.user_id", CI: true})

	membersDisplayExists := "EXISTS (SELECT 1 FROM users_groups ug JOIN users mu ON mu.id = ug.user_id WHERE ug.group_id = g.id AND %s)"
	m.Add("members", "display", filter.Column{Expr: membersDisplayExists, Subquery: true, Inner: "mu.username", CI: true})
	return m
}

// GetGroup fetches one group by id, with members projected.
func (s *Store) GetGroup(ctx context.Context, id string) (*resource.Group, error) {
	query := fmt.Sprintf(`SELECT %s, %s AS members_json FROM groups g WHERE g.id = ?`, groupSelectColumns, s.membersSubquery())

	var row groupRow
	if err := s.db.GetContext(ctx, &row, s.rebind(query), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, &store.NotFoundError{ResourceType: "Group", ID: id}
		}
		return nil, fmt.Errorf("relational: get group: %w", err)
	}
	return row.toResource()
}

// SearchGroups compiles filterExpr against groupAttributeMap, paginates,
// and returns the page alongside the window-computed total.
func (s *Store) SearchGroups(ctx context.Context, filterExpr string, start, count int) (store.SearchResult[*resource.Group], error) {
	where, params, err := s.compileFilter(filterExpr, s.groupAttributeMap())
	if err != nil {
		return store.SearchResult[*resource.Group]{}, err
	}

	query := fmt.Sprintf(`SELECT %s, %s AS members_json, COUNT(*) OVER() AS total FROM groups g`, groupSelectColumns, s.membersSubquery())
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY g.display_name_ci LIMIT ? OFFSET ?"
	params = append(params, paginationArgs(start, count)...)

	var rows []groupRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), params...); err != nil {
		return store.SearchResult[*resource.Group]{}, fmt.Errorf("relational: search groups: %w", err)
	}

	out := make([]*resource.Group, 0, len(rows))
	total := 0
	for _, r := range rows {
		g, err := r.toResource()
		if err != nil {
			return store.SearchResult[*resource.Group]{}, fmt.Errorf("relational: decode group: %w", err)
		}
		out = append(out, g)
		total = r.Total
	}
	return store.SearchResult[*resource.Group]{Resources: out, Total: total}, nil
}

// CreateGroup assigns an id if absent, checks displayName uniqueness,
// inserts the group row, and bulk-inserts membership rows if members was
// supplied (spec.md §4.6's create write semantics).
func (s *Store) CreateGroup(ctx context.Context, g *resource.Group) (*resource.Group, error) {
	if g.ID == "" {
		g.ID = newID()
	}
	if len(g.Schemas) == 0 {
		g.Schemas = []string{resource.SchemaGroup}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("relational: begin create group: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM groups WHERE display_name_ci = ?)`), ciKey(g.DisplayName)); err != nil {
		return nil, fmt.Errorf("relational: check display name: %w", err)
	}
	if exists {
		return nil, &store.AlreadyExistsError{ResourceType: "Group", Field: "displayName", Value: g.DisplayName}
	}

	schemasJSON, err := marshalOrNull(g.Schemas)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO groups (id, display_name, display_name_ci, schemas) VALUES (?, ?, ?, ?)`),
		g.ID, g.DisplayName, ciKey(g.DisplayName), schemasJSON); err != nil {
		return nil, fmt.Errorf("relational: insert group: %w", err)
	}

	if len(g.Members) > 0 {
		ids := make([]string, len(g.Members))
		for i, m := range g.Members {
			ids[i] = m.Value
		}
		if err := insertMembers(ctx, tx, s, g.ID, ids); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("relational: commit create group: %w", err)
	}
	return s.GetGroup(ctx, g.ID)
}

func insertMembers(ctx context.Context, tx txExecer, s *Store, groupID string, userIDs []string) error {
	insert := s.rebind(`INSERT INTO users_groups (user_id, group_id) VALUES (?, ?)`)
	for _, id := range userIDs {
		if _, err := tx.ExecContext(ctx, insert, id, groupID); err != nil {
			return fmt.Errorf("relational: insert membership: %w", err)
		}
	}
	return nil
}

// UpdateGroup drops id and updates non-membership columns only (spec.md
// §4.6's update write semantics for groups).
func (s *Store) UpdateGroup(ctx context.Context, id string, patch map[string]any) (*resource.Group, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)`), id); err != nil {
		return nil, fmt.Errorf("relational: check group exists: %w", err)
	}
	if !exists {
		return nil, &store.NotFoundError{ResourceType: "Group", ID: id}
	}

	sets := []string{}
	args := []any{}
	if v, ok := patch["displayName"].(string); ok {
		sets = append(sets, "display_name = ?", "display_name_ci = ?")
		args = append(args, v, ciKey(v))
	}
	if len(sets) > 0 {
		query := s.rebind(fmt.Sprintf("UPDATE groups SET %s WHERE id = ?", strings.Join(sets, ", ")))
		if _, err := s.db.ExecContext(ctx, query, append(args, id)...); err != nil {
			return nil, fmt.Errorf("relational: update group: %w", err)
		}
	}
	return s.GetGroup(ctx, id)
}

// DeleteGroup deletes the group row after removing its memberships.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("relational: begin delete group: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)`), id); err != nil {
		return fmt.Errorf("relational: check group exists: %w", err)
	}
	if !exists {
		return &store.NotFoundError{ResourceType: "Group", ID: id}
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM users_groups WHERE group_id = ?`), id); err != nil {
		return fmt.Errorf("relational: delete memberships: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM groups WHERE id = ?`), id); err != nil {
		return fmt.Errorf("relational: delete group: %w", err)
	}
	return tx.Commit()
}
