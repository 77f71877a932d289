package relational

import (
	"context"
	"fmt"
	"strings"

	"github.com/scimcore/idp-gateway/filter"
	"github.com/scimcore/idp-gateway/store"
)

// AddUserToGroup inserts the membership row if it isn't already present
// (spec.md §4.5: idempotent).
func (s *Store) AddUserToGroup(ctx context.Context, userID, groupID string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)`), groupID); err != nil {
		return fmt.Errorf("relational: check group exists: %w", err)
	}
	if !exists {
		return &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}

	var already bool
	if err := s.db.GetContext(ctx, &already, s.rebind(`SELECT EXISTS(SELECT 1 FROM users_groups WHERE user_id = ? AND group_id = ?)`), userID, groupID); err != nil {
		return fmt.Errorf("relational: check membership: %w", err)
	}
	if already {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO users_groups (user_id, group_id) VALUES (?, ?)`), userID, groupID); err != nil {
		return fmt.Errorf("relational: add user to group: %w", err)
	}
	return nil
}

// RemoveUsersFromGroup deletes membership rows for the given users;
// userIDs that aren't members are silently ignored.
func (s *Store) RemoveUsersFromGroup(ctx context.Context, userIDs []string, groupID string) error {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)`), groupID); err != nil {
		return fmt.Errorf("relational: check group exists: %w", err)
	}
	if !exists {
		return &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}
	if len(userIDs) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(userIDs)), ",")
	query := fmt.Sprintf(`DELETE FROM users_groups WHERE group_id = ? AND user_id IN (%s)`, placeholders)
	args := append([]any{groupID}, toAnySlice(userIDs)...)
	if _, err := s.db.ExecContext(ctx, s.rebind(query), args...); err != nil {
		return fmt.Errorf("relational: remove users from group: %w", err)
	}
	return nil
}

// SetGroupMembers replaces the group's full membership set in one
// transaction (spec.md §4.6: delete all, then bulk insert the new set).
func (s *Store) SetGroupMembers(ctx context.Context, userIDs []string, groupID string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("relational: begin set members: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)`), groupID); err != nil {
		return fmt.Errorf("relational: check group exists: %w", err)
	}
	if !exists {
		return &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM users_groups WHERE group_id = ?`), groupID); err != nil {
		return fmt.Errorf("relational: clear members: %w", err)
	}
	if err := insertMembers(ctx, tx, s, groupID, userIDs); err != nil {
		return err
	}
	return tx.Commit()
}

// SearchMembers evaluates filterExpr directly against users_groups rows
// for groupID, per spec.md §4.6's "value → users_groups.userId" member
// attribute map entry.
func (s *Store) SearchMembers(ctx context.Context, filterExpr string, groupID string) ([]store.MemberRef, error) {
	var exists bool
	if err := s.db.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM groups WHERE id = ?)`), groupID); err != nil {
		return nil, fmt.Errorf("relational: check group exists: %w", err)
	}
	if !exists {
		return nil, &store.NotFoundError{ResourceType: "Group", ID: groupID}
	}

	attrs := filter.NewAttributeMap()
	attrs.Add("value", "", filter.Column{Expr: "users_groups.user_id", CI: true})

	where, params, err := s.compileFilter(filterExpr, attrs)
	if err != nil {
		return nil, err
	}

	query := `SELECT user_id FROM users_groups WHERE group_id = ?`
	args := []any{groupID}
	if where != "" {
		query += " AND " + where
		args = append(args, params...)
	}

	var ids []string
	if err := s.db.SelectContext(ctx, &ids, s.rebind(query), args...); err != nil {
		return nil, fmt.Errorf("relational: search members: %w", err)
	}

	out := make([]store.MemberRef, len(ids))
	for i, id := range ids {
		out[i] = store.MemberRef{Value: id}
	}
	return out, nil
}

func toAnySlice(in []string) []any {
	out := make([]any, len(in))
	for i, v := range in {
		out[i] = v
	}
	return out
}
