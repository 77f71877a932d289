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

func (s *Store) emailsSubquery() string {
	obj := s.jsonBuildObject("'value'", "e.value", "'primary'", "e.is_primary", "'type'", "e.type")
	return fmt.Sprintf("(SELECT %s FROM user_emails e WHERE e.user_id = u.id)", s.jsonArrayAgg(obj))
}

func (s *Store) userGroupsSubquery() string {
	obj := s.jsonBuildObject("'value'", "g.id", "'display'", "g.display_name", "'displayName'", "g.display_name")
	return fmt.Sprintf("(SELECT %s FROM users_groups ug JOIN groups g ON g.id = ug.group_id WHERE ug.user_id = u.id)", s.jsonArrayAgg(obj))
}

const userSelectColumns = `u.id, u.external_id, u.locale, u.name, u.schemas, u.username, u.display_name, u.custom_attributes, u.password, u.active`

func (s *Store) userAttributeMap() filter.AttributeMap {
	m := filter.NewAttributeMap()
	m.Add("id", "", filter.Column{Expr: "u.id", CI: true})
	m.Add("userName", "", filter.Column{Expr: "u.username", CI: true})
	m.Add("displayName", "", filter.Column{Expr: "u.display_name"})
	m.Add("externalId", "", filter.Column{Expr: "u.external_id"})
	m.Add("locale", "", filter.Column{Expr: "u.locale"})
	m.Add("active", "", filter.Column{Expr: "u.active", CI: true})
	m.Add("name", "formatted", filter.Column{Expr: s.jsonTextPath("u.name", "formatted")})
	m.Add("name", "familyName", filter.Column{Expr: s.jsonTextPath("u.name", "familyName")})
	m.Add("name", "givenName", filter.Column{Expr: s.jsonTextPath("u.name", "givenName")})

	emailsExists := "EXISTS (SELECT 1 FROM user_emails ue WHERE ue.user_id = u.id AND %s)"
	m.Add("emails", "", filter.Column{Expr: emailsExists, Subquery: true, Inner: "ue.value", CI: true})
	m.Add("emails", "value", filter.Column{Expr: emailsExists, Subquery: true, Inner: "ue.value", CI: true})
	return m
}

// jsonTextPath returns the backend-specific expression for extracting a
// text field from a JSON column.
func (s *Store) jsonTextPath(col, key string) string {
	if s.driver == DriverSQLite {
		return fmt.Sprintf("json_extract(%s, '$.%s')", col, key)
	}
	return fmt.Sprintf("%s->>'%s'", col, key)
}

// GetUser fetches one user by id, projecting emails and groups.
func (s *Store) GetUser(ctx context.Context, id string) (*resource.User, error) {
	query := fmt.Sprintf(`SELECT %s, %s AS emails_json, %s AS groups_json
		FROM users u WHERE u.id = ?`, userSelectColumns, s.emailsSubquery(), s.userGroupsSubquery())

	var row userRow
	if err := s.db.GetContext(ctx, &row, s.rebind(query), id); err != nil {
		if err == sql.ErrNoRows {
			return nil, &store.NotFoundError{ResourceType: "User", ID: id}
		}
		return nil, fmt.Errorf("relational: get user: %w", err)
	}
	u, err := row.toResource()
	if err != nil {
		return nil, fmt.Errorf("relational: decode user: %w", err)
	}
	return resource.SanitizeUser(u), nil
}

// SearchUsers compiles filterExpr against userAttributeMap, paginates,
// and returns the page alongside the window-computed total.
func (s *Store) SearchUsers(ctx context.Context, filterExpr string, start, count int) (store.SearchResult[*resource.User], error) {
	where, params, err := s.compileFilter(filterExpr, s.userAttributeMap())
	if err != nil {
		return store.SearchResult[*resource.User]{}, err
	}

	query := fmt.Sprintf(`SELECT %s, %s AS emails_json, %s AS groups_json, COUNT(*) OVER() AS total
		FROM users u`, userSelectColumns, s.emailsSubquery(), s.userGroupsSubquery())
	if where != "" {
		query += " WHERE " + where
	}
	query += " ORDER BY u.username_ci"
	query += " LIMIT ? OFFSET ?"
	params = append(params, paginationArgs(start, count)...)

	var rows []userRow
	if err := s.db.SelectContext(ctx, &rows, s.rebind(query), params...); err != nil {
		return store.SearchResult[*resource.User]{}, fmt.Errorf("relational: search users: %w", err)
	}

	out := make([]*resource.User, 0, len(rows))
	total := 0
	for _, r := range rows {
		u, err := r.toResource()
		if err != nil {
			return store.SearchResult[*resource.User]{}, fmt.Errorf("relational: decode user: %w", err)
		}
		out = append(out, resource.SanitizeUser(u))
		total = r.Total
	}
	return store.SearchResult[*resource.User]{Resources: out, Total: total}, nil
}

// CreateUser assigns an id if absent, checks userName uniqueness, and
// inserts the user row plus its email rows in one transaction (spec.md
// §4.6's create write semantics).
func (s *Store) CreateUser(ctx context.Context, u *resource.User) (*resource.User, error) {
	if u.ID == "" {
		u.ID = newID()
	}
	if len(u.Schemas) == 0 {
		u.Schemas = []string{resource.SchemaUser}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("relational: begin create user: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	checkQuery := s.rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE username_ci = ?)`)
	if err := tx.GetContext(ctx, &exists, checkQuery, ciKey(u.UserName)); err != nil {
		return nil, fmt.Errorf("relational: check username: %w", err)
	}
	if exists {
		return nil, &store.AlreadyExistsError{ResourceType: "User", Field: "userName", Value: u.UserName}
	}

	nameJSON, err := marshalOrNull(u.Name)
	if err != nil {
		return nil, err
	}
	schemasJSON, err := marshalOrNull(u.Schemas)
	if err != nil {
		return nil, err
	}
	extJSON, err := marshalOrNull(nonEmptyMap(u.Extensions))
	if err != nil {
		return nil, err
	}

	active := true
	if u.Active != nil {
		active = *u.Active
	}

	insertUser := s.rebind(`INSERT INTO users
		(id, external_id, locale, name, schemas, username, username_ci, display_name, custom_attributes, password, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if _, err := tx.ExecContext(ctx, insertUser,
		u.ID, nullIfEmpty(u.ExternalID), nullIfEmpty(u.Locale), nameJSON, schemasJSON,
		u.UserName, ciKey(u.UserName), nullIfEmpty(u.DisplayName), extJSON, nullIfEmpty(u.Password), active,
	); err != nil {
		return nil, fmt.Errorf("relational: insert user: %w", err)
	}

	emails := u.Emails
	if len(emails) == 0 && u.UserName != "" {
		emails = []resource.Email{{Value: u.UserName, Primary: true, Type: "work"}}
	}
	if err := insertEmails(ctx, tx, s, u.ID, emails); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("relational: commit create user: %w", err)
	}
	return s.GetUser(ctx, u.ID)
}

func insertEmails(ctx context.Context, tx txExecer, s *Store, userID string, emails []resource.Email) error {
	insertEmail := s.rebind(`INSERT INTO user_emails (user_id, value, is_primary, type) VALUES (?, ?, ?, ?)`)
	for _, e := range emails {
		typ := e.Type
		if typ == "" {
			typ = "work"
		}
		if _, err := tx.ExecContext(ctx, insertEmail, userID, e.Value, bool(e.Primary), typ); err != nil {
			return fmt.Errorf("relational: insert email: %w", err)
		}
	}
	return nil
}

// UpdateUser drops id and groups from patch, projects the remaining keys
// onto known columns, and replaces the email set atomically if emails is
// present (spec.md §4.6's update write semantics).
func (s *Store) UpdateUser(ctx context.Context, id string, patch map[string]any) (*resource.User, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("relational: begin update user: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`), id); err != nil {
		return nil, fmt.Errorf("relational: check user exists: %w", err)
	}
	if !exists {
		return nil, &store.NotFoundError{ResourceType: "User", ID: id}
	}

	sets := []string{}
	args := []any{}
	addSet := func(col string, val any) {
		sets = append(sets, col+" = ?")
		args = append(args, val)
	}

	if v, ok := patch["userName"].(string); ok {
		addSet("username", v)
		addSet("username_ci", ciKey(v))
	}
	if v, ok := patch["displayName"].(string); ok {
		addSet("display_name", v)
	}
	if v, ok := patch["externalId"].(string); ok {
		addSet("external_id", v)
	}
	if v, ok := patch["locale"].(string); ok {
		addSet("locale", v)
	}
	if v, ok := patch["active"].(bool); ok {
		addSet("active", v)
	}
	if v, ok := patch["password"].(string); ok {
		addSet("password", v)
	}
	if raw, ok := patch["name"]; ok {
		data, err := marshalOrNull(raw)
		if err != nil {
			return nil, err
		}
		addSet("name", data)
	}

	if len(sets) > 0 {
		query := s.rebind(fmt.Sprintf("UPDATE users SET %s WHERE id = ?", strings.Join(sets, ", ")))
		if _, err := tx.ExecContext(ctx, query, append(args, id)...); err != nil {
			return nil, fmt.Errorf("relational: update user: %w", err)
		}
	}

	if raw, ok := patch["emails"].([]any); ok {
		if _, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM user_emails WHERE user_id = ?`), id); err != nil {
			return nil, fmt.Errorf("relational: clear emails: %w", err)
		}
		emails := decodeEmails(raw)
		if err := insertEmails(ctx, tx, s, id, emails); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("relational: commit update user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func decodeEmails(raw []any) []resource.Email {
	out := make([]resource.Email, 0, len(raw))
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
		if v, ok := m["primary"].(bool); ok {
			email.Primary = resource.Boolean(v)
		}
		out = append(out, email)
	}
	return out
}

// DeleteUser deletes emails, memberships, then the user row, in that
// order (spec.md §4.6's delete write semantics).
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("relational: begin delete user: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, s.rebind(`SELECT EXISTS(SELECT 1 FROM users WHERE id = ?)`), id); err != nil {
		return fmt.Errorf("relational: check user exists: %w", err)
	}
	if !exists {
		return &store.NotFoundError{ResourceType: "User", ID: id}
	}

	stmts := []string{
		`DELETE FROM user_emails WHERE user_id = ?`,
		`DELETE FROM users_groups WHERE user_id = ?`,
		`DELETE FROM users WHERE id = ?`,
	}
	for _, stmt := range stmts {
		if _, err := tx.ExecContext(ctx, s.rebind(stmt), id); err != nil {
			return fmt.Errorf("relational: delete user: %w", err)
		}
	}
	return tx.Commit()
}

func nonEmptyMap(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	return m
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func paginationArgs(start, count int) []any {
	if start < 1 {
		start = 1
	}
	if count <= 0 {
		count = 100
	}
	return []any{count, start - 1}
}
