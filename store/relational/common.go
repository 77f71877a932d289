package relational

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/scimcore/idp-gateway/filter"
	"github.com/scimcore/idp-gateway/store"
)

// newID mints a collision-resistant identifier, the teacher's own choice
// (uuid.New().String() in memory/memory.go and both example plugins).
func newID() string {
	return uuid.New().String()
}

// txExecer is the subset of *sqlx.Tx that insertEmails/insertMembers need,
// so they can be reused from both Create and Update paths.
type txExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// compileFilter parses filterExpr (if non-empty) and compiles it against
// attrs, returning a WHERE fragment ("" if filterExpr was empty) and its
// bind parameters. Parse and compile errors are wrapped into the store
// package's typed errors so the HTTP layer doesn't need to know about the
// filter package's error types.
func (s *Store) compileFilter(filterExpr string, attrs filter.AttributeMap) (string, []any, error) {
	if filterExpr == "" {
		return "", nil, nil
	}
	node, err := filter.Parse(filterExpr)
	if err != nil {
		return "", nil, &store.FilterParseError{Filter: filterExpr, Err: err}
	}
	compiler := filter.NewCompiler(attrs)
	compiler.LikeOp = s.likeOp()
	sql, params, err := compiler.Compile(node)
	if err != nil {
		return "", nil, &store.UnsupportedAttributeError{Attribute: filterExpr}
	}
	return sql, params, nil
}
