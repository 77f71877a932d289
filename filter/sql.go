package filter

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnsupportedAttribute is returned when a filter references an attribute
// absent from a Compiler's AttributeMap. Unlike the teacher's query
// builder, which silently degrades to an empty WHERE clause, this is a
// hard compile error per spec.md §4.4.
var ErrUnsupportedAttribute = errors.New("filter: unsupported attribute")

// Column describes how a (topAttr, subAttr) pair maps onto a backend
// column expression.
type Column struct {
	// Expr is the fully-qualified column or JSON-path expression, e.g.
	// "users.username" or "users.name->>'formatted'".
	Expr string
	// CI marks the column as already case-insensitive by type/collation,
	// so equality doesn't need an explicit LOWER() wrap.
	CI bool
	// Subquery marks Expr as a correlated-subquery template containing
	// exactly one %s verb, which receives the compiled "<Inner> <op>
	// <bind>" comparison — used for list-valued attributes backed by a
	// child table (e.g. emails.value), where the comparison must be
	// wrapped in "EXISTS (SELECT 1 FROM ... WHERE parent_id = ... AND %s)"
	// rather than compared directly as a column on the main table.
	Subquery bool
	// Inner is the correlated child-table column compared against when
	// Subquery is true (e.g. "user_emails.value").
	Inner string
}

// attrKey identifies one entry of an AttributeMap.
type attrKey struct {
	top string
	sub string
}

// AttributeMap maps (topAttr, subAttr) pairs to backend columns, keyed per
// spec.md §4.6's attribute map tables. subAttr is "" for a bare top-level
// attribute (e.g. "id", "displayName").
type AttributeMap map[attrKey]Column

// NewAttributeMap returns an empty AttributeMap ready for Add calls.
func NewAttributeMap() AttributeMap {
	return make(AttributeMap)
}

// Add registers a column for (top, sub). Pass sub="" for a bare attribute.
func (m AttributeMap) Add(top, sub string, col Column) {
	m[attrKey{top: top, sub: sub}] = col
}

func (m AttributeMap) lookup(top, sub string) (Column, bool) {
	col, ok := m[attrKey{top: top, sub: sub}]
	return col, ok
}

// Compiler turns a parsed filter tree into a parameterized SQL fragment
// using "?" placeholders, sqlx.Rebind-compatible, the same convention the
// teacher's query builder uses so one compiler serves every backend.
type Compiler struct {
	Attrs AttributeMap
	// MembersJoinColumn is the column compiled for a value sub-filter whose
	// namespace has no direct AttributeMap entry — it degrades to a join
	// predicate against the list-backing table (spec.md §4.4), e.g.
	// "users_groups.userId".
	MembersJoinColumn string
	// LikeOp is the case-insensitive pattern-match operator for this
	// backend: "ILIKE" for Postgres, "LIKE" for SQLite (whose LIKE is
	// already case-insensitive over ASCII). Defaults to "ILIKE".
	LikeOp string
}

func (c *Compiler) likeOp() string {
	if c.LikeOp == "" {
		return "ILIKE"
	}
	return c.LikeOp
}

// NewCompiler returns a Compiler over the given attribute map.
func NewCompiler(attrs AttributeMap) *Compiler {
	return &Compiler{Attrs: attrs}
}

// Compile produces a parameterized WHERE fragment (without the "WHERE"
// keyword) and its bind parameters, in the order they appear in the SQL.
func (c *Compiler) Compile(node Node) (string, []any, error) {
	var params []any
	sql, err := c.compileNode(node, &params)
	if err != nil {
		return "", nil, err
	}
	return sql, params, nil
}

func (c *Compiler) compileNode(node Node, params *[]any) (string, error) {
	switch n := node.(type) {
	case Compare:
		return c.compileCompare(n, params)
	case Logical:
		left, err := c.compileNode(n.Left, params)
		if err != nil {
			return "", err
		}
		right, err := c.compileNode(n.Right, params)
		if err != nil {
			return "", err
		}
		joiner := " AND "
		if n.Op == "or" {
			joiner = " OR "
		}
		return "(" + left + ")" + joiner + "(" + right + ")", nil
	case Negate:
		inner, err := c.compileNode(n.Inner, params)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	default:
		return "", fmt.Errorf("filter: unknown node type %T", node)
	}
}

func (c *Compiler) compileCompare(cmp Compare, params *[]any) (string, error) {
	top, sub := cmp.Attr, ""
	if parts := strings.SplitN(cmp.Attr, ".", 2); len(parts) == 2 {
		top, sub = parts[0], parts[1]
	}

	if cmp.Namespace != "" {
		return c.compileValuePath(cmp, params)
	}

	col, ok := c.Attrs.lookup(top, sub)
	if !ok {
		col, ok = c.Attrs.lookup(top, "")
		if !ok {
			return "", fmt.Errorf("%w: %q", ErrUnsupportedAttribute, cmp.Attr)
		}
	}
	return c.emit(col, cmp.Op, cmp.Value, params)
}

// compileValuePath compiles a value sub-filter (namespace set), looking
// up (namespace, attr) in the map first, then falling back to the
// membership join column for "value".
func (c *Compiler) compileValuePath(cmp Compare, params *[]any) (string, error) {
	if col, ok := c.Attrs.lookup(cmp.Namespace, cmp.Attr); ok {
		return c.emit(col, cmp.Op, cmp.Value, params)
	}
	if (cmp.Attr == "value" || cmp.Attr == "") && c.MembersJoinColumn != "" {
		return c.emit(Column{Expr: c.MembersJoinColumn}, cmp.Op, cmp.Value, params)
	}
	return "", fmt.Errorf("%w: %q[%s]", ErrUnsupportedAttribute, cmp.Namespace, cmp.Attr)
}

func (c *Compiler) emit(col Column, op string, value any, params *[]any) (string, error) {
	if col.Subquery {
		inner, err := c.emit(Column{Expr: col.Inner, CI: col.CI}, op, value, params)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf(col.Expr, inner), nil
	}

	if op == "pr" {
		return col.Expr + " IS NOT NULL", nil
	}

	bind := func(v any) string {
		*params = append(*params, v)
		return "?"
	}

	switch op {
	case "eq":
		if col.CI {
			return fmt.Sprintf("%s = %s", col.Expr, bind(value)), nil
		}
		return fmt.Sprintf("LOWER(%s) = LOWER(%s)", col.Expr, bind(value)), nil
	case "ne":
		if col.CI {
			return fmt.Sprintf("%s <> %s", col.Expr, bind(value)), nil
		}
		return fmt.Sprintf("LOWER(%s) <> LOWER(%s)", col.Expr, bind(value)), nil
	case "co":
		return fmt.Sprintf("%s %s '%%' || %s || '%%'", col.Expr, c.likeOp(), bind(value)), nil
	case "sw":
		return fmt.Sprintf("%s %s %s || '%%'", col.Expr, c.likeOp(), bind(value)), nil
	case "ew":
		return fmt.Sprintf("%s %s '%%' || %s", col.Expr, c.likeOp(), bind(value)), nil
	case "gt":
		return fmt.Sprintf("%s > %s", col.Expr, bind(value)), nil
	case "ge":
		return fmt.Sprintf("%s >= %s", col.Expr, bind(value)), nil
	case "lt":
		return fmt.Sprintf("%s < %s", col.Expr, bind(value)), nil
	case "le":
		return fmt.Sprintf("%s <= %s", col.Expr, bind(value)), nil
	default:
		return "", fmt.Errorf("filter: unknown operator %q", op)
	}
}
