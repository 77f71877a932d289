package filter

import (
	"strconv"
	"strings"
)

// ciView is a case-insensitive-keyed wrapper over a JSON-decoded record,
// built once per search so every comparison in the tree reuses it instead
// of re-lowering keys per node (spec.md §4.3,
// original_source/azure_ad_scim_2_api/util/case_insensitive_dict.py).
type ciView struct {
	keys map[string]string // lowercased key -> original key
	data map[string]any
}

func newCIView(data map[string]any) ciView {
	v := ciView{keys: make(map[string]string, len(data)), data: data}
	for k := range data {
		v.keys[strings.ToLower(k)] = k
	}
	return v
}

func (v ciView) get(key string) (any, bool) {
	orig, ok := v.keys[strings.ToLower(key)]
	if !ok {
		return nil, false
	}
	val, ok := v.data[orig]
	return val, ok
}

// Matches evaluates a parsed filter tree against a JSON-decoded record.
func Matches(node Node, record map[string]any) bool {
	return evalNode(node, newCIView(record))
}

func evalNode(node Node, view ciView) bool {
	switch n := node.(type) {
	case Compare:
		return evalCompare(n, view)
	case Logical:
		if n.Op == "and" {
			return evalNode(n.Left, view) && evalNode(n.Right, view)
		}
		return evalNode(n.Left, view) || evalNode(n.Right, view)
	case Negate:
		return !evalNode(n.Inner, view)
	default:
		return false
	}
}

func evalCompare(c Compare, view ciView) bool {
	if c.Namespace != "" {
		return evalNamespaced(c, view)
	}

	parts := strings.SplitN(c.Attr, ".", 2)
	head, ok := view.get(parts[0])
	if !ok {
		return false
	}

	if list, isList := asList(head); isList {
		subField := "value"
		if len(parts) == 2 {
			subField = parts[1]
		}
		for _, elem := range list {
			if compareElement(elem, subField, c.Op, c.Value) {
				return true
			}
		}
		return false
	}

	value := head
	if len(parts) == 2 {
		value = navigate(head, parts[1])
	}
	return applyOp(value, c.Op, c.Value)
}

// evalNamespaced implements rule 1 of spec.md §4.3: resolve Namespace as a
// list, then test attr (or the whole element if attr=="value") against
// op/value per element.
func evalNamespaced(c Compare, view ciView) bool {
	nsVal, ok := view.get(c.Namespace)
	if !ok {
		return false
	}
	list, isList := asList(nsVal)
	if !isList {
		return false
	}
	for _, elem := range list {
		if compareElement(elem, c.Attr, c.Op, c.Value) {
			return true
		}
	}
	return false
}

func compareElement(elem any, field, op string, value any) bool {
	var target any
	if field == "" || field == "value" {
		if m, ok := elem.(map[string]any); ok {
			if v, present := newCIView(m).get("value"); present {
				target = v
			} else {
				target = elem
			}
		} else {
			target = elem
		}
	} else {
		target = navigate(elem, field)
	}
	return applyOp(target, op, value)
}

// navigate resolves a dotted remainder path against a decoded value,
// case-insensitively at each map level.
func navigate(value any, path string) any {
	cur := value
	for _, seg := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, found := newCIView(m).get(seg)
		if !found {
			return nil
		}
		cur = v
	}
	return cur
}

func asList(v any) ([]any, bool) {
	list, ok := v.([]any)
	return list, ok
}

func applyOp(actual any, op string, want any) bool {
	if op == "pr" {
		return !isZero(actual)
	}
	if actual == nil {
		return false
	}

	switch op {
	case "eq", "ne", "co", "sw", "ew":
		as, aok := toComparableString(actual)
		ws, wok := toComparableString(want)
		if !aok || !wok {
			eq := actual == want
			if op == "eq" {
				return eq
			}
			if op == "ne" {
				return !eq
			}
			return false
		}
		as, ws = strings.ToLower(as), strings.ToLower(ws)
		switch op {
		case "eq":
			return as == ws
		case "ne":
			return as != ws
		case "co":
			return strings.Contains(as, ws)
		case "sw":
			return strings.HasPrefix(as, ws)
		case "ew":
			return strings.HasSuffix(as, ws)
		}
	case "gt", "ge", "lt", "le":
		return compareOrdered(actual, want, op)
	}
	return false
}

func isZero(v any) bool {
	if v == nil {
		return true
	}
	switch x := v.(type) {
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case bool:
		return false
	}
	return false
}

func toComparableString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(x), true
	case nil:
		return "", false
	default:
		return "", false
	}
}

// compareOrdered compares actual against want using the natural ordering
// of the stored value: numeric if both sides are numbers, lexicographic if
// either side is a string (spec.md §4.3 rule 4).
func compareOrdered(actual, want any, op string) bool {
	af, aIsNum := toFloat64(actual)
	wf, wIsNum := toFloat64(want)
	if aIsNum && wIsNum {
		return applyOrder(compareFloat(af, wf), op)
	}

	as, aok := toComparableString(actual)
	ws, wok := toComparableString(want)
	if !aok || !wok {
		return false
	}
	return applyOrder(strings.Compare(as, ws), op)
}

func applyOrder(cmp int, op string) bool {
	switch op {
	case "gt":
		return cmp > 0
	case "ge":
		return cmp >= 0
	case "lt":
		return cmp < 0
	case "le":
		return cmp <= 0
	}
	return false
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func toFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
