package selector

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// ParseSelector parses the JSON selector syntax used at the CLI and host
// boundary into a Condition tree.
//
// Syntax (mongo-flavored):
//
//	{"$and": [sel, ...]}      {"$or": [sel, ...]}      {"$not": sel}
//	{"field": literal}                          equality
//	{"field": {"$eq": v}}                       also $ne $gt $gte $lt $lte
//	{"field": {"$in": [v, ...]}}                also $nin
//	{"field": {"$exists": bool}}
//	{"field": {"$regex": "pattern"}}
//
// $regex accepts only simple literals, optionally anchored with a leading
// ^ or a trailing $; anything else regex-shaped is a CompileError rather
// than a silent mistranslation.
//
// Sibling keys combine with AND. An empty object is "match everything".
func ParseSelector(data []byte) (Condition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, Errorf("", "invalid selector JSON: %v", err)
	}

	cond, err := parseObject(raw)
	if err != nil {
		return nil, err
	}
	if err := Validate(cond); err != nil {
		return nil, err
	}
	return cond, nil
}

func parseObject(obj map[string]any) (Condition, error) {
	if len(obj) == 0 {
		return nil, nil
	}

	// Sort keys so sibling conditions compile deterministically.
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var children []Condition
	for _, key := range keys {
		cond, err := parseEntry(key, obj[key])
		if err != nil {
			return nil, err
		}
		if cond != nil {
			children = append(children, cond)
		}
	}

	switch len(children) {
	case 0:
		return nil, nil
	case 1:
		return children[0], nil
	default:
		return And{Children: children}, nil
	}
}

func parseEntry(key string, value any) (Condition, error) {
	switch key {
	case "$and", "$or":
		items, ok := value.([]any)
		if !ok {
			return nil, Errorf("", "%s expects an array", key)
		}
		var children []Condition
		for _, item := range items {
			sub, ok := item.(map[string]any)
			if !ok {
				return nil, Errorf("", "%s expects an array of selectors", key)
			}
			cond, err := parseObject(sub)
			if err != nil {
				return nil, err
			}
			if cond != nil {
				children = append(children, cond)
			}
		}
		if key == "$and" {
			return And{Children: children}, nil
		}
		return Or{Children: children}, nil

	case "$not":
		sub, ok := value.(map[string]any)
		if !ok {
			return nil, Errorf("", "$not expects a selector object")
		}
		cond, err := parseObject(sub)
		if err != nil {
			return nil, err
		}
		if cond == nil {
			return nil, Errorf("", "$not expects a non-empty selector")
		}
		return Not{Child: cond}, nil
	}

	if strings.HasPrefix(key, "$") {
		return nil, Errorf("", "unknown top-level operator %q", key)
	}

	// Field entry: either a literal (equality) or an operator object.
	ops, isOps := operatorObject(value)
	if !isOps {
		return Compare{Field: key, Op: OpEq, Value: normalizeLiteral(value)}, nil
	}
	return parseFieldOps(key, ops)
}

// operatorObject reports whether a value is an {"$op": ...} object.
// A plain object literal (no $-keys) is an equality match on the value.
func operatorObject(value any) (map[string]any, bool) {
	obj, ok := value.(map[string]any)
	if !ok || len(obj) == 0 {
		return nil, false
	}
	for k := range obj {
		if !strings.HasPrefix(k, "$") {
			return nil, false
		}
	}
	return obj, true
}

func parseFieldOps(field string, ops map[string]any) (Condition, error) {
	keys := make([]string, 0, len(ops))
	for k := range ops {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var children []Condition
	for _, op := range keys {
		cond, err := parseFieldOp(field, op, ops[op])
		if err != nil {
			return nil, err
		}
		children = append(children, cond)
	}

	if len(children) == 1 {
		return children[0], nil
	}
	return And{Children: children}, nil
}

func parseFieldOp(field, op string, value any) (Condition, error) {
	switch op {
	case "$eq":
		return Compare{Field: field, Op: OpEq, Value: normalizeLiteral(value)}, nil
	case "$ne":
		return Compare{Field: field, Op: OpNe, Value: normalizeLiteral(value)}, nil
	case "$gt":
		return Compare{Field: field, Op: OpGt, Value: normalizeLiteral(value)}, nil
	case "$gte":
		return Compare{Field: field, Op: OpGte, Value: normalizeLiteral(value)}, nil
	case "$lt":
		return Compare{Field: field, Op: OpLt, Value: normalizeLiteral(value)}, nil
	case "$lte":
		return Compare{Field: field, Op: OpLte, Value: normalizeLiteral(value)}, nil

	case "$in", "$nin":
		items, ok := value.([]any)
		if !ok {
			return nil, Errorf(field, "%s expects an array", op)
		}
		values := make([]any, len(items))
		for i, item := range items {
			values[i] = normalizeLiteral(item)
		}
		return In{Field: field, Values: values, Negate: op == "$nin"}, nil

	case "$exists":
		b, ok := value.(bool)
		if !ok {
			return nil, Errorf(field, "$exists expects a boolean")
		}
		return Exists{Field: field, Present: b}, nil

	case "$regex":
		pattern, ok := value.(string)
		if !ok {
			return nil, Errorf(field, "$regex expects a string")
		}
		return matchFromPattern(field, pattern)

	default:
		return nil, Errorf(field, "unknown operator %q", op)
	}
}

// matchFromPattern translates an anchored-literal pattern into a Match
// node. ^lit, lit$ and lit are the only supported shapes; any remaining
// regex construct is rejected.
func matchFromPattern(field, pattern string) (Condition, error) {
	kind := MatchContains
	literal := pattern

	if strings.HasPrefix(literal, "^") {
		kind = MatchPrefix
		literal = literal[1:]
	}
	if strings.HasSuffix(literal, "$") && !strings.HasSuffix(literal, `\$`) {
		if kind == MatchPrefix {
			// ^lit$ would be plain equality; callers should use $eq.
			return nil, Errorf(field, "pattern %q: use $eq for fully anchored literals", pattern)
		}
		kind = MatchSuffix
		literal = literal[:len(literal)-1]
	}

	if strings.ContainsAny(literal, `.*+?()[]{}|^$\`) {
		return nil, Errorf(field, "pattern %q uses unsupported regex constructs", pattern)
	}
	if literal == "" {
		return nil, Errorf(field, "empty pattern")
	}

	return Match{Field: field, Pattern: literal, Kind: kind}, nil
}

// normalizeLiteral rewrites decoded JSON numbers to int64 (when integral)
// or float64, so literals bind as native SQL parameters without precision
// loss on large integers.
func normalizeLiteral(v any) any {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i
		}
		f, _ := n.Float64()
		return f
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = normalizeLiteral(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(n))
		for k, item := range n {
			out[k] = normalizeLiteral(item)
		}
		return out
	}
	return v
}
