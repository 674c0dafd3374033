// Package sqlgen lowers selector expressions into parameterized SQL for
// SQLite.
//
// NULL handling happens during lowering: equality-to-null and negative
// existence tests become dedicated isNull/isNotNull nodes, never a
// "field = ?" with a sentinel parameter that gets rewritten afterwards.
// Values are always bound as ? parameters, never interpolated; the only
// text that reaches the statement verbatim is validated identifiers and
// fixed operator keywords.
package sqlgen

import (
	"fmt"
	"strings"

	"github.com/roach88/docsql/internal/schema"
	"github.com/roach88/docsql/internal/selector"
)

// frag is the sealed lowered-fragment tree rendered into SQL text.
type frag interface {
	fragNode()
}

type andFrag struct{ children []frag }
type orFrag struct{ children []frag }
type notFrag struct{ child frag }

// compareFrag is "col <op> ?" with one bound parameter.
type compareFrag struct {
	col   string
	op    string
	param any
}

// isNullFrag / isNotNullFrag are the dedicated NULL-test nodes.
type isNullFrag struct{ col string }
type isNotNullFrag struct{ col string }

// inFrag is "col [NOT] IN (?, ...)". Lowering guarantees len(params) > 0.
type inFrag struct {
	col    string
	params []any
	negate bool
}

// likeFrag is "col LIKE ? ESCAPE '\'" with the wildcard-wrapped pattern
// already escaped and bound as the parameter.
type likeFrag struct {
	col   string
	param string
}

// constFrag is a constant truth value, used for empty IN sets.
type constFrag struct{ truth bool }

func (andFrag) fragNode()       {}
func (orFrag) fragNode()        {}
func (notFrag) fragNode()       {}
func (compareFrag) fragNode()   {}
func (isNullFrag) fragNode()    {}
func (isNotNullFrag) fragNode() {}
func (inFrag) fragNode()        {}
func (likeFrag) fragNode()      {}
func (constFrag) fragNode()     {}

// Compile converts a query (selector + sort + paging) into a full SELECT
// over live rows. Returns (sql, params, error).
//
// Every non-count query carries a deterministic ORDER BY ending in the
// primary key ascending, and constrains deleted = 0: tombstones are not
// reachable through the selector path.
func Compile(cols *schema.ColumnMap, q selector.Query) (string, []any, error) {
	whereSQL, params, err := compileWhere(cols, q.Selector)
	if err != nil {
		return "", nil, err
	}

	orderSQL, err := compileOrder(cols, q.Sort)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s WHERE %s%s",
		cols.SelectList(), cols.QuotedTable(), whereSQL, orderSQL)

	// OFFSET is only valid after LIMIT; -1 means unlimited.
	if q.Limit >= 0 || q.Skip > 0 {
		limit := int64(-1)
		if q.Limit >= 0 {
			limit = int64(q.Limit)
		}
		b.WriteString(" LIMIT ?")
		params = append(params, limit)
		if q.Skip > 0 {
			b.WriteString(" OFFSET ?")
			params = append(params, int64(q.Skip))
		}
	}

	return b.String(), params, nil
}

// CompileCount converts a selector into a COUNT over live rows.
// No ORDER BY, LIMIT or OFFSET on count queries.
func CompileCount(cols *schema.ColumnMap, sel selector.Condition) (string, []any, error) {
	whereSQL, params, err := compileWhere(cols, sel)
	if err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", cols.QuotedTable(), whereSQL)
	return sql, params, nil
}

func compileWhere(cols *schema.ColumnMap, sel selector.Condition) (string, []any, error) {
	if err := selector.Validate(sel); err != nil {
		return "", nil, err
	}

	live := schema.QuoteIdent(schema.ColDeleted) + " = 0"
	if sel == nil {
		return live, nil, nil
	}

	f, err := lower(cols, sel)
	if err != nil {
		return "", nil, err
	}

	var b strings.Builder
	var params []any
	b.WriteString(live)
	b.WriteString(" AND ")
	render(f, &b, &params)
	return b.String(), params, nil
}

func compileOrder(cols *schema.ColumnMap, sort []selector.SortField) (string, error) {
	var b strings.Builder
	b.WriteString(" ORDER BY ")

	keySorted := false
	for _, sf := range sort {
		col, ok := cols.ColumnFor(sf.Field)
		if !ok {
			return "", selector.Errorf(sf.Field, "unknown sort field")
		}
		if col.Name == schema.ColID {
			keySorted = true
		}
		b.WriteString(schema.QuoteIdent(col.Name))
		if sf.Descending {
			b.WriteString(" DESC")
		} else {
			b.WriteString(" ASC")
		}
		b.WriteString(", ")
	}

	// Stable tiebreaker so equal sort keys never reorder between runs.
	if !keySorted {
		b.WriteString(schema.QuoteIdent(schema.ColID) + " ASC")
	} else {
		s := b.String()
		return s[:len(s)-2], nil
	}
	return b.String(), nil
}

// lower turns a selector node into a lowered fragment, resolving NULL
// semantics into typed nodes as it goes.
func lower(cols *schema.ColumnMap, c selector.Condition) (frag, error) {
	switch node := c.(type) {
	case selector.And:
		return lowerGroup(cols, node.Children, false)
	case *selector.And:
		return lowerGroup(cols, node.Children, false)
	case selector.Or:
		return lowerGroup(cols, node.Children, true)
	case *selector.Or:
		return lowerGroup(cols, node.Children, true)
	case selector.Not:
		return lowerNot(cols, node)
	case *selector.Not:
		return lowerNot(cols, *node)
	case selector.Compare:
		return lowerCompare(cols, node)
	case *selector.Compare:
		return lowerCompare(cols, *node)
	case selector.In:
		return lowerIn(cols, node)
	case *selector.In:
		return lowerIn(cols, *node)
	case selector.Exists:
		return lowerExists(cols, node)
	case *selector.Exists:
		return lowerExists(cols, *node)
	case selector.Match:
		return lowerMatch(cols, node)
	case *selector.Match:
		return lowerMatch(cols, *node)
	default:
		return nil, selector.Errorf("", "unsupported condition type %T", c)
	}
}

func lowerGroup(cols *schema.ColumnMap, children []selector.Condition, isOr bool) (frag, error) {
	if len(children) == 0 {
		// Empty AND is vacuously true, empty OR matches nothing.
		return constFrag{truth: !isOr}, nil
	}

	lowered := make([]frag, 0, len(children))
	for _, child := range children {
		f, err := lower(cols, child)
		if err != nil {
			return nil, err
		}
		lowered = append(lowered, f)
	}

	if len(lowered) == 1 {
		return lowered[0], nil
	}
	if isOr {
		return orFrag{children: lowered}, nil
	}
	return andFrag{children: lowered}, nil
}

func lowerNot(cols *schema.ColumnMap, n selector.Not) (frag, error) {
	child, err := lower(cols, n.Child)
	if err != nil {
		return nil, err
	}
	return notFrag{child: child}, nil
}

func lowerCompare(cols *schema.ColumnMap, cmp selector.Compare) (frag, error) {
	col, err := resolve(cols, cmp.Field)
	if err != nil {
		return nil, err
	}

	// Equality against null is an IS NULL test: the engine's = operator
	// never matches NULL, so emitting "col = ?" here would be wrong.
	if cmp.Value == nil {
		switch cmp.Op {
		case selector.OpEq:
			return isNullFrag{col: col.Name}, nil
		case selector.OpNe:
			return isNotNullFrag{col: col.Name}, nil
		}
		return nil, selector.Errorf(cmp.Field, "null literal under ordering operator %s", cmp.Op)
	}

	if col.JSON {
		switch cmp.Op {
		case selector.OpEq, selector.OpNe:
		default:
			return nil, selector.Errorf(cmp.Field, "ordering operator %s on %s field", cmp.Op, col.SQLType)
		}
	}

	param, err := encodeParam(col, cmp.Field, cmp.Value)
	if err != nil {
		return nil, err
	}
	return compareFrag{col: col.Name, op: cmp.Op.String(), param: param}, nil
}

func lowerIn(cols *schema.ColumnMap, in selector.In) (frag, error) {
	col, err := resolve(cols, in.Field)
	if err != nil {
		return nil, err
	}

	// IN () is not valid SQL: the empty set matches nothing, so the
	// fragment collapses to a constant.
	if len(in.Values) == 0 {
		return constFrag{truth: in.Negate}, nil
	}

	params := make([]any, len(in.Values))
	for i, v := range in.Values {
		p, err := encodeParam(col, in.Field, v)
		if err != nil {
			return nil, err
		}
		params[i] = p
	}
	return inFrag{col: col.Name, params: params, negate: in.Negate}, nil
}

func lowerExists(cols *schema.ColumnMap, ex selector.Exists) (frag, error) {
	col, err := resolve(cols, ex.Field)
	if err != nil {
		return nil, err
	}
	if ex.Present {
		return isNotNullFrag{col: col.Name}, nil
	}
	return isNullFrag{col: col.Name}, nil
}

func lowerMatch(cols *schema.ColumnMap, m selector.Match) (frag, error) {
	col, err := resolve(cols, m.Field)
	if err != nil {
		return nil, err
	}
	if col.SQLType != "TEXT" || col.JSON {
		return nil, selector.Errorf(m.Field, "pattern match on non-string field")
	}

	literal := escapeLike(m.Pattern)
	var pattern string
	switch m.Kind {
	case selector.MatchContains:
		pattern = "%" + literal + "%"
	case selector.MatchPrefix:
		pattern = literal + "%"
	case selector.MatchSuffix:
		pattern = "%" + literal
	default:
		return nil, selector.Errorf(m.Field, "unknown match kind %d", int(m.Kind))
	}
	return likeFrag{col: col.Name, param: pattern}, nil
}

func resolve(cols *schema.ColumnMap, field string) (schema.Column, error) {
	col, ok := cols.ColumnFor(field)
	if !ok {
		return schema.Column{}, selector.Errorf(field, "unknown field")
	}
	return col, nil
}

// encodeParam converts a literal into the column's stored representation
// (booleans to 0/1, objects to JSON text) so comparisons run against the
// same encoding writes produced.
func encodeParam(col schema.Column, field string, v any) (any, error) {
	p, err := schema.EncodeValue(col, field, v)
	if err != nil {
		return nil, selector.Errorf(field, "literal does not fit field: %v", err)
	}
	return p, nil
}

// escapeLike escapes LIKE wildcards in a literal. The statement carries a
// matching ESCAPE '\' clause.
func escapeLike(literal string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(literal)
}

// render walks the fragment tree emitting SQL text and collecting bound
// parameters in emission order. Composite nodes are parenthesized.
func render(f frag, b *strings.Builder, params *[]any) {
	switch node := f.(type) {
	case andFrag:
		renderGroup(node.children, " AND ", b, params)
	case orFrag:
		renderGroup(node.children, " OR ", b, params)
	case notFrag:
		b.WriteString("NOT (")
		render(node.child, b, params)
		b.WriteString(")")
	case compareFrag:
		fmt.Fprintf(b, "%s %s ?", schema.QuoteIdent(node.col), node.op)
		*params = append(*params, node.param)
	case isNullFrag:
		fmt.Fprintf(b, "%s IS NULL", schema.QuoteIdent(node.col))
	case isNotNullFrag:
		fmt.Fprintf(b, "%s IS NOT NULL", schema.QuoteIdent(node.col))
	case inFrag:
		b.WriteString(schema.QuoteIdent(node.col))
		if node.negate {
			b.WriteString(" NOT IN (")
		} else {
			b.WriteString(" IN (")
		}
		for i, p := range node.params {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			*params = append(*params, p)
		}
		b.WriteString(")")
	case likeFrag:
		fmt.Fprintf(b, `%s LIKE ? ESCAPE '\'`, schema.QuoteIdent(node.col))
		*params = append(*params, node.param)
	case constFrag:
		if node.truth {
			b.WriteString("1 = 1")
		} else {
			b.WriteString("0 = 1")
		}
	}
}

func renderGroup(children []frag, sep string, b *strings.Builder, params *[]any) {
	b.WriteString("(")
	for i, child := range children {
		if i > 0 {
			b.WriteString(sep)
		}
		render(child, b, params)
	}
	b.WriteString(")")
}
