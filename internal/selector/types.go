package selector

// Condition is a sealed interface over filter expression nodes.
//
// Node types:
//   - And, Or, Not: logical combinators
//   - Compare: field <op> literal
//   - In: set membership (optionally negated)
//   - Exists: field presence (null-ness) test
//   - Match: simple substring/prefix/suffix pattern
type Condition interface {
	conditionNode() // Marker method - seals interface to this package
}

// Operator identifies a comparison operator.
type Operator int

const (
	OpEq Operator = iota + 1
	OpNe
	OpGt
	OpGte
	OpLt
	OpLte
)

// String returns the SQL spelling of the operator.
func (op Operator) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpGt:
		return ">"
	case OpGte:
		return ">="
	case OpLt:
		return "<"
	case OpLte:
		return "<="
	default:
		return "?"
	}
}

// And is a conjunction: all children must hold.
// An empty And is always true.
type And struct {
	Children []Condition
}

func (And) conditionNode() {}

// Or is a disjunction: at least one child must hold.
// An empty Or is always false.
type Or struct {
	Children []Condition
}

func (Or) conditionNode() {}

// Not negates its child.
type Not struct {
	Child Condition
}

func (Not) conditionNode() {}

// Compare tests a field against a literal value.
//
// A nil Value under OpEq means "is null"; under OpNe it means
// "is not null". The SQL backend lowers those to IS NULL / IS NOT NULL
// nodes; the engine's = operator never matches NULL. A nil Value under
// an ordering operator is invalid.
type Compare struct {
	Field string
	Op    Operator
	Value any
}

func (Compare) conditionNode() {}

// In tests set membership. Negate turns it into NOT IN.
//
// An empty Values list is constant false (constant true when negated);
// backends must not emit a syntactically invalid "IN ()".
type In struct {
	Field  string
	Values []any
	Negate bool
}

func (In) conditionNode() {}

// Exists tests whether a field holds a value.
//
// Present=false matches rows where the field is null, identically to
// Compare{Op: OpEq, Value: nil}.
type Exists struct {
	Field   string
	Present bool
}

func (Exists) conditionNode() {}

// MatchKind selects the pattern shape for Match.
type MatchKind int

const (
	// MatchContains matches the literal anywhere in the value.
	MatchContains MatchKind = iota + 1
	// MatchPrefix anchors the literal at the start.
	MatchPrefix
	// MatchSuffix anchors the literal at the end.
	MatchSuffix
)

// Match tests a string field against a simple literal pattern.
//
// Only substring, prefix and suffix shapes exist; the pattern is a plain
// literal, never a regular expression. Parsers that accept regex-shaped
// input must reject anything beyond these shapes (see ParseSelector).
type Match struct {
	Field   string
	Pattern string
	Kind    MatchKind
}

func (Match) conditionNode() {}

// SortField is one sort key. Descending=false is ascending.
type SortField struct {
	Field      string
	Descending bool
}

// Query bundles a selector with sort and paging for the read path.
// Skip and Limit use -1 for "unset".
type Query struct {
	Selector Condition
	Sort     []SortField
	Skip     int
	Limit    int
}

// NewQuery returns a Query with unset paging.
func NewQuery(sel Condition) Query {
	return Query{Selector: sel, Skip: -1, Limit: -1}
}
