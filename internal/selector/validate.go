package selector

// Validate performs structural checks on a condition tree before
// compilation: non-empty field names, non-nil children, known operators,
// and no nil literals under ordering operators.
//
// Validate is a pure function with no side effects. Field existence
// against a concrete schema is checked later by the SQL backend, which
// holds the column map.
func Validate(c Condition) error {
	if c == nil {
		return nil // no filter
	}
	return validateNode(c)
}

func validateNode(c Condition) error {
	switch node := c.(type) {
	case And:
		return validateChildren(node.Children)
	case *And:
		return validateChildren(node.Children)
	case Or:
		return validateChildren(node.Children)
	case *Or:
		return validateChildren(node.Children)
	case Not:
		return validateNot(node)
	case *Not:
		return validateNot(*node)
	case Compare:
		return validateCompare(node)
	case *Compare:
		return validateCompare(*node)
	case In:
		return validateIn(node)
	case *In:
		return validateIn(*node)
	case Exists:
		return validateField(node.Field)
	case *Exists:
		return validateField(node.Field)
	case Match:
		return validateMatch(node)
	case *Match:
		return validateMatch(*node)
	default:
		return Errorf("", "unsupported condition type %T", c)
	}
}

func validateChildren(children []Condition) error {
	for _, child := range children {
		if child == nil {
			return Errorf("", "nil child condition")
		}
		if err := validateNode(child); err != nil {
			return err
		}
	}
	return nil
}

func validateNot(n Not) error {
	if n.Child == nil {
		return Errorf("", "NOT requires a child condition")
	}
	return validateNode(n.Child)
}

func validateCompare(cmp Compare) error {
	if err := validateField(cmp.Field); err != nil {
		return err
	}
	switch cmp.Op {
	case OpEq, OpNe:
		// nil literal is legal: lowered to IS [NOT] NULL.
	case OpGt, OpGte, OpLt, OpLte:
		if cmp.Value == nil {
			return Errorf(cmp.Field, "null literal under ordering operator %s", cmp.Op)
		}
	default:
		return Errorf(cmp.Field, "unknown operator %d", int(cmp.Op))
	}
	return nil
}

func validateIn(in In) error {
	if err := validateField(in.Field); err != nil {
		return err
	}
	for _, v := range in.Values {
		if v == nil {
			// NULL never matches IN; the caller meant Exists.
			return Errorf(in.Field, "null literal in IN set")
		}
	}
	return nil
}

func validateMatch(m Match) error {
	if err := validateField(m.Field); err != nil {
		return err
	}
	switch m.Kind {
	case MatchContains, MatchPrefix, MatchSuffix:
	default:
		return Errorf(m.Field, "unknown match kind %d", int(m.Kind))
	}
	if m.Pattern == "" {
		return Errorf(m.Field, "empty pattern")
	}
	return nil
}

func validateField(field string) error {
	if field == "" {
		return Errorf("", "empty field name")
	}
	return nil
}
