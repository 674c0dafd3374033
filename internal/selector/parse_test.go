package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSelector_Equality(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"name": "Soup"}`))
	require.NoError(t, err)

	cmp, ok := cond.(Compare)
	require.True(t, ok, "got %T", cond)
	assert.Equal(t, "name", cmp.Field)
	assert.Equal(t, OpEq, cmp.Op)
	assert.Equal(t, "Soup", cmp.Value)
}

func TestParseSelector_NullEquality(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"categoryId": null}`))
	require.NoError(t, err)

	cmp, ok := cond.(Compare)
	require.True(t, ok)
	assert.Equal(t, OpEq, cmp.Op)
	assert.Nil(t, cmp.Value)
}

func TestParseSelector_Numbers(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"age": {"$gte": 30}}`))
	require.NoError(t, err)

	cmp := cond.(Compare)
	assert.Equal(t, OpGte, cmp.Op)
	// Integral JSON numbers come back as int64, not float64.
	assert.Equal(t, int64(30), cmp.Value)

	cond, err = ParseSelector([]byte(`{"score": {"$lt": 1.5}}`))
	require.NoError(t, err)
	assert.Equal(t, 1.5, cond.(Compare).Value)
}

func TestParseSelector_SiblingsCombineWithAnd(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"b": 1, "a": 2}`))
	require.NoError(t, err)

	and, ok := cond.(And)
	require.True(t, ok, "got %T", cond)
	require.Len(t, and.Children, 2)
	// Keys sort for deterministic compilation.
	assert.Equal(t, "a", and.Children[0].(Compare).Field)
	assert.Equal(t, "b", and.Children[1].(Compare).Field)
}

func TestParseSelector_Logical(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"$or": [{"a": 1}, {"$not": {"b": 2}}]}`))
	require.NoError(t, err)

	or, ok := cond.(Or)
	require.True(t, ok)
	require.Len(t, or.Children, 2)

	_, ok = or.Children[0].(Compare)
	assert.True(t, ok)
	not, ok := or.Children[1].(Not)
	require.True(t, ok)
	assert.Equal(t, "b", not.Child.(Compare).Field)
}

func TestParseSelector_InNinExists(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"status": {"$in": ["a", "b"]}}`))
	require.NoError(t, err)
	in := cond.(In)
	assert.False(t, in.Negate)
	assert.Equal(t, []any{"a", "b"}, in.Values)

	cond, err = ParseSelector([]byte(`{"status": {"$nin": []}}`))
	require.NoError(t, err)
	in = cond.(In)
	assert.True(t, in.Negate)
	assert.Empty(t, in.Values)

	cond, err = ParseSelector([]byte(`{"categoryId": {"$exists": false}}`))
	require.NoError(t, err)
	ex := cond.(Exists)
	assert.False(t, ex.Present)
}

func TestParseSelector_MultipleOpsOneField(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"age": {"$gte": 18, "$lt": 65}}`))
	require.NoError(t, err)

	and, ok := cond.(And)
	require.True(t, ok)
	require.Len(t, and.Children, 2)
	assert.Equal(t, OpGte, and.Children[0].(Compare).Op)
	assert.Equal(t, OpLt, and.Children[1].(Compare).Op)
}

func TestParseSelector_Regex(t *testing.T) {
	cond, err := ParseSelector([]byte(`{"name": {"$regex": "oup"}}`))
	require.NoError(t, err)
	m := cond.(Match)
	assert.Equal(t, MatchContains, m.Kind)
	assert.Equal(t, "oup", m.Pattern)

	cond, err = ParseSelector([]byte(`{"name": {"$regex": "^So"}}`))
	require.NoError(t, err)
	assert.Equal(t, MatchPrefix, cond.(Match).Kind)

	cond, err = ParseSelector([]byte(`{"name": {"$regex": "up$"}}`))
	require.NoError(t, err)
	m = cond.(Match)
	assert.Equal(t, MatchSuffix, m.Kind)
	assert.Equal(t, "up", m.Pattern)
}

func TestParseSelector_RejectsRealRegex(t *testing.T) {
	for _, pattern := range []string{`a.*b`, `a+`, `[abc]`, `a|b`, `a\d`, `(group)`} {
		_, err := ParseSelector([]byte(`{"name": {"$regex": "` + pattern + `"}}`))
		require.Error(t, err, "pattern %q", pattern)
		assert.True(t, IsCompileError(err), "pattern %q: got %v", pattern, err)
	}
}

func TestParseSelector_UnknownOperator(t *testing.T) {
	_, err := ParseSelector([]byte(`{"age": {"$mod": 3}}`))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))

	_, err = ParseSelector([]byte(`{"$nor": [{"a": 1}]}`))
	require.Error(t, err)
	assert.True(t, IsCompileError(err))
}

func TestParseSelector_Empty(t *testing.T) {
	cond, err := ParseSelector([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, cond)
}

func TestParseSelector_ObjectLiteralEquality(t *testing.T) {
	// An object without $-keys is an equality match, not an operator set.
	cond, err := ParseSelector([]byte(`{"profile": {"city": "Berlin"}}`))
	require.NoError(t, err)

	cmp, ok := cond.(Compare)
	require.True(t, ok, "got %T", cond)
	assert.Equal(t, OpEq, cmp.Op)
	assert.Equal(t, map[string]any{"city": "Berlin"}, cmp.Value)
}
