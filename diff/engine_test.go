package diff

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayland-systems/graphql-inspector/schema"
)

func testEngine() *Engine {
	return NewEngine(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func canonical(t *testing.T, sdl string, side schema.Side) *schema.Canonical {
	t.Helper()
	c, err := schema.Build(schema.Payload{Text: sdl, Label: string(side)}, schema.FormatSDL, side)
	require.NoError(t, err)
	return c
}

func classify(t *testing.T, oldSDL, newSDL string, rules ...Rule) *Result {
	t.Helper()
	result, err := testEngine().Classify(context.Background(), Request{
		SchemaPath: "schema.graphql",
		Old:        canonical(t, oldSDL, schema.SideOld),
		New:        canonical(t, newSDL, schema.SideNew),
		Rules:      rules,
	})
	require.NoError(t, err)
	return result
}

func changeTypes(changes []Change) []string {
	types := make([]string, 0, len(changes))
	for _, c := range changes {
		types = append(types, c.Type)
	}
	return types
}

func TestClassify_IdenticalSchemas(t *testing.T) {
	sdl := "type Query { a: String }"
	result := classify(t, sdl, sdl)

	assert.Empty(t, result.Changes)
	assert.Equal(t, ConclusionSuccess, result.Conclusion)
}

func TestClassify_FieldTypeChangedIsBreaking(t *testing.T) {
	result := classify(t,
		"type Query { a: String }",
		"type Query { a: Int }")

	require.Len(t, result.Changes, 1)
	change := result.Changes[0]
	assert.Equal(t, "FIELD_TYPE_CHANGED", change.Type)
	assert.Equal(t, Breaking, change.Severity)
	assert.Contains(t, change.Message, "'String' to 'Int'")
	assert.Equal(t, ConclusionFailure, result.Conclusion)
}

func TestClassify_SafeTypeChanges(t *testing.T) {
	tests := []struct {
		name     string
		old, new string
		severity Severity
	}{
		{"output gains non-null", "type Query { a: String }", "type Query { a: String! }", NonBreaking},
		{"output loses non-null", "type Query { a: String! }", "type Query { a: String }", Breaking},
		{"list item gains non-null", "type Query { a: [String] }", "type Query { a: [String!] }", NonBreaking},
		{"named to list", "type Query { a: String }", "type Query { a: [String] }", Breaking},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			result := classify(t, test.old, test.new)
			require.Len(t, result.Changes, 1)
			assert.Equal(t, test.severity, result.Changes[0].Severity)
		})
	}
}

func TestClassify_FieldRemoved(t *testing.T) {
	result := classify(t,
		"type Query { a: String b: String }",
		"type Query { a: String }")

	require.Len(t, result.Changes, 1)
	assert.Equal(t, "FIELD_REMOVED", result.Changes[0].Type)
	assert.Equal(t, Breaking, result.Changes[0].Severity)
	assert.Equal(t, "Query.b", result.Changes[0].Path)
	assert.Equal(t, ConclusionFailure, result.Conclusion)
}

func TestClassify_DeprecatedFieldRemovalSuppressedByRule(t *testing.T) {
	oldSDL := `type Query { a: String b: String @deprecated(reason: "gone soon") }`
	newSDL := `type Query { a: String }`

	raw := classify(t, oldSDL, newSDL)
	require.Len(t, raw.Changes, 1)
	assert.True(t, raw.Changes[0].WasDeprecated)
	assert.Equal(t, ConclusionFailure, raw.Conclusion)

	suppressed := classify(t, oldSDL, newSDL, suppressDeprecated{})
	require.Len(t, suppressed.Changes, 1)
	assert.Equal(t, NonBreaking, suppressed.Changes[0].Severity)
	assert.Equal(t, ConclusionSuccess, suppressed.Conclusion)
}

// suppressDeprecated mirrors the registry rule without importing it, keeping
// the package dependency one-way.
type suppressDeprecated struct{}

func (suppressDeprecated) Name() string { return "suppress-removal-of-deprecated-field" }
func (suppressDeprecated) Apply(changes []Change) []Change {
	for i, c := range changes {
		if c.Severity == Breaking && c.WasDeprecated {
			changes[i].Severity = NonBreaking
		}
	}
	return changes
}

func TestClassify_TypeLifecycle(t *testing.T) {
	result := classify(t,
		"type Query { a: String } type Gone { x: Int }",
		"type Query { a: String } type Fresh { y: Int }")

	assert.ElementsMatch(t, []string{"TYPE_REMOVED", "TYPE_ADDED"}, changeTypes(result.Changes))
	assert.Equal(t, ConclusionFailure, result.Conclusion)
}

func TestClassify_Arguments(t *testing.T) {
	result := classify(t,
		`type Query { a(x: Int, y: String): String }`,
		`type Query { a(x: Int, z: Boolean!, w: Boolean): String }`)

	byType := map[string]Change{}
	for _, c := range result.Changes {
		byType[c.Type+":"+c.Path] = c
	}

	assert.Equal(t, Breaking, byType["ARG_REMOVED:Query.a.y"].Severity)
	assert.Equal(t, Breaking, byType["ARG_ADDED:Query.a.z"].Severity, "required argument added")
	assert.Equal(t, Dangerous, byType["ARG_ADDED:Query.a.w"].Severity, "optional argument added")
}

func TestClassify_InputFields(t *testing.T) {
	result := classify(t,
		`input Filter { a: String b: Int } type Query { q(f: Filter): String }`,
		`input Filter { a: String! c: Int! d: Int } type Query { q(f: Filter): String }`)

	byKey := map[string]Severity{}
	for _, c := range result.Changes {
		byKey[c.Type+":"+c.Path] = c.Severity
	}

	assert.Equal(t, Breaking, byKey["INPUT_FIELD_TYPE_CHANGED:Filter.a"], "input gained non-null")
	assert.Equal(t, Breaking, byKey["INPUT_FIELD_REMOVED:Filter.b"])
	assert.Equal(t, Breaking, byKey["INPUT_FIELD_ADDED:Filter.c"], "required input field added")
	assert.Equal(t, Dangerous, byKey["INPUT_FIELD_ADDED:Filter.d"], "optional input field added")
}

func TestClassify_Enums(t *testing.T) {
	result := classify(t,
		"enum Role { ADMIN USER } type Query { r: Role }",
		"enum Role { ADMIN GUEST } type Query { r: Role }")

	byType := map[string]Severity{}
	for _, c := range result.Changes {
		byType[c.Type] = c.Severity
	}
	assert.Equal(t, Breaking, byType["ENUM_VALUE_REMOVED"])
	assert.Equal(t, Dangerous, byType["ENUM_VALUE_ADDED"])
}

func TestClassify_Unions(t *testing.T) {
	result := classify(t,
		"type A { x: Int } type B { y: Int } union U = A | B\ntype Query { u: U }",
		"type A { x: Int } type B { y: Int } type C { z: Int } union U = A | C\ntype Query { u: U }")

	types := changeTypes(result.Changes)
	assert.Contains(t, types, "UNION_MEMBER_REMOVED")
	assert.Contains(t, types, "UNION_MEMBER_ADDED")
	assert.Contains(t, types, "TYPE_ADDED")
}

func TestClassify_Interfaces(t *testing.T) {
	result := classify(t,
		"interface Node { id: ID! } type Query implements Node { id: ID! a: String }",
		"type Query { id: ID! a: String }")

	types := changeTypes(result.Changes)
	assert.Contains(t, types, "OBJECT_TYPE_INTERFACE_REMOVED")
	assert.Contains(t, types, "TYPE_REMOVED")
}

func TestClassify_Deterministic(t *testing.T) {
	oldSDL := `
type Query { a: String b: Int c: Role }
enum Role { ADMIN USER }
type Extra { x: Int y: String }
`
	newSDL := `
type Query { a: Int c: Role d: String }
enum Role { ADMIN GUEST }
`
	first := classify(t, oldSDL, newSDL)
	require.NotEmpty(t, first.Changes)

	for range 10 {
		again := classify(t, oldSDL, newSDL)
		assert.Equal(t, first.Changes, again.Changes)
	}
}

func TestClassify_AnnotationsCarrySchemaPath(t *testing.T) {
	result := classify(t,
		"type Query { a: String }",
		"type Query { a: Int }")

	require.Len(t, result.Annotations, 1)
	annotation := result.Annotations[0]
	assert.Equal(t, "schema.graphql", annotation.Path)
	assert.Equal(t, Breaking, annotation.Severity)
	assert.Positive(t, annotation.Line)
}

type fakeUsage struct {
	used map[string]bool
	err  error
}

func (f *fakeUsage) IsUsed(_ context.Context, change Change) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	return f.used[change.Path], nil
}

func TestClassify_UsageCheckerDowngradesUnused(t *testing.T) {
	result, err := testEngine().Classify(context.Background(), Request{
		SchemaPath:   "schema.graphql",
		Old:          canonical(t, "type Query { a: String b: String }", schema.SideOld),
		New:          canonical(t, "type Query { b: String }", schema.SideNew),
		UsageChecker: &fakeUsage{used: map[string]bool{}},
	})
	require.NoError(t, err)

	require.Len(t, result.Changes, 1)
	assert.Equal(t, NonBreaking, result.Changes[0].Severity)
	assert.Contains(t, result.Changes[0].Message, "based on usage")
	assert.Equal(t, ConclusionSuccess, result.Conclusion)
}

func TestClassify_UsageCheckerKeepsUsed(t *testing.T) {
	result, err := testEngine().Classify(context.Background(), Request{
		SchemaPath:   "schema.graphql",
		Old:          canonical(t, "type Query { a: String b: String }", schema.SideOld),
		New:          canonical(t, "type Query { b: String }", schema.SideNew),
		UsageChecker: &fakeUsage{used: map[string]bool{"Query.a": true}},
	})
	require.NoError(t, err)
	assert.Equal(t, ConclusionFailure, result.Conclusion)
}

func TestClassify_UsageCheckerError(t *testing.T) {
	_, err := testEngine().Classify(context.Background(), Request{
		SchemaPath:   "schema.graphql",
		Old:          canonical(t, "type Query { a: String }", schema.SideOld),
		New:          canonical(t, "type Query { b: String }", schema.SideNew),
		UsageChecker: &fakeUsage{err: errors.New("usage backend down")},
	})
	assert.Error(t, err)
}
