package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayland-systems/graphql-inspector/diff"
	"github.com/wayland-systems/graphql-inspector/errors"
)

func TestResolve(t *testing.T) {
	resolved, err := Resolve([]string{"suppress-removal-of-deprecated-field", "dangerous-breaking"})
	require.NoError(t, err)
	require.Len(t, resolved, 2)
	assert.Equal(t, "suppress-removal-of-deprecated-field", resolved[0].Name())
	assert.Equal(t, "dangerous-breaking", resolved[1].Name())
}

func TestResolve_UnknownNameFailsFast(t *testing.T) {
	_, err := Resolve([]string{"no-such-rule"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUnknownRule)
	assert.Contains(t, err.Error(), "no-such-rule")
}

func TestResolve_Empty(t *testing.T) {
	resolved, err := Resolve(nil)
	require.NoError(t, err)
	assert.Empty(t, resolved)
}

func TestNames_Stable(t *testing.T) {
	assert.Equal(t, Names(), Names())
	assert.Contains(t, Names(), "ignore-description-changes")
}

func TestSuppressRemovalOfDeprecatedField(t *testing.T) {
	changes := []diff.Change{
		{Type: "FIELD_REMOVED", Path: "Query.old", Severity: diff.Breaking, WasDeprecated: true, Message: "Field 'old' was removed from object type 'Query'"},
		{Type: "FIELD_REMOVED", Path: "Query.live", Severity: diff.Breaking, Message: "Field 'live' was removed from object type 'Query'"},
	}

	out := catalog["suppress-removal-of-deprecated-field"].Apply(changes)
	require.Len(t, out, 2)
	assert.Equal(t, diff.NonBreaking, out[0].Severity)
	assert.Contains(t, out[0].Message, "(deprecated)")
	assert.Equal(t, diff.Breaking, out[1].Severity)
}

func TestIgnoreDescriptionChanges(t *testing.T) {
	changes := []diff.Change{
		{Type: "FIELD_DESCRIPTION_CHANGED", Path: "Query.a"},
		{Type: "TYPE_DESCRIPTION_CHANGED", Path: "Query"},
		{Type: "FIELD_REMOVED", Path: "Query.b", Severity: diff.Breaking},
	}

	out := catalog["ignore-description-changes"].Apply(changes)
	require.Len(t, out, 1)
	assert.Equal(t, "FIELD_REMOVED", out[0].Type)
}

func TestDangerousBreaking(t *testing.T) {
	changes := []diff.Change{
		{Type: "ENUM_VALUE_ADDED", Severity: diff.Dangerous},
		{Type: "FIELD_ADDED", Severity: diff.NonBreaking},
	}

	out := catalog["dangerous-breaking"].Apply(changes)
	assert.Equal(t, diff.Breaking, out[0].Severity)
	assert.Equal(t, diff.NonBreaking, out[1].Severity)
}
