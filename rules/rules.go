// Package rules maps rule names to rule instances. Names are resolved
// eagerly at run entry so an unknown name fails the run before any I/O
// begins.
package rules

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wayland-systems/graphql-inspector/diff"
	"github.com/wayland-systems/graphql-inspector/errors"
)

// Resolve turns rule names into rule instances. Any unknown name is a hard
// configuration error.
func Resolve(names []string) ([]diff.Rule, error) {
	resolved := make([]diff.Rule, 0, len(names))
	for _, name := range names {
		rule, ok := catalog[name]
		if !ok {
			return nil, errors.WrapInvalid(
				fmt.Errorf("%w: %q (known rules: %s)", errors.ErrUnknownRule, name, strings.Join(Names(), ", ")),
				"rules", "Resolve", "look up rule")
		}
		resolved = append(resolved, rule)
	}
	return resolved, nil
}

// Names lists the known rule names in stable order.
func Names() []string {
	names := make([]string, 0, len(catalog))
	for name := range catalog {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var catalog = map[string]diff.Rule{
	"suppress-removal-of-deprecated-field": suppressRemovalOfDeprecatedField{},
	"ignore-description-changes":           ignoreDescriptionChanges{},
	"dangerous-breaking":                   dangerousBreaking{},
}

// suppressRemovalOfDeprecatedField downgrades removals of elements that were
// already marked deprecated; removing them is the announced end of their
// lifecycle.
type suppressRemovalOfDeprecatedField struct{}

func (suppressRemovalOfDeprecatedField) Name() string {
	return "suppress-removal-of-deprecated-field"
}

func (suppressRemovalOfDeprecatedField) Apply(changes []diff.Change) []diff.Change {
	out := make([]diff.Change, 0, len(changes))
	for _, c := range changes {
		if c.Severity == diff.Breaking && c.WasDeprecated {
			c.Severity = diff.NonBreaking
			c.Message += " (deprecated)"
		}
		out = append(out, c)
	}
	return out
}

// ignoreDescriptionChanges drops description-only changes from the report.
type ignoreDescriptionChanges struct{}

func (ignoreDescriptionChanges) Name() string {
	return "ignore-description-changes"
}

func (ignoreDescriptionChanges) Apply(changes []diff.Change) []diff.Change {
	out := make([]diff.Change, 0, len(changes))
	for _, c := range changes {
		if strings.HasSuffix(c.Type, "_DESCRIPTION_CHANGED") {
			continue
		}
		out = append(out, c)
	}
	return out
}

// dangerousBreaking escalates dangerous changes to breaking for teams that
// want them to fail the check.
type dangerousBreaking struct{}

func (dangerousBreaking) Name() string {
	return "dangerous-breaking"
}

func (dangerousBreaking) Apply(changes []diff.Change) []diff.Change {
	out := make([]diff.Change, 0, len(changes))
	for _, c := range changes {
		if c.Severity == diff.Dangerous {
			c.Severity = diff.Breaking
		}
		out = append(out, c)
	}
	return out
}
