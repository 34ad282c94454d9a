package diff

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// Engine is the default Classifier. It walks both schemas structurally,
// scores every difference, then lets the run's rules and the optional usage
// checker reclassify before the verdict is drawn.
type Engine struct {
	logger *slog.Logger
}

// NewEngine creates the default classifier.
func NewEngine(logger *slog.Logger) *Engine {
	return &Engine{logger: logger.With("component", "diff")}
}

// Classify implements Classifier.
func (e *Engine) Classify(ctx context.Context, req Request) (*Result, error) {
	changes := compareSchemas(req.Old.Schema, req.New.Schema)

	for _, rule := range req.Rules {
		changes = rule.Apply(changes)
	}

	if req.UsageChecker != nil {
		reclassified, err := applyUsage(ctx, req.UsageChecker, changes)
		if err != nil {
			return nil, errors.Wrap(err, "Engine", "Classify", "check usage")
		}
		changes = reclassified
	}

	sort.SliceStable(changes, func(i, j int) bool {
		if changes[i].Path != changes[j].Path {
			return changes[i].Path < changes[j].Path
		}
		if changes[i].Type != changes[j].Type {
			return changes[i].Type < changes[j].Type
		}
		return changes[i].Message < changes[j].Message
	})

	conclusion := ConclusionSuccess
	for _, c := range changes {
		if c.Severity == Breaking {
			conclusion = ConclusionFailure
			break
		}
	}

	annotations := make([]Annotation, 0, len(changes))
	for _, c := range changes {
		line, column := c.Line, c.Column
		if line == 0 {
			line, column = 1, 1
		}
		annotations = append(annotations, Annotation{
			Path:     req.SchemaPath,
			Line:     line,
			Column:   column,
			Severity: c.Severity,
			Message:  c.Message,
		})
	}

	e.logger.Debug("schemas classified",
		"changes", len(changes), "conclusion", string(conclusion))

	return &Result{
		Conclusion:  conclusion,
		Changes:     changes,
		Annotations: annotations,
	}, nil
}

func applyUsage(ctx context.Context, checker UsageChecker, changes []Change) ([]Change, error) {
	out := make([]Change, 0, len(changes))
	for _, c := range changes {
		if c.Severity == Breaking {
			used, err := checker.IsUsed(ctx, c)
			if err != nil {
				return nil, err
			}
			if !used {
				c.Severity = NonBreaking
				c.Message += " (non-breaking based on usage)"
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// collector accumulates changes during the walk.
type collector struct {
	changes []Change
}

func (c *collector) add(changeType, path, message string, severity Severity, pos *ast.Position) {
	change := Change{Type: changeType, Path: path, Message: message, Severity: severity}
	if pos != nil {
		change.Line = pos.Line
		change.Column = pos.Column
	}
	c.changes = append(c.changes, change)
}

func compareSchemas(oldSchema, newSchema *ast.Schema) []Change {
	c := &collector{}

	for _, name := range unionOfTypeNames(oldSchema, newSchema) {
		oldDef := userType(oldSchema, name)
		newDef := userType(newSchema, name)

		switch {
		case oldDef != nil && newDef == nil:
			c.add("TYPE_REMOVED", name,
				fmt.Sprintf("Type '%s' was removed", name), Breaking, nil)
		case oldDef == nil && newDef != nil:
			c.add("TYPE_ADDED", name,
				fmt.Sprintf("Type '%s' was added", name), NonBreaking, newDef.Position)
		default:
			compareTypes(c, oldDef, newDef)
		}
	}

	compareDirectiveDefinitions(c, oldSchema, newSchema)

	return c.changes
}

func userType(s *ast.Schema, name string) *ast.Definition {
	def, ok := s.Types[name]
	if !ok || def.BuiltIn || strings.HasPrefix(name, "__") {
		return nil
	}
	return def
}

func unionOfTypeNames(oldSchema, newSchema *ast.Schema) []string {
	seen := map[string]bool{}
	for name := range oldSchema.Types {
		seen[name] = true
	}
	for name := range newSchema.Types {
		seen[name] = true
	}
	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func compareTypes(c *collector, oldDef, newDef *ast.Definition) {
	if oldDef.Kind != newDef.Kind {
		c.add("TYPE_KIND_CHANGED", oldDef.Name,
			fmt.Sprintf("Type '%s' changed kind from '%s' to '%s'",
				oldDef.Name, kindName(oldDef.Kind), kindName(newDef.Kind)),
			Breaking, newDef.Position)
		return
	}

	if oldDef.Description != newDef.Description {
		c.add("TYPE_DESCRIPTION_CHANGED", oldDef.Name,
			fmt.Sprintf("Description of type '%s' changed", oldDef.Name),
			NonBreaking, newDef.Position)
	}

	switch oldDef.Kind {
	case ast.Object, ast.Interface:
		compareInterfaces(c, oldDef, newDef)
		compareFields(c, oldDef, newDef)
	case ast.InputObject:
		compareInputFields(c, oldDef, newDef)
	case ast.Enum:
		compareEnumValues(c, oldDef, newDef)
	case ast.Union:
		compareUnionMembers(c, oldDef, newDef)
	}
}

func kindName(k ast.DefinitionKind) string {
	return strings.ToLower(string(k))
}

func compareInterfaces(c *collector, oldDef, newDef *ast.Definition) {
	oldSet := toSet(oldDef.Interfaces)
	newSet := toSet(newDef.Interfaces)

	for _, iface := range sortedKeys(oldSet) {
		if !newSet[iface] {
			c.add("OBJECT_TYPE_INTERFACE_REMOVED", oldDef.Name,
				fmt.Sprintf("'%s' no longer implements interface '%s'", oldDef.Name, iface),
				Breaking, newDef.Position)
		}
	}
	for _, iface := range sortedKeys(newSet) {
		if !oldSet[iface] {
			c.add("OBJECT_TYPE_INTERFACE_ADDED", oldDef.Name,
				fmt.Sprintf("'%s' now implements interface '%s'", oldDef.Name, iface),
				Dangerous, newDef.Position)
		}
	}
}

func compareFields(c *collector, oldDef, newDef *ast.Definition) {
	for _, oldField := range oldDef.Fields {
		if strings.HasPrefix(oldField.Name, "__") {
			continue
		}
		path := oldDef.Name + "." + oldField.Name
		newField := newDef.Fields.ForName(oldField.Name)
		if newField == nil {
			c.changes = append(c.changes, Change{
				Type: "FIELD_REMOVED",
				Path: path,
				Message: fmt.Sprintf("Field '%s' was removed from %s type '%s'",
					oldField.Name, kindName(oldDef.Kind), oldDef.Name),
				Severity:      Breaking,
				WasDeprecated: isDeprecated(oldField.Directives),
				Line:          posLine(newDef.Position),
				Column:        posColumn(newDef.Position),
			})
			continue
		}

		if oldField.Type.String() != newField.Type.String() {
			severity := Breaking
			if safeOutputTypeChange(oldField.Type, newField.Type) {
				severity = NonBreaking
			}
			c.add("FIELD_TYPE_CHANGED", path,
				fmt.Sprintf("Field '%s' changed type from '%s' to '%s'",
					path, oldField.Type.String(), newField.Type.String()),
				severity, newField.Position)
		}

		if oldField.Description != newField.Description {
			c.add("FIELD_DESCRIPTION_CHANGED", path,
				fmt.Sprintf("Description of field '%s' changed", path),
				NonBreaking, newField.Position)
		}

		oldDeprecated := isDeprecated(oldField.Directives)
		newDeprecated := isDeprecated(newField.Directives)
		if !oldDeprecated && newDeprecated {
			c.add("FIELD_DEPRECATION_ADDED", path,
				fmt.Sprintf("Field '%s' is deprecated", path), NonBreaking, newField.Position)
		}
		if oldDeprecated && !newDeprecated {
			c.add("FIELD_DEPRECATION_REMOVED", path,
				fmt.Sprintf("Field '%s' is no longer deprecated", path), NonBreaking, newField.Position)
		}

		compareArguments(c, path, oldField, newField)
	}

	for _, newField := range newDef.Fields {
		if strings.HasPrefix(newField.Name, "__") {
			continue
		}
		if oldDef.Fields.ForName(newField.Name) == nil {
			c.add("FIELD_ADDED", newDef.Name+"."+newField.Name,
				fmt.Sprintf("Field '%s' was added to %s type '%s'",
					newField.Name, kindName(newDef.Kind), newDef.Name),
				NonBreaking, newField.Position)
		}
	}
}

func compareArguments(c *collector, fieldPath string, oldField, newField *ast.FieldDefinition) {
	for _, oldArg := range oldField.Arguments {
		path := fieldPath + "." + oldArg.Name
		newArg := newField.Arguments.ForName(oldArg.Name)
		if newArg == nil {
			c.add("ARG_REMOVED", path,
				fmt.Sprintf("Argument '%s' was removed from field '%s'", oldArg.Name, fieldPath),
				Breaking, newField.Position)
			continue
		}

		if oldArg.Type.String() != newArg.Type.String() {
			severity := Breaking
			if safeInputTypeChange(oldArg.Type, newArg.Type) {
				severity = NonBreaking
			}
			c.add("ARG_TYPE_CHANGED", path,
				fmt.Sprintf("Argument '%s' of field '%s' changed type from '%s' to '%s'",
					oldArg.Name, fieldPath, oldArg.Type.String(), newArg.Type.String()),
				severity, newField.Position)
		}

		if valueString(oldArg.DefaultValue) != valueString(newArg.DefaultValue) {
			c.add("ARG_DEFAULT_VALUE_CHANGED", path,
				fmt.Sprintf("Default value of argument '%s' on field '%s' changed", oldArg.Name, fieldPath),
				Dangerous, newField.Position)
		}
	}

	for _, newArg := range newField.Arguments {
		if oldField.Arguments.ForName(newArg.Name) != nil {
			continue
		}
		severity := Dangerous
		if newArg.Type.NonNull && newArg.DefaultValue == nil {
			severity = Breaking
		}
		c.add("ARG_ADDED", fieldPath+"."+newArg.Name,
			fmt.Sprintf("Argument '%s: %s' was added to field '%s'",
				newArg.Name, newArg.Type.String(), fieldPath),
			severity, newField.Position)
	}
}

func compareInputFields(c *collector, oldDef, newDef *ast.Definition) {
	for _, oldField := range oldDef.Fields {
		path := oldDef.Name + "." + oldField.Name
		newField := newDef.Fields.ForName(oldField.Name)
		if newField == nil {
			c.add("INPUT_FIELD_REMOVED", path,
				fmt.Sprintf("Input field '%s' was removed from input type '%s'",
					oldField.Name, oldDef.Name),
				Breaking, newDef.Position)
			continue
		}

		if oldField.Type.String() != newField.Type.String() {
			severity := Breaking
			if safeInputTypeChange(oldField.Type, newField.Type) {
				severity = NonBreaking
			}
			c.add("INPUT_FIELD_TYPE_CHANGED", path,
				fmt.Sprintf("Input field '%s' changed type from '%s' to '%s'",
					path, oldField.Type.String(), newField.Type.String()),
				severity, newField.Position)
		}

		if oldField.Description != newField.Description {
			c.add("INPUT_FIELD_DESCRIPTION_CHANGED", path,
				fmt.Sprintf("Description of input field '%s' changed", path),
				NonBreaking, newField.Position)
		}

		if valueString(oldField.DefaultValue) != valueString(newField.DefaultValue) {
			c.add("INPUT_FIELD_DEFAULT_VALUE_CHANGED", path,
				fmt.Sprintf("Default value of input field '%s' changed", path),
				Dangerous, newField.Position)
		}
	}

	for _, newField := range newDef.Fields {
		if oldDef.Fields.ForName(newField.Name) != nil {
			continue
		}
		severity := Dangerous
		if newField.Type.NonNull && newField.DefaultValue == nil {
			severity = Breaking
		}
		c.add("INPUT_FIELD_ADDED", newDef.Name+"."+newField.Name,
			fmt.Sprintf("Input field '%s: %s' was added to input type '%s'",
				newField.Name, newField.Type.String(), newDef.Name),
			severity, newField.Position)
	}
}

func compareEnumValues(c *collector, oldDef, newDef *ast.Definition) {
	for _, oldValue := range oldDef.EnumValues {
		path := oldDef.Name + "." + oldValue.Name
		if newDef.EnumValues.ForName(oldValue.Name) == nil {
			c.changes = append(c.changes, Change{
				Type: "ENUM_VALUE_REMOVED",
				Path: path,
				Message: fmt.Sprintf("Enum value '%s' was removed from enum '%s'",
					oldValue.Name, oldDef.Name),
				Severity:      Breaking,
				WasDeprecated: isDeprecated(oldValue.Directives),
				Line:          posLine(newDef.Position),
				Column:        posColumn(newDef.Position),
			})
		}
	}
	for _, newValue := range newDef.EnumValues {
		if oldDef.EnumValues.ForName(newValue.Name) == nil {
			c.add("ENUM_VALUE_ADDED", newDef.Name+"."+newValue.Name,
				fmt.Sprintf("Enum value '%s' was added to enum '%s'", newValue.Name, newDef.Name),
				Dangerous, newDef.Position)
		}
	}
}

func compareUnionMembers(c *collector, oldDef, newDef *ast.Definition) {
	oldSet := toSet(oldDef.Types)
	newSet := toSet(newDef.Types)

	for _, member := range sortedKeys(oldSet) {
		if !newSet[member] {
			c.add("UNION_MEMBER_REMOVED", oldDef.Name,
				fmt.Sprintf("Member '%s' was removed from union type '%s'", member, oldDef.Name),
				Breaking, newDef.Position)
		}
	}
	for _, member := range sortedKeys(newSet) {
		if !oldSet[member] {
			c.add("UNION_MEMBER_ADDED", oldDef.Name,
				fmt.Sprintf("Member '%s' was added to union type '%s'", member, oldDef.Name),
				Dangerous, newDef.Position)
		}
	}
}

var builtinDirectives = map[string]bool{
	"skip": true, "include": true, "deprecated": true, "specifiedBy": true, "oneOf": true,
}

func compareDirectiveDefinitions(c *collector, oldSchema, newSchema *ast.Schema) {
	names := map[string]bool{}
	for name := range oldSchema.Directives {
		names[name] = true
	}
	for name := range newSchema.Directives {
		names[name] = true
	}

	for _, name := range sortedKeys(names) {
		if builtinDirectives[name] {
			continue
		}
		_, inOld := oldSchema.Directives[name]
		newDef, inNew := newSchema.Directives[name]
		switch {
		case inOld && !inNew:
			c.add("DIRECTIVE_REMOVED", "@"+name,
				fmt.Sprintf("Directive '@%s' was removed", name), Breaking, nil)
		case !inOld && inNew:
			c.add("DIRECTIVE_ADDED", "@"+name,
				fmt.Sprintf("Directive '@%s' was added", name), NonBreaking, newDef.Position)
		}
	}
}

// safeOutputTypeChange reports whether an output type change cannot break
// clients: the named type is unchanged and non-null is only ever added.
func safeOutputTypeChange(oldType, newType *ast.Type) bool {
	if oldType.NonNull && !newType.NonNull {
		return false
	}
	if oldType.NamedType != "" || newType.NamedType != "" {
		return oldType.NamedType == newType.NamedType
	}
	return safeOutputTypeChange(oldType.Elem, newType.Elem)
}

// safeInputTypeChange is the mirror: non-null may only ever be dropped.
func safeInputTypeChange(oldType, newType *ast.Type) bool {
	if newType.NonNull && !oldType.NonNull {
		return false
	}
	if oldType.NamedType != "" || newType.NamedType != "" {
		return oldType.NamedType == newType.NamedType
	}
	return safeInputTypeChange(oldType.Elem, newType.Elem)
}

func isDeprecated(directives ast.DirectiveList) bool {
	return directives.ForName("deprecated") != nil
}

func valueString(v *ast.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func toSet(items []string) map[string]bool {
	set := make(map[string]bool, len(items))
	for _, item := range items {
		set[item] = true
	}
	return set
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func posLine(pos *ast.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Line
}

func posColumn(pos *ast.Position) int {
	if pos == nil {
		return 0
	}
	return pos.Column
}
