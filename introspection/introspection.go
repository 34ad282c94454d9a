// Package introspection decodes GraphQL introspection results and converts
// them into gqlparser schema documents so both schema input formats end up in
// the same comparable representation.
package introspection

import (
	"encoding/json"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// Result is the decoded __schema payload of a standard introspection query.
type Result struct {
	QueryType        *NamedTypeRef `json:"queryType"`
	MutationType     *NamedTypeRef `json:"mutationType"`
	SubscriptionType *NamedTypeRef `json:"subscriptionType"`
	Types            []FullType    `json:"types"`
	Directives       []Directive   `json:"directives"`
}

// NamedTypeRef identifies a root operation type by name.
type NamedTypeRef struct {
	Name string `json:"name"`
}

// FullType is one type definition from an introspection result.
type FullType struct {
	Kind          string       `json:"kind"`
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	Fields        []Field      `json:"fields"`
	InputFields   []InputValue `json:"inputFields"`
	Interfaces    []TypeRef    `json:"interfaces"`
	EnumValues    []EnumValue  `json:"enumValues"`
	PossibleTypes []TypeRef    `json:"possibleTypes"`
}

// Field is an output field definition.
type Field struct {
	Name              string       `json:"name"`
	Description       string       `json:"description"`
	Args              []InputValue `json:"args"`
	Type              TypeRef      `json:"type"`
	IsDeprecated      bool         `json:"isDeprecated"`
	DeprecationReason string       `json:"deprecationReason"`
}

// InputValue is an argument or input-object field definition.
type InputValue struct {
	Name         string  `json:"name"`
	Description  string  `json:"description"`
	Type         TypeRef `json:"type"`
	DefaultValue *string `json:"defaultValue"`
}

// EnumValue is one possible value of an enum type.
type EnumValue struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	IsDeprecated      bool   `json:"isDeprecated"`
	DeprecationReason string `json:"deprecationReason"`
}

// Directive is a directive definition.
type Directive struct {
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Locations   []string     `json:"locations"`
	Args        []InputValue `json:"args"`
}

// TypeRef is a possibly wrapped type reference.
type TypeRef struct {
	Kind   string   `json:"kind"`
	Name   string   `json:"name"`
	OfType *TypeRef `json:"ofType"`
}

// envelope accepts both a bare {"__schema": ...} object and the full
// {"data": {"__schema": ...}} response shape.
type envelope struct {
	Data *struct {
		Schema *Result `json:"__schema"`
	} `json:"data"`
	Schema *Result `json:"__schema"`
}

// Decode parses raw introspection JSON in either response shape.
func Decode(data []byte) (*Result, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, errors.WrapInvalid(errors.ErrMalformedJSON, "introspection", "Decode", "unmarshal result")
	}
	switch {
	case env.Schema != nil:
		return env.Schema, nil
	case env.Data != nil && env.Data.Schema != nil:
		return env.Data.Schema, nil
	}
	return nil, errors.WrapInvalid(errors.ErrMalformedJSON, "introspection", "Decode", "locate __schema")
}

// builtinScalars and builtinDirectives are part of the gqlparser prelude and
// must not be re-emitted, or loading the converted SDL would report
// redefinitions.
var builtinScalars = map[string]bool{
	"String": true, "Int": true, "Float": true, "Boolean": true, "ID": true,
}

var builtinDirectives = map[string]bool{
	"skip": true, "include": true, "deprecated": true, "specifiedBy": true, "oneOf": true,
}

// SchemaDocument converts a decoded introspection result into an AST schema
// document. Introspection meta types (the __-prefixed ones) and prelude
// built-ins are dropped.
func (r *Result) SchemaDocument() *ast.SchemaDocument {
	doc := &ast.SchemaDocument{}

	if needsSchemaDefinition(r) {
		def := &ast.SchemaDefinition{}
		if r.QueryType != nil {
			def.OperationTypes = append(def.OperationTypes,
				&ast.OperationTypeDefinition{Operation: ast.Query, Type: r.QueryType.Name})
		}
		if r.MutationType != nil {
			def.OperationTypes = append(def.OperationTypes,
				&ast.OperationTypeDefinition{Operation: ast.Mutation, Type: r.MutationType.Name})
		}
		if r.SubscriptionType != nil {
			def.OperationTypes = append(def.OperationTypes,
				&ast.OperationTypeDefinition{Operation: ast.Subscription, Type: r.SubscriptionType.Name})
		}
		doc.Schema = append(doc.Schema, def)
	}

	for _, t := range r.Types {
		if strings.HasPrefix(t.Name, "__") || builtinScalars[t.Name] {
			continue
		}
		if def := convertType(t); def != nil {
			doc.Definitions = append(doc.Definitions, def)
		}
	}

	for _, d := range r.Directives {
		if builtinDirectives[d.Name] {
			continue
		}
		doc.Directives = append(doc.Directives, convertDirective(d))
	}

	return doc
}

// needsSchemaDefinition reports whether the root operation types deviate from
// the default Query/Mutation/Subscription names.
func needsSchemaDefinition(r *Result) bool {
	if r.QueryType != nil && r.QueryType.Name != "Query" {
		return true
	}
	if r.MutationType != nil && r.MutationType.Name != "Mutation" {
		return true
	}
	if r.SubscriptionType != nil && r.SubscriptionType.Name != "Subscription" {
		return true
	}
	return false
}

func convertType(t FullType) *ast.Definition {
	def := &ast.Definition{
		Name:        t.Name,
		Description: t.Description,
	}

	switch t.Kind {
	case "OBJECT":
		def.Kind = ast.Object
	case "INTERFACE":
		def.Kind = ast.Interface
	case "UNION":
		def.Kind = ast.Union
	case "ENUM":
		def.Kind = ast.Enum
	case "INPUT_OBJECT":
		def.Kind = ast.InputObject
	case "SCALAR":
		def.Kind = ast.Scalar
	default:
		return nil
	}

	for _, iface := range t.Interfaces {
		def.Interfaces = append(def.Interfaces, iface.Name)
	}
	for _, member := range t.PossibleTypes {
		if def.Kind == ast.Union {
			def.Types = append(def.Types, member.Name)
		}
	}

	for _, f := range t.Fields {
		field := &ast.FieldDefinition{
			Name:        f.Name,
			Description: f.Description,
			Type:        convertTypeRef(&f.Type),
		}
		for _, arg := range f.Args {
			field.Arguments = append(field.Arguments, convertInputValue(arg))
		}
		if f.IsDeprecated {
			field.Directives = append(field.Directives, deprecatedDirective(f.DeprecationReason))
		}
		def.Fields = append(def.Fields, field)
	}

	for _, in := range t.InputFields {
		field := &ast.FieldDefinition{
			Name:        in.Name,
			Description: in.Description,
			Type:        convertTypeRef(&in.Type),
		}
		if in.DefaultValue != nil {
			field.DefaultValue = literalValue(*in.DefaultValue)
		}
		def.Fields = append(def.Fields, field)
	}

	for _, ev := range t.EnumValues {
		value := &ast.EnumValueDefinition{
			Name:        ev.Name,
			Description: ev.Description,
		}
		if ev.IsDeprecated {
			value.Directives = append(value.Directives, deprecatedDirective(ev.DeprecationReason))
		}
		def.EnumValues = append(def.EnumValues, value)
	}

	return def
}

func convertDirective(d Directive) *ast.DirectiveDefinition {
	def := &ast.DirectiveDefinition{
		Name:        d.Name,
		Description: d.Description,
	}
	for _, arg := range d.Args {
		def.Arguments = append(def.Arguments, convertInputValue(arg))
	}
	for _, loc := range d.Locations {
		def.Locations = append(def.Locations, ast.DirectiveLocation(loc))
	}
	return def
}

func convertInputValue(in InputValue) *ast.ArgumentDefinition {
	arg := &ast.ArgumentDefinition{
		Name:        in.Name,
		Description: in.Description,
		Type:        convertTypeRef(&in.Type),
	}
	if in.DefaultValue != nil {
		arg.DefaultValue = literalValue(*in.DefaultValue)
	}
	return arg
}

func convertTypeRef(t *TypeRef) *ast.Type {
	switch t.Kind {
	case "NON_NULL":
		inner := convertTypeRef(t.OfType)
		inner.NonNull = true
		return inner
	case "LIST":
		return ast.ListType(convertTypeRef(t.OfType), nil)
	default:
		return ast.NamedType(t.Name, nil)
	}
}

// literalValue turns the SDL-encoded defaultValue string from an introspection
// result back into an AST value node.
func literalValue(raw string) *ast.Value {
	switch {
	case raw == "null":
		return &ast.Value{Raw: raw, Kind: ast.NullValue}
	case raw == "true" || raw == "false":
		return &ast.Value{Raw: raw, Kind: ast.BooleanValue}
	case strings.HasPrefix(raw, `"`):
		return &ast.Value{Raw: strings.Trim(raw, `"`), Kind: ast.StringValue}
	case isNumeric(raw):
		if strings.ContainsAny(raw, ".eE") {
			return &ast.Value{Raw: raw, Kind: ast.FloatValue}
		}
		return &ast.Value{Raw: raw, Kind: ast.IntValue}
	default:
		// enum names and composite literals print verbatim
		return &ast.Value{Raw: raw, Kind: ast.EnumValue}
	}
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case i == 0 && (r == '-' || r == '+'):
		case r == '.' || r == 'e' || r == 'E' || r == '-' || r == '+':
		default:
			return false
		}
	}
	return true
}

func deprecatedDirective(reason string) *ast.Directive {
	d := &ast.Directive{Name: "deprecated"}
	if reason != "" {
		d.Arguments = ast.ArgumentList{{
			Name:  "reason",
			Value: &ast.Value{Raw: reason, Kind: ast.StringValue},
		}}
	}
	return d
}
