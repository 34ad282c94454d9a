// Package schema builds canonical, comparable schema objects from raw schema
// payloads, regardless of whether they arrived as SDL text or as an
// introspection result.
package schema

import (
	"fmt"
	"path"
	"strings"

	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/wayland-systems/graphql-inspector/errors"
	"github.com/wayland-systems/graphql-inspector/introspection"
)

// Side tags which end of the comparison a schema belongs to.
type Side string

const (
	// SideOld is the previously published schema.
	SideOld Side = "old"
	// SideNew is the proposed schema.
	SideNew Side = "new"
)

// Format distinguishes the two accepted input formats.
type Format int

const (
	// FormatSDL is schema definition language text.
	FormatSDL Format = iota
	// FormatIntrospectionJSON is a JSON-encoded introspection result.
	FormatIntrospectionJSON
)

// FormatForPath picks the input format from the schema file extension.
// Dispatch is by extension, not content sniffing: only ".json" selects the
// introspection format.
func FormatForPath(schemaPath string) Format {
	if strings.EqualFold(path.Ext(schemaPath), ".json") {
		return FormatIntrospectionJSON
	}
	return FormatSDL
}

// Payload is raw schema text together with its provenance.
type Payload struct {
	Text string
	// Label names where the text came from (revision, path or URL); it is
	// used as the source name so diagnostics point at the right side.
	Label string
	// FromEndpoint marks text that was produced by live introspection and is
	// therefore already rendered as SDL.
	FromEndpoint bool
}

// Canonical is the comparable form of one schema: the parsed schema plus the
// canonical textual source the classifier anchors annotations to.
type Canonical struct {
	Schema *ast.Schema
	Source *ast.Source
}

// Build converts a raw payload into its canonical form.
//
// Introspection JSON is decoded and re-printed as SDL so that field and key
// ordering is normalized and the comparison is structural rather than textual.
// SDL input keeps its raw text as the canonical source, preserving line and
// column fidelity for annotation placement.
func Build(payload Payload, format Format, side Side) (*Canonical, error) {
	text := payload.Text

	if format == FormatIntrospectionJSON && !payload.FromEndpoint {
		sdl, err := introspection.SDLFromJSON([]byte(text))
		if err != nil {
			return nil, errors.WrapFatal(
				fmt.Errorf("%s side: %w: %v", side, errors.ErrSchemaBuild, err),
				"schema", "Build", "decode introspection result")
		}
		text = sdl
	}

	source := &ast.Source{Name: payload.Label, Input: text}
	parsed, gqlErr := gqlparser.LoadSchema(source)
	if gqlErr != nil {
		return nil, errors.WrapFatal(
			fmt.Errorf("%s side: %w: %v", side, errors.ErrSchemaBuild, gqlErr),
			"schema", "Build", "parse schema")
	}

	return &Canonical{Schema: parsed, Source: source}, nil
}

// Print renders a parsed schema back to SDL.
func Print(s *ast.Schema) string {
	var sb strings.Builder
	formatter.NewFormatter(&sb).FormatSchema(s)
	return sb.String()
}
