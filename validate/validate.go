// Package validate loads client operation documents and cross-validates them
// against the proposed schema, surfacing operations the schema change would
// invalidate.
package validate

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// Finding is one invalid-usage report against the new schema.
type Finding struct {
	// Source is the operation file the finding points at.
	Source string
	Line   int
	Column int
	Reason string
}

// Document is a successfully parsed operation file.
type Document struct {
	Path string
	AST  *ast.QueryDocument
}

// CrossValidator checks parsed operation documents against a schema.
type CrossValidator interface {
	Validate(ctx context.Context, schema *ast.Schema, docs []Document) []Finding
}

// Loader reads operation documents matching glob patterns under a root
// directory. Files that fail to parse are excluded silently; only documents
// that form a valid abstract document are checked for schema-usage validity.
type Loader struct {
	root   string
	logger *slog.Logger
}

// NewLoader creates a loader rooted at the workspace directory.
func NewLoader(root string, logger *slog.Logger) *Loader {
	return &Loader{root: root, logger: logger.With("component", "documents")}
}

// Load resolves the glob patterns and parses every match.
func (l *Loader) Load(patterns []string) ([]Document, error) {
	if len(patterns) == 0 {
		return nil, nil
	}

	fsys := os.DirFS(l.root)
	seen := map[string]bool{}
	var paths []string

	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, pattern)
		if err != nil {
			return nil, errors.WrapInvalid(err, "Loader", "Load", "expand pattern "+pattern)
		}
		for _, match := range matches {
			if !seen[match] {
				seen[match] = true
				paths = append(paths, match)
			}
		}
	}
	sort.Strings(paths)

	var docs []Document
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			return nil, errors.WrapFatal(err, "Loader", "Load", "read document "+path)
		}

		doc, parseErr := parser.ParseQuery(&ast.Source{Name: path, Input: string(data)})
		if parseErr != nil {
			l.logger.Debug("document excluded, parse failed", "path", path, "error", parseErr)
			continue
		}
		docs = append(docs, Document{Path: filepath.ToSlash(path), AST: doc})
	}

	l.logger.Debug("documents loaded", "patterns", len(patterns), "documents", len(docs))
	return docs, nil
}

// Checker is the default CrossValidator, backed by the gqlparser validation
// rule set.
type Checker struct {
	logger *slog.Logger
}

// NewChecker creates the default cross validator.
func NewChecker(logger *slog.Logger) *Checker {
	return &Checker{logger: logger.With("component", "validate")}
}

// Validate implements CrossValidator against the new schema only.
func (c *Checker) Validate(_ context.Context, schema *ast.Schema, docs []Document) []Finding {
	var findings []Finding

	for _, doc := range docs {
		for _, gqlErr := range validator.Validate(schema, doc.AST) {
			finding := Finding{
				Source: doc.Path,
				Reason: gqlErr.Message,
			}
			if len(gqlErr.Locations) > 0 {
				finding.Line = gqlErr.Locations[0].Line
				finding.Column = gqlErr.Locations[0].Column
			}
			findings = append(findings, finding)
		}
	}

	c.logger.Debug("documents cross-validated", "documents", len(docs), "findings", len(findings))
	return findings
}
