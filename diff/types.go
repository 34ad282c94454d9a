// Package diff defines the schema-change classification contract and a
// rule-driven default classifier. The runner depends only on the Classifier
// interface, so alternative engines can be injected.
package diff

import (
	"context"

	"github.com/wayland-systems/graphql-inspector/schema"
)

// Severity scores how a change affects existing clients.
type Severity int

const (
	// NonBreaking changes cannot affect valid client operations.
	NonBreaking Severity = iota
	// Dangerous changes keep operations valid but may alter their behavior.
	Dangerous
	// Breaking changes can make previously valid operations fail.
	Breaking
)

// String returns the string representation of Severity
func (s Severity) String() string {
	switch s {
	case NonBreaking:
		return "non-breaking"
	case Dangerous:
		return "dangerous"
	case Breaking:
		return "breaking"
	default:
		return "unknown"
	}
}

// Conclusion is the raw pass/fail verdict of a classification.
type Conclusion string

const (
	// ConclusionSuccess is the passing verdict.
	ConclusionSuccess Conclusion = "success"
	// ConclusionFailure is the failing verdict.
	ConclusionFailure Conclusion = "failure"
)

// Change is one classified difference between two schemas.
type Change struct {
	// Type is the machine-readable change identifier, e.g. FIELD_REMOVED.
	Type string
	// Path locates the changed element, e.g. "Query.a".
	Path string
	// Message describes the change for humans.
	Message string
	Severity Severity

	// WasDeprecated is set on removals of elements that were marked
	// deprecated in the old schema; some rules downgrade those.
	WasDeprecated bool

	// Line and Column anchor the change in the new canonical source, when a
	// stable position exists.
	Line   int
	Column int
}

// Annotation is an inline finding placed on the schema file.
type Annotation struct {
	Path     string
	Line     int
	Column   int
	Severity Severity
	Message  string
}

// Request carries everything one classification consumes.
type Request struct {
	// SchemaPath is the repository path annotations attach to.
	SchemaPath string
	Old        *schema.Canonical
	New        *schema.Canonical
	Rules      []Rule
	// UsageChecker optionally reclassifies breaking changes that no tracked
	// client actually exercises. Nil disables usage-based reclassification.
	UsageChecker UsageChecker
}

// Result is the classifier's verdict over one schema pair.
type Result struct {
	Conclusion  Conclusion
	Changes     []Change
	Annotations []Annotation
}

// Classifier scores the differences between two canonical schemas.
// Implementations must be deterministic for identical inputs, and must
// conclude failure if and only if at least one change remains breaking after
// rule processing.
type Classifier interface {
	Classify(ctx context.Context, req Request) (*Result, error)
}

// Rule post-processes the raw change list, typically reclassifying or
// filtering changes.
type Rule interface {
	Name() string
	Apply(changes []Change) []Change
}

// UsageChecker reports whether a schema element affected by a breaking change
// is actually exercised by known clients.
type UsageChecker interface {
	IsUsed(ctx context.Context, change Change) (bool, error)
}
