// Package report renders the final conclusion, changes and invalid-document
// findings into a check-run report and commits it, with a guaranteed minimal
// fallback when the primary emission is rejected.
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v74/github"

	"github.com/wayland-systems/graphql-inspector/diff"
	"github.com/wayland-systems/graphql-inspector/errors"
	"github.com/wayland-systems/graphql-inspector/githubclient"
	"github.com/wayland-systems/graphql-inspector/policy"
	"github.com/wayland-systems/graphql-inspector/validate"
)

// Fixed report titles: one per conclusion, plus the fallback.
const (
	TitleSuccess  = "Everything looks good"
	TitleFailure  = "Something is wrong with your schema"
	TitleFallback = "Invalid config. Failed to add annotation"
)

const (
	// defaultMaxRendered caps the number of items rendered in the summary;
	// truncation is silent, indicated only by a count.
	defaultMaxRendered = 100
	// maxAnnotations is the per-update annotation limit of the check API.
	maxAnnotations = 50
)

// Updater commits terminal check-run state.
type Updater interface {
	CompleteCheckRun(ctx context.Context, id int64, name, conclusion string, output githubclient.CheckRunOutput) error
}

// Emitter renders and commits the terminal report.
type Emitter struct {
	updater     Updater
	name        string
	maxRendered int
	logger      *slog.Logger
}

// NewEmitter creates an emitter publishing under the given check name.
func NewEmitter(updater Updater, name string, logger *slog.Logger) *Emitter {
	return &Emitter{
		updater:     updater,
		name:        name,
		maxRendered: defaultMaxRendered,
		logger:      logger.With("component", "report"),
	}
}

// Emit attempts exactly one terminal update. If the update is rejected it is
// logged and a second, minimal update is attempted unconditionally; a failure
// of that fallback propagates to the caller.
func (e *Emitter) Emit(ctx context.Context, handle int64, decision policy.Decision,
	changes []diff.Change, findings []validate.Finding) error {

	title := TitleSuccess
	if decision.Conclusion == diff.ConclusionFailure {
		title = TitleFailure
	}

	output := githubclient.CheckRunOutput{
		Title:       title,
		Summary:     e.renderSummary(decision, changes, findings),
		Annotations: convertAnnotations(decision.Annotations),
	}

	err := e.updater.CompleteCheckRun(ctx, handle, e.name, string(decision.Conclusion), output)
	if err == nil {
		return nil
	}
	e.logger.Error("primary report rejected, emitting fallback", "error", err)

	fallback := githubclient.CheckRunOutput{Title: TitleFallback, Summary: TitleFallback}
	if fbErr := e.updater.CompleteCheckRun(ctx, handle, e.name,
		string(diff.ConclusionFailure), fallback); fbErr != nil {
		return errors.WrapFatal(
			fmt.Errorf("%w: %v", errors.ErrReportFallback, fbErr),
			"Emitter", "Emit", "emit fallback report")
	}
	return nil
}

// EmitFatal transitions the check run to a failure state after a fatal error
// earlier in the run, so no record is left in progress indefinitely.
func (e *Emitter) EmitFatal(ctx context.Context, handle int64, runErr error) error {
	output := githubclient.CheckRunOutput{
		Title:   TitleFailure,
		Summary: fmt.Sprintf("The check could not complete: %v", runErr),
	}
	if err := e.updater.CompleteCheckRun(ctx, handle, e.name,
		string(diff.ConclusionFailure), output); err != nil {
		return errors.Wrap(err, "Emitter", "EmitFatal", "terminate check run")
	}
	return nil
}

func (e *Emitter) renderSummary(decision policy.Decision, changes []diff.Change, findings []validate.Finding) string {
	var sb strings.Builder

	switch len(changes) {
	case 0:
		sb.WriteString("No changes detected\n")
	case 1:
		sb.WriteString("Found 1 change\n")
	default:
		fmt.Fprintf(&sb, "Found %d changes\n", len(changes))
	}

	counts := map[diff.Severity]int{}
	for _, c := range changes {
		counts[c.Severity]++
	}
	if len(changes) > 0 {
		fmt.Fprintf(&sb, "\nBreaking: %d\nDangerous: %d\nSafe: %d\n",
			counts[diff.Breaking], counts[diff.Dangerous], counts[diff.NonBreaking])
	}

	if decision.Overridden {
		fmt.Fprintf(&sb, "\nBreaking changes were approved: %s\n", decision.OverrideReason)
	}

	budget := e.maxRendered
	for _, severity := range []diff.Severity{diff.Breaking, diff.Dangerous, diff.NonBreaking} {
		budget = renderChangeSection(&sb, changes, severity, budget)
	}

	if len(findings) > 0 {
		fmt.Fprintf(&sb, "\n## Invalid documents (%d)\n", len(findings))
		for i, f := range findings {
			if i >= e.maxRendered {
				break
			}
			fmt.Fprintf(&sb, "- %s:%d:%d %s\n", f.Source, f.Line, f.Column, f.Reason)
		}
	}

	return sb.String()
}

func renderChangeSection(sb *strings.Builder, changes []diff.Change, severity diff.Severity, budget int) int {
	var section []diff.Change
	for _, c := range changes {
		if c.Severity == severity {
			section = append(section, c)
		}
	}
	if len(section) == 0 {
		return budget
	}

	fmt.Fprintf(sb, "\n## %s changes (%d)\n", sectionHeading(severity), len(section))
	for _, c := range section {
		if budget <= 0 {
			return 0
		}
		fmt.Fprintf(sb, "- %s\n", c.Message)
		budget--
	}
	return budget
}

func sectionHeading(severity diff.Severity) string {
	switch severity {
	case diff.Breaking:
		return "Breaking"
	case diff.Dangerous:
		return "Dangerous"
	default:
		return "Safe"
	}
}

func convertAnnotations(annotations []diff.Annotation) []*github.CheckRunAnnotation {
	if len(annotations) > maxAnnotations {
		annotations = annotations[:maxAnnotations]
	}
	out := make([]*github.CheckRunAnnotation, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, &github.CheckRunAnnotation{
			Path:            github.Ptr(a.Path),
			StartLine:       github.Ptr(a.Line),
			EndLine:         github.Ptr(a.Line),
			AnnotationLevel: github.Ptr(annotationLevel(a.Severity)),
			Message:         github.Ptr(a.Message),
		})
	}
	return out
}

func annotationLevel(severity diff.Severity) string {
	switch severity {
	case diff.Breaking:
		return "failure"
	case diff.Dangerous:
		return "warning"
	default:
		return "notice"
	}
}
