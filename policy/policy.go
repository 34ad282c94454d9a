// Package policy folds the raw classification verdict and the run's override
// settings into the final conclusion and annotation set.
package policy

import (
	"log/slog"

	"github.com/wayland-systems/graphql-inspector/diff"
	"github.com/wayland-systems/graphql-inspector/githubclient"
)

// Context carries the override inputs of one run.
type Context struct {
	// FailOnBreaking, when disabled, turns every failing verdict into a
	// passing one.
	FailOnBreaking bool
	// ApproveLabel names the pull-request label that approves breaking
	// changes.
	ApproveLabel string
	// PullRequest is nil on direct pushes, which disables label overrides.
	PullRequest *githubclient.PullRequest
	// AnnotationsEnabled globally toggles inline annotations.
	AnnotationsEnabled bool
	// EndpointComparison marks endpoint-vs-URL runs, which have no stable
	// line/column source to annotate.
	EndpointComparison bool
}

// Decision is the final verdict of a run.
type Decision struct {
	Conclusion  diff.Conclusion
	Annotations []diff.Annotation
	// Overridden records that a failing raw conclusion was flipped, and why.
	Overridden     bool
	OverrideReason string
}

// Resolve applies the override rules, in order, to the raw result.
//
// The conclusion override and the annotation suppression are independent
// projections of the same raw result: neither consults the other, and the
// change records always survive into the report either way.
func Resolve(raw *diff.Result, ctx Context, logger *slog.Logger) Decision {
	decision := Decision{
		Conclusion:  raw.Conclusion,
		Annotations: raw.Annotations,
	}

	if raw.Conclusion == diff.ConclusionFailure {
		switch {
		case !ctx.FailOnBreaking:
			decision.Conclusion = diff.ConclusionSuccess
			decision.Overridden = true
			decision.OverrideReason = "fail-on-breaking is disabled"
		case ctx.PullRequest.HasLabel(ctx.ApproveLabel):
			decision.Conclusion = diff.ConclusionSuccess
			decision.Overridden = true
			decision.OverrideReason = "pull request carries label " + ctx.ApproveLabel
		}
	}

	if !ctx.AnnotationsEnabled || ctx.EndpointComparison {
		decision.Annotations = nil
	}

	if decision.Overridden {
		logger.Info("failing conclusion overridden", "reason", decision.OverrideReason)
	}

	return decision
}
