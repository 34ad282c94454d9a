// Package runner wires the whole check together: reference strategy, source
// resolution, schema building, classification, cross-validation, conclusion
// policy and report emission, in that order, with concurrent fan-out where
// stages are independent.
package runner

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wayland-systems/graphql-inspector/config"
	"github.com/wayland-systems/graphql-inspector/diff"
	"github.com/wayland-systems/graphql-inspector/errors"
	"github.com/wayland-systems/graphql-inspector/githubclient"
	"github.com/wayland-systems/graphql-inspector/metric"
	"github.com/wayland-systems/graphql-inspector/policy"
	"github.com/wayland-systems/graphql-inspector/report"
	"github.com/wayland-systems/graphql-inspector/rules"
	"github.com/wayland-systems/graphql-inspector/schema"
	"github.com/wayland-systems/graphql-inspector/source"
	"github.com/wayland-systems/graphql-inspector/validate"
)

// Host is the source-control collaborator surface the runner consumes.
// *githubclient.Client satisfies it.
type Host interface {
	AssociatedPullRequest(ctx context.Context, sha string) (*githubclient.PullRequest, error)
	FileAtRevision(ctx context.Context, path, revision string) (string, error)
	CreateCheckRun(ctx context.Context, name, headSHA, externalID string) (int64, error)
	CompleteCheckRun(ctx context.Context, id int64, name, conclusion string, output githubclient.CheckRunOutput) error
}

// Deps bundles the injectable collaborators of one run.
type Deps struct {
	Host         Host
	Introspector source.Introspector
	Classifier   diff.Classifier
	Validator    validate.CrossValidator
	// UsageChecker optionally reclassifies unused breaking changes; nil
	// disables usage checks.
	UsageChecker diff.UsageChecker
	Metrics      *metric.Metrics
	Logger       *slog.Logger
}

// Runner executes one schema compatibility check.
type Runner struct {
	cfg  config.Config
	env  config.Environment
	deps Deps
}

// Outcome is what the process reports outward after a completed run.
type Outcome struct {
	Conclusion diff.Conclusion
	// Changes is the classified change count, exposed as the run's single
	// numeric output.
	Changes int
}

// New creates a runner. The configuration must already be validated.
func New(cfg config.Config, env config.Environment, deps Deps) *Runner {
	if deps.Metrics == nil {
		deps.Metrics = metric.New()
	}
	deps.Logger = deps.Logger.With("component", "runner")
	return &Runner{cfg: cfg, env: env, deps: deps}
}

// Run executes the check end to end. Exactly one terminal check state is
// produced per invocation: the full report on the normal path, and a failure
// state when a fatal error interrupts the run after the check record was
// created.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	// Rule names resolve before any network I/O so a bad configuration
	// never creates a check record.
	resolvedRules, err := rules.Resolve(r.cfg.Rules)
	if err != nil {
		return Outcome{}, err
	}

	runID := uuid.NewString()
	handle, err := r.deps.Host.CreateCheckRun(ctx, r.cfg.Name, r.env.CommitSHA, runID)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "Runner", "Run", "create check run")
	}
	logger := r.deps.Logger.With("run_id", runID, "check_run", handle)

	outcome, runErr := r.execute(ctx, handle, resolvedRules, logger)
	if runErr != nil {
		// Never leave the record in progress: transition it to failure,
		// best effort, and surface the original error either way.
		emitter := report.NewEmitter(r.deps.Host, r.cfg.Name, logger)
		if fatalErr := emitter.EmitFatal(ctx, handle, runErr); fatalErr != nil {
			logger.Error("could not terminate check run after fatal error", "error", fatalErr)
		}
		return Outcome{}, runErr
	}

	r.deps.Metrics.Dump(logger)
	return outcome, nil
}

func (r *Runner) execute(ctx context.Context, handle int64, resolvedRules []diff.Rule, logger *slog.Logger) (Outcome, error) {
	pr, err := r.deps.Host.AssociatedPullRequest(ctx, r.env.CommitSHA)
	if err != nil {
		return Outcome{}, errors.Wrap(err, "Runner", "execute", "fetch pull request")
	}

	pair, err := source.Decide(source.Inputs{
		Schema:      r.cfg.Schema,
		Endpoint:    r.cfg.Endpoint,
		Workspace:   r.env.Workspace,
		CommitSHA:   r.env.CommitSHA,
		PullRequest: pr,
		MergeMode:   r.cfg.ExperimentalMerge,
	})
	if err != nil {
		return Outcome{}, err
	}
	logger.Info("comparing schema references",
		"old", pair.Old.Label(), "new", pair.New.Label())

	resolver := source.NewResolver(r.deps.Host, r.deps.Introspector, r.env.CommitSHA, logger)
	fetchStart := time.Now()
	oldText, newText, err := resolver.FetchPair(ctx, pair)
	if err != nil {
		return Outcome{}, err
	}
	r.deps.Metrics.ObserveFetch(time.Since(fetchStart))
	for _, loc := range []source.Locator{pair.Old, pair.New} {
		r.deps.Metrics.SchemaFetches.WithLabelValues(fetchKind(loc, r.env.CommitSHA)).Inc()
	}

	schemaPath := pair.New.Path
	if pair.BothLive {
		schemaPath = pair.New.URL
	}
	format := schema.FormatForPath(schemaPath)

	var oldCanonical, newCanonical *schema.Canonical
	var g errgroup.Group
	g.Go(func() error {
		var buildErr error
		oldCanonical, buildErr = schema.Build(schema.Payload{
			Text:         oldText,
			Label:        pair.Old.Label(),
			FromEndpoint: pair.Old.Kind == source.KindLiveEndpoint,
		}, format, schema.SideOld)
		return buildErr
	})
	g.Go(func() error {
		var buildErr error
		newCanonical, buildErr = schema.Build(schema.Payload{
			Text:         newText,
			Label:        pair.New.Label(),
			FromEndpoint: pair.New.Kind == source.KindLiveEndpoint,
		}, format, schema.SideNew)
		return buildErr
	})
	if err := g.Wait(); err != nil {
		return Outcome{}, err
	}

	docs, err := validate.NewLoader(r.env.Workspace, logger).Load(r.cfg.Documents)
	if err != nil {
		return Outcome{}, err
	}

	// Classification and cross-validation have no data dependency on each
	// other: run them concurrently.
	var result *diff.Result
	var findings []validate.Finding
	cg, cgctx := errgroup.WithContext(ctx)
	cg.Go(func() error {
		var classifyErr error
		result, classifyErr = r.deps.Classifier.Classify(cgctx, diff.Request{
			SchemaPath:   schemaPath,
			Old:          oldCanonical,
			New:          newCanonical,
			Rules:        resolvedRules,
			UsageChecker: r.deps.UsageChecker,
		})
		return classifyErr
	})
	cg.Go(func() error {
		findings = r.deps.Validator.Validate(cgctx, newCanonical.Schema, docs)
		return nil
	})
	if err := cg.Wait(); err != nil {
		return Outcome{}, err
	}

	r.deps.Metrics.CountChanges(result.Changes)
	if len(findings) > 0 {
		r.deps.Metrics.FindingsTotal.Add(float64(len(findings)))
	}

	decision := policy.Resolve(result, policy.Context{
		FailOnBreaking:     r.cfg.FailOnBreaking,
		ApproveLabel:       r.cfg.ApproveLabel,
		PullRequest:        pr,
		AnnotationsEnabled: r.cfg.Annotations,
		EndpointComparison: pair.BothLive,
	}, logger)

	emitter := report.NewEmitter(r.deps.Host, r.cfg.Name, logger)
	if err := emitter.Emit(ctx, handle, decision, result.Changes, findings); err != nil {
		r.deps.Metrics.ReportAttempts.WithLabelValues("rejected").Inc()
		return Outcome{}, err
	}
	r.deps.Metrics.ReportAttempts.WithLabelValues("ok").Inc()

	logger.Info("check completed",
		"conclusion", string(decision.Conclusion),
		"changes", len(result.Changes),
		"invalid_documents", len(findings))

	return Outcome{Conclusion: decision.Conclusion, Changes: len(result.Changes)}, nil
}

func fetchKind(loc source.Locator, headSHA string) string {
	switch {
	case loc.Kind == source.KindLiveEndpoint:
		return "endpoint"
	case loc.Workspace != "" && loc.Revision == headSHA:
		return "workspace"
	default:
		return "remote"
	}
}
