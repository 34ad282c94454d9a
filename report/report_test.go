package report

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wayland-systems/graphql-inspector/diff"
	inerrors "github.com/wayland-systems/graphql-inspector/errors"
	"github.com/wayland-systems/graphql-inspector/githubclient"
	"github.com/wayland-systems/graphql-inspector/policy"
	"github.com/wayland-systems/graphql-inspector/validate"
)

type recordedUpdate struct {
	handle     int64
	name       string
	conclusion string
	output     githubclient.CheckRunOutput
}

type fakeUpdater struct {
	updates  []recordedUpdate
	failures int // number of leading calls that error
}

func (f *fakeUpdater) CompleteCheckRun(_ context.Context, id int64, name, conclusion string, output githubclient.CheckRunOutput) error {
	call := len(f.updates)
	f.updates = append(f.updates, recordedUpdate{id, name, conclusion, output})
	if call < f.failures {
		return fmt.Errorf("%w: unprocessable annotation payload", inerrors.ErrReporting)
	}
	return nil
}

func testEmitter(updater Updater) *Emitter {
	return NewEmitter(updater, "GraphQL Inspector", slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestEmit_Success(t *testing.T) {
	updater := &fakeUpdater{}
	emitter := testEmitter(updater)

	err := emitter.Emit(context.Background(), 7,
		policy.Decision{Conclusion: diff.ConclusionSuccess}, nil, nil)
	require.NoError(t, err)

	require.Len(t, updater.updates, 1)
	update := updater.updates[0]
	assert.Equal(t, int64(7), update.handle)
	assert.Equal(t, "success", update.conclusion)
	assert.Equal(t, TitleSuccess, update.output.Title)
	assert.Contains(t, update.output.Summary, "No changes detected")
}

func TestEmit_FailureReport(t *testing.T) {
	updater := &fakeUpdater{}
	emitter := testEmitter(updater)

	decision := policy.Decision{
		Conclusion: diff.ConclusionFailure,
		Annotations: []diff.Annotation{
			{Path: "schema.graphql", Line: 2, Severity: diff.Breaking, Message: "Field 'a' was removed"},
		},
	}
	changes := []diff.Change{
		{Type: "FIELD_REMOVED", Severity: diff.Breaking, Message: "Field 'a' was removed from object type 'Query'"},
		{Type: "FIELD_ADDED", Severity: diff.NonBreaking, Message: "Field 'b' was added to object type 'Query'"},
	}
	findings := []validate.Finding{
		{Source: "ops/q.graphql", Line: 1, Column: 3, Reason: "Cannot query field \"a\""},
	}

	require.NoError(t, emitter.Emit(context.Background(), 7, decision, changes, findings))

	update := updater.updates[0]
	assert.Equal(t, "failure", update.conclusion)
	assert.Equal(t, TitleFailure, update.output.Title)
	assert.Contains(t, update.output.Summary, "Found 2 changes")
	assert.Contains(t, update.output.Summary, "Breaking: 1")
	assert.Contains(t, update.output.Summary, "Field 'a' was removed")
	assert.Contains(t, update.output.Summary, "Invalid documents (1)")
	assert.Contains(t, update.output.Summary, "ops/q.graphql:1:3")

	require.Len(t, update.output.Annotations, 1)
	annotation := update.output.Annotations[0]
	assert.Equal(t, "schema.graphql", annotation.GetPath())
	assert.Equal(t, 2, annotation.GetStartLine())
	assert.Equal(t, "failure", annotation.GetAnnotationLevel())
}

func TestEmit_OverrideNoted(t *testing.T) {
	updater := &fakeUpdater{}
	emitter := testEmitter(updater)

	decision := policy.Decision{
		Conclusion:     diff.ConclusionSuccess,
		Overridden:     true,
		OverrideReason: "pull request carries label approved-breaking-change",
	}
	changes := []diff.Change{
		{Type: "FIELD_REMOVED", Severity: diff.Breaking, Message: "Field 'a' was removed from object type 'Query'"},
	}

	require.NoError(t, emitter.Emit(context.Background(), 7, decision, changes, nil))

	update := updater.updates[0]
	// the override flips the verdict but keeps the change records
	assert.Equal(t, "success", update.conclusion)
	assert.Contains(t, update.output.Summary, "approved")
	assert.Contains(t, update.output.Summary, "Field 'a' was removed")
}

func TestEmit_AnnotationCap(t *testing.T) {
	updater := &fakeUpdater{}
	emitter := testEmitter(updater)

	annotations := make([]diff.Annotation, 80)
	for i := range annotations {
		annotations[i] = diff.Annotation{
			Path: "schema.graphql", Line: i + 1,
			Severity: diff.Breaking, Message: fmt.Sprintf("change %d", i),
		}
	}

	require.NoError(t, emitter.Emit(context.Background(), 7,
		policy.Decision{Conclusion: diff.ConclusionFailure, Annotations: annotations}, nil, nil))

	assert.Len(t, updater.updates[0].output.Annotations, maxAnnotations)
}

func TestEmit_SummaryTruncation(t *testing.T) {
	updater := &fakeUpdater{}
	emitter := testEmitter(updater)
	emitter.maxRendered = 3

	changes := make([]diff.Change, 10)
	for i := range changes {
		changes[i] = diff.Change{
			Type: "FIELD_ADDED", Severity: diff.NonBreaking,
			Message: fmt.Sprintf("Field 'f%d' was added to object type 'Query'", i),
		}
	}

	require.NoError(t, emitter.Emit(context.Background(), 7,
		policy.Decision{Conclusion: diff.ConclusionSuccess}, changes, nil))

	summary := updater.updates[0].output.Summary
	// the full count is reported even though rendering is capped
	assert.Contains(t, summary, "Found 10 changes")
	assert.Contains(t, summary, "Safe changes (10)")
	assert.Contains(t, summary, "'f2' was added")
	assert.NotContains(t, summary, "'f3' was added")
}

func TestEmit_FallbackOnPrimaryFailure(t *testing.T) {
	updater := &fakeUpdater{failures: 1}
	emitter := testEmitter(updater)

	err := emitter.Emit(context.Background(), 7,
		policy.Decision{Conclusion: diff.ConclusionSuccess}, nil, nil)
	require.NoError(t, err)

	require.Len(t, updater.updates, 2)
	fallback := updater.updates[1]
	assert.Equal(t, "failure", fallback.conclusion)
	assert.Equal(t, TitleFallback, fallback.output.Title)
	assert.Equal(t, TitleFallback, fallback.output.Summary)
	assert.Empty(t, fallback.output.Annotations)
}

func TestEmit_FallbackAlsoFails(t *testing.T) {
	updater := &fakeUpdater{failures: 2}
	emitter := testEmitter(updater)

	err := emitter.Emit(context.Background(), 7,
		policy.Decision{Conclusion: diff.ConclusionFailure}, nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, inerrors.ErrReportFallback)
	assert.Len(t, updater.updates, 2)
}

func TestEmitFatal(t *testing.T) {
	updater := &fakeUpdater{}
	emitter := testEmitter(updater)

	require.NoError(t, emitter.EmitFatal(context.Background(), 7, errors.New("old side unavailable")))

	update := updater.updates[0]
	assert.Equal(t, "failure", update.conclusion)
	assert.Contains(t, update.output.Summary, "old side unavailable")
}
