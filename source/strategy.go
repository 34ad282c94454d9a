package source

import (
	"fmt"

	"github.com/wayland-systems/graphql-inspector/config"
	"github.com/wayland-systems/graphql-inspector/errors"
	"github.com/wayland-systems/graphql-inspector/githubclient"
)

// Inputs carries everything the strategy decision depends on.
type Inputs struct {
	// Schema is the configured locator: "ref:path" or an endpoint URL.
	Schema string
	// Endpoint optionally sources the old side from a live endpoint.
	Endpoint string
	// Workspace is the local checkout directory.
	Workspace string
	// CommitSHA is the commit the run is attached to.
	CommitSHA string
	// PullRequest is nil when the commit was pushed directly.
	PullRequest *githubclient.PullRequest
	// MergeMode diffs against the merge-preview of the pull request.
	MergeMode bool
}

// Decide resolves the two locators to compare.
//
// Defaults: old = the base pointer parsed from the schema locator, new = the
// current commit, both hinted at the local workspace. With merge mode on and
// an open pull request, the new side becomes the host's merge-preview ref,
// which does not exist in the local checkout, so its workspace hint is
// cleared; and when the pull request names an explicit base branch that
// branch replaces the configured base pointer, which may be stale relative to
// the PR's actual target.
func Decide(in Inputs) (Pair, error) {
	if in.Endpoint != "" && config.IsEndpointURL(in.Schema) {
		// two live endpoints compared directly
		return Pair{
			Old:      Locator{Kind: KindLiveEndpoint, URL: in.Endpoint},
			New:      Locator{Kind: KindLiveEndpoint, URL: in.Schema},
			BothLive: true,
		}, nil
	}

	baseRef, path, err := config.SplitLocator(in.Schema)
	if err != nil {
		return Pair{}, errors.Wrap(err, "source", "Decide", "parse schema locator")
	}

	pair := Pair{
		Old: Locator{Kind: KindVersionedFile, Path: path, Revision: baseRef, Workspace: in.Workspace},
		New: Locator{Kind: KindVersionedFile, Path: path, Revision: in.CommitSHA, Workspace: in.Workspace},
	}

	if in.Endpoint != "" {
		pair.Old = Locator{Kind: KindLiveEndpoint, URL: in.Endpoint}
	}

	if in.MergeMode && in.PullRequest != nil && in.PullRequest.Open {
		pair.New.Revision = fmt.Sprintf("refs/pull/%d/merge", in.PullRequest.Number)
		pair.New.Workspace = ""
		if pair.Old.Kind == KindVersionedFile && in.PullRequest.BaseRef != "" {
			pair.Old.Revision = in.PullRequest.BaseRef
		}
	}

	return pair, nil
}
