// Package githubclient wraps the source-control host API the inspector
// consumes: pull-request metadata, file content at a revision, and check-run
// records.
package githubclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/go-github/v74/github"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// Client talks to one repository on the source-control host.
type Client struct {
	gh     *github.Client
	owner  string
	repo   string
	logger *slog.Logger
}

// Option customizes client construction.
type Option func(*Client)

// WithBaseURL points the client at a different API root. Used to target
// GitHub Enterprise hosts and test servers.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		if u, err := c.gh.BaseURL.Parse(baseURL); err == nil {
			c.gh.BaseURL = u
		}
	}
}

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.gh = github.NewClient(hc)
	}
}

// New creates a client for owner/repo authenticated with token.
func New(token, owner, repo string, logger *slog.Logger, opts ...Option) *Client {
	c := &Client{
		gh:     github.NewClient(nil),
		owner:  owner,
		repo:   repo,
		logger: logger.With("component", "githubclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if token != "" {
		c.gh = c.gh.WithAuthToken(token)
	}
	return c
}

// PullRequest is the slice of pull-request metadata the run depends on.
type PullRequest struct {
	Number  int
	Open    bool
	BaseRef string
	Labels  []string
}

// HasLabel reports whether the pull request carries the named label.
func (pr *PullRequest) HasLabel(name string) bool {
	if pr == nil {
		return false
	}
	for _, l := range pr.Labels {
		if l == name {
			return true
		}
	}
	return false
}

// AssociatedPullRequest finds the pull request the commit belongs to.
// Returns nil without error when the commit was pushed directly.
func (c *Client) AssociatedPullRequest(ctx context.Context, sha string) (*PullRequest, error) {
	prs, _, err := c.gh.PullRequests.ListPullRequestsWithCommit(ctx, c.owner, c.repo, sha, nil)
	if err != nil {
		return nil, errors.WrapTransient(err, "Client", "AssociatedPullRequest", "list pull requests")
	}
	if len(prs) == 0 {
		c.logger.Debug("no pull request associated with commit", "sha", sha)
		return nil, nil
	}

	pr := prs[0]
	out := &PullRequest{
		Number: pr.GetNumber(),
		Open:   pr.GetState() == "open",
	}
	if base := pr.GetBase(); base != nil {
		out.BaseRef = base.GetRef()
	}
	for _, l := range pr.Labels {
		out.Labels = append(out.Labels, l.GetName())
	}

	c.logger.Debug("resolved pull request",
		"number", out.Number, "open", out.Open, "base", out.BaseRef)
	return out, nil
}

// FileAtRevision fetches file content at the given revision through the
// contents API.
func (c *Client) FileAtRevision(ctx context.Context, path, revision string) (string, error) {
	file, _, _, err := c.gh.Repositories.GetContents(ctx, c.owner, c.repo, path,
		&github.RepositoryContentGetOptions{Ref: revision})
	if err != nil {
		return "", errors.WrapTransient(
			fmt.Errorf("%w: %s@%s: %v", errors.ErrRevisionNotFound, path, revision, err),
			"Client", "FileAtRevision", "get contents")
	}
	if file == nil {
		return "", errors.WrapInvalid(
			fmt.Errorf("%s@%s is a directory", path, revision),
			"Client", "FileAtRevision", "decode contents")
	}

	content, err := file.GetContent()
	if err != nil {
		return "", errors.WrapInvalid(err, "Client", "FileAtRevision", "decode contents")
	}
	return content, nil
}

// CheckRunOutput is the rendered result attached to a terminal check run.
type CheckRunOutput struct {
	Title       string
	Summary     string
	Annotations []*github.CheckRunAnnotation
}

// CreateCheckRun opens an in-progress check run attached to headSHA and
// returns its handle.
func (c *Client) CreateCheckRun(ctx context.Context, name, headSHA, externalID string) (int64, error) {
	run, _, err := c.gh.Checks.CreateCheckRun(ctx, c.owner, c.repo, github.CreateCheckRunOptions{
		Name:       name,
		HeadSHA:    headSHA,
		Status:     github.Ptr("in_progress"),
		ExternalID: github.Ptr(externalID),
	})
	if err != nil {
		return 0, errors.WrapTransient(err, "Client", "CreateCheckRun", "create check run")
	}
	c.logger.Debug("check run created", "id", run.GetID(), "external_id", externalID)
	return run.GetID(), nil
}

// CompleteCheckRun transitions the check run to its terminal state.
func (c *Client) CompleteCheckRun(ctx context.Context, id int64, name, conclusion string, output CheckRunOutput) error {
	_, _, err := c.gh.Checks.UpdateCheckRun(ctx, c.owner, c.repo, id, github.UpdateCheckRunOptions{
		Name:       name,
		Status:     github.Ptr("completed"),
		Conclusion: github.Ptr(conclusion),
		Output: &github.CheckRunOutput{
			Title:       github.Ptr(output.Title),
			Summary:     github.Ptr(output.Summary),
			Annotations: output.Annotations,
		},
	})
	if err != nil {
		return errors.WrapTransient(
			fmt.Errorf("%w: %v", errors.ErrReporting, err),
			"Client", "CompleteCheckRun", "update check run")
	}
	return nil
}
