package source

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// ContentAPI fetches file content at a revision from the source-control host.
type ContentAPI interface {
	FileAtRevision(ctx context.Context, path, revision string) (string, error)
}

// Introspector resolves a live endpoint to SDL text.
type Introspector interface {
	IntrospectAndPrint(ctx context.Context, url string) (string, error)
}

// Resolver turns locators into raw schema text.
type Resolver struct {
	contents     ContentAPI
	introspector Introspector
	headSHA      string
	logger       *slog.Logger
}

// NewResolver creates a resolver. headSHA identifies the revision the local
// workspace is checked out at; only locators for that revision may be read
// from disk.
func NewResolver(contents ContentAPI, introspector Introspector, headSHA string, logger *slog.Logger) *Resolver {
	return &Resolver{
		contents:     contents,
		introspector: introspector,
		headSHA:      headSHA,
		logger:       logger.With("component", "resolver"),
	}
}

// Fetch resolves one locator to raw schema text.
func (r *Resolver) Fetch(ctx context.Context, loc Locator) (string, error) {
	if loc.Kind == KindLiveEndpoint {
		return r.introspector.IntrospectAndPrint(ctx, loc.URL)
	}

	if loc.Workspace != "" && loc.Revision == r.headSHA {
		path := filepath.Join(loc.Workspace, loc.Path)
		data, err := os.ReadFile(path)
		if err != nil {
			return "", errors.WrapFatal(err, "Resolver", "Fetch", "read workspace file")
		}
		r.logger.Debug("schema read from workspace", "path", path)
		return string(data), nil
	}

	text, err := r.contents.FileAtRevision(ctx, loc.Path, loc.Revision)
	if err != nil {
		return "", errors.Wrap(err, "Resolver", "Fetch", "read remote content")
	}
	r.logger.Debug("schema fetched from content api", "path", loc.Path, "revision", loc.Revision)
	return text, nil
}

// FetchPair resolves both sides concurrently. A failure on either side aborts
// the run before any schema building occurs.
func (r *Resolver) FetchPair(ctx context.Context, pair Pair) (oldText, newText string, err error) {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		text, fetchErr := r.Fetch(gctx, pair.Old)
		if fetchErr != nil {
			return fmt.Errorf("old side %s: %w: %w", pair.Old.Label(), errors.ErrSourceUnavailable, fetchErr)
		}
		oldText = text
		return nil
	})
	g.Go(func() error {
		text, fetchErr := r.Fetch(gctx, pair.New)
		if fetchErr != nil {
			return fmt.Errorf("new side %s: %w: %w", pair.New.Label(), errors.ErrSourceUnavailable, fetchErr)
		}
		newText = text
		return nil
	})

	if err := g.Wait(); err != nil {
		return "", "", errors.WrapFatal(err, "Resolver", "FetchPair", "fetch schema pair")
	}
	return oldText, newText, nil
}
