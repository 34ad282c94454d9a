// Package source decides which two schema snapshots a run compares and
// resolves each of them to raw schema text, whether it lives in a versioned
// file or behind a live endpoint.
package source

import "fmt"

// Kind distinguishes the two places a schema snapshot can come from.
type Kind int

const (
	// KindVersionedFile reads file content at a revision.
	KindVersionedFile Kind = iota
	// KindLiveEndpoint introspects a running GraphQL endpoint.
	KindLiveEndpoint
)

// Locator is an immutable reference to one schema snapshot.
type Locator struct {
	Kind Kind

	// URL of the endpoint, for KindLiveEndpoint.
	URL string

	// Path and Revision of the file, for KindVersionedFile.
	Path     string
	Revision string

	// Workspace hints that the content may be read from the local checkout
	// instead of the remote content API. Cleared when the revision cannot
	// exist locally (merge-preview refs).
	Workspace string
}

// Label names the locator for provenance tagging and diagnostics.
func (l Locator) Label() string {
	if l.Kind == KindLiveEndpoint {
		return l.URL
	}
	return fmt.Sprintf("%s:%s", l.Revision, l.Path)
}

// Pair holds the two locators of one comparison.
type Pair struct {
	Old Locator
	New Locator

	// BothLive marks an endpoint-vs-URL comparison, which has no stable
	// line/column source for annotations.
	BothLive bool
}
