// Package config defines the inspector's run configuration. The configuration
// is built exactly once at process entry (flags, action inputs, optional config
// file) and handed to every component explicitly; no component reads ambient
// environment state.
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// DefaultApproveLabel is the pull-request label that overrides a failing
// verdict when present.
const DefaultApproveLabel = "approved-breaking-change"

// DefaultName is the display name of the check run.
const DefaultName = "GraphQL Inspector"

// Config is the complete, validated run configuration.
type Config struct {
	// Name is the display name used for the check run.
	Name string `yaml:"name"`

	// Schema locates the baseline schema: either "ref:path" pointing at a
	// versioned file, or a raw endpoint URL.
	Schema string `yaml:"schema"`

	// Endpoint optionally overrides the old side with a live endpoint URL.
	Endpoint string `yaml:"endpoint"`

	// Documents holds glob patterns for client operation files, one per line
	// in action-input form.
	Documents []string `yaml:"documents"`

	// Rules names the diff rules applied when scoring change severity.
	// Unknown names are a hard configuration error.
	Rules []string `yaml:"rules"`

	// ExperimentalMerge diffs against the merge-preview of the pull request
	// instead of the head commit.
	ExperimentalMerge bool `yaml:"experimental_merge"`

	// Annotations controls whether inline file annotations are emitted.
	Annotations bool `yaml:"annotations"`

	// FailOnBreaking controls whether breaking changes fail the check.
	FailOnBreaking bool `yaml:"fail-on-breaking"`

	// ApproveLabel is the PR label that forces a success conclusion.
	ApproveLabel string `yaml:"approve-label"`
}

// Default returns a Config with the same defaults the action advertises.
func Default() Config {
	return Config{
		Name:              DefaultName,
		ExperimentalMerge: true,
		Annotations:       true,
		FailOnBreaking:    true,
		ApproveLabel:      DefaultApproveLabel,
	}
}

// Validate checks the hard preconditions that must hold before any I/O.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Schema) == "" {
		return errors.WrapInvalid(errors.ErrMissingSchema, "Config", "Validate", "check schema locator")
	}
	if !c.SchemaIsEndpoint() {
		if _, _, err := SplitLocator(c.Schema); err != nil {
			return err
		}
	}
	if c.ApproveLabel == "" {
		c.ApproveLabel = DefaultApproveLabel
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	return nil
}

// SchemaIsEndpoint reports whether the schema locator is a live endpoint URL
// rather than a ref:path pair.
func (c *Config) SchemaIsEndpoint() bool {
	return IsEndpointURL(c.Schema)
}

// IsEndpointURL reports whether s looks like a live HTTP(S) endpoint.
func IsEndpointURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// SplitLocator splits a "ref:path" schema locator into its revision pointer
// and file path. The ref may itself contain colons (e.g. "refs/heads/main"),
// so the split happens at the first colon only.
func SplitLocator(locator string) (ref, path string, err error) {
	idx := strings.Index(locator, ":")
	if idx <= 0 || idx == len(locator)-1 {
		return "", "", errors.WrapInvalid(
			fmt.Errorf("schema locator %q is not of the form ref:path: %w", locator, errors.ErrInvalidConfig),
			"Config", "SplitLocator", "parse schema locator")
	}
	return locator[:idx], locator[idx+1:], nil
}

// MergeFile overlays values from a YAML config file onto c. Only fields set
// in the file override; absent keys keep their current values. A missing file
// is not an error.
func (c *Config) MergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapInvalid(err, "Config", "MergeFile", "read config file")
	}

	var overlay fileOverlay
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return errors.WrapInvalid(err, "Config", "MergeFile", "parse config file")
	}
	overlay.apply(c)
	return nil
}

// fileOverlay mirrors Config with pointer fields so unset keys can be told
// apart from zero values.
type fileOverlay struct {
	Name              *string  `yaml:"name"`
	Schema            *string  `yaml:"schema"`
	Endpoint          *string  `yaml:"endpoint"`
	Documents         []string `yaml:"documents"`
	Rules             []string `yaml:"rules"`
	ExperimentalMerge *bool    `yaml:"experimental_merge"`
	Annotations       *bool    `yaml:"annotations"`
	FailOnBreaking    *bool    `yaml:"fail-on-breaking"`
	ApproveLabel      *string  `yaml:"approve-label"`
}

func (o *fileOverlay) apply(c *Config) {
	if o.Name != nil {
		c.Name = *o.Name
	}
	if o.Schema != nil {
		c.Schema = *o.Schema
	}
	if o.Endpoint != nil {
		c.Endpoint = *o.Endpoint
	}
	if o.Documents != nil {
		c.Documents = o.Documents
	}
	if o.Rules != nil {
		c.Rules = o.Rules
	}
	if o.ExperimentalMerge != nil {
		c.ExperimentalMerge = *o.ExperimentalMerge
	}
	if o.Annotations != nil {
		c.Annotations = *o.Annotations
	}
	if o.FailOnBreaking != nil {
		c.FailOnBreaking = *o.FailOnBreaking
	}
	if o.ApproveLabel != nil {
		c.ApproveLabel = *o.ApproveLabel
	}
}

// SplitLines turns a newline-separated action input into a cleaned list,
// dropping blank lines and surrounding whitespace.
func SplitLines(input string) []string {
	var out []string
	for _, line := range strings.Split(input, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
