package config

import (
	"os"
	"strings"

	"github.com/wayland-systems/graphql-inspector/errors"
)

// Environment captures the source-control runner context the inspector needs.
// It is read once in main and passed explicitly, so components stay free of
// os.Getenv calls.
type Environment struct {
	Token      string // API token for the source-control host
	CommitSHA  string // commit the run is attached to
	Owner      string // repository owner
	Repo       string // repository name
	Workspace  string // local checkout directory
	OutputPath string // step-output file, empty when not running under a runner
	Debug      bool
}

// CaptureEnvironment reads the runner context from the process environment.
func CaptureEnvironment() (Environment, error) {
	env := Environment{
		Token:      os.Getenv("GITHUB_TOKEN"),
		CommitSHA:  os.Getenv("GITHUB_SHA"),
		Workspace:  os.Getenv("GITHUB_WORKSPACE"),
		OutputPath: os.Getenv("GITHUB_OUTPUT"),
		Debug:      os.Getenv("RUNNER_DEBUG") == "1",
	}

	if repo := os.Getenv("GITHUB_REPOSITORY"); repo != "" {
		owner, name, ok := strings.Cut(repo, "/")
		if !ok {
			return env, errors.WrapInvalid(errors.ErrInvalidConfig,
				"Environment", "CaptureEnvironment", "parse GITHUB_REPOSITORY")
		}
		env.Owner = owner
		env.Repo = name
	}

	return env, nil
}

// Validate checks the preconditions the run cannot start without.
func (e *Environment) Validate() error {
	if e.Token == "" {
		return errors.WrapInvalid(errors.ErrMissingToken, "Environment", "Validate", "check token")
	}
	if e.Workspace == "" {
		return errors.WrapInvalid(errors.ErrNoWorkspace, "Environment", "Validate", "check workspace")
	}
	if e.CommitSHA == "" || e.Owner == "" || e.Repo == "" {
		return errors.WrapInvalid(errors.ErrMissingConfig, "Environment", "Validate", "check runner context")
	}
	return nil
}
