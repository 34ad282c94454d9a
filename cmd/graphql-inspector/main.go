// Package main implements the entry point for the GraphQL Inspector check.
// It compares two revisions of a GraphQL schema, validates client operation
// documents against the new revision and publishes the verdict as a check run
// on the commit under inspection.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/wayland-systems/graphql-inspector/config"
	"github.com/wayland-systems/graphql-inspector/diff"
	"github.com/wayland-systems/graphql-inspector/endpoint"
	"github.com/wayland-systems/graphql-inspector/githubclient"
	"github.com/wayland-systems/graphql-inspector/runner"
	"github.com/wayland-systems/graphql-inspector/validate"
)

// Build information constants
const (
	Version = "0.1.0"
	appName = "graphql-inspector"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := newRootCommand().Execute(); err != nil {
		slog.Error("Check failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Schema compatibility check for GraphQL repositories",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), v)
		},
	}

	flags := cmd.Flags()
	flags.String("config", ".graphql-inspector.yml", "Path to optional YAML configuration file")
	flags.String("schema", "", "Baseline schema locator, either ref:path or an endpoint URL")
	flags.String("endpoint", "", "Live endpoint URL used as the old side of the comparison")
	flags.String("documents", "", "Newline-separated glob patterns for client operation documents")
	flags.StringSlice("rules", nil, "Diff rules applied when scoring change severity")
	flags.String("name", "", "Display name of the check run")
	flags.Bool("experimental_merge", true, "Diff against the merge preview of the pull request")
	flags.Bool("annotations", true, "Emit inline file annotations for detected changes")
	flags.Bool("fail-on-breaking", true, "Fail the check when breaking changes survive the rules")
	flags.String("approve-label", "", "Pull-request label that overrides a failing verdict")
	flags.String("log-format", "text", "Log format: json, text")
	flags.Bool("debug", false, "Enable debug logging")

	bindInputs(v, flags)

	return cmd
}

func run(ctx context.Context, v *viper.Viper) error {
	logger := setupLogger(v.GetBool("debug") || os.Getenv("RUNNER_DEBUG") == "1", v.GetString("log-format"))
	slog.SetDefault(logger)

	cfg, err := loadConfig(v)
	if err != nil {
		return err
	}

	env, err := config.CaptureEnvironment()
	if err != nil {
		return err
	}
	if env.Token == "" {
		env.Token = v.GetString("github-token")
	}
	if err := env.Validate(); err != nil {
		return err
	}

	logger.Info("Starting schema compatibility check",
		"version", Version,
		"repository", env.Owner+"/"+env.Repo,
		"commit", env.CommitSHA,
		"schema", cfg.Schema)

	host := githubclient.New(env.Token, env.Owner, env.Repo, logger)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	r := runner.New(cfg, env, runner.Deps{
		Host:         host,
		Introspector: endpoint.New(logger),
		Classifier:   diff.NewEngine(logger),
		Validator:    validate.NewChecker(logger),
		Logger:       logger,
	})

	outcome, err := r.Run(ctx)
	if err != nil {
		return err
	}

	if err := writeOutput(env.OutputPath, "changes", fmt.Sprint(outcome.Changes)); err != nil {
		logger.Warn("could not write step output", "error", err)
	}

	logger.Info("Check finished",
		"conclusion", string(outcome.Conclusion),
		"changes", outcome.Changes)
	return nil
}

// writeOutput appends a key=value pair to the runner's step-output file, or
// prints it when no output file is configured.
func writeOutput(path, key, value string) error {
	if path == "" {
		fmt.Printf("%s=%s\n", key, value)
		return nil
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = fmt.Fprintf(f, "%s=%s\n", key, value)
	return err
}
