package main

import (
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/wayland-systems/graphql-inspector/config"
)

// actionInputs maps configuration keys to the environment variables a GitHub
// Actions runner exports for them (INPUT_ prefix, name uppercased).
var actionInputs = map[string]string{
	"schema":             "INPUT_SCHEMA",
	"endpoint":           "INPUT_ENDPOINT",
	"documents":          "INPUT_DOCUMENTS",
	"rules":              "INPUT_RULES",
	"name":               "INPUT_NAME",
	"experimental_merge": "INPUT_EXPERIMENTAL_MERGE",
	"annotations":        "INPUT_ANNOTATIONS",
	"fail-on-breaking":   "INPUT_FAIL-ON-BREAKING",
	"approve-label":      "INPUT_APPROVE-LABEL",
	"github-token":       "INPUT_GITHUB-TOKEN",
	"debug":              "INPUT_DEBUG",
}

// bindInputs wires flags and action-input environment variables into v.
// Precedence is flag over environment over config file over defaults.
func bindInputs(v *viper.Viper, flags *pflag.FlagSet) {
	_ = v.BindPFlags(flags)
	for key, envVar := range actionInputs {
		_ = v.BindEnv(key, envVar)
	}
}

// loadConfig assembles the run configuration: defaults, then the optional
// YAML file, then any flag or action-input overrides.
func loadConfig(v *viper.Viper) (config.Config, error) {
	cfg := config.Default()
	if err := cfg.MergeFile(v.GetString("config")); err != nil {
		return cfg, err
	}

	if s := v.GetString("schema"); s != "" {
		cfg.Schema = s
	}
	if e := v.GetString("endpoint"); e != "" {
		cfg.Endpoint = e
	}
	if d := v.GetString("documents"); d != "" {
		cfg.Documents = config.SplitLines(d)
	}
	if r := v.GetStringSlice("rules"); len(r) > 0 {
		// Action inputs arrive as a single newline-separated string.
		if len(r) == 1 {
			cfg.Rules = config.SplitLines(r[0])
		} else {
			cfg.Rules = r
		}
	}
	if n := v.GetString("name"); n != "" {
		cfg.Name = n
	}
	if l := v.GetString("approve-label"); l != "" {
		cfg.ApproveLabel = l
	}
	if v.IsSet("experimental_merge") {
		cfg.ExperimentalMerge = v.GetBool("experimental_merge")
	}
	if v.IsSet("annotations") {
		cfg.Annotations = v.GetBool("annotations")
	}
	if v.IsSet("fail-on-breaking") {
		cfg.FailOnBreaking = v.GetBool("fail-on-breaking")
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
