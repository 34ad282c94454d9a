// Package inspector documents the layout of the GraphQL Inspector module, a
// schema compatibility check that runs against a source-control host.
//
// # What a run does
//
// One invocation compares two revisions of a GraphQL schema, classifies every
// structural change by severity, validates client operation documents against
// the new revision and publishes the verdict as a check run attached to the
// commit under inspection:
//
//	┌──────────────────────────────────────┐
//	│             runner                   │  control flow, terminal-state
//	│ (strategy → fetch → build → verdict) │  guarantee for the check run
//	└──────────────────────────────────────┘
//	            ↓ orchestrates
//	┌──────────────────────────────────────┐
//	│  source · schema · diff · validate   │  reference strategy, canonical
//	│        rules · policy · report       │  schemas, change classification
//	└──────────────────────────────────────┘
//	            ↓ talks to
//	┌──────────────────────────────────────┐
//	│      githubclient · endpoint         │  contents API, check runs,
//	│                                      │  live introspection
//	└──────────────────────────────────────┘
//
// # Package map
//
//   - cmd/graphql-inspector: process entry, flag/input binding, logging setup
//   - config: run configuration and captured runner environment
//   - source: reference strategy and concurrent schema retrieval
//   - schema: canonical schema construction from SDL or introspection JSON
//   - introspection: introspection-result decoding and SDL rendering
//   - diff: change model, severity classification, structural diff engine
//   - rules: named rules that reclassify change severity
//   - validate: operation-document loading and schema-usage validation
//   - policy: final conclusion and annotation projections
//   - report: check-run summary rendering and emission
//   - githubclient, endpoint: outbound collaborators
//   - errors, metric, pkg/retry: shared ambient infrastructure
//
// Components receive their collaborators explicitly and never read ambient
// environment state; the process environment is captured once in cmd.
package inspector
