// Package coderun is a remote snippet-execution service for Qiskit programs.
//
// It accepts a block of Python source over HTTP, rewrites the program's
// IBM Quantum configuration section depending on whether the caller supplied
// a credential, executes the rewritten program in an isolated sandbox, and
// returns everything the program printed as a single text result.
//
// The pipeline is strictly one-way per request: server.Gateway applies
// rewrite.Rewriter, hands the result to a sandbox.Runner, and returns the
// captured Outcome to the caller.
//
// The root package defines the shared contracts and records:
//
//   - [Credential]: caller-supplied token/channel/instance/region bundle
//   - [Mode]: immutable local/cloud switch fixed at startup
//   - [Outcome]: captured text result of one execution attempt
//   - [History]: optional audit log of completed executions
//   - [DocumentStore]: persistence for ingested tutorial documents
//
// Subpackages:
//
//   - rewrite: the pattern registry and configuration rewriter
//   - sandbox: subprocess and Docker execution backends
//   - server: the HTTP gateway (POST /run)
//   - observer: OpenTelemetry instrumentation
//   - store/sqlite, store/postgres: History and DocumentStore implementations
//   - extract: fenced code-block extraction from markdown
//   - ingest: tutorial document fetching, extraction, and chunking
package coderun
