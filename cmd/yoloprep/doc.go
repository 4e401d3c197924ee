// Package main hosts the yoloprep CLI entrypoint and command graph.
//
// The Cobra command tree exposes the three dataset stages (select, place,
// organize) plus run history, environment checks, and configuration
// scaffolding. It resolves configuration and logging once per invocation,
// applies flag overrides on top of the loaded config, and prints each
// stage's summary as a table or as JSON.
//
// Stage logic lives in internal/pipeline; commands here only translate flags
// and render results.
package main
