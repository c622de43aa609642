// Package store persists pipeline run history and the play catalog in SQLite.
//
// Run history is an audit trail: every `replay run` records when it started,
// which files it skipped, and what it wrote. Nothing in the pipeline reads it
// back to decide what to do, so deleting the database never changes the clean
// dataset.
//
// The catalog is a queryable copy of the clean dataset with derived columns
// (date parts, minutes played, valid-listen flag). Loading replaces the whole
// catalog in one transaction so it always mirrors exactly one clean dataset.
//
// Base tables live in schema.sql and are versioned by schemaVersion; additive
// changes go in migrations/ and are applied in file-name order on Open.
package store
