// Package pipeline consolidates an export folder into one clean dataset.
//
// Run discovers export files, parses them (optionally in parallel with a
// bounded worker count), merges the per-file record sequences in discovery
// order, drops exact duplicates keeping the first occurrence, optionally
// re-orders by timestamp, and writes the result atomically while holding an
// exclusive lock on the output path.
//
// Failure model: a malformed file is skipped and reported in Result.Skipped.
// When no file yields a record Run returns *NoValidInputError and leaves the
// output untouched. Write problems surface as *WriteFailureError after the
// temp file has been removed. Runs share no state; every call rediscovers
// and rereads its input.
package pipeline
