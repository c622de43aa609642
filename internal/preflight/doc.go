// Package preflight checks that the filesystem paths replay depends on are
// usable before any work starts.
//
// `replay run` calls RunAll and refuses to start when a check fails, so a
// typo in the input directory surfaces before the output lock is taken.
// `replay check` renders the same results as a table.
package preflight
