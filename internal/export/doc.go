// Package export reads streaming-history export files.
//
// Discover walks an export folder lazily and yields the JSON files that match
// the configured pattern in lexical path order. Parse turns one file into
// Records: a top-level array of objects, or a single object, is accepted and
// anything else is reported as a *MalformedInputError so callers can skip the
// file and continue.
//
// Records keep their original bytes (compacted) and carry a canonical key:
// the SHA256 of the record re-serialized with object keys sorted and number
// literals preserved. Two records with the same key are exact duplicates even
// when their keys were written in a different order.
package export
