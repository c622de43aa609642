// Package catalog turns clean dataset records into store.Play rows and loads
// them into the SQLite catalog.
//
// Derivation reads only the fields named in config.Fields. A record missing
// a field yields a row with that column NULL rather than an error; podcast
// episodes are left out of the catalog entirely.
package catalog
