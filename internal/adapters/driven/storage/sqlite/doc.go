// Package sqlite provides the durable stores behind the adwatch pipeline:
// the listing store, the exclusion store and the append-only run log, all
// backed by a single SQLite database in WAL mode. Batch writes run in one
// transaction, which is what makes PutAll all-or-nothing and keeps the
// exclusion surface safe to use while a run is in flight.
package sqlite
