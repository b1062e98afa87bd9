// Package services contains the core pipeline logic: the dedup/diff
// engine, the run orchestrator and the exclusion manager. Services depend
// only on domain types and driven ports.
package services
