// Package domain contains the core types of the adwatch pipeline:
// listings, exclusions, run records and search criteria.
// It has no dependencies on adapters or external services.
package domain
