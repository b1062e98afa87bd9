// Package driven defines the driven ports: interfaces the core services
// require from infrastructure adapters (stores, the source fetcher, the
// notifier gateway, configuration).
package driven
