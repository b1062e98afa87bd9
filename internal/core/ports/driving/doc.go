// Package driving defines the driving ports: interfaces the CLI, daemon
// and TUI use to invoke core services.
package driving
