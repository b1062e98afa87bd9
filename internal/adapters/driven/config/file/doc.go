// Package file implements TOML-backed configuration with typed helpers
// for the search criteria and delivery settings, plus change watching so
// the daemon can pick up edits without a restart.
//
// Secrets never live in the TOML file. The Telegram bot token and chat
// id come from the environment, optionally seeded from a .env file.
package file
