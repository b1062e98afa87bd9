// Package telegram delivers listing notifications through the Telegram
// Bot API. One message per listing, plain text, paced to stay under the
// per-chat send limits.
package telegram
