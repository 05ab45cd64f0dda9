// Package filters implements the chat content scanners. Filters only decide;
// the intervention (delete, timeout, log) is carried out by the bot pipeline.
package filters

import "warden/internal/settings"

// Match describes what a filter tripped on.
type Match struct {
	Filter string
	Reason string
}

// MessageFilter is the fixed contract every scanner implements. Filters are
// wired explicitly at startup, in pipeline order.
type MessageFilter interface {
	Name() string
	Check(content string, guild settings.Guild) (Match, bool)
}
