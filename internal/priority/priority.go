// Package priority classifies incoming actions so the orchestrator can
// order the pending queue (§4.D). Rules are checked in a fixed order —
// urgency keyword, then VIP sender, then newsletter pattern — and the
// first match wins; anything unmatched is normal (§6: any value outside
// high|normal|low is also treated as normal).
package priority

import "strings"

// Level is the classification result. Only these three values are ever
// produced; any other string encountered elsewhere is treated as Normal.
type Level string

const (
	High   Level = "high"
	Normal Level = "normal"
	Low    Level = "low"
)

var urgencyKeywords = []string{"urgent", "asap", "deadline", "overdue"}

var newsletterPrefixes = []string{"newsletter", "no-reply", "noreply", "do-not-reply"}

// Classifier holds the VIP sender list; callers construct one per vault
// (the list is sourced from VIP_SENDERS configuration, §6).
type Classifier struct {
	vipSenders map[string]struct{}
}

// New returns a classifier recognizing the given VIP sender addresses
// (matched case-insensitively, exact match on the whole address).
func New(vipSenders []string) *Classifier {
	set := make(map[string]struct{}, len(vipSenders))
	for _, s := range vipSenders {
		set[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return &Classifier{vipSenders: set}
}

// Classify determines the priority of an item given its sender address
// and combined subject+body text.
func (c *Classifier) Classify(sender, text string) Level {
	lower := strings.ToLower(text)
	for _, kw := range urgencyKeywords {
		if strings.Contains(lower, kw) {
			return High
		}
	}

	senderLower := strings.ToLower(strings.TrimSpace(sender))
	if _, ok := c.vipSenders[senderLower]; ok {
		return High
	}

	for _, prefix := range newsletterPrefixes {
		if strings.Contains(senderLower, prefix) {
			return Low
		}
	}

	return Normal
}

// Normalize coerces any value to a valid Level, defaulting to Normal
// (§6: "anything else is treated as normal").
func Normalize(v string) Level {
	switch Level(v) {
	case High, Low:
		return Level(v)
	default:
		return Normal
	}
}

// Rank returns a sortable weight for Level, higher meaning more urgent.
// Used by the orchestrator to order the pending list (§4.G.1).
func Rank(l Level) int {
	switch l {
	case High:
		return 2
	case Low:
		return 0
	default:
		return 1
	}
}
