package render

import "strings"

// User-facing failure categories. Raw provider error text is never shown to
// end users; it is mapped onto this small fixed set.
const (
	MessageContentPolicy = "Blocked by content policy. Try rewording this scene."
	MessageQueueBusy     = "The generation queue is busy. Try again in a moment."
	MessageTimedOut      = "Generation timed out. Try this scene again."
	MessageGenericFailed = "Generation failed. Try this scene again."
	MessageNeedCredits   = "Not enough credits for this scene. Upgrade to continue."
)

// FriendlyMessage maps raw provider error text to a user-facing category.
func FriendlyMessage(raw string) string {
	lower := strings.ToLower(raw)
	switch {
	case strings.Contains(lower, "policy"),
		strings.Contains(lower, "moderation"),
		strings.Contains(lower, "inappropriate"),
		strings.Contains(lower, "unsafe"):
		return MessageContentPolicy
	case strings.Contains(lower, "throttl"),
		strings.Contains(lower, "rate limit"),
		strings.Contains(lower, "busy"),
		strings.Contains(lower, "capacity"),
		strings.Contains(lower, "quota"):
		return MessageQueueBusy
	case strings.Contains(lower, "timeout"),
		strings.Contains(lower, "timed out"):
		return MessageTimedOut
	default:
		return MessageGenericFailed
	}
}
