package models

import "strings"

const keyPrefix = "gonogo:rl:"

// SanitizeKeySegment escapes delimiter characters in rate limit key segments
// so a caller value containing ':' cannot address another caller's bucket.
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

// CallerKey builds the bucket key for a caller identity such as
// "key:<hash>" or "ip:<addr>".
func CallerKey(caller string) string {
	kind, value, ok := strings.Cut(caller, ":")
	if !ok {
		return keyPrefix + "anon:" + SanitizeKeySegment(caller)
	}
	return keyPrefix + SanitizeKeySegment(kind) + ":" + SanitizeKeySegment(value)
}
