package main

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// Strict policy for nicknames - only allows basic text, no HTML
	nicknamePolicy = bluemonday.StrictPolicy()

	// Relaxed policy for messages - allows safe inline formatting
	messagePolicy = bluemonday.UGCPolicy().
			AllowElements("b", "i", "em", "strong", "u", "s", "del", "code", "pre", "br").
			AllowURLSchemes("http", "https").
			AllowRelativeURLs(false).
			RequireNoFollowOnLinks(true)
)

// SanitizeNickname strips all HTML from a nickname and caps its length.
func SanitizeNickname(nickname string) string {
	decoded := html.UnescapeString(nickname)
	sanitized := strings.TrimSpace(nicknamePolicy.Sanitize(decoded))
	if len(sanitized) > 24 {
		sanitized = sanitized[:24]
	}
	if sanitized == "" {
		return "anon"
	}
	return sanitized
}

// SanitizeMessage strips unsafe HTML from a message body.
func SanitizeMessage(message string) string {
	decoded := html.UnescapeString(message)
	return strings.TrimSpace(messagePolicy.Sanitize(decoded))
}
