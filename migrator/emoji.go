package migrator

import (
	"strconv"
	"strings"
)

// reactionKey converts a Rocket.Chat reaction shortcode such as ":+1:" to the
// Unicode emoji Matrix annotations use as key.
func reactionKey(shortcode string) (string, bool) {
	name := strings.ToLower(strings.Trim(shortcode, ":"))
	if name == "" {
		return "", false
	}

	unicodeHex, exists := emojiShortcodes[name]
	if !exists {
		return "", false
	}

	emoji := hexToUnicode(unicodeHex)
	if emoji == "" {
		return "", false
	}
	return emoji, true
}

// hexToUnicode converts a hex string (with potential -fe0f suffixes) to Unicode character
func hexToUnicode(hexStr string) string {
	// Sequences like "1f441-fe0f-200d-1f5e8-fe0f" keep their variation
	// selectors and zero-width joiners.
	parts := strings.Split(hexStr, "-")
	var result strings.Builder

	for _, part := range parts {
		if codePoint, err := strconv.ParseInt(part, 16, 32); err == nil && codePoint > 0 {
			result.WriteRune(rune(codePoint))
		}
	}

	return result.String()
}
