// Package language detects the language a question is written in.
package language

import (
	"strings"

	"github.com/abadojack/whatlanggo"
)

// Fallback is returned when the language cannot be determined.
const Fallback = "en"

// Detect returns the ISO 639-1 code of text, or Fallback.
func Detect(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return Fallback
	}

	info := whatlanggo.Detect(text)
	if info.Lang < 0 {
		return Fallback
	}
	code := info.Lang.Iso6391()
	if code == "" {
		return Fallback
	}
	return code
}
