package helpers

import (
	"regexp"
	"strings"
)

var unsafeName = regexp.MustCompile(`[^a-z0-9._-]+`)

func SpacesToUnderscores(description string) string {
	return strings.Replace(strings.ToLower(description), " ", "_", -1)
}

// SafeDirName turns an ESSID into something usable as a single path element.
// Empty or fully stripped names fall back to the given alternative.
func SafeDirName(name, fallback string) string {
	cleaned := unsafeName.ReplaceAllString(SpacesToUnderscores(name), "_")
	cleaned = strings.Trim(cleaned, "._")
	if cleaned == "" {
		cleaned = unsafeName.ReplaceAllString(strings.ToLower(fallback), "_")
	}
	return cleaned
}
