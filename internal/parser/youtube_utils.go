package parser

import (
	"regexp"
	"strings"
)

var (
	// "(Official Music Video)", "[Official Audio]", "(Official HD Video)"
	officialTagRegex = regexp.MustCompile(`(?i)\s*[\(\[]\s*official\b[^\)\]]*[\)\]]`)
	// "Song - Official Video", "Song | Official Music Video"
	officialTailRegex = regexp.MustCompile(`(?i)\s+[-–—|]\s*official\b[^-–—|]*\b(video|audio|visualizer)\s*$`)
	spaceRegex        = regexp.MustCompile(`\s{2,}`)
	splitRegex        = regexp.MustCompile(`\s+[-–—|:]\s+`)
)

// CleanTitle strips "official" decorations from a provider title and drops a
// leading "<artist> - " prefix so only the song name remains.
func CleanTitle(rawTitle string, artist string) string {
	t := officialTagRegex.ReplaceAllString(rawTitle, "")
	t = officialTailRegex.ReplaceAllString(t, "")
	t = spaceRegex.ReplaceAllString(t, " ")
	t = strings.TrimSpace(t)

	if artist != "" {
		parts := splitRegex.Split(t, 2)
		if len(parts) == 2 && strings.EqualFold(strings.TrimSpace(parts[0]), strings.TrimSpace(artist)) {
			t = strings.TrimSpace(parts[1])
		}
	}

	if t == "" {
		return strings.TrimSpace(rawTitle)
	}
	return t
}

// PickThumbnail returns the first non-empty URL, callers pass them best first.
func PickThumbnail(urls ...string) string {
	for _, u := range urls {
		if u != "" {
			return u
		}
	}
	return ""
}
