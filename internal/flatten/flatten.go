package flatten

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Name lower-cases id, turns every forward or backward slash into a hyphen,
// collapses hyphen runs, and trims hyphens from both ends. No other
// characters are altered. id must be valid UTF-8; invalid bytes come back as
// U+FFFD, so callers reject such identifiers before flattening.
func Name(id string) string {
	if id == "" {
		return ""
	}
	lowered := cases.Lower(language.Und).String(id)

	var b strings.Builder
	b.Grow(len(lowered))
	lastHyphen := false
	for _, r := range lowered {
		if r == '/' || r == '\\' {
			r = '-'
		}
		if r == '-' {
			if lastHyphen {
				continue
			}
			lastHyphen = true
		} else {
			lastHyphen = false
		}
		b.WriteRune(r)
	}
	return strings.Trim(b.String(), "-")
}

// Base strips the final extension from a flat name. Leading dots do not start
// an extension, so ".hidden" is returned unchanged.
func Base(name string) string {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name
	}
	if strings.Trim(name[:idx], ".") == "" {
		return name
	}
	return name[:idx]
}

// LabelName returns the label file name paired with the flat image name.
func LabelName(imageName string) string {
	return Base(imageName) + ".txt"
}
