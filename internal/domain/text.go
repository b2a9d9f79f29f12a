package domain

import (
	"regexp"
	"strings"
)

var (
	hashtagRe = regexp.MustCompile(`#([\p{L}\p{N}_]+)`)
	mentionRe = regexp.MustCompile(`@([A-Za-z0-9]+)`)
)

// ExtractHashtags returns the distinct lower-cased hashtags of text, with
// their leading '#'.
func ExtractHashtags(text string) []string {
	return extract(hashtagRe, text, "#", true)
}

// ExtractMentions returns the distinct user names mentioned in text.
func ExtractMentions(text string) []string {
	return extract(mentionRe, text, "", false)
}

func extract(re *regexp.Regexp, text, prefix string, lower bool) []string {
	matches := re.FindAllStringSubmatch(text, -1)
	out := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		v := m[1]
		if lower {
			v = strings.ToLower(v)
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, prefix+v)
	}
	return out
}
