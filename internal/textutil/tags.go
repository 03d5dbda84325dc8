package textutil

import (
	"fmt"
	"regexp"
	"strings"
)

// tagPattern matches inline markup (subtitle/caption style tags) that must
// survive machine translation intact.
var tagPattern = regexp.MustCompile(`<[^<>]+>`)

// placeholderPattern matches positional placeholders on the way back,
// tolerating case changes and stray spaces introduced by the translator.
var placeholderPattern = regexp.MustCompile(`(?i)__\s*tag\s*(\d+)\s*__`)

// MaskTags replaces inline markup with positional __TAG<n>__ placeholders and
// returns the masked text along with the extracted tags in order.
func MaskTags(text string) (string, []string) {
	if !strings.Contains(text, "<") {
		return text, nil
	}
	var tags []string
	masked := tagPattern.ReplaceAllStringFunc(text, func(tag string) string {
		placeholder := fmt.Sprintf("__TAG%d__", len(tags))
		tags = append(tags, tag)
		return placeholder
	})
	return masked, tags
}

// RestoreTags substitutes extracted tags back into translated text. Unknown
// or out-of-range placeholders are dropped rather than left in the output.
func RestoreTags(text string, tags []string) string {
	if len(tags) == 0 {
		return text
	}
	return placeholderPattern.ReplaceAllStringFunc(text, func(match string) string {
		groups := placeholderPattern.FindStringSubmatch(match)
		if len(groups) != 2 {
			return ""
		}
		var index int
		if _, err := fmt.Sscanf(groups[1], "%d", &index); err != nil {
			return ""
		}
		if index < 0 || index >= len(tags) {
			return ""
		}
		return tags[index]
	})
}
