package language

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// Auto is the sentinel used in configuration when a language should be
// detected rather than assumed.
const Auto = "auto"

// Bibliographic ISO 639-2/B codes that x/text does not canonicalize.
var bibliographic = map[string]string{
	"fre": "fr",
	"ger": "de",
	"dut": "nl",
	"chi": "zh",
	"cze": "cs",
	"gre": "el",
	"rum": "ro",
	"slo": "sk",
	"per": "fa",
	"arm": "hy",
	"geo": "ka",
	"ice": "is",
	"alb": "sq",
	"mac": "mk",
	"may": "ms",
	"bur": "my",
	"tib": "bo",
	"wel": "cy",
	"baq": "eu",
}

// English word forms accepted on the CLI and in stream tags.
var words = map[string]string{
	"english":     "en",
	"spanish":     "es",
	"french":      "fr",
	"german":      "de",
	"italian":     "it",
	"portuguese":  "pt",
	"japanese":    "ja",
	"korean":      "ko",
	"chinese":     "zh",
	"russian":     "ru",
	"arabic":      "ar",
	"hindi":       "hi",
	"dutch":       "nl",
	"polish":      "pl",
	"swedish":     "sv",
	"danish":      "da",
	"norwegian":   "no",
	"finnish":     "fi",
	"turkish":     "tr",
	"azerbaijani": "az",
	"ukrainian":   "uk",
}

func parseBase(code string) (language.Base, bool) {
	code = strings.ToLower(strings.TrimSpace(code))
	if code == "" || code == Auto {
		return language.Base{}, false
	}
	if mapped, ok := bibliographic[code]; ok {
		code = mapped
	}
	if mapped, ok := words[code]; ok {
		code = mapped
	}
	tag, err := language.Parse(code)
	if err != nil {
		return language.Base{}, false
	}
	base, confidence := tag.Base()
	if confidence == language.No {
		return language.Base{}, false
	}
	return base, true
}

// ToISO2 converts any recognized language code or English word form to its
// shortest BCP 47 base (ISO 639-1 where one exists). Unrecognized two-letter
// codes pass through; everything else unrecognized yields the empty string.
func ToISO2(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" || normalized == Auto {
		return ""
	}
	if base, ok := parseBase(normalized); ok {
		return base.String()
	}
	if len(normalized) == 2 {
		return normalized
	}
	return ""
}

// ToISO3 converts any recognized language code to ISO 639-2 (3-letter).
// Unrecognized three-letter codes pass through; everything else yields "und".
func ToISO3(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" || normalized == Auto {
		return "und"
	}
	if base, ok := parseBase(normalized); ok {
		return base.ISO3()
	}
	if len(normalized) == 3 {
		return normalized
	}
	return "und"
}

// DisplayName returns a human-readable English name for any recognized code.
// Returns "Unknown" for empty or auto input and the uppercased code for
// unrecognized input.
func DisplayName(code string) string {
	normalized := strings.ToLower(strings.TrimSpace(code))
	if normalized == "" || normalized == Auto {
		return "Unknown"
	}
	if base, ok := parseBase(normalized); ok {
		tag := language.Make(base.String())
		if name := display.English.Languages().Name(tag); name != "" {
			return name
		}
	}
	return strings.ToUpper(normalized)
}

// IsAuto reports whether the value requests automatic language detection.
func IsAuto(code string) bool {
	normalized := strings.ToLower(strings.TrimSpace(code))
	return normalized == "" || normalized == Auto
}

// ExtractFromTags extracts and normalizes the language from stream metadata tags.
// Checks common tag keys: language, LANGUAGE, Language, language_ietf, lang, LANG.
func ExtractFromTags(tags map[string]string) string {
	if len(tags) == 0 {
		return ""
	}
	keys := []string{"language", "LANGUAGE", "Language", "language_ietf", "lang", "LANG"}
	for _, key := range keys {
		if value, ok := tags[key]; ok {
			value = strings.TrimSpace(strings.ReplaceAll(value, "\x00", ""))
			if value != "" {
				return strings.ToLower(value)
			}
		}
	}
	return ""
}

// NormalizeList deduplicates and normalizes a list of language codes to ISO 639-1.
func NormalizeList(languages []string) []string {
	if len(languages) == 0 {
		return nil
	}
	normalized := make([]string, 0, len(languages))
	seen := make(map[string]struct{}, len(languages))
	for _, lang := range languages {
		trimmed := strings.ToLower(strings.TrimSpace(lang))
		if trimmed == "" {
			continue
		}
		if len(trimmed) > 2 {
			if mapped := ToISO2(trimmed); mapped != "" {
				trimmed = mapped
			}
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		normalized = append(normalized, trimmed)
	}
	return normalized
}
