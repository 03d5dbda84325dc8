package voice

import (
	"math"
	"strings"

	"overdub/internal/config"
	"overdub/internal/pipeline"
)

// pitchOffsetScaleHz converts the relative distance between a speaker's
// pitch and the gender base pitch into an edge-tts Hz offset. A speaker a
// full base-width above the base gets +50Hz.
const pitchOffsetScaleHz = 50.0

// edge-tts neural voices shipped as defaults. The synthesis.male_voices and
// synthesis.female_voices config maps extend or override these per language.
var edgeMaleVoices = map[string]string{
	"az": "az-AZ-BabekNeural",
	"en": "en-US-GuyNeural",
	"tr": "tr-TR-AhmetNeural",
}

var edgeFemaleVoices = map[string]string{
	"az": "az-AZ-BanuNeural",
	"en": "en-US-JennyNeural",
	"tr": "tr-TR-EmelNeural",
}

// OpenAI TTS voices are not language-bound; one per gender plus a neutral
// default.
const (
	openaiMaleVoice    = "onyx"
	openaiFemaleVoice  = "nova"
	openaiNeutralVoice = "alloy"
)

// Selection names the concrete synthesis voice for one segment together
// with the prosody adjustments derived from its speaker profile.
type Selection struct {
	VoiceID       string
	PitchOffsetHz int
}

// Catalog resolves speaker profiles to synthesis voice ids for one engine.
type Catalog struct {
	engine          string
	defaultVoice    string
	male            map[string]string
	female          map[string]string
	maleBase        float64
	femaleBase      float64
	genderThreshold float64
}

// NewCatalog builds the voice catalog for the configured synthesis engine,
// merging built-in voices with the config voice maps.
func NewCatalog(cfg *config.Config) *Catalog {
	c := &Catalog{
		engine:          cfg.Synthesis.Engine,
		defaultVoice:    cfg.Synthesis.DefaultVoice,
		male:            map[string]string{},
		female:          map[string]string{},
		maleBase:        cfg.Speaker.MalePitch.Base,
		femaleBase:      cfg.Speaker.FemalePitch.Base,
		genderThreshold: cfg.Speaker.GenderThreshold,
	}
	if c.engine == "edge" {
		for lang, voice := range edgeMaleVoices {
			c.male[lang] = voice
		}
		for lang, voice := range edgeFemaleVoices {
			c.female[lang] = voice
		}
	}
	for lang, voice := range cfg.Synthesis.MaleVoices {
		c.male[lang] = voice
	}
	for lang, voice := range cfg.Synthesis.FemaleVoices {
		c.female[lang] = voice
	}
	return c
}

// Select picks the voice for a profile in the given target language.
// Unknown gender, a missing catalog entry, or confidence below the gender
// threshold all fall back to the default voice with flat prosody.
func (c *Catalog) Select(language string, profile pipeline.Profile) Selection {
	language = strings.ToLower(strings.TrimSpace(language))

	voice := c.GenderVoice(profile.Gender, language)
	if voice == "" {
		return Selection{VoiceID: c.fallbackVoice(language)}
	}

	sel := Selection{VoiceID: voice}
	if profile.Confidence >= c.genderThreshold {
		sel.PitchOffsetHz = pitchOffset(profile.Gender, profile.PitchHz, c.maleBase, c.femaleBase)
	}
	return sel
}

// Fallback returns the default-voice selection for a target language with
// flat prosody. The dubbing stage reaches for it when a gendered voice has
// exhausted its synthesis attempts.
func (c *Catalog) Fallback(language string) Selection {
	return Selection{VoiceID: c.fallbackVoice(strings.ToLower(strings.TrimSpace(language)))}
}

// fallbackVoice resolves the voice used when no gendered catalog entry
// applies: the configured default, then the male voice for the language,
// then an engine-wide neutral.
func (c *Catalog) fallbackVoice(language string) string {
	if c.defaultVoice != "" {
		return c.defaultVoice
	}
	if voice := c.male[language]; voice != "" {
		return voice
	}
	if c.engine == "openai" {
		return openaiNeutralVoice
	}
	return edgeMaleVoices["en"]
}

// pitchOffset maps the speaker's distance from the gender base pitch onto
// the synthesis pitch adjustment. Pitches outside the plausible speech band
// contribute nothing.
func pitchOffset(gender pipeline.Gender, pitchHz, maleBase, femaleBase float64) int {
	base := maleBase
	if gender == pipeline.GenderFemale {
		base = femaleBase
	}
	if base <= 0 || pitchHz < 50 || pitchHz > 300 {
		return 0
	}
	return int(math.Round((pitchHz - base) / base * pitchOffsetScaleHz))
}

// GenderVoice returns the catalog entry for an explicit gender and
// language, or "" when none exists.
func (c *Catalog) GenderVoice(gender pipeline.Gender, language string) string {
	language = strings.ToLower(strings.TrimSpace(language))
	switch gender {
	case pipeline.GenderMale:
		if c.engine == "openai" && c.male[language] == "" {
			return openaiMaleVoice
		}
		return c.male[language]
	case pipeline.GenderFemale:
		if c.engine == "openai" && c.female[language] == "" {
			return openaiFemaleVoice
		}
		return c.female[language]
	default:
		return ""
	}
}
