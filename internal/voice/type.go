package voice

import "overdub/internal/pipeline"

// TypeFromPitch labels the voice register for a classified speaker. The
// label is informational; it lands on the profile and in the job summary.
func TypeFromPitch(gender pipeline.Gender, pitchHz float64) string {
	switch gender {
	case pipeline.GenderMale:
		switch {
		case pitchHz < 120:
			return "bass"
		case pitchHz < 150:
			return "baritone"
		default:
			return "tenor"
		}
	case pipeline.GenderFemale:
		switch {
		case pitchHz < 200:
			return "contralto"
		case pitchHz < 250:
			return "mezzo-soprano"
		default:
			return "soprano"
		}
	default:
		return "unknown"
	}
}
