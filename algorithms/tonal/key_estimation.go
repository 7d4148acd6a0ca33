package tonal

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/RyanBlaney/sonido-chords/algorithms/common"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/logging"
)

// KeyProfile selects the scale-degree weighting used for key templates
type KeyProfile int

const (
	KeyProfileKrumhansl KeyProfile = iota
	KeyProfileTemperley
	KeyProfileDiatonic
)

func (p KeyProfile) String() string {
	switch p {
	case KeyProfileKrumhansl:
		return "krumhansl"
	case KeyProfileTemperley:
		return "temperley"
	case KeyProfileDiatonic:
		return "diatonic"
	default:
		return "unknown"
	}
}

// ParseKeyProfile maps a profile name to a KeyProfile
func ParseKeyProfile(name string) (KeyProfile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "krumhansl", "krumhansl-schmuckler":
		return KeyProfileKrumhansl, nil
	case "temperley":
		return KeyProfileTemperley, nil
	case "diatonic":
		return KeyProfileDiatonic, nil
	default:
		return 0, apperrors.NewConfigurationError("analysis.profile", name, "unknown key profile")
	}
}

// KeyProfileTemplate holds the tonic-relative weights of one profile family
type KeyProfileTemplate struct {
	MajorProfile [12]float64 `json:"major_profile"`
	MinorProfile [12]float64 `json:"minor_profile"`
	Name         string      `json:"name"`
}

var keyProfiles = map[KeyProfile]KeyProfileTemplate{
	// Krumhansl-Schmuckler probe-tone ratings
	KeyProfileKrumhansl: {
		MajorProfile: [12]float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88},
		MinorProfile: [12]float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17},
		Name:         "Krumhansl-Schmuckler",
	},
	// Temperley corpus-based weights
	KeyProfileTemperley: {
		MajorProfile: [12]float64{5.0, 2.0, 3.5, 2.0, 4.5, 4.0, 2.0, 4.5, 2.0, 3.5, 1.5, 4.0},
		MinorProfile: [12]float64{5.0, 2.0, 3.5, 4.5, 2.0, 4.0, 2.0, 4.5, 3.5, 2.0, 1.5, 4.0},
		Name:         "Temperley",
	},
	KeyProfileDiatonic: {
		MajorProfile: [12]float64{5.0, 0.0, 3.0, 0.0, 4.0, 3.5, 0.0, 4.5, 0.0, 3.0, 0.0, 2.0},
		MinorProfile: [12]float64{5.0, 0.0, 3.0, 3.5, 0.0, 3.5, 0.0, 4.5, 3.0, 0.0, 2.0, 0.0},
		Name:         "Diatonic",
	},
}

// KeyCandidate is one of the 24 tonic/mode hypotheses with its correlation
type KeyCandidate struct {
	Tonic       int     `json:"tonic"`
	Mode        Mode    `json:"mode"`
	Correlation float64 `json:"correlation"`
}

// Name returns the human-readable key of the candidate
func (c KeyCandidate) Name() string {
	return fmt.Sprintf("%s %s", NoteNames[c.Tonic], c.Mode)
}

// KeyResolver picks the key whose rotated profile best correlates with a
// 12-bin pitch-class energy vector
type KeyResolver struct {
	profile KeyProfile
	logger  logging.Logger
}

// NewKeyResolver creates a resolver using the given profile family
func NewKeyResolver(profile KeyProfile) *KeyResolver {
	if _, ok := keyProfiles[profile]; !ok {
		profile = KeyProfileKrumhansl
	}
	return &KeyResolver{
		profile: profile,
		logger: logging.WithFields(logging.Fields{
			"component": "key_resolver",
			"profile":   profile.String(),
		}),
	}
}

// Template returns the profile rotated to the given tonic: element pc is the
// weight of pitch class pc in that key
func (kr *KeyResolver) Template(tonic int, mode Mode) []float64 {
	tmpl := keyProfiles[kr.profile]
	base := tmpl.MajorProfile
	if mode == Minor {
		base = tmpl.MinorProfile
	}
	return rotateProfile(base, tonic)
}

func rotateProfile(profile [12]float64, tonic int) []float64 {
	out := make([]float64, 12)
	for pc := range 12 {
		out[pc] = profile[((pc-tonic)%12+12)%12]
	}
	return out
}

// Candidates returns all 24 keys ranked by correlation, best first
func (kr *KeyResolver) Candidates(chroma []float64) ([]KeyCandidate, error) {
	if err := validateChroma(chroma); err != nil {
		return nil, err
	}

	candidates := make([]KeyCandidate, 0, 24)
	for _, mode := range []Mode{Major, Minor} {
		for tonic := range 12 {
			candidates = append(candidates, KeyCandidate{
				Tonic:       tonic,
				Mode:        mode,
				Correlation: common.Correlation(chroma, kr.Template(tonic, mode)),
			})
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Correlation > candidates[j].Correlation
	})
	return candidates, nil
}

// Resolve estimates the key of a chroma vector. Confidence is the margin of
// the best correlation over the runner-up, normalized by the runner-up's
// distance to a perfect match: a tie gives 0 and an exact template gives 1.
func (kr *KeyResolver) Resolve(chroma []float64) (KeyInfo, error) {
	candidates, err := kr.Candidates(chroma)
	if err != nil {
		return KeyInfo{}, err
	}

	best, second := candidates[0], candidates[1]
	confidence := 0.0
	if headroom := 1 - second.Correlation; headroom > 1e-12 {
		confidence = common.Clamp((best.Correlation-second.Correlation)/headroom, 0, 1)
	}

	key := NewKeyInfo(best.Tonic, best.Mode, confidence)

	kr.logger.Debug("Key resolved", logging.Fields{
		"key":         key.Name(),
		"correlation": best.Correlation,
		"runner_up":   second.Name(),
		"confidence":  confidence,
	})

	return key, nil
}

func validateChroma(chroma []float64) error {
	if len(chroma) != 12 {
		return apperrors.NewAnalysisError("resolve key", fmt.Sprintf("chroma has %d bins, expected 12", len(chroma)))
	}

	total := 0.0
	for i, v := range chroma {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return apperrors.NewAnalysisError("resolve key", fmt.Sprintf("chroma bin %d is invalid: %v", i, v))
		}
		total += v
	}
	if total <= 0 {
		return apperrors.NewAnalysisError("resolve key", "chroma has no energy")
	}

	return nil
}
