package tonal

import (
	"fmt"
	"strings"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
)

// Mode is the tonal mode of a key
type Mode int

const (
	Major Mode = iota
	Minor
)

func (m Mode) String() string {
	switch m {
	case Major:
		return "major"
	case Minor:
		return "minor"
	default:
		return "unknown"
	}
}

// Scale intervals in semitones above the tonic
var (
	MajorScale = [7]int{0, 2, 4, 5, 7, 9, 11}
	MinorScale = [7]int{0, 2, 3, 5, 7, 8, 10}
)

// NoteNames lists pitch classes with sharps, C = 0
var NoteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// KeyInfo is the resolved key of a track. It is produced once per run and
// never modified afterwards.
type KeyInfo struct {
	Tonic      int     `json:"tonic"`      // Pitch class 0-11, C = 0
	Mode       Mode    `json:"mode"`       // Major or Minor
	Scale      [7]int  `json:"scale"`      // Absolute pitch classes of the scale
	Confidence float64 `json:"confidence"` // 0-1
}

// NewKeyInfo builds a KeyInfo with its scale filled in
func NewKeyInfo(tonic int, mode Mode, confidence float64) KeyInfo {
	tonic = ((tonic % 12) + 12) % 12
	intervals := MajorScale
	if mode == Minor {
		intervals = MinorScale
	}

	var scale [7]int
	for i, iv := range intervals {
		scale[i] = (tonic + iv) % 12
	}

	return KeyInfo{Tonic: tonic, Mode: mode, Scale: scale, Confidence: confidence}
}

// Name returns the human-readable key, e.g. "A minor"
func (k KeyInfo) Name() string {
	return fmt.Sprintf("%s %s", NoteNames[k.Tonic], k.Mode)
}

// ScaleNames returns the note names of the scale starting at the tonic
func (k KeyInfo) ScaleNames() []string {
	names := make([]string, len(k.Scale))
	for i, pc := range k.Scale {
		names[i] = NoteNames[pc]
	}
	return names
}

var flatNames = map[string]int{
	"CB": 11, "DB": 1, "EB": 3, "FB": 4, "GB": 6, "AB": 8, "BB": 10,
	"E#": 5, "B#": 0,
}

// ParseKey parses key names such as "C major", "A minor", "F# min", "Bb",
// "Am" or "c#m". A bare note means major. Parsed keys carry confidence 1.
func ParseKey(s string) (KeyInfo, error) {
	fields := strings.Fields(strings.TrimSpace(s))
	if len(fields) == 0 || len(fields) > 2 {
		return KeyInfo{}, apperrors.NewConfigurationError("key", s, "expected \"<note> [major|minor]\"")
	}

	note := strings.ToUpper(fields[0][:1]) + strings.ToLower(fields[0][1:])
	mode := Major

	if len(fields) == 2 {
		switch strings.ToLower(fields[1]) {
		case "major", "maj":
		case "minor", "min", "m":
			mode = Minor
		default:
			return KeyInfo{}, apperrors.NewConfigurationError("key", s, "unknown mode "+fields[1])
		}
	} else if len(note) > 1 && strings.HasSuffix(note, "m") {
		note = strings.TrimSuffix(note, "m")
		mode = Minor
	}

	tonic, ok := pitchClassOf(note)
	if !ok {
		return KeyInfo{}, apperrors.NewConfigurationError("key", s, "unknown note "+fields[0])
	}

	return NewKeyInfo(tonic, mode, 1.0), nil
}

func pitchClassOf(note string) (int, bool) {
	upper := strings.ToUpper(note)
	for pc, name := range NoteNames {
		if name == upper {
			return pc, true
		}
	}
	pc, ok := flatNames[upper]
	return pc, ok
}
