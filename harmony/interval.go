// Package harmony decides which intervals to sing above or below the lead
// vocal and renders the pitch-shifted layers.
package harmony

import (
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
)

// Kind names a harmony layer
type Kind string

const (
	Third      Kind = "third"
	Fifth      Kind = "fifth"
	ThirdLower Kind = "third_lower"
	FifthLower Kind = "fifth_lower"
)

// intervalTable maps kind to semitone offset per mode. Adding a row here
// is the only step needed to support a new kind.
var intervalTable = map[Kind]map[tonal.Mode]int{
	Third:      {tonal.Major: 4, tonal.Minor: 3},
	Fifth:      {tonal.Major: 7, tonal.Minor: 7},
	ThirdLower: {tonal.Major: -4, tonal.Minor: -3},
	FifthLower: {tonal.Major: -7, tonal.Minor: -7},
}

// Kinds lists the supported kinds in a stable order
func Kinds() []Kind {
	return []Kind{Third, Fifth, ThirdLower, FifthLower}
}

// SemitonesFor returns the shift for kind in the given mode
func SemitonesFor(mode tonal.Mode, kind Kind) (int, error) {
	row, ok := intervalTable[kind]
	if !ok {
		return 0, apperrors.NewConfigurationError("harmony", string(kind), "unknown harmony kind")
	}
	semitones, ok := row[mode]
	if !ok {
		return 0, apperrors.NewConfigurationError("harmony", mode.String(), "unsupported mode")
	}
	return semitones, nil
}

// ParseKind validates a single kind name
func ParseKind(s string) (Kind, error) {
	kind := Kind(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := intervalTable[kind]; !ok {
		return "", apperrors.NewConfigurationError("harmony", s,
			fmt.Sprintf("unknown harmony kind (valid: %s)", joinKinds(Kinds())))
	}
	return kind, nil
}

// ParseKinds parses a comma separated list such as "third,fifth". Order is
// kept and duplicates are rejected.
func ParseKinds(list string) ([]Kind, error) {
	var kinds []Kind
	seen := map[Kind]bool{}
	for _, part := range strings.Split(list, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		kind, err := ParseKind(part)
		if err != nil {
			return nil, err
		}
		if seen[kind] {
			return nil, apperrors.NewConfigurationError("harmony", part, "duplicate harmony kind")
		}
		seen[kind] = true
		kinds = append(kinds, kind)
	}
	if len(kinds) == 0 {
		return nil, apperrors.NewConfigurationError("harmony", list, "no harmony kinds given")
	}
	return kinds, nil
}

func joinKinds(kinds []Kind) string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
