package tonal

import (
	"errors"
	"reflect"
	"testing"

	apperrors "github.com/RyanBlaney/sonido-chords/errors"
)

func TestParseKey(t *testing.T) {
	tests := []struct {
		in    string
		tonic int
		mode  Mode
	}{
		{"C major", 0, Major},
		{"A minor", 9, Minor},
		{"f# min", 6, Minor},
		{"Bb", 10, Major},
		{"Am", 9, Minor},
		{"c#m", 1, Minor},
		{"Eb maj", 3, Major},
		{"G m", 7, Minor},
	}
	for _, tt := range tests {
		key, err := ParseKey(tt.in)
		if err != nil {
			t.Errorf("ParseKey(%q): %v", tt.in, err)
			continue
		}
		if key.Tonic != tt.tonic || key.Mode != tt.mode {
			t.Errorf("ParseKey(%q) = %s", tt.in, key.Name())
		}
		if key.Confidence != 1 {
			t.Errorf("ParseKey(%q) confidence = %v", tt.in, key.Confidence)
		}
	}
}

func TestParseKeyErrors(t *testing.T) {
	for _, in := range []string{"", "H major", "C dorian", "C major extra"} {
		_, err := ParseKey(in)
		var ce *apperrors.ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("ParseKey(%q) = %v, want ConfigurationError", in, err)
		}
	}
}

func TestKeyInfoScale(t *testing.T) {
	a := NewKeyInfo(9, Minor, 0.8)
	want := []string{"A", "B", "C", "D", "E", "F", "G"}
	if got := a.ScaleNames(); !reflect.DeepEqual(got, want) {
		t.Errorf("A minor scale = %v", got)
	}
	if NewKeyInfo(-1, Major, 0).Name() != "B major" {
		t.Error("negative tonic should wrap")
	}
}
