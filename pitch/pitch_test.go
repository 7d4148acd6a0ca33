package pitch

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/RyanBlaney/sonido-chords/algorithms/tonal"
	"github.com/RyanBlaney/sonido-chords/audio"
	apperrors "github.com/RyanBlaney/sonido-chords/errors"
	"github.com/RyanBlaney/sonido-chords/logging"
)

func init() {
	logging.SetGlobalLogger(&logging.NoOpLogger{})
}

func TestParseF0CSV(t *testing.T) {
	input := `time,frequency,confidence
0.0,440.0,0.91
0.01,441.5,1.2
0.02,220.0,0.05
`
	pd, err := ParseF0CSV(strings.NewReader(input))
	if err != nil {
		t.Fatal(err)
	}
	if pd.Len() != 3 {
		t.Fatalf("frames = %d, want 3", pd.Len())
	}
	if pd.Frequencies[1] != 441.5 {
		t.Errorf("frequency = %v, want 441.5", pd.Frequencies[1])
	}
	if pd.Confidences[1] != 1 {
		t.Errorf("confidence = %v, want clamped to 1", pd.Confidences[1])
	}
}

func TestParseF0CSVErrors(t *testing.T) {
	tests := map[string]string{
		"not a number":   "time,frequency,confidence\n0.0,abc,0.5\n",
		"short row":      "0.0,440\n",
		"unordered time": "0.01,440,0.5\n0.0,440,0.5\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			var anaErr *apperrors.AnalysisError
			if _, err := ParseF0CSV(strings.NewReader(input)); !errors.As(err, &anaErr) {
				t.Errorf("got %v, want AnalysisError", err)
			}
		})
	}
}

func TestYINDetect(t *testing.T) {
	const sr = 16000
	samples := make([]float64, sr/2)
	for i := range samples {
		samples[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/sr)
	}
	stereo := audio.Buffer{Channels: [][]float64{samples, samples}}

	pd, err := YIN{}.Detect(context.Background(), stereo, sr)
	if err != nil {
		t.Fatal(err)
	}
	if pd.Len() != 50 {
		t.Fatalf("frames = %d, want 50", pd.Len())
	}
	if f := pd.MedianFrequency(0.5); math.Abs(f-220) > 2 {
		t.Errorf("median frequency %.1f Hz, want 220 Hz", f)
	}

	if _, err := (YIN{}).Detect(context.Background(), audio.Buffer{}, sr); !errors.Is(err, apperrors.ErrEmptyAudio) {
		t.Errorf("empty vocal: got %v, want ErrEmptyAudio", err)
	}
}

type fakeDetector struct {
	name string
	err  error
}

func (f *fakeDetector) Name() string                        { return f.name }
func (f *fakeDetector) Available(ctx context.Context) error { return f.err }
func (f *fakeDetector) Detect(ctx context.Context, vocal audio.Buffer, sampleRate int) (tonal.PitchData, error) {
	return tonal.PitchData{}, f.err
}

func TestSelect(t *testing.T) {
	ctx := context.Background()
	yin := YIN{}
	present := &fakeDetector{name: EngineCREPE}
	missing := &fakeDetector{name: EngineCREPE, err: apperrors.ErrToolNotInstalled}

	tests := []struct {
		name    string
		engine  string
		neural  Prober
		want    string
		wantErr bool
	}{
		{"auto present", EngineAuto, present, EngineCREPE, false},
		{"auto missing", EngineAuto, missing, EngineYIN, false},
		{"empty means auto", "", missing, EngineYIN, false},
		{"forced crepe missing", EngineCREPE, missing, EngineCREPE, false},
		{"forced yin", EngineYIN, present, EngineYIN, false},
		{"unknown", "pyin", present, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Select(ctx, tt.engine, tt.neural, yin)
			if tt.wantErr {
				var cfgErr *apperrors.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("got %v, want ConfigurationError", err)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if d.Name() != tt.want {
				t.Errorf("selected %s, want %s", d.Name(), tt.want)
			}
		})
	}
}

func TestCREPEMissingBinary(t *testing.T) {
	c := NewCREPE(CREPEConfig{Path: filepath.Join(t.TempDir(), "crepe")})
	_, err := c.Detect(context.Background(), audio.FromMono(make([]float64, 100)), 16000)
	if !errors.Is(err, apperrors.ErrToolNotInstalled) {
		t.Errorf("got %v, want ErrToolNotInstalled", err)
	}
}
