package transcode

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/RyanBlaney/sonido-chords/audio"
	"github.com/mjibson/go-dsp/wav"
)

// WAV files are the exchange format with the external engines. Reading goes
// through go-dsp; writing emits 32-bit IEEE float so no precision is lost
// on the way to the engine.

const wavFormatIEEEFloat = 3

// WriteWAV writes buf as a 32-bit float WAV file
func WriteWAV(path string, buf audio.Buffer, sampleRate int) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	channels := buf.NumChannels()
	dataSize := uint32(buf.Len() * channels * 4)
	blockAlign := uint16(channels * 4)

	w := bufio.NewWriter(f)
	header := []any{
		[4]byte{'R', 'I', 'F', 'F'},
		uint32(36 + dataSize),
		[4]byte{'W', 'A', 'V', 'E'},
		[4]byte{'f', 'm', 't', ' '},
		uint32(16),
		uint16(wavFormatIEEEFloat),
		uint16(channels),
		uint32(sampleRate),
		uint32(sampleRate) * uint32(blockAlign),
		blockAlign,
		uint16(32),
		[4]byte{'d', 'a', 't', 'a'},
		dataSize,
	}
	for _, v := range header {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return err
		}
	}

	frame := make([]byte, 4)
	for i := range buf.Len() {
		for c := range channels {
			binary.LittleEndian.PutUint32(frame, math.Float32bits(float32(buf.Channels[c][i])))
			if _, err := w.Write(frame); err != nil {
				return err
			}
		}
	}

	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// ReadWAV reads a 16-bit PCM or float WAV file into a planar buffer
func ReadWAV(path string) (audio.Buffer, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return audio.Buffer{}, 0, err
	}
	defer f.Close()

	r, err := wav.New(bufio.NewReader(f))
	if err != nil {
		return audio.Buffer{}, 0, fmt.Errorf("read %s: %w", path, err)
	}
	if r.NumChannels == 0 {
		return audio.Buffer{}, 0, fmt.Errorf("read %s: no channels", path)
	}

	raw, err := r.ReadSamples(r.Samples)
	if err != nil {
		return audio.Buffer{}, 0, fmt.Errorf("read %s: %w", path, err)
	}

	var samples []float64
	switch data := raw.(type) {
	case []int16:
		samples = make([]float64, len(data))
		for i, v := range data {
			samples[i] = float64(v) / 32768.0
		}
	case []float32:
		samples = make([]float64, len(data))
		for i, v := range data {
			samples[i] = float64(v)
		}
	case []uint8:
		samples = make([]float64, len(data))
		for i, v := range data {
			samples[i] = (float64(v) - 128) / 128.0
		}
	default:
		return audio.Buffer{}, 0, fmt.Errorf("read %s: unsupported sample type %T", path, raw)
	}

	buf, err := audio.Deinterleave(samples, int(r.NumChannels))
	if err != nil {
		return audio.Buffer{}, 0, err
	}
	return buf, int(r.SampleRate), nil
}
