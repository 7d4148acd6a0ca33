package transcode

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/RyanBlaney/sonido-chords/audio"
	"github.com/RyanBlaney/sonido-chords/internal/exec"
	"github.com/RyanBlaney/sonido-chords/logging"
)

// Encoder writes buffers to disk and runs filter graphs through FFmpeg
type Encoder struct {
	ffmpegPath string
	runner     *exec.Runner
}

// NewEncoder creates an encoder sharing the decoder's FFmpeg settings
func NewEncoder(config *DecoderConfig) *Encoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Encoder{ffmpegPath: config.FFmpegPath, runner: exec.NewRunner(config.Timeout)}
}

// codecArgs picks output codec settings from the file extension
func codecArgs(path string) []string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return []string{"-c:a", "pcm_s16le"}
	case ".mp3":
		return []string{"-c:a", "libmp3lame", "-q:a", "2"}
	case ".flac":
		return []string{"-c:a", "flac"}
	case ".ogg":
		return []string{"-c:a", "libvorbis", "-q:a", "6"}
	case ".m4a", ".aac":
		return []string{"-c:a", "aac", "-b:a", "256k"}
	default:
		return nil
	}
}

// rawInputArgs describes an f64le stream on stdin
func rawInputArgs(buf audio.Buffer, sampleRate int) []string {
	return []string{
		"-f", "f64le",
		"-ar", strconv.Itoa(sampleRate),
		"-ac", strconv.Itoa(buf.NumChannels()),
		"-i", "pipe:0",
	}
}

// EncodeFile writes buf to path, choosing the codec from the extension
func (e *Encoder) EncodeFile(ctx context.Context, path string, buf audio.Buffer, sampleRate int) error {
	logger := logging.WithFields(logging.Fields{
		"component": "audio_encoder",
		"function":  "EncodeFile",
		"path":      path,
	})

	if buf.IsEmpty() {
		return fmt.Errorf("refusing to write empty audio to %s", path)
	}

	args := append([]string{"-v", "error", "-y"}, rawInputArgs(buf, sampleRate)...)
	args = append(args, codecArgs(path)...)
	args = append(args, path)

	stdin := bytes.NewReader(float64ToBytes(buf.Interleave()))
	if _, err := e.runner.Run(ctx, "ffmpeg", "write", stdin, e.ffmpegPath, args...); err != nil {
		logger.Error(err, "FFmpeg encode failed")
		return fmt.Errorf("ffmpeg encode failed: %w", err)
	}

	logger.Debug("Audio written", logging.Fields{
		"samples":  buf.Len(),
		"channels": buf.NumChannels(),
	})
	return nil
}

// Filter runs buf through an FFmpeg audio filter graph and returns the
// result fitted to the input length
func (e *Encoder) Filter(ctx context.Context, buf audio.Buffer, sampleRate int, graph string) (audio.Buffer, error) {
	if graph == "" || buf.IsEmpty() {
		return buf.Clone(), nil
	}

	args := append([]string{"-v", "error"}, rawInputArgs(buf, sampleRate)...)
	args = append(args,
		"-af", graph,
		"-f", "f64le",
		"-ac", strconv.Itoa(buf.NumChannels()),
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	)

	stdin := bytes.NewReader(float64ToBytes(buf.Interleave()))
	result, err := e.runner.Run(ctx, "ffmpeg", "mix", stdin, e.ffmpegPath, args...)
	if err != nil {
		return audio.Buffer{}, fmt.Errorf("ffmpeg filter %q failed: %w", graph, err)
	}

	out, err := audio.Deinterleave(bytesToFloat64(result.Stdout), buf.NumChannels())
	if err != nil {
		return audio.Buffer{}, err
	}
	return out.FitLength(buf.Len()), nil
}
