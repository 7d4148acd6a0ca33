package transcode

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2"

	"github.com/RyanBlaney/sonido-chords/logging"
)

// TagInfo is the metadata written into an MP3 output
type TagInfo struct {
	// Key is written to TKEY in ID3 notation: "C", "F#", "Am"
	Key string
	// KeyName is the long form, used in the comment
	KeyName   string
	Harmonies []string
	Backend   string
}

// ID3Key converts a tonic name and minor flag to ID3 TKEY notation
func ID3Key(tonic string, minor bool) string {
	if minor {
		return tonic + "m"
	}
	return tonic
}

// Tagger writes ID3 tags to rendered MP3 files
type Tagger struct{}

// NewTagger creates a new Tagger
func NewTagger() *Tagger {
	return &Tagger{}
}

// Supports reports whether path carries ID3 tags
func (t *Tagger) Supports(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".mp3")
}

// SaveTags writes the detected key and the harmony layers into path.
// Existing frames other than TKEY and the harmony comment are preserved.
func (t *Tagger) SaveTags(path string, info TagInfo) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("open tags of %s: %w", path, err)
	}
	defer tag.Close()

	if info.Key != "" {
		tag.DeleteFrames("TKEY")
		tag.AddTextFrame("TKEY", id3v2.EncodingUTF8, info.Key)
	}

	tag.DeleteFrames(tag.CommonID("Comments"))
	tag.AddCommentFrame(id3v2.CommentFrame{
		Encoding:    id3v2.EncodingUTF8,
		Language:    "eng",
		Description: "harmony",
		Text:        harmonyComment(info),
	})

	if err := tag.Save(); err != nil {
		return fmt.Errorf("save tags of %s: %w", path, err)
	}

	logging.WithFields(logging.Fields{
		"component": "tagger",
		"path":      path,
	}).Debug("ID3 tags written", logging.Fields{"key": info.Key})

	return nil
}

func harmonyComment(info TagInfo) string {
	parts := []string{}
	if info.KeyName != "" {
		parts = append(parts, "key: "+info.KeyName)
	}
	if len(info.Harmonies) > 0 {
		parts = append(parts, "harmonies: "+strings.Join(info.Harmonies, ","))
	}
	if info.Backend != "" {
		parts = append(parts, "shifter: "+info.Backend)
	}
	return strings.Join(parts, "; ")
}
