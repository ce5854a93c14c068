package entities

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

var dateTagPattern = regexp.MustCompile(`\d{4}-\d{2}-\d{2}_`)

// AudioSample identifies one recording to evaluate
type AudioSample struct {
	ID      string `json:"id" bson:"id"`
	Path    string `json:"path" bson:"path"`
	DateTag string `json:"date_tag,omitempty" bson:"date_tag,omitempty"`
}

// NewAudioSample builds a sample for the file name inside dir
func NewAudioSample(dir, name string) AudioSample {
	return AudioSample{
		ID:      name,
		Path:    filepath.Join(dir, name),
		DateTag: DateTagOf(name),
	}
}

// DateTagOf extracts the first YYYY-MM-DD tag followed by an underscore from a file name
func DateTagOf(name string) string {
	m := dateTagPattern.FindString(name)
	if m == "" {
		return ""
	}
	return strings.TrimSuffix(m, "_")
}

// Content reads the raw audio bytes
func (s AudioSample) Content() ([]byte, error) {
	return os.ReadFile(s.Path)
}

// Ext returns the lowercased file extension without the leading dot
func (s AudioSample) Ext() string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(s.ID)), ".")
}

// MatchesDate reports whether the sample belongs to the given day tag
func (s AudioSample) MatchesDate(tag string) bool {
	if tag == "" {
		return true
	}
	return strings.Contains(s.ID, tag+"_")
}
