package entities

import "strings"

// EngineID names the ASR backend that produced a transcript
type EngineID string

const (
	EngineGoogle    EngineID = "google"
	EngineVosk      EngineID = "vosk"
	EngineYandex    EngineID = "yandex"
	EngineWhisper   EngineID = "whisper"
	EngineGemini    EngineID = "gemini"
	EngineReference EngineID = "reference"
)

// KnownEngines lists every engine the evaluator can be configured with
var KnownEngines = []EngineID{
	EngineGoogle,
	EngineVosk,
	EngineYandex,
	EngineWhisper,
	EngineGemini,
	EngineReference,
}

// Valid reports whether e is one of KnownEngines
func (e EngineID) Valid() bool {
	for _, k := range KnownEngines {
		if e == k {
			return true
		}
	}
	return false
}

// Transcript is the output of one engine for one sample
type Transcript struct {
	Engine EngineID `json:"engine" bson:"engine"`
	Raw    string   `json:"raw" bson:"raw"`
	Text   string   `json:"text" bson:"text"` // normalized
	Valid  bool     `json:"valid" bson:"valid"`
}

// Tokens splits the normalized text into words
func (t Transcript) Tokens() []string {
	return strings.Fields(t.Text)
}
