package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// PCM is mono signed 16-bit little-endian audio
type PCM struct {
	SampleRate int
	Data       []byte
}

// DecodeMP3 decodes an MP3 stream and downmixes it to mono
func DecodeMP3(r io.Reader) (*PCM, error) {
	dec, err := mp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create mp3 decoder: %w", err)
	}

	stereo, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to decode mp3: %w", err)
	}

	return &PCM{
		SampleRate: dec.SampleRate(),
		Data:       Downmix(stereo),
	}, nil
}

// Downmix averages interleaved stereo s16le frames into mono.
// A trailing partial frame is dropped.
func Downmix(stereo []byte) []byte {
	frames := len(stereo) / 4
	mono := make([]byte, frames*2)
	for i := 0; i < frames; i++ {
		l := int32(int16(binary.LittleEndian.Uint16(stereo[i*4:])))
		r := int32(int16(binary.LittleEndian.Uint16(stereo[i*4+2:])))
		binary.LittleEndian.PutUint16(mono[i*2:], uint16(int16((l+r)/2)))
	}
	return mono
}
