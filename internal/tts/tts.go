// Package tts adapts external speech engines to a single synthesis contract.
//
// Two engines are provided: a cloud engine backed by the Google Translate
// speech endpoint, and a local engine that runs espeak-ng. Both are registered
// by name in a Registry so callers can pick one per request.
package tts

import (
	"context"
	"strings"
)

// Speed is the coarse speaking speed offered to users.
type Speed string

const (
	SpeedSlow   Speed = "slow"
	SpeedNormal Speed = "normal"
	SpeedFast   Speed = "fast"
)

// ParseSpeed normalizes user input. Unknown values read as normal.
func ParseSpeed(s string) Speed {
	switch Speed(strings.ToLower(strings.TrimSpace(s))) {
	case SpeedSlow:
		return SpeedSlow
	case SpeedFast:
		return SpeedFast
	default:
		return SpeedNormal
	}
}

// Genders accepted in a Request.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// Request describes one synthesis call.
type Request struct {
	Text     string
	Language string // language code, see Languages
	Speed    Speed

	// Rate is words per minute. Zero derives the rate from Speed.
	// Only engines with adjustable rate honor it.
	Rate int
	// Volume is 0..1. Zero means full volume.
	Volume float64
	// Gender selects a male or female voice variant where the engine has one.
	Gender string
}

// Audio is encoded speech.
type Audio struct {
	Data     []byte
	Format   string // e.g. "mp3"
	MIMEType string
}

// Voice describes a voice an engine can produce.
type Voice struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Language string `json:"language"`
	Gender   string `json:"gender,omitempty"`
}

// Engine is a speech synthesizer.
type Engine interface {
	// Name returns the registry key of the engine.
	Name() string

	// Synthesize converts text to audio. Implementations must not return
	// partial audio alongside an error.
	Synthesize(ctx context.Context, req Request) (*Audio, error)

	// Voices lists the voices the engine can produce.
	Voices() []Voice

	// Languages lists the language codes the engine accepts.
	Languages() []string
}

// Audio formats produced by the bundled engines.
const (
	FormatMP3 = "mp3"
	FormatWAV = "wav"

	MIMEMP3 = "audio/mpeg"
	MIMEWAV = "audio/wav"
)
