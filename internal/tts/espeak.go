package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

const (
	// LocalEngineName is the registry key of the espeak-ng engine.
	LocalEngineName = "local"

	espeakDefaultRate = 175
	espeakMinRate     = 80
	espeakMaxRate     = 450
	espeakMaxAmp      = 200
)

// speedRates maps coarse speeds to words per minute.
var speedRates = map[Speed]int{
	SpeedSlow:   130,
	SpeedNormal: espeakDefaultRate,
	SpeedFast:   230,
}

// LocalEngine runs espeak-ng and returns WAV audio.
type LocalEngine struct {
	binaryPath string
}

// NewLocalEngine creates the local engine. An empty path uses espeak-ng from PATH.
func NewLocalEngine(binaryPath string) *LocalEngine {
	if binaryPath == "" {
		binaryPath = "espeak-ng"
	}
	return &LocalEngine{binaryPath: binaryPath}
}

// Name returns the engine identifier.
func (e *LocalEngine) Name() string {
	return LocalEngineName
}

// Synthesize pipes text into espeak-ng and reads WAV from stdout.
func (e *LocalEngine) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	args, err := espeakArgs(req)
	if err != nil {
		return nil, err
	}

	cmd := exec.CommandContext(ctx, e.binaryPath, args...)
	cmd.Stdin = strings.NewReader(req.Text)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		code := ""
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = strconv.Itoa(exitErr.ExitCode())
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "espeak-ng failed"
		}
		if errors.Is(err, exec.ErrNotFound) {
			return nil, NewSynthesisError(LocalEngineName, code, msg, fmt.Errorf("%w: %v", ErrServiceUnavailable, err))
		}
		return nil, NewSynthesisError(LocalEngineName, code, msg, fmt.Errorf("%w: %v", ErrSynthesisFailed, err))
	}
	if stdout.Len() == 0 {
		return nil, NewSynthesisError(LocalEngineName, "", "no audio produced", ErrSynthesisFailed)
	}

	return &Audio{Data: stdout.Bytes(), Format: FormatWAV, MIMEType: MIMEWAV}, nil
}

// espeakArgs builds the command line for req. Text is passed on stdin.
func espeakArgs(req Request) ([]string, error) {
	lang, ok := LookupLanguage(req.Language)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}

	voice := lang.espeak
	switch strings.ToLower(req.Gender) {
	case GenderMale:
		voice += "+m3"
	case GenderFemale:
		voice += "+f3"
	}

	rate := req.Rate
	if rate == 0 {
		rate = speedRates[ParseSpeed(string(req.Speed))]
	}
	rate = clamp(rate, espeakMinRate, espeakMaxRate)

	amp := espeakMaxAmp / 2
	if req.Volume > 0 {
		amp = int(req.Volume*espeakMaxAmp/2 + 0.5)
	}
	amp = clamp(amp, 0, espeakMaxAmp)

	return []string{
		"--stdout",
		"-v", voice,
		"-s", strconv.Itoa(rate),
		"-a", strconv.Itoa(amp),
	}, nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Voices lists a male and a female variant for every language.
func (e *LocalEngine) Voices() []Voice {
	voices := make([]Voice, 0, 2*len(languages))
	for _, l := range languages {
		voices = append(voices,
			Voice{ID: l.espeak + "+m3", Name: l.Name + " (male)", Language: l.Code, Gender: GenderMale},
			Voice{ID: l.espeak + "+f3", Name: l.Name + " (female)", Language: l.Code, Gender: GenderFemale},
		)
	}
	return voices
}

// Languages returns the accepted language codes.
func (e *LocalEngine) Languages() []string {
	return languageCodes()
}
