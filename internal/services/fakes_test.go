package services

import (
	"context"
	"sync"
	"time"

	"github.com/isdelr/voicecraft-be/internal/models"
	"github.com/isdelr/voicecraft-be/internal/tts"
)

type fakeEngine struct {
	mu    sync.Mutex
	name  string
	calls int
	last  tts.Request
	err   error
	// delay runs before returning, ignoring ctx, like an engine that overruns its deadline.
	delay time.Duration
}

func (e *fakeEngine) Name() string { return e.name }

func (e *fakeEngine) Synthesize(_ context.Context, req tts.Request) (*tts.Audio, error) {
	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	e.last = req
	if e.err != nil {
		return nil, e.err
	}
	return &tts.Audio{Data: []byte("audio:" + req.Text), Format: tts.FormatMP3, MIMEType: tts.MIMEMP3}, nil
}

func (e *fakeEngine) Voices() []tts.Voice {
	return []tts.Voice{
		{ID: "en-m", Name: "English male", Language: "en", Gender: tts.GenderMale},
		{ID: "en-f", Name: "English female", Language: "en", Gender: tts.GenderFemale},
	}
}

func (e *fakeEngine) Languages() []string { return []string{"en"} }

func (e *fakeEngine) Calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

type fakeEvents struct {
	mu     sync.Mutex
	events []models.Event
}

func (f *fakeEvents) CreateEvent(eventType, level, message string, username *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, models.Event{Type: eventType, Level: level, Message: message, Username: username})
	return nil
}

func (f *fakeEvents) GetRecentEvents(username string, limit int) ([]models.Event, error) {
	return nil, nil
}

func (f *fakeEvents) PruneOlderThan(time.Time) (int64, error) { return 0, nil }

func (f *fakeEvents) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeNotifier struct {
	mu       sync.Mutex
	messages map[string][]string
}

func (n *fakeNotifier) BroadcastTo(username string, message []byte) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.messages == nil {
		n.messages = make(map[string][]string)
	}
	n.messages[username] = append(n.messages[username], string(message))
}

func (n *fakeNotifier) sent(username string) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.messages[username]...)
}
