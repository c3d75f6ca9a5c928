package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/isdelr/voicecraft-be/internal/models"
	"github.com/isdelr/voicecraft-be/internal/session"
	"github.com/isdelr/voicecraft-be/internal/store"
	"github.com/isdelr/voicecraft-be/internal/tts"
	"github.com/isdelr/voicecraft-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// SampleText is offered to users who want to try the service without typing.
const SampleText = "Hello! Welcome to VoiceCraft Pro. This is a sample text to demonstrate the text-to-speech functionality. You can convert any text to natural-sounding speech!"

const (
	snippetLength     = 100
	uploadLanguage    = tts.DefaultLanguage
	audioFilePrefix   = "voicecraft_"
	audioFileTimeFmt  = "20060102_150405"
	utf8ByteOrderMark = "\ufeff"
)

// Notifier pushes realtime messages to a user's connected clients.
type Notifier interface {
	BroadcastTo(username string, message []byte)
}

// ConversionServiceProvider defines the interface for text-to-speech conversions.
type ConversionServiceProvider interface {
	Convert(ctx context.Context, sess *session.Session, in ConvertInput) (ConvertResult, error)
	ConvertUpload(ctx context.Context, sess *session.Session, in UploadInput) (ConvertResult, error)
	SaveToHistory(sess *session.Session, conversionID string) (models.HistoryEntry, error)
	DeleteHistory(sess *session.Session, id string) error
	ClearHistory(sess *session.Session) int
	SampleText() string
	Languages() []tts.Language
	Engines() []EngineInfo
	MaxTextLength() int
}

// ConvertInput is one synthesis request.
type ConvertInput struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Engine   string  `json:"engine"`
	Speed    string  `json:"speed"`
	Gender   string  `json:"gender"`
	Rate     int     `json:"rate"`
	Volume   float64 `json:"volume"`
	// Save adds the result to the session history straight away.
	Save bool `json:"save"`
}

// UploadInput is a text file to synthesize. Language defaults to English.
type UploadInput struct {
	Filename    string
	ContentType string
	Body        io.Reader
	Language    string
	Engine      string
	Speed       string
	Gender      string
}

// ConvertResult describes a successful conversion.
type ConvertResult struct {
	Conversion       models.Conversion    `json:"conversion"`
	HistoryEntry     *models.HistoryEntry `json:"historyEntry,omitempty"`
	TotalConversions int                  `json:"totalConversions"`
	Truncated        bool                 `json:"truncated,omitempty"`
	Characters       int                  `json:"characters"`
}

// EngineInfo describes a registered engine.
type EngineInfo struct {
	Name      string      `json:"name"`
	Default   bool        `json:"default"`
	Languages []string    `json:"languages"`
	Voices    []tts.Voice `json:"voices"`
}

// ConversionOptions holds the limits applied to conversions.
type ConversionOptions struct {
	MaxTextLength  int
	MaxUploadBytes int64
	Timeout        time.Duration
}

// ConversionService turns text into speech and keeps the per-user bookkeeping.
type ConversionService struct {
	users    store.UserStore
	engines  *tts.Registry
	events   EventServiceProvider
	notifier Notifier
	opts     ConversionOptions
	now      func() time.Time
}

// NewConversionService creates a new ConversionService. events and notifier may be nil.
func NewConversionService(users store.UserStore, engines *tts.Registry, events EventServiceProvider, notifier Notifier, opts ConversionOptions) *ConversionService {
	return &ConversionService{
		users:    users,
		engines:  engines,
		events:   events,
		notifier: notifier,
		opts:     opts,
		now:      time.Now,
	}
}

// Convert validates the text, synthesizes it and counts the conversion.
// The counter only moves after the engine succeeds.
func (s *ConversionService) Convert(ctx context.Context, sess *session.Session, in ConvertInput) (ConvertResult, error) {
	if strings.TrimSpace(in.Text) == "" {
		return ConvertResult{}, ErrEmptyText
	}
	if n := utf8.RuneCountInString(in.Text); n > s.opts.MaxTextLength {
		return ConvertResult{}, fmt.Errorf("%w Max %d characters.", ErrTextTooLong, s.opts.MaxTextLength)
	}
	return s.synthesize(ctx, sess, in)
}

// ConvertUpload reads a plain-text file and converts it. Text beyond the length
// limit is cut off rather than rejected.
func (s *ConversionService) ConvertUpload(ctx context.Context, sess *session.Session, in UploadInput) (ConvertResult, error) {
	if !isPlainText(in.Filename, in.ContentType) {
		return ConvertResult{}, ErrUnsupportedUpload
	}

	data, err := io.ReadAll(io.LimitReader(in.Body, s.opts.MaxUploadBytes+1))
	if err != nil {
		return ConvertResult{}, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > s.opts.MaxUploadBytes {
		return ConvertResult{}, ErrUploadTooLarge
	}
	if !utf8.Valid(data) {
		return ConvertResult{}, ErrUnreadableUpload
	}

	text := strings.TrimPrefix(string(data), utf8ByteOrderMark)
	if strings.TrimSpace(text) == "" {
		return ConvertResult{}, ErrEmptyText
	}
	text, truncated := truncateRunes(text, s.opts.MaxTextLength)
	if truncated {
		log.Info().Str("username", sess.Username).Str("filename", in.Filename).Int("limit", s.opts.MaxTextLength).Msg("Upload truncated")
	}

	language := in.Language
	if language == "" {
		language = uploadLanguage
	}
	res, err := s.synthesize(ctx, sess, ConvertInput{
		Text:     text,
		Language: language,
		Engine:   in.Engine,
		Speed:    in.Speed,
		Gender:   in.Gender,
	})
	if err != nil {
		return ConvertResult{}, err
	}
	res.Truncated = truncated
	return res, nil
}

func (s *ConversionService) synthesize(ctx context.Context, sess *session.Session, in ConvertInput) (ConvertResult, error) {
	engine, err := s.engines.Get(in.Engine)
	if err != nil {
		return ConvertResult{}, err
	}
	lang, ok := tts.LookupLanguage(in.Language)
	if !ok {
		return ConvertResult{}, fmt.Errorf("%w: %q", tts.ErrUnsupportedLanguage, in.Language)
	}


	req := tts.Request{
		Text:     in.Text,
		Language: lang.Code,
		Speed:    tts.ParseSpeed(in.Speed),
		Rate:     in.Rate,
		Volume:   in.Volume,
		Gender:   strings.ToLower(strings.TrimSpace(in.Gender)),
	}

	start := s.now()
	audio, err := s.runEngine(ctx, engine, req)
	if err != nil {
		log.Error().Err(err).Str("username", sess.Username).Str("engine", engine.Name()).Str("lang", lang.Code).Msg("Synthesis failed")
		s.record("tts.failed", "error", fmt.Sprintf("Conversion failed (%s): %v", engine.Name(), err), sess.Username)
		return ConvertResult{}, err
	}

	conv := models.Conversion{
		ID:           uuid.NewString(),
		Text:         in.Text,
		Audio:        audio.Data,
		MIMEType:     audio.MIMEType,
		Format:       audio.Format,
		Language:     lang.Code,
		LanguageName: lang.Name,
		Engine:       engine.Name(),
		VoiceType:    voiceFor(engine, lang.Code, req.Gender),
		Gender:       req.Gender,
		CreatedAt:    s.now(),
	}
	sess.Remember(conv)

	// The audio exists now, so the count must land even if the caller has gone away.
	storeCtx := context.WithoutCancel(ctx)
	known := true
	total, err := s.users.IncrementConversions(storeCtx, sess.Username)
	if err != nil {
		log.Error().Err(err).Str("username", sess.Username).Msg("Failed to increment conversion counter")
		if u, getErr := s.users.Get(storeCtx, sess.Username); getErr == nil {
			total = u.TotalConversions
		} else {
			known = false
		}
	}

	log.Info().
		Str("username", sess.Username).
		Str("engine", engine.Name()).
		Str("lang", lang.Code).
		Int("chars", utf8.RuneCountInString(in.Text)).
		Dur("took", s.now().Sub(start)).
		Msg("Conversion completed")
	s.record("tts.convert", "info", fmt.Sprintf("Converted %d characters (%s, %s)", utf8.RuneCountInString(in.Text), lang.Name, engine.Name()), sess.Username)
	if known {
		s.notify(sess.Username, websocket.NewStatsMessage(total))
	}

	res := ConvertResult{
		Conversion:       conv,
		TotalConversions: total,
		Characters:       utf8.RuneCountInString(in.Text),
	}
	if in.Save {
		entry := s.addHistory(sess, conv)
		res.HistoryEntry = &entry
	}
	return res, nil
}

// runEngine bounds a single synthesis call by the configured timeout.
func (s *ConversionService) runEngine(ctx context.Context, engine tts.Engine, req tts.Request) (*tts.Audio, error) {
	if s.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
		defer cancel()
	}
	return engine.Synthesize(ctx, req)
}

// SaveToHistory copies a remembered conversion into the session history.
func (s *ConversionService) SaveToHistory(sess *session.Session, conversionID string) (models.HistoryEntry, error) {
	conv, err := sess.Conversion(conversionID)
	if err != nil {
		return models.HistoryEntry{}, err
	}
	return s.addHistory(sess, conv), nil
}

func (s *ConversionService) addHistory(sess *session.Session, conv models.Conversion) models.HistoryEntry {
	entry := sess.AddHistory(models.HistoryEntry{
		TextSnippet: Snippet(conv.Text),
		Audio:       conv.Audio,
		MIMEType:    conv.MIMEType,
		Format:      conv.Format,
		Timestamp:   s.now(),
		Language:    conv.LanguageName,
		VoiceType:   conv.VoiceType,
		Gender:      conv.Gender,
	})
	s.notify(sess.Username, websocket.NewHistoryMessage(sess.HistoryLen()))
	return entry
}

// DeleteHistory removes one entry from the session history.
func (s *ConversionService) DeleteHistory(sess *session.Session, id string) error {
	if err := sess.DeleteHistory(id); err != nil {
		return err
	}
	s.notify(sess.Username, websocket.NewHistoryMessage(sess.HistoryLen()))
	return nil
}

// ClearHistory empties the session history and returns how many entries were removed.
func (s *ConversionService) ClearHistory(sess *session.Session) int {
	n := sess.ClearHistory()
	if n > 0 {
		s.record("history.clear", "info", fmt.Sprintf("Cleared %d history entries", n), sess.Username)
	}
	s.notify(sess.Username, websocket.NewHistoryMessage(0))
	return n
}

// SampleText returns the built-in demonstration text.
func (s *ConversionService) SampleText() string {
	return SampleText
}

// Languages returns the supported languages.
func (s *ConversionService) Languages() []tts.Language {
	return tts.Languages()
}

// Engines describes every registered engine.
func (s *ConversionService) Engines() []EngineInfo {
	def := s.engines.Default()
	var out []EngineInfo
	for _, e := range s.engines.List() {
		out = append(out, EngineInfo{
			Name:      e.Name(),
			Default:   e.Name() == def,
			Languages: e.Languages(),
			Voices:    e.Voices(),
		})
	}
	return out
}

// MaxTextLength returns the configured per-conversion character limit.
func (s *ConversionService) MaxTextLength() int {
	return s.opts.MaxTextLength
}

func (s *ConversionService) record(eventType, level, message, username string) {
	if s.events == nil {
		return
	}
	if err := s.events.CreateEvent(eventType, level, message, &username); err != nil {
		log.Warn().Err(err).Str("type", eventType).Msg("Failed to record event")
	}
}

func (s *ConversionService) notify(username string, message []byte) {
	if s.notifier != nil && message != nil {
		s.notifier.BroadcastTo(username, message)
	}
}

// Snippet shortens text for history listings.
func Snippet(text string) string {
	if utf8.RuneCountInString(text) <= snippetLength {
		return text
	}
	cut, _ := truncateRunes(text, snippetLength)
	return cut + "..."
}

// AudioFilename names a download after the time the audio was produced.
func AudioFilename(at time.Time, format string) string {
	return audioFilePrefix + at.Format(audioFileTimeFmt) + "." + format
}

func truncateRunes(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == max {
			return s[:pos], true
		}
		i++
	}
	return s, false
}

// isPlainText accepts .txt files, or extensionless files declared as text/plain.
func isPlainText(filename, contentType string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == ".txt" {
		return true
	}
	if ext != "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "text/plain"
}

func voiceFor(engine tts.Engine, language, gender string) string {
	if gender == "" {
		return "standard"
	}
	for _, v := range engine.Voices() {
		if v.Language == language && (v.Gender == "" || v.Gender == gender) {
			return v.ID
		}
	}
	return "standard"
}

// IsValidationError reports whether err is caused by user input rather than a failure.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrMissingFields, ErrPasswordsDontMatch, ErrPasswordTooLong, ErrCurrentPasswordNeeded, ErrNewPasswordsDontMatch,
		ErrEmptyText, ErrTextTooLong, ErrUnreadableUpload,
		tts.ErrEmptyText, tts.ErrUnsupportedLanguage, tts.ErrUnknownEngine,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
