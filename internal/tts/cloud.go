package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"
)

const (
	// CloudEngineName is the registry key of the Google Translate engine.
	CloudEngineName = "cloud"

	googleTranslateURL = "https://translate.google.com/translate_tts"

	// The endpoint rejects chunks longer than this.
	googleMaxChunk = 100

	defaultCloudTimeout = 30 * time.Second

	cloudUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

// CloudEngine synthesizes MP3 speech through the Google Translate TTS endpoint.
type CloudEngine struct {
	baseURL string
	client  *http.Client
}

// CloudOption configures the cloud engine.
type CloudOption func(*CloudEngine)

// WithCloudBaseURL sets a custom endpoint (for testing or proxies).
func WithCloudBaseURL(u string) CloudOption {
	return func(e *CloudEngine) {
		if u != "" {
			e.baseURL = u
		}
	}
}

// WithCloudClient sets a custom HTTP client.
func WithCloudClient(c *http.Client) CloudOption {
	return func(e *CloudEngine) {
		e.client = c
	}
}

// NewCloudEngine creates the cloud engine.
func NewCloudEngine(opts ...CloudOption) *CloudEngine {
	e := &CloudEngine{
		baseURL: googleTranslateURL,
		client:  &http.Client{Timeout: defaultCloudTimeout},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine identifier.
func (e *CloudEngine) Name() string {
	return CloudEngineName
}

// Synthesize fetches each chunk of text as MP3 and concatenates the frames.
func (e *CloudEngine) Synthesize(ctx context.Context, req Request) (*Audio, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyText
	}
	lang, ok := LookupLanguage(req.Language)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedLanguage, req.Language)
	}

	chunks := splitText(req.Text, googleMaxChunk)
	log.Debug().Str("engine", CloudEngineName).Str("lang", lang.Code).Int("chunks", len(chunks)).Msg("Starting synthesis")

	var buf bytes.Buffer
	for i, chunk := range chunks {
		if err := e.fetchChunk(ctx, &buf, chunk, lang.google, req.Speed == SpeedSlow, i, len(chunks)); err != nil {
			return nil, err
		}
	}

	return &Audio{Data: buf.Bytes(), Format: FormatMP3, MIMEType: MIMEMP3}, nil
}

func (e *CloudEngine) fetchChunk(ctx context.Context, w io.Writer, chunk, tl string, slow bool, idx, total int) error {
	speed := "1"
	if slow {
		speed = "0.3"
	}
	q := url.Values{}
	q.Set("ie", "UTF-8")
	q.Set("client", "tw-ob")
	q.Set("q", chunk)
	q.Set("tl", tl)
	q.Set("ttsspeed", speed)
	q.Set("total", strconv.Itoa(total))
	q.Set("idx", strconv.Itoa(idx))
	q.Set("textlen", strconv.Itoa(utf8.RuneCountInString(chunk)))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", cloudUserAgent)
	httpReq.Header.Set("Referer", "https://translate.google.com/")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return NewSynthesisError(CloudEngineName, "", "request failed", fmt.Errorf("%w: %v", ErrServiceUnavailable, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return e.statusError(resp.StatusCode, strings.TrimSpace(string(body)))
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return NewSynthesisError(CloudEngineName, "", "read audio", err)
	}
	if n == 0 {
		return NewSynthesisError(CloudEngineName, "", fmt.Sprintf("empty audio for chunk %d", idx), ErrSynthesisFailed)
	}
	return nil
}

func (e *CloudEngine) statusError(status int, body string) error {
	code := strconv.Itoa(status)
	msg := fmt.Sprintf("unexpected status %d", status)
	if body != "" {
		msg += ": " + body
	}
	switch {
	case status == http.StatusTooManyRequests:
		return NewSynthesisError(CloudEngineName, code, msg, ErrRateLimited)
	case status >= http.StatusInternalServerError:
		return NewSynthesisError(CloudEngineName, code, msg, ErrServiceUnavailable)
	default:
		return NewSynthesisError(CloudEngineName, code, msg, ErrSynthesisFailed)
	}
}

// Voices returns one standard voice per language; the endpoint has no gender choice.
func (e *CloudEngine) Voices() []Voice {
	voices := make([]Voice, 0, len(languages))
	for _, l := range languages {
		voices = append(voices, Voice{ID: "standard", Name: l.Name, Language: l.Code})
	}
	return voices
}

// Languages returns the accepted language codes.
func (e *CloudEngine) Languages() []string {
	return languageCodes()
}
