package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	gws "github.com/gorilla/websocket"
	"github.com/isdelr/voicecraft-be/internal/auth"
	"github.com/isdelr/voicecraft-be/internal/database"
	"github.com/isdelr/voicecraft-be/internal/services"
	"github.com/isdelr/voicecraft-be/internal/session"
	"github.com/isdelr/voicecraft-be/internal/store"
	"github.com/isdelr/voicecraft-be/internal/tts"
	"github.com/isdelr/voicecraft-be/internal/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEngine struct {
	name string
	err  error
}

func (e stubEngine) Name() string { return e.name }

func (e stubEngine) Synthesize(_ context.Context, req tts.Request) (*tts.Audio, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &tts.Audio{Data: []byte("ID3" + req.Text), Format: tts.FormatMP3, MIMEType: tts.MIMEMP3}, nil
}

func (e stubEngine) Voices() []tts.Voice { return nil }
func (e stubEngine) Languages() []string { return []string{"en"} }

type testServer struct {
	*httptest.Server
	token string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	dir := t.TempDir()

	db, err := database.New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(db))

	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	registry := tts.NewRegistry()
	registry.Register(stubEngine{name: "stub"})
	registry.Register(stubEngine{name: "broken", err: tts.NewSynthesisError("broken", "500", "engine down", tts.ErrServiceUnavailable)})

	users := store.NewJSONStore(filepath.Join(dir, "users.json"))
	sessions := session.NewManager(time.Hour, 100)
	tokens := auth.NewManager("test-secret", time.Hour, sessions)
	events := services.NewEventService(db)
	conversions := services.NewConversionService(users, registry, events, hub, services.ConversionOptions{
		MaxTextLength:  50,
		MaxUploadBytes: 1 << 10,
		Timeout:        5 * time.Second,
	})

	router := NewRouter(Dependencies{
		Hub:            hub,
		Sessions:       sessions,
		Tokens:         tokens,
		Users:          services.NewUserService(users, events),
		Conversions:    conversions,
		Events:         events,
		System:         services.NewSystemService(func() []string { return []string{"stub"} }),
		AllowedOrigins: []string{"http://localhost:3000"},
		MaxUploadBytes: 1 << 10,
		HistoryLimit:   10,
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *http.Response {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.URL+"/api/v1"+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (s *testServer) upload(t *testing.T, filename, content string) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	fw.Write([]byte(content))
	require.NoError(t, mw.Close())

	req, err := http.NewRequest(http.MethodPost, s.URL+"/api/v1/tts/upload", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+s.token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return strings.TrimSpace(buf.String())
}

func (s *testServer) login(t *testing.T, username, password string) {
	t.Helper()
	resp := s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": username, "password": password})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out struct {
		Token string `json:"token"`
	}
	decode(t, resp, &out)
	require.NotEmpty(t, out.Token)
	s.token = out.Token
}

func (s *testServer) total(t *testing.T) int {
	t.Helper()
	resp := s.do(t, http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var me struct {
		TotalConversions int `json:"totalConversions"`
	}
	decode(t, resp, &me)
	return me.TotalConversions
}

func TestRouter_AccountFlow(t *testing.T) {
	s := newTestServer(t)
	reg := map[string]string{"username": "alice", "name": "Alice", "password": "pw", "confirmPassword": "pw"}

	resp := s.do(t, http.MethodPost, "/auth/register", reg)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/auth/register", reg)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "Username already exists!", bodyString(t, resp))

	resp = s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "alice", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Incorrect password!", bodyString(t, resp))

	resp = s.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "ghost", "password": "pw"})
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "User not found!", bodyString(t, resp))

	resp = s.do(t, http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	s.login(t, "alice", "pw")
	assert.Equal(t, 0, s.total(t))

	resp = s.do(t, http.MethodPut, "/users/me/settings", map[string]string{"name": "Alice B", "currentPassword": "pw"})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/auth/logout", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	// The token dies with its session.
	resp = s.do(t, http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestRouter_ConversionAndHistory(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "bob", "name": "Bob", "password": "pw", "confirmPassword": "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s.login(t, "bob", "pw")

	resp = s.do(t, http.MethodPost, "/tts", map[string]string{"text": strings.Repeat("x", 51)})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Text too long! Max 50 characters.", bodyString(t, resp))

	resp = s.do(t, http.MethodPost, "/tts", map[string]string{"text": "hello", "engine": "broken"})
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
	assert.Equal(t, 0, s.total(t))

	resp = s.do(t, http.MethodPost, "/tts", map[string]string{"text": "hello world", "language": "en"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var conv services.ConvertResult
	decode(t, resp, &conv)
	assert.Equal(t, 1, conv.TotalConversions)
	assert.Equal(t, 1, s.total(t))

	resp = s.do(t, http.MethodGet, "/tts/"+conv.Conversion.ID+"/audio", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, tts.MIMEMP3, resp.Header.Get("Content-Type"))
	assert.Regexp(t, `^attachment; filename="voicecraft_\d{8}_\d{6}\.mp3"$`, resp.Header.Get("Content-Disposition"))
	assert.Equal(t, "ID3hello world", bodyString(t, resp))

	resp = s.do(t, http.MethodPost, "/tts", map[string]interface{}{"text": "second", "save": true})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodPost, "/history", map[string]string{"conversionId": conv.Conversion.ID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var saved struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	decode(t, resp, &saved)
	assert.Equal(t, "hello world", saved.Text)

	resp = s.do(t, http.MethodGet, "/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list struct {
		Entries []struct {
			ID   string `json:"id"`
			Text string `json:"text"`
		} `json:"entries"`
		Total int `json:"total"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Entries, 2)
	assert.Equal(t, saved.ID, list.Entries[0].ID)
	assert.Equal(t, "second", list.Entries[1].Text)

	resp = s.do(t, http.MethodGet, "/history/"+saved.ID+"/audio", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/history/"+saved.ID, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp = s.do(t, http.MethodDelete, "/history/"+saved.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = s.do(t, http.MethodDelete, "/history", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var cleared map[string]int
	decode(t, resp, &cleared)
	assert.Equal(t, 1, cleared["removed"])

	resp = s.do(t, http.MethodGet, "/events?limit=50", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []struct {
		Type string `json:"type"`
	}
	decode(t, resp, &events)
	var types []string
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Contains(t, types, "tts.convert")
	assert.Contains(t, types, "tts.failed")
	assert.Contains(t, types, "history.clear")
}

func TestRouter_HistoryLimit(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "hana", "name": "Hana", "password": "pw", "confirmPassword": "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s.login(t, "hana", "pw")

	for i := 0; i < 12; i++ {
		resp = s.do(t, http.MethodPost, "/tts", map[string]interface{}{"text": fmt.Sprintf("entry %d", i), "save": true})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	list := func(query string) ([]string, int) {
		t.Helper()
		resp := s.do(t, http.MethodGet, "/history"+query, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Entries []struct {
				Text string `json:"text"`
			} `json:"entries"`
			Total int `json:"total"`
		}
		decode(t, resp, &out)
		texts := make([]string, 0, len(out.Entries))
		for _, e := range out.Entries {
			texts = append(texts, e.Text)
		}
		return texts, out.Total
	}

	texts, total := list("")
	assert.Equal(t, 12, total)
	require.Len(t, texts, 10)
	assert.Equal(t, "entry 11", texts[0])
	assert.Equal(t, "entry 2", texts[9])

	texts, total = list("?limit=3")
	assert.Equal(t, 12, total)
	assert.Equal(t, []string{"entry 11", "entry 10", "entry 9"}, texts)

	for _, q := range []string{"?limit=0", "?limit=-4", "?limit=abc"} {
		texts, _ = list(q)
		assert.Len(t, texts, 10, q)
	}

	texts, _ = list("?limit=50")
	assert.Len(t, texts, 12)
}

func TestRouter_Upload(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "cy", "name": "Cy", "password": "pw", "confirmPassword": "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s.login(t, "cy", "pw")

	resp = s.upload(t, "report.pdf", "%PDF-1.4")
	assert.Equal(t, http.StatusUnsupportedMediaType, resp.StatusCode)
	assert.Equal(t, "Currently only .txt files are fully supported", bodyString(t, resp))

	resp = s.upload(t, "notes.txt", strings.Repeat("y", 80))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var res services.ConvertResult
	decode(t, resp, &res)
	assert.True(t, res.Truncated)
	assert.Equal(t, 50, res.Characters)
	assert.Equal(t, "en", res.Conversion.Language)

	resp = s.upload(t, "huge.txt", strings.Repeat("z", 4<<10))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func TestRouter_PublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	resp := s.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = s.do(t, http.MethodGet, "/tts/sample", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var sample map[string]interface{}
	decode(t, resp, &sample)
	assert.Equal(t, services.SampleText, sample["text"])

	resp = s.do(t, http.MethodGet, "/tts/languages", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var langs []tts.Language
	decode(t, resp, &langs)
	assert.Len(t, langs, 13)

	resp = s.do(t, http.MethodGet, "/tts/engines", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var engines []services.EngineInfo
	decode(t, resp, &engines)
	require.Len(t, engines, 2)
	assert.Equal(t, "broken", engines[0].Name)

	resp = s.do(t, http.MethodGet, "/system/about", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var about services.About
	decode(t, resp, &about)
	assert.Equal(t, "VoiceCraft Pro", about.Name)
	assert.Equal(t, []string{"stub"}, about.Engines)
}

func TestRouter_WebSocket(t *testing.T) {
	s := newTestServer(t)
	resp := s.do(t, http.MethodPost, "/auth/register", map[string]string{"username": "dee", "name": "Dee", "password": "pw", "confirmPassword": "pw"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	s.login(t, "dee", "pw")

	wsURL := "ws" + strings.TrimPrefix(s.URL, "http") + "/api/v1/ws"
	_, _, err := gws.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err, "unauthenticated dial must fail")

	conn, _, err := gws.DefaultDialer.Dial(wsURL, http.Header{"Authorization": {"Bearer " + s.token}})
	require.NoError(t, err)
	defer conn.Close()

	read := func() websocket.Message {
		t.Helper()
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var msg websocket.Message
		require.NoError(t, conn.ReadJSON(&msg))
		return msg
	}

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "ping"}))
	assert.Equal(t, websocket.ActionPong, read().Action)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "dance"}))
	msg := read()
	assert.Equal(t, websocket.ActionError, msg.Action)

	require.NoError(t, conn.WriteJSON(map[string]string{"action": "get_stats"}))
	msg = read()
	assert.Equal(t, websocket.ActionStatsUpdated, msg.Action)
	assert.Equal(t, map[string]interface{}{"total_conversions": float64(0)}, msg.Payload)

	resp = s.do(t, http.MethodPost, "/tts", map[string]string{"text": "push me"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	msg = read()
	assert.Equal(t, websocket.ActionStatsUpdated, msg.Action)
	assert.Equal(t, map[string]interface{}{"total_conversions": float64(1)}, msg.Payload)
}
