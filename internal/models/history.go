package models

import "time"

// Conversion is a successful synthesis result held by the session until it is saved or evicted.
type Conversion struct {
	ID           string    `json:"id"`
	Text         string    `json:"-"`
	Audio        []byte    `json:"-"`
	MIMEType     string    `json:"mimeType"`
	Format       string    `json:"format"`
	Language     string    `json:"language"`
	LanguageName string    `json:"languageName"`
	Engine       string    `json:"engine"`
	VoiceType    string    `json:"voiceType"`
	Gender       string    `json:"gender,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HistoryEntry is a saved conversion. It lives only as long as the session that saved it.
type HistoryEntry struct {
	ID          string    `json:"id"`
	TextSnippet string    `json:"text"`
	Audio       []byte    `json:"-"`
	MIMEType    string    `json:"mimeType"`
	Format      string    `json:"format"`
	Timestamp   time.Time `json:"timestamp"`
	Language    string    `json:"language"`
	VoiceType   string    `json:"voiceType"`
	Gender      string    `json:"gender,omitempty"`
}
