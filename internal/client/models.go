package client

import (
	"fmt"
	"strings"
	"time"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in a conversation transcript. Only assistant
// messages carry sources.
type Message struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Sources []string `json:"sources,omitempty"`
}

type chatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"` // omitted for a new conversation
}

type chatResponse struct {
	Response  string   `json:"response"`
	SessionID string   `json:"session_id"`
	Sources   []string `json:"sources"`
}

// SessionHistory is the server-side transcript of one session.
type SessionHistory struct {
	SessionID string    `json:"session_id"`
	History   []Message `json:"history"`
}

// Document describes one corpus entry as reported by the backend. Status is
// backend-assigned and not interpreted beyond display.
type Document struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	UploadDate Timestamp `json:"upload_date"`
	Size       int64     `json:"size"`
	Status     string    `json:"status"`
}

type documentListResponse struct {
	Documents []Document `json:"documents"`
	Total     int        `json:"total"`
}

// UploadResult is the backend's acknowledgement of a successful upload. It
// does not include the updated corpus; callers re-issue List to resync.
type UploadResult struct {
	Filename string `json:"filename"`
	FileID   string `json:"file_id"`
	Size     int64  `json:"size"`
	Status   string `json:"status"`
	Message  string `json:"message"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Message     string `json:"message"`
}

type verifyResponse struct {
	Valid    bool   `json:"valid"`
	Username string `json:"username"`
	Message  string `json:"message"`
}

// AdminStats is the backend's usage summary.
type AdminStats struct {
	TotalDocuments int       `json:"total_documents"`
	TotalChats     int       `json:"total_chats"`
	StorageUsed    string    `json:"storage_used"`
	LastUpdated    Timestamp `json:"last_updated"`
}

// Timestamp tolerates the backend's naive datetimes. FastAPI serializes
// datetime.now() without a timezone offset, which time.Time's RFC 3339
// unmarshaler rejects.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		return nil
	}
	for _, layout := range timestampLayouts {
		parsed, err := time.Parse(layout, s)
		if err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	return t.Time.MarshalJSON()
}
