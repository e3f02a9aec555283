package client_test

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"bizchat.dev/console/internal/auth"
	"bizchat.dev/console/internal/client"
	"bizchat.dev/console/internal/gateway"
)

const (
	testUsername  = "admin"
	testPassword  = "admin123"
	maxUploadSize = 10 * 1024 * 1024
)

type fakeDocument struct {
	ID       string
	Filename string
	Size     int64
}

// fakeBackend is an in-process stand-in for the chatbot backend. It mirrors
// the real REST surface closely enough for the clients not to notice:
// FastAPI-style {"detail"} error envelopes, HS256 bearer tokens, naive
// datetimes, and canned chat replies citing the uploaded documents.
type fakeBackend struct {
	t      *testing.T
	secret []byte
	srv    *httptest.Server

	mu        sync.Mutex
	requests  map[string]int // "METHOD /path" -> count
	withToken map[string]int // same keys, requests that carried a bearer token
	documents []fakeDocument
	sessions  map[string][]client.Message
	failChat  bool
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{
		t:         t,
		secret:    []byte("test-secret"),
		requests:  make(map[string]int),
		withToken: make(map[string]int),
		sessions:  make(map[string][]client.Message),
	}

	r := chi.NewRouter()
	r.Use(middleware.StripSlashes)
	r.Use(b.countRequests)

	r.Route("/api", func(r chi.Router) {
		r.Route("/chat", func(r chi.Router) {
			r.Post("/message", b.chatMessageHandler)
			r.Get("/history/{sessionID}", b.chatHistoryHandler)
			r.Delete("/session/{sessionID}", b.clearSessionHandler)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/upload", b.uploadHandler)
			r.Get("/list", b.listHandler)
			r.Delete("/delete/{fileID}", b.deleteHandler)
			r.Post("/clear-all", b.clearAllHandler)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/login", b.loginHandler)
			r.Group(func(r chi.Router) {
				r.Use(b.requireToken)
				r.Get("/stats", b.statsHandler)
				r.Get("/verify", b.verifyHandler)
			})
		})
	})

	b.srv = httptest.NewServer(r)
	t.Cleanup(b.srv.Close)
	return b
}

// newTestClients wires the three clients to the fake backend through one
// gateway with in-memory credentials, the same shape main() builds.
func newTestClients(t *testing.T, b *fakeBackend) (*client.AuthClient, *client.SessionClient, *client.DocumentClient, *auth.Credentials) {
	creds, err := auth.NewCredentials(nil)
	if err != nil {
		t.Fatalf("NewCredentials failed: %v", err)
	}
	gw := gateway.New(b.srv.URL, creds)
	return client.NewAuthClient(gw, creds), client.NewSessionClient(gw), client.NewDocumentClient(gw), creds
}

func (b *fakeBackend) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Method + " " + r.URL.Path
		b.mu.Lock()
		b.requests[key]++
		if r.Header.Get("Authorization") != "" {
			b.withToken[key]++
		}
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

// requestCount sums requests whose "METHOD /path" key starts with prefix.
func (b *fakeBackend) requestCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for key, n := range b.requests {
		if strings.HasPrefix(key, prefix) {
			total += n
		}
	}
	return total
}

func (b *fakeBackend) authedCount(prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	total := 0
	for key, n := range b.withToken {
		if strings.HasPrefix(key, prefix) {
			total += n
		}
	}
	return total
}

func (b *fakeBackend) setFailChat(fail bool) {
	b.mu.Lock()
	b.failChat = fail
	b.mu.Unlock()
}

func errJSON(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(payload)
}

func (b *fakeBackend) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			errJSON(w, http.StatusUnauthorized, "Invalid authentication credentials")
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return b.secret, nil
		})
		if err != nil || !token.Valid {
			errJSON(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (b *fakeBackend) loginHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errJSON(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username != testUsername || req.Password != testPassword {
		errJSON(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	claims := jwt.MapClaims{
		"sub": req.Username,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(time.Hour * 24).Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(b.secret)
	if err != nil {
		b.t.Errorf("failed to sign token: %v", err)
		errJSON(w, http.StatusInternalServerError, "Login error")
		return
	}
	writeJSON(w, map[string]string{
		"access_token": signed,
		"token_type":   "bearer",
		"message":      "Login successful",
	})
}

func (b *fakeBackend) verifyHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"valid":    true,
		"username": testUsername,
		"message":  "Token is valid",
	})
}

func (b *fakeBackend) statsHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	totalDocs := len(b.documents)
	totalChats := len(b.sessions)
	b.mu.Unlock()
	writeJSON(w, map[string]any{
		"total_documents": totalDocs,
		"total_chats":     totalChats,
		"storage_used":    "1.00 MB",
		// Naive datetime, as FastAPI serializes datetime.now().
		"last_updated": time.Now().Format("2006-01-02T15:04:05.999999"),
	})
}

func (b *fakeBackend) chatMessageHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message   string `json:"message"`
		SessionID string `json:"session_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		errJSON(w, http.StatusUnprocessableEntity, "message must not be empty")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.failChat {
		errJSON(w, http.StatusInternalServerError, "Error processing chat message")
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sources := make([]string, 0, len(b.documents))
	for _, doc := range b.documents {
		sources = append(sources, doc.Filename)
	}
	response := fmt.Sprintf("Here is what the documents say about: %s", req.Message)

	b.sessions[sessionID] = append(b.sessions[sessionID],
		client.Message{Role: client.RoleUser, Content: req.Message},
		client.Message{Role: client.RoleAssistant, Content: response})

	writeJSON(w, map[string]any{
		"session_id": sessionID,
		"response":   response,
		"sources":    sources,
	})
}

func (b *fakeBackend) chatHistoryHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	b.mu.Lock()
	history, ok := b.sessions[sessionID]
	b.mu.Unlock()
	if !ok {
		errJSON(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, map[string]any{"session_id": sessionID, "history": history})
}

func (b *fakeBackend) clearSessionHandler(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	b.mu.Lock()
	_, ok := b.sessions[sessionID]
	delete(b.sessions, sessionID)
	b.mu.Unlock()
	if !ok {
		errJSON(w, http.StatusNotFound, "Session not found")
		return
	}
	writeJSON(w, map[string]string{"message": "Session cleared successfully", "session_id": sessionID})
}

func (b *fakeBackend) uploadHandler(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		errJSON(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		errJSON(w, http.StatusBadRequest, "Could not read file")
		return
	}
	if len(data) > maxUploadSize {
		errJSON(w, http.StatusBadRequest, "File exceeds the maximum upload size of 10 MB")
		return
	}

	doc := fakeDocument{
		ID:       uuid.NewString(),
		Filename: header.Filename,
		Size:     int64(len(data)),
	}
	b.mu.Lock()
	b.documents = append(b.documents, doc)
	b.mu.Unlock()

	writeJSON(w, map[string]any{
		"filename": doc.Filename,
		"file_id":  doc.ID,
		"size":     doc.Size,
		"status":   "success",
		"message":  "Document uploaded and processed successfully",
	})
}

func (b *fakeBackend) listHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	docs := make([]map[string]any, 0, len(b.documents))
	for _, doc := range b.documents {
		docs = append(docs, map[string]any{
			"id":          doc.ID,
			"filename":    doc.Filename,
			"upload_date": time.Now().Format("2006-01-02T15:04:05.999999"),
			"size":        doc.Size,
			"status":      "active",
		})
	}
	b.mu.Unlock()
	writeJSON(w, map[string]any{"documents": docs, "total": len(docs)})
}

func (b *fakeBackend) deleteHandler(w http.ResponseWriter, r *http.Request) {
	fileID := chi.URLParam(r, "fileID")
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, doc := range b.documents {
		if doc.ID == fileID {
			b.documents = append(b.documents[:i], b.documents[i+1:]...)
			writeJSON(w, map[string]string{"message": "Document deleted successfully", "deleted_id": fileID})
			return
		}
	}
	errJSON(w, http.StatusNotFound, "Document not found")
}

func (b *fakeBackend) clearAllHandler(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	deleted := len(b.documents)
	b.documents = nil
	b.mu.Unlock()
	writeJSON(w, map[string]any{"message": "All documents cleared successfully", "deleted_count": deleted})
}
