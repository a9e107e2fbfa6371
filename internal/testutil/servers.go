// Package testutil collects the httptest servers shared across test
// packages.
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"time"
)

// RecordingServer wraps an httptest server and counts the requests that
// actually reached it, so tests can assert that rejected or unbound calls
// issued no network activity.
type RecordingServer struct {
	*httptest.Server
	hits atomic.Int64
}

// Hits reports how many requests reached the server.
func (s *RecordingServer) Hits() int64 {
	return s.hits.Load()
}

// NewRecordingServer creates a recording server around a handler.
func NewRecordingServer(handler http.Handler) *RecordingServer {
	server := &RecordingServer{}
	server.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		server.hits.Add(1)
		handler.ServeHTTP(w, r)
	}))
	return server
}

// NewPostsServer serves the JSONPlaceholder-shaped posts fixtures.
func NewPostsServer() *RecordingServer {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /posts", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`[{"id":1,"userId":1,"title":"t","body":"b"},{"id":2,"userId":1,"title":"t2","body":"b2"}]`))
	})

	mux.HandleFunc("GET /posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.PathValue("id") != "1" {
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":1,"userId":1,"title":"t","body":"b"}`))
	})

	return NewRecordingServer(mux)
}

// NewCommentsServer serves the JSONPlaceholder-shaped comments fixtures.
func NewCommentsServer() *RecordingServer {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /comments", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if r.URL.Query().Get("postId") == "1" {
			w.Write([]byte(`[{"id":1,"postId":1,"name":"n","email":"e@example.test","body":"c"}]`))
			return
		}
		w.Write([]byte(`[{"id":1,"postId":1,"name":"n","email":"e@example.test","body":"c"},{"id":2,"postId":2,"name":"n2","email":"e2@example.test","body":"c2"}]`))
	})

	mux.HandleFunc("GET /comments/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"id":1,"postId":1,"name":"n","email":"e@example.test","body":"c"}`))
	})

	return NewRecordingServer(mux)
}

// NewEchoServer echoes the request body back with the request's
// Content-Type, for round-trip tests.
func NewEchoServer() *RecordingServer {
	return NewRecordingServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType := r.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/json"
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		body, err := io.ReadAll(r.Body)
		if err != nil {
			return
		}
		w.Write(body)
	}))
}

// NewStatusServer always answers with the given status and body.
func NewStatusServer(status int, body string) *RecordingServer {
	return NewRecordingServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		w.Write([]byte(body))
	}))
}

// NewSlowServer answers 200 after the delay, unless the client goes away
// first. Used for timeout and cancellation tests.
func NewSlowServer(delay time.Duration, body string) *RecordingServer {
	return NewRecordingServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(body))
	}))
}
