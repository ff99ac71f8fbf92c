// Package testserver provides a fake TMDB API for E2E tests.
package testserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"
)

// Title is one movie or show served by the fake API.
type Title struct {
	ID      int
	Name    string
	Date    string
	Rating  float64
	Tagline string
	Genres  []string
}

// Server wraps httptest.Server with a mutable catalog.
type Server struct {
	*httptest.Server
	token string

	mu       sync.Mutex
	trending map[string][]Title
	failing  bool
	requests []*RecordedRequest
}

// RecordedRequest stores request details for verification.
type RecordedRequest struct {
	Method string
	Path   string
	Time   time.Time
}

// New starts a fake API that requires token as api_key.
func New(token string) *Server {
	s := &Server{
		token:    token,
		trending: make(map[string][]Title),
		requests: make([]*RecordedRequest, 0),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /3/trending/{kind}/week", s.recordingWrapper(s.handleTrending))
	mux.HandleFunc("GET /3/{kind}/{id}", s.recordingWrapper(s.handleDetail))

	s.Server = httptest.NewServer(mux)
	return s
}

// BaseURL is the API root to configure the client with.
func (s *Server) BaseURL() string {
	return s.URL + "/3"
}

// SetTrending replaces the trending list of kind ("movie" or "tv").
func (s *Server) SetTrending(kind string, titles ...Title) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trending[kind] = titles
}

// SetFailing makes every request answer 503.
func (s *Server) SetFailing(failing bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = failing
}

// recordingWrapper wraps handlers to record requests and apply auth and
// failure injection.
func (s *Server) recordingWrapper(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, &RecordedRequest{
			Method: r.Method,
			Path:   r.URL.Path,
			Time:   time.Now(),
		})
		failing := s.failing
		s.mu.Unlock()

		if failing {
			writeStatus(w, http.StatusServiceUnavailable, "Service offline")
			return
		}
		if r.URL.Query().Get("api_key") != s.token {
			writeStatus(w, http.StatusUnauthorized, "Invalid API key")
			return
		}
		h(w, r)
	}
}

func (s *Server) handleTrending(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")

	s.mu.Lock()
	titles := s.trending[kind]
	s.mu.Unlock()

	results := make([]map[string]any, 0, len(titles))
	for _, t := range titles {
		results = append(results, rawTitle(kind, t))
	}
	writeJSON(w, map[string]any{
		"page":          1,
		"results":       results,
		"total_pages":   1,
		"total_results": len(results),
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	kind := r.PathValue("kind")
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeStatus(w, http.StatusNotFound, "not found")
		return
	}

	s.mu.Lock()
	var found *Title
	for _, t := range s.trending[kind] {
		if t.ID == id {
			found = &t
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		writeStatus(w, http.StatusNotFound, "The resource you requested could not be found.")
		return
	}

	payload := rawTitle(kind, *found)
	payload["tagline"] = found.Tagline
	payload["status"] = "Released"
	genres := make([]map[string]any, 0, len(found.Genres))
	for i, g := range found.Genres {
		genres = append(genres, map[string]any{"id": i + 1, "name": g})
	}
	payload["genres"] = genres
	if kind == "tv" {
		payload["episode_run_time"] = []int{45}
	} else {
		payload["runtime"] = 110
	}
	writeJSON(w, payload)
}

// rawTitle renders t with the field names TMDB uses for kind.
func rawTitle(kind string, t Title) map[string]any {
	m := map[string]any{
		"id":           t.ID,
		"overview":     fmt.Sprintf("About %s.", t.Name),
		"poster_path":  fmt.Sprintf("/%d.jpg", t.ID),
		"vote_average": t.Rating,
	}
	if kind == "tv" {
		m["name"] = t.Name
		m["first_air_date"] = t.Date
	} else {
		m["title"] = t.Name
		m["release_date"] = t.Date
	}
	return m
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"status_code": status, "status_message": message})
}

// Requests returns all recorded requests.
func (s *Server) Requests() []*RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make([]*RecordedRequest, len(s.requests))
	copy(result, s.requests)
	return result
}

// RequestCount returns the number of recorded requests.
func (s *Server) RequestCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// ClearRequests clears recorded requests.
func (s *Server) ClearRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = s.requests[:0]
}
