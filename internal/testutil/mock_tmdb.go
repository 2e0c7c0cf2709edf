// Package testutil provides testing utilities for the catalog addon.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockResponse defines the behaviour of one mocked upstream endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
}

// MockUpstream is a configurable stand-in for the discovery provider.
type MockUpstream struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// RequestCount is the total number of requests served.
	RequestCount int

	// PathCounts tracks requests per path.
	PathCounts map[string]int
}

// NewMockUpstream starts a mock provider server.
func NewMockUpstream() *MockUpstream {
	mock := &MockUpstream{
		handlers:   make(map[string]http.HandlerFunc),
		PathCounts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.PathCounts[r.URL.Path]++
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"status_message":"The resource you requested could not be found."}`)
	}))

	return mock
}

// URL returns the mock server's base URL.
func (m *MockUpstream) URL() string {
	return m.server.URL
}

// Close shuts the mock server down.
func (m *MockUpstream) Close() {
	m.server.Close()
}

// SetResponse configures a static response for a path.
func (m *MockUpstream) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		if resp.StatusCode == 0 {
			resp.StatusCode = http.StatusOK
		}
		w.WriteHeader(resp.StatusCode)
		fmt.Fprint(w, resp.Body)
	})
}

// SetHandler configures a dynamic handler for a path.
func (m *MockUpstream) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetPagedResponse configures a path whose response body depends on the
// requested page number. Missing pages fall back to the highest configured
// page.
func (m *MockUpstream) SetPagedResponse(path string, pages map[int]string) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		page, err := strconv.Atoi(r.URL.Query().Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		body, ok := pages[page]
		if !ok {
			// Fall back to the last configured page.
			last := 0
			for n := range pages {
				if n > last {
					last = n
				}
			}
			body = pages[last]
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, body)
	})
}

// Requests returns how many requests hit a path.
func (m *MockUpstream) Requests(path string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.PathCounts[path]
}
