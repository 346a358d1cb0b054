package testkit

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
)

// Stub is a canned reply for outgoing requests whose URL starts with
// Prefix and, when Method is set, use that method. Replies are consumed
// in order; the last one repeats.
type Stub struct {
	Method  string
	Prefix  string
	Replies []Reply

	calls int
}

type Reply struct {
	Status int
	Body   string
}

// MockTransport answers outgoing HTTP from stubs instead of the network.
// Install it on the shared client:
//
//	mt := testkit.NewMockTransport(stubs...)
//	khttp.DefaultClient.Transport = mt
//	defer khttp.ResetTransport()
type MockTransport struct {
	mu    sync.Mutex
	stubs []*Stub
}

func NewMockTransport(stubs ...*Stub) *MockTransport {
	return &MockTransport{stubs: stubs}
}

// RoundTrip fails requests no stub matches.
func (mt *MockTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	mt.mu.Lock()
	defer mt.mu.Unlock()

	for _, s := range mt.stubs {
		if s.Method != "" && s.Method != req.Method {
			continue
		}
		if !strings.HasPrefix(req.URL.String(), s.Prefix) {
			continue
		}
		rep := Reply{Status: http.StatusOK}
		if n := len(s.Replies); n > 0 {
			rep = s.Replies[min(s.calls, n-1)]
		}
		s.calls++
		if rep.Status == 0 {
			rep.Status = http.StatusOK
		}
		return &http.Response{
			StatusCode: rep.Status,
			Status:     fmt.Sprintf("%d %s", rep.Status, http.StatusText(rep.Status)),
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(rep.Body)),
			Request:    req,
		}, nil
	}
	return nil, fmt.Errorf("testkit: unexpected outgoing call %s %s", req.Method, req.URL)
}

// Calls reports how often the stub was hit.
func (mt *MockTransport) Calls(s *Stub) int {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	return s.calls
}

// Uncalled lists the prefixes of stubs that were never hit.
func (mt *MockTransport) Uncalled() []string {
	mt.mu.Lock()
	defer mt.mu.Unlock()
	var out []string
	for _, s := range mt.stubs {
		if s.calls == 0 {
			out = append(out, s.Prefix)
		}
	}
	return out
}
