package payment

import (
	"sync"
	"time"
)

// Sessions keeps one Adapter per shopper, so a second submit from the
// same shopper while a checkout is open is refused.
type Sessions struct {
	gw      Gateway
	apiKey  string
	timeout time.Duration
	observe Observer

	mu       sync.Mutex
	adapters map[string]*Adapter
}

func NewSessions(gw Gateway, apiKey string, timeout time.Duration, observe Observer) *Sessions {
	return &Sessions{
		gw:       gw,
		apiKey:   apiKey,
		timeout:  timeout,
		observe:  observe,
		adapters: map[string]*Adapter{},
	}
}

// Begin claims the owner's adapter for checkoutID.
func (s *Sessions) Begin(owner, checkoutID string) (*Adapter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := s.adapter(owner)
	if err := a.Begin(checkoutID); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Sessions) adapter(owner string) *Adapter {
	a, ok := s.adapters[owner]
	if !ok {
		a = NewAdapter(s.gw, s.apiKey, s.timeout, s.observe)
		s.adapters[owner] = a
	}
	return a
}

// Prune drops idle adapters.
func (s *Sessions) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for owner, a := range s.adapters {
		if a.State() == Idle {
			delete(s.adapters, owner)
			n++
		}
	}
	return n
}
