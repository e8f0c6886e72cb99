// Package quotestore keeps the latest realtime quote per symbol. Only the
// most recent observation matters to the core; history is the repository's
// concern.
package quotestore

import (
	"sync"

	"signalcore/internal/model"
)

type Store struct {
	mu     sync.RWMutex
	quotes map[string]model.RealtimeQuote
}

func New() *Store {
	return &Store{
		quotes: make(map[string]model.RealtimeQuote),
	}
}

// Put replaces the stored quote for a symbol unless the stored one is newer.
func (s *Store) Put(q model.RealtimeQuote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.quotes[q.Symbol]; ok && prev.ObservedAt.After(q.ObservedAt) {
		return
	}
	s.quotes[q.Symbol] = q
}

// StartWorker consumes quotes from a channel until it closes.
func (s *Store) StartWorker(ch <-chan model.RealtimeQuote) {
	go func() {
		for q := range ch {
			s.Put(q)
		}
	}()
}

// Latest returns the stored quote for a symbol, if any.
func (s *Store) Latest(symbol string) (model.RealtimeQuote, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	return q, ok
}

// Snapshot returns a copy of all stored quotes.
func (s *Store) Snapshot() map[string]model.RealtimeQuote {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]model.RealtimeQuote, len(s.quotes))
	for sym, q := range s.quotes {
		out[sym] = q
	}
	return out
}

// Count returns the number of symbols with a stored quote.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.quotes)
}
