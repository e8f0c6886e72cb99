package quotestore

import (
	"sync"
	"testing"
	"time"

	"signalcore/internal/model"
)

func quote(symbol string, price float64, at time.Time) model.RealtimeQuote {
	return model.RealtimeQuote{Symbol: symbol, Price: price, ObservedAt: at}
}

func TestPutKeepsNewerQuote(t *testing.T) {
	s := New()
	now := time.Now()

	s.Put(quote("600000", 15.30, now))
	s.Put(quote("600000", 15.10, now.Add(-time.Minute))) // late out-of-order tick

	q, ok := s.Latest("600000")
	if !ok {
		t.Fatal("quote missing")
	}
	if q.Price != 15.30 {
		t.Errorf("price = %.2f, want 15.30; stale tick overwrote newer quote", q.Price)
	}

	s.Put(quote("600000", 15.35, now.Add(time.Second)))
	if q, _ := s.Latest("600000"); q.Price != 15.35 {
		t.Errorf("price = %.2f, want 15.35", q.Price)
	}
}

func TestLatestUnknownSymbol(t *testing.T) {
	s := New()
	if _, ok := s.Latest("000000"); ok {
		t.Error("unknown symbol reported as present")
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	s := New()
	now := time.Now()
	s.Put(quote("600000", 15.30, now))

	snap := s.Snapshot()
	snap["600000"] = quote("600000", 1.0, now.Add(time.Hour))

	if q, _ := s.Latest("600000"); q.Price != 15.30 {
		t.Error("mutating the snapshot leaked into the store")
	}
}

func TestStartWorkerDrainsChannel(t *testing.T) {
	s := New()
	ch := make(chan model.RealtimeQuote)
	s.StartWorker(ch)

	now := time.Now()
	for i := 0; i < 50; i++ {
		ch <- quote("600000", float64(i), now.Add(time.Duration(i)*time.Millisecond))
	}
	close(ch)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if q, ok := s.Latest("600000"); ok && q.Price == 49 {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("worker did not drain the channel")
}

func TestConcurrentPut(t *testing.T) {
	s := New()
	now := time.Now()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				s.Put(quote("600000", float64(g*100+i), now.Add(time.Duration(i)*time.Microsecond)))
			}
		}()
	}
	wg.Wait()

	if s.Count() != 1 {
		t.Errorf("count = %d, want 1", s.Count())
	}
}
