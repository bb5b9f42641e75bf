package cache_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/palantir/contact-enricher/internal/cache"
	"github.com/palantir/contact-enricher/internal/contact"
)

func record(name string) contact.ContactData {
	return contact.ContactData{EnrichedProfile: contact.EnrichedProfile{Name: name, Company: "Acme Corp"}}
}

func TestCache_UnboundedByDefault(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	for i := 0; i < 500; i++ {
		c.Put(fmt.Sprintf("person-%d|Acme Corp", i), record("x"))
	}
	if c.Len() != 500 {
		t.Fatalf("expected 500 entries, got %d", c.Len())
	}
}

func TestCache_OneEntryPerKey(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	c.Put("John Smith|Acme Corp", record("first"))
	c.Put("John Smith|Acme Corp", record("second"))

	if c.Len() != 1 {
		t.Fatalf("expected 1 entry, got %d", c.Len())
	}
	got, ok := c.Get("John Smith|Acme Corp")
	if !ok || got.Name != "second" {
		t.Fatalf("unexpected entry: %#v ok=%v", got, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("unexpected hit for missing key")
	}

	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge")
	}
}

func TestCache_MaxEntriesEvictsLRU(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{MaxEntries: 2})
	c.Put("a", record("a"))
	c.Put("b", record("b"))
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a")
	}
	c.Put("c", record("c"))

	if _, ok := c.Get("b"); ok {
		t.Fatalf("expected b to be evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatalf("expected a to survive")
	}
	if _, ok := c.Get("c"); !ok {
		t.Fatalf("expected c to be present")
	}
}

func TestCache_TTLExpires(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{TTL: 20 * time.Millisecond})
	c.Put("k", record("k"))
	if _, ok := c.Get("k"); !ok {
		t.Fatalf("expected fresh entry")
	}
	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatalf("expected entry to expire")
	}
}

func TestCache_LockSerializesPerKey(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		inside  int
		maxSeen int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := c.Lock("same")
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxSeen {
				maxSeen = inside
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()
	if maxSeen != 1 {
		t.Fatalf("expected exclusive access, saw %d concurrent holders", maxSeen)
	}

	// Different keys do not block each other.
	unlockA := c.Lock("a")
	done := make(chan struct{})
	go func() {
		unlockB := c.Lock("b")
		unlockB()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("lock on b blocked behind a")
	}
	unlockA()
}

func TestCache_EntriesDoNotAliasCallerSlices(t *testing.T) {
	t.Parallel()

	c := cache.New(cache.Options{})
	rec := record("Jane Doe")
	rec.Tags = []string{"pricing", "q4"}
	rec.Sources = []string{"api.mockenrich.com/v1/person"}
	c.Put("Jane Doe|Innovate Inc.", rec)

	rec.Tags[0] = "changed after put"
	got, _ := c.Get("Jane Doe|Innovate Inc.")
	got.Tags[1] = "changed after get"
	got.Sources[0] = "changed after get"

	again, _ := c.Get("Jane Doe|Innovate Inc.")
	if again.Tags[0] != "pricing" || again.Tags[1] != "q4" || again.Sources[0] != "api.mockenrich.com/v1/person" {
		t.Fatalf("cached entry was modified through a caller's slice: %+v", again)
	}
}
