package hosting

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/westmount/faxbridge/internal/document"
)

func testDoc(id string) *document.Document {
	return &document.Document{
		ID:          id,
		Name:        "refill_order.pdf",
		ContentType: document.ContentTypePDF,
		Data:        []byte("%PDF-1.4 test " + id),
	}
}

func TestRegistryRoundTrip(t *testing.T) {
	r := NewRegistry()
	doc := testDoc("doc-1")
	r.Put(doc)

	got, err := r.Get("doc-1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !bytes.Equal(got.Data, doc.Data) {
		t.Error("fetched bytes differ from stored bytes")
	}
}

func TestRegistryEvictIsIdempotent(t *testing.T) {
	r := NewRegistry()
	r.Put(testDoc("doc-1"))

	if !r.Evict("doc-1") {
		t.Error("first eviction should report true")
	}
	if r.Evict("doc-1") {
		t.Error("second eviction should report false, not fail")
	}

	if _, err := r.Get("doc-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get after evict = %v, want ErrNotFound", err)
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("doc-%d", n)
			r.Put(testDoc(id))
			if _, err := r.Get(id); err != nil {
				t.Errorf("get %s: %v", id, err)
			}
			r.Evict(id)
			r.Evict(id)
		}(i)
	}
	wg.Wait()

	if r.Len() != 0 {
		t.Errorf("registry has %d entries after eviction, want 0", r.Len())
	}
}

func TestSelfHostPublish(t *testing.T) {
	r := NewRegistry()
	s := NewSelfHost(r, "https://faxbridge.example.com/", nil)

	doc := testDoc("doc-1")
	ref, err := s.Publish(context.Background(), doc)
	if err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	want := "https://faxbridge.example.com/files/doc-1"
	if ref.URL != want {
		t.Errorf("url = %q, want %q", ref.URL, want)
	}
	if ref.Service != "selfhost" {
		t.Errorf("service = %q, want selfhost", ref.Service)
	}

	// The reference must be dereferenceable immediately.
	got, err := r.Get(doc.ID)
	if err != nil {
		t.Fatalf("registry lookup after publish failed: %v", err)
	}
	if !bytes.Equal(got.Data, doc.Data) {
		t.Error("registry serves different bytes than published")
	}
}

func TestSelfHostRequiresBaseURL(t *testing.T) {
	s := NewSelfHost(NewRegistry(), "", nil)
	if _, err := s.Publish(context.Background(), testDoc("doc-1")); err == nil {
		t.Fatal("expected error without a public base URL")
	}
}
