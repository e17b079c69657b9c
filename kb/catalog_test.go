package kb

import (
	"fmt"
	"sync"
	"testing"

	"github.com/signalsfoundry/efis-adapter/model"
)

func TestCatalogGet(t *testing.T) {
	c, err := NewCatalog(
		model.Category{ID: "NAV1", Name: "Captain", Valid: true},
		model.Category{ID: "NAV2", Name: "First officer", Valid: true},
	)
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	got, ok := c.Get("NAV1")
	if !ok || got.Name != "Captain" {
		t.Fatalf("Get(NAV1) = %#v, %v; want Captain", got, ok)
	}
	if _, ok := c.Get("nav1"); ok {
		t.Fatalf("Get is expected to be case sensitive")
	}
	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
}

func TestCatalogRejectsDuplicates(t *testing.T) {
	if _, err := NewCatalog(model.Category{ID: "NAV1"}, model.Category{ID: "NAV1"}); err == nil {
		t.Fatalf("expected duplicate IDs to fail")
	}
	if _, err := NewCatalog(model.Category{ID: ""}); err == nil {
		t.Fatalf("expected empty ID to fail")
	}
}

func TestCatalogReplaceKeepsContentsOnError(t *testing.T) {
	c, err := NewCatalog(model.Category{ID: "NAV1", Valid: true})
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	if err := c.Replace([]model.Category{{ID: "X"}, {ID: "X"}}); err == nil {
		t.Fatalf("expected Replace with duplicates to fail")
	}
	if _, ok := c.Get("NAV1"); !ok {
		t.Fatalf("failed Replace dropped existing contents")
	}
	if c.Version() != 0 {
		t.Fatalf("Version = %d after failed Replace, want 0", c.Version())
	}
}

func TestCatalogListSorted(t *testing.T) {
	c, err := NewCatalog(model.Category{ID: "NAV2"}, model.Category{ID: "ADI"}, model.Category{ID: "NAV1"})
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	list := c.List()
	want := []string{"ADI", "NAV1", "NAV2"}
	for i, cat := range list {
		if cat.ID != want[i] {
			t.Fatalf("List()[%d] = %s, want %s", i, cat.ID, want[i])
		}
	}
}

func TestCatalogSubscribe(t *testing.T) {
	c, err := NewCatalog()
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}
	var events []Event
	unsub := c.Subscribe(func(ev Event) { events = append(events, ev) })

	if err := c.Replace([]model.Category{{ID: "NAV1"}}); err != nil {
		t.Fatalf("Replace error: %v", err)
	}
	if len(events) != 1 || events[0].Type != EventCatalogReloaded || events[0].Count != 1 || events[0].Version != 1 {
		t.Fatalf("unexpected events after first Replace: %#v", events)
	}

	unsub()
	unsub()
	if err := c.Replace([]model.Category{{ID: "NAV2"}}); err != nil {
		t.Fatalf("Replace error: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected no events after unsubscribe, got %d", len(events))
	}
}

func TestCatalogConcurrentLookupDuringReplace(t *testing.T) {
	c, err := NewCatalog(model.Category{ID: "NAV1", Valid: true})
	if err != nil {
		t.Fatalf("NewCatalog error: %v", err)
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, ok := c.Get("NAV1"); !ok {
					t.Errorf("NAV1 disappeared during Replace")
					return
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		cats := []model.Category{{ID: "NAV1", Valid: true}, {ID: fmt.Sprintf("EXTRA%d", i)}}
		if err := c.Replace(cats); err != nil {
			t.Fatalf("Replace error: %v", err)
		}
	}
	close(stop)
	wg.Wait()

	if c.Version() != 200 {
		t.Fatalf("Version = %d, want 200", c.Version())
	}
}
