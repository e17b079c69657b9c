package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/efis-adapter/model"
)

type mapLookup map[string]model.Category

func (m mapLookup) Get(id string) (model.Category, bool) {
	c, ok := m[id]
	return c, ok
}

func TestCategoryResolver_Resolve(t *testing.T) {
	r := NewCategoryResolver(mapLookup{
		"NAV1": {ID: "NAV1", Name: "Primary", Valid: true},
		"NAV3": {ID: "NAV3", Name: "Retired", Valid: false},
	})

	first, err := r.Resolve("NAV1")
	if err != nil {
		t.Fatalf("Resolve(NAV1): %v", err)
	}
	second, err := r.Resolve("NAV1")
	if err != nil || first != second {
		t.Fatalf("Resolve not idempotent: %+v vs %+v (%v)", first, second, err)
	}

	for _, id := range []string{"NAV2", "NAV3", "", "<img src=x onerror=alert(1)>"} {
		_, err := r.Resolve(id)
		if !errors.Is(err, ErrUnknownCategory) {
			t.Fatalf("Resolve(%q) err = %v, want ErrUnknownCategory", id, err)
		}
		if id != "" && strings.Contains(err.Error(), id) {
			t.Fatalf("error %q echoes the identifier", err)
		}
	}
}

func TestCategoryResolver_NoTable(t *testing.T) {
	var r *CategoryResolver
	if _, err := r.Resolve("NAV1"); !errors.Is(err, ErrUnknownCategory) {
		t.Fatalf("nil resolver err = %v", err)
	}
}
