package core

import (
	"fmt"

	"github.com/signalsfoundry/efis-adapter/model"
)

// CategoryLookup is the configured category table.
type CategoryLookup interface {
	Get(id string) (model.Category, bool)
}

// CategoryResolver validates incoming category identifiers against the
// configured profiles. Every readout resolves exactly once, before any read.
type CategoryResolver struct {
	lookup CategoryLookup
}

// NewCategoryResolver wraps a lookup table.
func NewCategoryResolver(lookup CategoryLookup) *CategoryResolver {
	return &CategoryResolver{lookup: lookup}
}

// Resolve returns the profile for id. Unknown and disabled profiles fail with
// ErrUnknownCategory; no default profile is ever substituted.
func (r *CategoryResolver) Resolve(id string) (model.Category, error) {
	if r == nil || r.lookup == nil {
		return model.Category{}, fmt.Errorf("%w: no category table configured", ErrUnknownCategory)
	}
	cat, ok := r.lookup.Get(id)
	if !ok {
		return model.Category{}, ErrUnknownCategory
	}
	if !cat.Valid {
		return model.Category{}, fmt.Errorf("%w: category is disabled", ErrUnknownCategory)
	}
	return cat, nil
}
