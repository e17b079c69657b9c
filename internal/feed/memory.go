// Package feed provides in-memory airframe and autopilot sources and a
// synthetic generator that drives them (or the persistent stores) from
// simulated time.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/signalsfoundry/efis-adapter/model"
)

type recordKey struct {
	role     model.SourceRole
	category string
}

// MemoryGenerator is a concurrency-safe in-memory GeneratorReader. Records
// are copied on the way in and out so callers never share slices with it.
type MemoryGenerator struct {
	mu      sync.RWMutex
	records map[recordKey]model.AirframeData
	faults  map[model.SourceRole]error
}

// NewMemoryGenerator returns an empty generator; every role reads absent.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{
		records: make(map[recordKey]model.AirframeData),
		faults:  make(map[model.SourceRole]error),
	}
}

func cloneRecord(rec model.AirframeData) model.AirframeData {
	if rec.Inclinometer != nil {
		rec.Inclinometer = append([]model.InclinometerSample(nil), rec.Inclinometer...)
	}
	return rec
}

// Put stores rec as the latest record for (role, rec.Category).
func (g *MemoryGenerator) Put(ctx context.Context, role model.SourceRole, rec model.AirframeData) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Category == "" {
		return errors.New("airframe record has no category")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.records[recordKey{role: role, category: rec.Category}] = cloneRecord(rec)
	return nil
}

// Delete removes the record for (role, categoryID).
func (g *MemoryGenerator) Delete(ctx context.Context, role model.SourceRole, categoryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.records, recordKey{role: role, category: categoryID})
	return nil
}

// Fail makes every read against role return err until cleared with a nil err.
func (g *MemoryGenerator) Fail(role model.SourceRole, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.faults, role)
		return
	}
	g.faults[role] = err
}

// ReadAirframe implements core.GeneratorReader.
func (g *MemoryGenerator) ReadAirframe(ctx context.Context, role model.SourceRole, cat model.Category) (model.AirframeData, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.AirframeData{}, false, err
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.faults[role]; err != nil {
		return model.AirframeData{}, false, err
	}
	rec, ok := g.records[recordKey{role: role, category: cat.ID}]
	if !ok {
		return model.AirframeData{}, false, nil
	}
	return cloneRecord(rec), true, nil
}

// MemoryAutopilot is a concurrency-safe in-memory AutopilotReader.
type MemoryAutopilot struct {
	mu     sync.RWMutex
	states map[string]model.APSystemState
}

// NewMemoryAutopilot returns an empty autopilot source.
func NewMemoryAutopilot() *MemoryAutopilot {
	return &MemoryAutopilot{states: make(map[string]model.APSystemState)}
}

// Upsert replaces the state for st.Category.
func (a *MemoryAutopilot) Upsert(ctx context.Context, st model.APSystemState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if st.Category == "" {
		return errors.New("autopilot state has no category")
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.states[st.Category] = st
	return nil
}

// Delete removes the state for categoryID.
func (a *MemoryAutopilot) Delete(ctx context.Context, categoryID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.states, categoryID)
	return nil
}

// ReadAutopilot implements core.AutopilotReader.
func (a *MemoryAutopilot) ReadAutopilot(ctx context.Context, cat model.Category) (model.APSystemState, bool, error) {
	if err := ctx.Err(); err != nil {
		return model.APSystemState{}, false, err
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	st, ok := a.states[cat.ID]
	return st, ok, nil
}
