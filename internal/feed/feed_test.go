package feed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/signalsfoundry/efis-adapter/core"
	"github.com/signalsfoundry/efis-adapter/internal/store/snapshot"
	"github.com/signalsfoundry/efis-adapter/model"
	"github.com/signalsfoundry/efis-adapter/timectrl"
)

var nav1 = model.Category{ID: "NAV1", Valid: true}

func TestMemoryGenerator_CopiesRecords(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGenerator()
	rec := Frame("NAV1", 1, time.Unix(0, 0), 0, 0)
	if err := g.Put(ctx, model.RoleCentral, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rec.Inclinometer[0].SensorArray = "mutated"

	got, ok, err := g.ReadAirframe(ctx, model.RoleCentral, nav1)
	if err != nil || !ok {
		t.Fatalf("ReadAirframe = ok %v err %v", ok, err)
	}
	if got.Inclinometer[0].SensorArray != "left" {
		t.Fatalf("stored record shares memory with caller")
	}
	got.Inclinometer[0].SensorArray = "mutated"
	again, _, _ := g.ReadAirframe(ctx, model.RoleCentral, nav1)
	if again.Inclinometer[0].SensorArray != "left" {
		t.Fatalf("returned record shares memory with store")
	}
}

func TestMemoryGenerator_FaultInjection(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGenerator()
	boom := errors.New("bus fault")
	g.Fail(model.RoleCentral, boom)
	if _, _, err := g.ReadAirframe(ctx, model.RoleCentral, nav1); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want injected fault", err)
	}
	g.Fail(model.RoleCentral, nil)
	if _, ok, err := g.ReadAirframe(ctx, model.RoleCentral, nav1); ok || err != nil {
		t.Fatalf("cleared fault = ok %v err %v, want absent", ok, err)
	}
}

func TestMemoryAutopilot(t *testing.T) {
	ctx := context.Background()
	a := NewMemoryAutopilot()
	if _, ok, _ := a.ReadAutopilot(ctx, nav1); ok {
		t.Fatalf("empty source should be absent")
	}
	if err := a.Upsert(ctx, model.APSystemState{Category: "NAV1", NavMode: model.NavModeLOC}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	st, ok, err := a.ReadAutopilot(ctx, nav1)
	if err != nil || !ok || st.NavMode != model.NavModeLOC {
		t.Fatalf("ReadAutopilot = %+v ok %v err %v", st, ok, err)
	}
	if err := a.Delete(ctx, "NAV1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := a.ReadAutopilot(ctx, nav1); ok {
		t.Fatalf("deleted state still present")
	}
}

func TestSynthesizer_CentralOutageTriggersFallback(t *testing.T) {
	ctx := context.Background()
	gen := NewMemoryGenerator()
	ap := NewMemoryAutopilot()
	synth, err := NewSynthesizer(SynthConfig{Categories: []string{"NAV1"}, CentralOutageEvery: 3}, gen, ap, nil)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}

	tc := timectrl.NewTimeController(time.Unix(1_700_000_000, 0), time.Second, timectrl.Accelerated)
	synth.Attach(ctx, tc)
	reader := core.NewRedundantReader(gen)

	wantRoles := []model.SourceRole{model.RoleCentral, model.RoleCentral, model.RoleCopilot, model.RoleCentral}
	for i, want := range wantRoles {
		now := tc.Step()
		got, ok, err := reader.Read(ctx, nav1)
		if err != nil || !ok {
			t.Fatalf("tick %d: Read = ok %v err %v", i+1, ok, err)
		}
		if got.Role != want {
			t.Fatalf("tick %d: served by %s, want %s", i+1, got.Role, want)
		}
		if got.Data.Sequence != uint64(i+1) || !got.Data.Timestamp.Equal(now) {
			t.Fatalf("tick %d: record seq %d at %v", i+1, got.Data.Sequence, got.Data.Timestamp)
		}
	}
	if synth.Sequence() != 4 {
		t.Fatalf("Sequence = %d, want 4", synth.Sequence())
	}

	st, ok, _ := ap.ReadAutopilot(ctx, nav1)
	if !ok || !st.NavMode.Known() {
		t.Fatalf("autopilot state not written: %+v ok %v", st, ok)
	}
}

func TestSynthesizer_WritesToSnapshotStore(t *testing.T) {
	ctx := context.Background()
	store, err := snapshot.Open(snapshot.Config{InMemory: true})
	if err != nil {
		t.Fatalf("snapshot.Open: %v", err)
	}
	defer store.Close()

	synth, err := NewSynthesizer(SynthConfig{Categories: []string{"NAV1", "NAV2"}}, store, nil, nil)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	if err := synth.Tick(ctx, time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	for _, id := range []string{"NAV1", "NAV2"} {
		roles, err := store.Roles(id)
		if err != nil || len(roles) != 2 {
			t.Fatalf("%s roles = %v err %v, want central and copilot", id, roles, err)
		}
	}
}

func TestSynthesizer_LNAVGuidance(t *testing.T) {
	ap := NewMemoryAutopilot()
	synth, err := NewSynthesizer(SynthConfig{Categories: []string{"NAV1"}, ModeDwell: 1}, NewMemoryGenerator(), ap, nil)
	if err != nil {
		t.Fatalf("NewSynthesizer: %v", err)
	}
	// With a dwell of one tick, tick 1 lands on LNAV.
	if err := synth.Tick(context.Background(), time.Now()); err != nil {
		t.Fatalf("Tick: %v", err)
	}
	st, _, _ := ap.ReadAutopilot(context.Background(), nav1)
	if st.NavMode != model.NavModeLNAV || !st.VerticalGuidanceValid || !st.Engaged {
		t.Fatalf("tick 1 state = %+v, want engaged LNAV with guidance", st)
	}
}

func TestNewSynthesizer_Validation(t *testing.T) {
	if _, err := NewSynthesizer(SynthConfig{Categories: []string{"NAV1"}}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for missing sink")
	}
	if _, err := NewSynthesizer(SynthConfig{}, NewMemoryGenerator(), nil, nil); err == nil {
		t.Fatalf("expected error for missing categories")
	}
	if _, err := NewSynthesizer(SynthConfig{Categories: []string{"NAV1"}, CentralOutageEvery: -1}, NewMemoryGenerator(), nil, nil); err == nil {
		t.Fatalf("expected error for negative outage interval")
	}
}
