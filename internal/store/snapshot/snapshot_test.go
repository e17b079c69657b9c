package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/efis-adapter/model"
	"github.com/signalsfoundry/efis-adapter/timectrl"
)

var nav1 = model.Category{ID: "NAV1", Valid: true}

func openTestStore(t *testing.T, maxAge time.Duration, clock timectrl.Clock) *Store {
	t.Helper()
	s, err := Open(Config{InMemory: true, MaxAge: maxAge, Clock: clock})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleRecord(ts time.Time) model.AirframeData {
	return model.AirframeData{
		Category:  "NAV1",
		Sequence:  7,
		Timestamp: ts,
		Situation: model.SituationGroup{HeadingRaw: 900},
		Velocity:  model.VelocityGroup{AirSpeedRaw: 250},
		Inclinometer: []model.InclinometerSample{
			{SensorArray: "L", BallDeflectionRaw: 12},
		},
	}
}

func TestPutAndRead(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := timectrl.NewTimeController(now, time.Second, timectrl.Accelerated)
	s := openTestStore(t, 0, clock)

	rec := sampleRecord(now)
	if err := s.Put(ctx, model.RoleCopilot, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := s.ReadAirframe(ctx, model.RoleCopilot, nav1)
	if err != nil || !ok {
		t.Fatalf("ReadAirframe copilot = ok %v err %v, want data", ok, err)
	}
	if diff := cmp.Diff(rec, got); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}

	if _, ok, err := s.ReadAirframe(ctx, model.RoleCentral, nav1); err != nil || ok {
		t.Fatalf("ReadAirframe central = ok %v err %v, want absent", ok, err)
	}
}

func TestStaleRecordReadsAbsent(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	clock := timectrl.NewTimeController(now, time.Second, timectrl.Accelerated)
	s := openTestStore(t, 2*time.Second, clock)

	if err := s.Put(ctx, model.RoleCentral, sampleRecord(now)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, ok, _ := s.ReadAirframe(ctx, model.RoleCentral, nav1); !ok {
		t.Fatalf("fresh record should read as data")
	}

	clock.SetTime(now.Add(3 * time.Second))
	if _, ok, err := s.ReadAirframe(ctx, model.RoleCentral, nav1); ok || err != nil {
		t.Fatalf("stale record = ok %v err %v, want absent", ok, err)
	}
}

func TestDeleteAndRoles(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t, 0, nil)
	rec := sampleRecord(time.Now())
	for _, role := range []model.SourceRole{model.RoleCentral, model.RoleCopilot} {
		if err := s.Put(ctx, role, rec); err != nil {
			t.Fatalf("Put %s: %v", role, err)
		}
	}

	roles, err := s.Roles("NAV1")
	if err != nil {
		t.Fatalf("Roles: %v", err)
	}
	if len(roles) != 2 {
		t.Fatalf("Roles = %v, want 2 entries", roles)
	}

	if err := s.Delete(ctx, model.RoleCentral, "NAV1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := s.ReadAirframe(ctx, model.RoleCentral, nav1); ok {
		t.Fatalf("deleted record still readable")
	}
}

func TestPutRequiresCategory(t *testing.T) {
	s := openTestStore(t, 0, nil)
	if err := s.Put(context.Background(), model.RoleCentral, model.AirframeData{}); err == nil {
		t.Fatalf("expected Put without category to fail")
	}
}

func TestReadHonoursCancelledContext(t *testing.T) {
	s := openTestStore(t, 0, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, _, err := s.ReadAirframe(ctx, model.RoleCentral, nav1); err == nil {
		t.Fatalf("expected cancelled context to fail the read")
	}
}

func TestOpenRequiresPath(t *testing.T) {
	if _, err := Open(Config{}); err == nil {
		t.Fatalf("expected Open without path to fail")
	}
}

func TestPersistentStore(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := s.Put(ctx, model.RoleCentral, sampleRecord(time.Now())); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	s, err = Open(Config{Path: dir})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if _, ok, err := s.ReadAirframe(ctx, model.RoleCentral, nav1); !ok || err != nil {
		t.Fatalf("reopened store = ok %v err %v, want data", ok, err)
	}
}
