package readout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signalsfoundry/efis-adapter/core"
	"github.com/signalsfoundry/efis-adapter/internal/feed"
	"github.com/signalsfoundry/efis-adapter/internal/sanitize"
	"github.com/signalsfoundry/efis-adapter/kb"
	"github.com/signalsfoundry/efis-adapter/model"
)

type fakeRecorder struct {
	mu     sync.Mutex
	counts map[string]int
}

func (r *fakeRecorder) ObserveReadout(instrument, status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[string]int)
	}
	r.counts[instrument+"/"+status]++
}

func (r *fakeRecorder) count(instrument string, st Status) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[instrument+"/"+string(st)]
}

type fixture struct {
	svc *Service
	gen *feed.MemoryGenerator
	ap  *feed.MemoryAutopilot
	rec *fakeRecorder
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	catalog, err := kb.NewCatalog(
		model.Category{ID: "NAV1", Name: "Primary", Valid: true},
		model.Category{ID: "NAV2", Name: "Standby", Valid: true},
		model.Category{ID: "NAV9", Name: "Retired", Valid: false},
	)
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	table := core.DefaultScalingTable()
	gen := feed.NewMemoryGenerator()
	ap := feed.NewMemoryAutopilot()
	rec := &fakeRecorder{}

	svc, err := NewService(Deps{
		Resolver:  core.NewCategoryResolver(catalog),
		Reader:    core.NewRedundantReader(gen, core.WithAttemptTimeout(50*time.Millisecond)),
		Splitter:  core.NewSplitter(table),
		NavModes:  core.NewNavModeResolver(ap, table, 50*time.Millisecond),
		Sanitizer: sanitize.NewHTML(0),
		Metrics:   rec,
		Catalog:   catalog,
		Version:   "test",
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return fixture{svc: svc, gen: gen, ap: ap, rec: rec}
}

func put(t *testing.T, gen *feed.MemoryGenerator, role model.SourceRole, rec model.AirframeData) {
	t.Helper()
	if err := gen.Put(context.Background(), role, rec); err != nil {
		t.Fatalf("Put %s: %v", role, err)
	}
}

func TestSpeed_CentralAirspeedScaled(t *testing.T) {
	f := newFixture(t)
	put(t, f.gen, model.RoleCentral, model.AirframeData{
		Category: "NAV1",
		Velocity: model.VelocityGroup{AirSpeedRaw: 250},
	})

	out, err := f.svc.Speed(context.Background(), "NAV1")
	if err != nil {
		t.Fatalf("Speed: %v", err)
	}
	if out.Status != StatusOK || out.Role != model.RoleCentral || out.CategoryID != "NAV1" {
		t.Fatalf("unexpected readout %+v", out)
	}
	if out.View.AirSpeed != 25.0 {
		t.Fatalf("AirSpeed = %v, want 25.0", out.View.AirSpeed)
	}
	if f.rec.count(InstrumentSpeed, StatusOK) != 1 {
		t.Fatalf("readout not recorded")
	}
}

func TestHSI_CopilotFallbackHeading(t *testing.T) {
	f := newFixture(t)
	put(t, f.gen, model.RoleCopilot, model.AirframeData{
		Category:  "NAV1",
		Situation: model.SituationGroup{HeadingRaw: 900},
	})

	out, err := f.svc.HSI(context.Background(), "NAV1")
	if err != nil {
		t.Fatalf("HSI: %v", err)
	}
	if out.Status != StatusOK || out.Role != model.RoleCopilot {
		t.Fatalf("readout = %+v, want ok from copilot", out)
	}
	if out.View.Heading != 90.0 {
		t.Fatalf("Heading = %v, want 90.0", out.View.Heading)
	}
}

func TestRejectedCategoryIsSanitized(t *testing.T) {
	f := newFixture(t)
	raw := "<img src=x>"

	out, err := f.svc.VSI(context.Background(), raw)
	var rejected *RejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("err = %v, want *RejectedError", err)
	}
	if !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory in chain", err)
	}
	if out.Status != StatusRejected {
		t.Fatalf("Status = %s, want rejected", out.Status)
	}
	for _, s := range []string{out.CategoryID, rejected.CategoryID, err.Error()} {
		if strings.Contains(s, "<img") || strings.Contains(s, "<") {
			t.Fatalf("unsanitized identifier leaked: %q", s)
		}
	}
}

func TestDisabledCategoryRejected(t *testing.T) {
	f := newFixture(t)
	put(t, f.gen, model.RoleCentral, model.AirframeData{Category: "NAV9"})
	if _, err := f.svc.Speed(context.Background(), "NAV9"); !errors.Is(err, core.ErrUnknownCategory) {
		t.Fatalf("err = %v, want ErrUnknownCategory", err)
	}
}

func TestDegradedStatuses(t *testing.T) {
	f := newFixture(t)

	out, err := f.svc.VSI(context.Background(), "NAV2")
	if err != nil || out.Status != StatusNoData || out.Role != "" {
		t.Fatalf("both absent = %+v err %v, want no_data", out, err)
	}
	if out.View != nil {
		t.Fatalf("no_data readout carries values: %+v", *out.View)
	}

	f.gen.Fail(model.RoleCentral, errors.New("central bus fault"))
	f.gen.Fail(model.RoleCopilot, errors.New("copilot bus fault"))
	out, err = f.svc.VSI(context.Background(), "NAV2")
	if err != nil || out.Status != StatusSourcesFailed {
		t.Fatalf("both errored = %+v err %v, want sources_failed", out, err)
	}
	if out.View != nil {
		t.Fatalf("sources_failed readout carries values: %+v", *out.View)
	}
	b, err := json.Marshal(out)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if strings.Contains(string(b), `"view"`) {
		t.Fatalf("degraded readout serialized a view: %s", b)
	}

	speed, err := f.svc.Speed(context.Background(), "NAV2")
	if err != nil || speed.Status != StatusSourcesFailed || speed.View != nil {
		t.Fatalf("speed readout = %+v err %v, want sources_failed without view", speed, err)
	}
	nav, err := f.svc.NavMode(context.Background(), "NAV2")
	if err != nil || nav.Status != StatusNavUnavailable || nav.View != nil {
		t.Fatalf("nav readout = %+v err %v, want nav_unavailable without view", nav, err)
	}
	rejected, _ := f.svc.HSI(context.Background(), "NAV7")
	if rejected.Status != StatusRejected || rejected.View != nil {
		t.Fatalf("rejected readout = %+v, want no view", rejected)
	}
	if f.rec.count(InstrumentVSI, StatusSourcesFailed) != 1 {
		t.Fatalf("sources_failed not recorded")
	}
}

func TestCancelledRequest(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.svc.HSI(ctx, "NAV1"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestInclinometerBySensorKey(t *testing.T) {
	f := newFixture(t)
	put(t, f.gen, model.RoleCentral, feed.Frame("NAV1", 12, time.Now(), 0, 0))

	all, err := f.svc.Inclinometer(context.Background(), "NAV1", "")
	if err != nil || all.Status != StatusOK || all.View == nil || len(*all.View) != 2 {
		t.Fatalf("all arrays = %+v err %v", all, err)
	}

	left, err := f.svc.Inclinometer(context.Background(), "NAV1", "left")
	if err != nil || left.Status != StatusOK || left.View == nil || len(*left.View) != 1 || (*left.View)[0].SensorArray != "left" {
		t.Fatalf("left array = %+v err %v", left, err)
	}
	if left.SensorKey != "left" {
		t.Fatalf("SensorKey = %q, want left", left.SensorKey)
	}

	missing, err := f.svc.Inclinometer(context.Background(), "NAV1", "<b>tail</b>")
	if err != nil {
		t.Fatalf("Inclinometer: %v", err)
	}
	if missing.Status != StatusNoData || missing.Role != "" || missing.View != nil {
		t.Fatalf("unmatched key = %+v, want no_data without view", missing)
	}
	if missing.SensorKey != "tail" {
		t.Fatalf("SensorKey = %q, want sanitized tail", missing.SensorKey)
	}
}

func TestNavMode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	out, err := f.svc.NavMode(ctx, "NAV1")
	if err != nil || out.Status != StatusNavUnavailable {
		t.Fatalf("no autopilot state = %+v err %v, want nav_unavailable", out, err)
	}

	// Airframe outages do not affect the autopilot path.
	f.gen.Fail(model.RoleCentral, errors.New("down"))
	f.gen.Fail(model.RoleCopilot, errors.New("down"))
	if err := f.ap.Upsert(ctx, model.APSystemState{
		Category:              "NAV1",
		Engaged:               true,
		NavMode:               model.NavModeLNAV,
		VerticalDeviationRaw:  40,
		VerticalGuidanceValid: true,
	}); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	out, err = f.svc.NavMode(ctx, "NAV1")
	if err != nil {
		t.Fatalf("NavMode: %v", err)
	}
	want := model.NavModeView{Mode: "LNAV", Code: 2, Engaged: true, HasVerticalGuidance: true, VerticalDeviation: 40}
	if diff := cmp.Diff(&want, out.View); diff != "" {
		t.Fatalf("view mismatch (-want +got):\n%s", diff)
	}
	if out.Role != "" {
		t.Fatalf("nav mode readout should not name an airframe role, got %s", out.Role)
	}
}

func TestAbout(t *testing.T) {
	f := newFixture(t)
	a := f.svc.About()
	if a.Version != "test" || a.Categories != 3 {
		t.Fatalf("About = %+v", a)
	}
	if diff := cmp.Diff([]string{"central", "copilot"}, a.Roles); diff != "" {
		t.Fatalf("roles (-want +got):\n%s", diff)
	}
}

func TestNewServiceRequiresCollaborators(t *testing.T) {
	if _, err := NewService(Deps{}); err == nil {
		t.Fatalf("expected error for empty deps")
	}
}

func TestConcurrentReadouts(t *testing.T) {
	f := newFixture(t)
	put(t, f.gen, model.RoleCentral, feed.Frame("NAV1", 1, time.Now(), 0, 0))
	put(t, f.gen, model.RoleCopilot, feed.Frame("NAV2", 1, time.Now(), 1, 1))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id, role := "NAV1", model.RoleCentral
			if i%2 == 1 {
				id, role = "NAV2", model.RoleCopilot
			}
			out, err := f.svc.Speed(context.Background(), id)
			if err != nil || out.Role != role {
				t.Errorf("%s readout = %+v err %v", id, out, err)
			}
		}(i)
	}
	wg.Wait()
}
