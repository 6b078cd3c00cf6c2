package usecases_test

import (
	"context"
	"math"
	"testing"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/usecases"
)

func newViews(t *testing.T) (*usecases.SessionService, *usecases.ViewService, string) {
	t.Helper()
	svc := newSessionService(nil)
	views := usecases.NewViewService(svc, domain.GeoPoint{Lat: 39.96, Lon: -82.99}, 10)
	sess, err := svc.Create(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	return svc, views, sess.ID
}

func TestViewService_GridPages(t *testing.T) {
	svc, views, id := newViews(t)
	ctx := context.Background()
	_, _ = svc.Generate(ctx, id, workday())

	rows, total, err := views.Grid(ctx, id, 1, 5)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if total != 3 {
		t.Errorf("expected total 3, got %d", total)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows after offset 1, got %d", len(rows))
	}
	if rows[0].DisplayTime != "03/01/2021 12:00 PM" {
		t.Errorf("unexpected display time %q", rows[0].DisplayTime)
	}

	rows, _, _ = views.Grid(ctx, id, 10, 5)
	if len(rows) != 0 {
		t.Errorf("expected empty page past the end, got %d", len(rows))
	}
}

func TestViewService_GridAbsent(t *testing.T) {
	_, views, id := newViews(t)
	rows, total, err := views.Grid(context.Background(), id, 0, 10)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Errorf("expected empty grid, got %d/%d", len(rows), total)
	}
}

func TestGridRowOf(t *testing.T) {
	row := usecases.GridRowOf(domain.Record{Time: at(0, 5), Speed: 1})
	if row.DisplayTime != "03/01/2021 12:05 AM" {
		t.Errorf("expected midnight as 12:05 AM, got %q", row.DisplayTime)
	}
	if usecases.GridRowOf(domain.Record{}).DisplayTime != "" {
		t.Error("expected blank display time for a missing timestamp")
	}
}

func TestViewService_MapAbsent(t *testing.T) {
	_, views, id := newViews(t)
	view, err := views.Map(context.Background(), id)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if view.State != domain.StateAbsent || len(view.Markers) != 0 {
		t.Errorf("expected empty absent map, got %+v", view)
	}
	if view.Viewport.Center != (domain.GeoPoint{Lat: 39.96, Lon: -82.99}) || view.Viewport.Zoom != 10 {
		t.Errorf("expected default viewport, got %+v", view.Viewport)
	}
	if view.Viewport.Bounds != nil {
		t.Error("default viewport should have no bounds")
	}
}

func TestViewService_MapPopulated(t *testing.T) {
	svc, views, id := newViews(t)
	ctx := context.Background()
	_, _ = svc.Refine(ctx, id, box()) // rejected: absent
	_, _ = svc.Generate(ctx, id, workday())
	_, _ = svc.Refine(ctx, id, box())

	view, err := views.Map(ctx, id)
	if err != nil {
		t.Fatalf("map: %v", err)
	}
	if len(view.Markers) != 2 {
		t.Fatalf("expected 2 markers, got %d", len(view.Markers))
	}
	b := view.Viewport.Bounds
	if b == nil || b.MinLat != 40.2 || b.MaxLat != 40.5 {
		t.Errorf("unexpected bounds %+v", b)
	}
	if math.Abs(view.Viewport.Center.Lat-40.35) > 1e-9 {
		t.Errorf("expected center lat 40.35, got %f", view.Viewport.Center.Lat)
	}
}

func TestFitViewport(t *testing.T) {
	point := usecases.FitViewport(domain.Bounds{MinLat: 40, MinLon: -83, MaxLat: 40, MaxLon: -83})
	if point.Zoom != 15 {
		t.Errorf("expected zoom 15 for a single point, got %f", point.Zoom)
	}

	city := usecases.FitViewport(domain.Bounds{MinLat: 39.9, MinLon: -83.1, MaxLat: 40.0, MaxLon: -82.9})
	state := usecases.FitViewport(domain.Bounds{MinLat: 38.4, MinLon: -84.8, MaxLat: 41.9, MaxLon: -80.5})
	if city.Zoom <= state.Zoom {
		t.Errorf("smaller extent should zoom in further: city=%f state=%f", city.Zoom, state.Zoom)
	}

	world := usecases.FitViewport(domain.Bounds{MinLat: -80, MinLon: -179, MaxLat: 80, MaxLon: 179})
	if world.Zoom < 1 {
		t.Errorf("zoom must not drop below 1, got %f", world.Zoom)
	}
}

func TestViewService_UnknownSession(t *testing.T) {
	_, views, _ := newViews(t)
	if _, err := views.Map(context.Background(), "nope"); err == nil {
		t.Error("expected error for unknown session")
	}
}
