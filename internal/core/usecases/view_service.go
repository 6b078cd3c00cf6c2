package usecases

import (
	"context"
	"math"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/pkg/geospatial"
)

// DisplayTimeLayout is how the grid shows record timestamps.
const DisplayTimeLayout = "01/02/2006 03:04 PM"

// equatorMeters is the Earth's circumference, used to fit the map zoom.
const equatorMeters = 40075016.686

// ViewService renders a session's working set for the grid and the map.
type ViewService struct {
	sessions      *SessionService
	defaultCenter domain.GeoPoint
	defaultZoom   float64
}

// NewViewService creates a new ViewService. The default center and zoom
// are used when the working set is absent.
func NewViewService(sessions *SessionService, defaultCenter domain.GeoPoint, defaultZoom float64) *ViewService {
	return &ViewService{sessions: sessions, defaultCenter: defaultCenter, defaultZoom: defaultZoom}
}

// Grid returns one page of the session's current table plus its total size.
// An absent working set yields an empty page.
func (s *ViewService) Grid(ctx context.Context, id string, offset, limit int) ([]domain.GridRow, int, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	table := sess.WorkingSet.Current
	total := table.Len()
	if offset >= total {
		return []domain.GridRow{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	rows := make([]domain.GridRow, 0, end-offset)
	for _, r := range table[offset:end] {
		rows = append(rows, GridRowOf(r))
	}
	return rows, total, nil
}

// GridRowOf formats a record for the data table.
func GridRowOf(r domain.Record) domain.GridRow {
	row := domain.GridRow{Record: r}
	if r.HasTime() {
		row.DisplayTime = r.Time.Format(DisplayTimeLayout)
	}
	return row
}

// Map returns the markers and camera for the session's current table.
func (s *ViewService) Map(ctx context.Context, id string) (*domain.MapView, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	ws := sess.WorkingSet
	view := &domain.MapView{
		State:    ws.State(),
		Markers:  []domain.Marker{},
		Viewport: domain.Viewport{Center: s.defaultCenter, Zoom: s.defaultZoom},
	}
	if !ws.Populated {
		return view, nil
	}

	for _, r := range ws.Current {
		if !r.HasLocation() {
			continue
		}
		view.Markers = append(view.Markers, domain.Marker{
			Lat:   r.Latitude,
			Lon:   r.Longitude,
			Speed: r.Speed,
			Time:  r.Time,
		})
	}
	if b, ok := ws.Current.Extent(); ok {
		view.Viewport = FitViewport(b)
	}
	return view, nil
}

// Summary describes the session's current table.
func (s *ViewService) Summary(ctx context.Context, id string) (*domain.Summary, error) {
	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return Summarize(sess.WorkingSet.Current), nil
}

// FitViewport centres the camera on b and picks a zoom level at which the
// box's diagonal roughly fills the view.
func FitViewport(b domain.Bounds) domain.Viewport {
	diag := geospatial.Haversine(b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)

	zoom := 15.0
	if diag > 0 {
		zoom = math.Log2(equatorMeters / diag)
	}
	zoom = math.Max(1, math.Min(18, math.Floor(zoom*10)/10))

	return domain.Viewport{Center: b.Center(), Zoom: zoom, Bounds: &b}
}
