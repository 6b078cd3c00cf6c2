package usecases_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/usecases"
)

func TestSummarize(t *testing.T) {
	sum := usecases.Summarize(table)

	if sum.Rows != 5 {
		t.Errorf("expected 5 rows, got %d", sum.Rows)
	}
	if sum.FirstTime == nil || !sum.FirstTime.Equal(at(8, 30)) {
		t.Errorf("unexpected first time %v", sum.FirstTime)
	}
	if sum.LastTime == nil || !sum.LastTime.Equal(at(18, 0)) {
		t.Errorf("unexpected last time %v", sum.LastTime)
	}
	if sum.Extent == nil || sum.Extent.MinLat != 39.5 || sum.Extent.MaxLon != -82.5 {
		t.Errorf("unexpected extent %+v", sum.Extent)
	}

	s := sum.Speed
	if s == nil {
		t.Fatal("expected speed stats")
	}
	if s.Mean != 30 || s.Min != 10 || s.Max != 50 || s.P50 != 30 || s.P95 != 50 {
		t.Errorf("unexpected speed stats %+v", s)
	}
}

func TestSummarize_Empty(t *testing.T) {
	sum := usecases.Summarize(nil)
	if sum.Rows != 0 || sum.Speed != nil || sum.Extent != nil || sum.FirstTime != nil {
		t.Errorf("expected bare summary, got %+v", sum)
	}
}

// --- DatasetService ---

type mockSource struct {
	loadFn func(ctx context.Context) (domain.Table, error)
	calls  int
}

func (m *mockSource) Load(ctx context.Context) (domain.Table, error) {
	m.calls++
	if m.loadFn != nil {
		return m.loadFn(ctx)
	}
	return nil, nil
}

func (m *mockSource) Describe() string { return "mock" }

type mockCache struct {
	data map[string][]byte
	gets int
}

func newMockCache() *mockCache { return &mockCache{data: map[string][]byte{}} }

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.gets++
	if b, ok := m.data[key]; ok {
		return b, nil
	}
	return nil, errors.New("miss")
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	m.data[key] = value
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

func TestDatasetService_Load(t *testing.T) {
	src := &mockSource{loadFn: func(ctx context.Context) (domain.Table, error) { return table, nil }}
	svc := usecases.NewDatasetService(src, nil)

	if _, err := svc.Table(); !errors.Is(err, domain.ErrDatasetUnavailable) {
		t.Errorf("expected ErrDatasetUnavailable before load, got %v", err)
	}
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, err := svc.Table()
	if err != nil || got.Len() != 5 {
		t.Errorf("expected 5 rows, got %d (%v)", got.Len(), err)
	}
	if ok, _ := svc.Loaded(); !ok {
		t.Error("expected loaded")
	}
}

func TestDatasetService_LoadNormalisesToUTC(t *testing.T) {
	cest := time.FixedZone("CEST", 2*3600)
	src := &mockSource{loadFn: func(ctx context.Context) (domain.Table, error) {
		return domain.Table{
			{Time: time.Date(2021, 3, 1, 9, 30, 0, 0, cest), Speed: 20, Latitude: 40.1, Longitude: -83.2},
			{Time: time.Date(2021, 3, 2, 1, 15, 0, 0, cest), Speed: 25, Latitude: 40.2, Longitude: -83.1},
		}, nil
	}}
	svc := usecases.NewDatasetService(src, nil)
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	got, _ := svc.Table()

	if got[0].Time.Location() != time.UTC {
		t.Errorf("expected UTC location, got %s", got[0].Time.Location())
	}
	if c := domain.ClockOf(got[0].Time); c != domain.NewTimeOfDay(7, 30, 0) {
		t.Errorf("expected clock 07:30:00, got %s", c)
	}
	// 01:15 CEST on the 2nd is 23:15 UTC on the 1st.
	if d := domain.DateOf(got[1].Time); d.String() != "2021-03-01" {
		t.Errorf("expected date 2021-03-01, got %s", d)
	}
}

func TestDatasetService_LoadError(t *testing.T) {
	boom := errors.New("disk gone")
	src := &mockSource{loadFn: func(ctx context.Context) (domain.Table, error) { return nil, boom }}
	svc := usecases.NewDatasetService(src, nil)

	if err := svc.Load(context.Background()); !errors.Is(err, boom) {
		t.Errorf("expected wrapped source error, got %v", err)
	}
	if ok, _ := svc.Loaded(); ok {
		t.Error("failed load must not mark the dataset loaded")
	}
}

func TestDatasetService_SummaryCached(t *testing.T) {
	src := &mockSource{loadFn: func(ctx context.Context) (domain.Table, error) { return table, nil }}
	cache := newMockCache()
	svc := usecases.NewDatasetService(src, cache)
	ctx := context.Background()
	_ = svc.Load(ctx)

	first, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if len(cache.data) != 1 {
		t.Fatalf("expected summary cached, got %d keys", len(cache.data))
	}
	second, err := svc.Summary(ctx)
	if err != nil {
		t.Fatalf("cached summary: %v", err)
	}
	if second.Rows != first.Rows || second.Speed.Mean != first.Speed.Mean {
		t.Errorf("cached summary differs: %+v vs %+v", second, first)
	}

	_ = svc.Load(ctx)
	if len(cache.data) != 0 {
		t.Error("reload should drop the cached summary")
	}
}
