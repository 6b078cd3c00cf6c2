package usecases_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/samirrijal/trafficmap/internal/adapters/memory"
	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/ports"
	"github.com/samirrijal/trafficmap/internal/core/usecases"
)

// --- Mocks ---

type mockPublisher struct {
	mu        sync.Mutex
	events    []domain.SessionEvent
	publishFn func(ctx context.Context, e *domain.SessionEvent) error
}

func (m *mockPublisher) PublishSessionEvent(ctx context.Context, e *domain.SessionEvent) error {
	m.mu.Lock()
	m.events = append(m.events, *e)
	m.mu.Unlock()
	if m.publishFn != nil {
		return m.publishFn(ctx, e)
	}
	return nil
}

type mockStore struct {
	getFn    func(ctx context.Context, id string) (*domain.Session, error)
	putFn    func(ctx context.Context, s *domain.Session, ttl time.Duration) error
	deleteFn func(ctx context.Context, id string) error
}

func (m *mockStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, id)
	}
	return nil, domain.ErrSessionNotFound
}

func (m *mockStore) Put(ctx context.Context, s *domain.Session, ttl time.Duration) error {
	if m.putFn != nil {
		return m.putFn(ctx, s, ttl)
	}
	return nil
}

func (m *mockStore) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockStore) Count(ctx context.Context) (int, error) { return 0, nil }

// --- Fixtures ---

func at(hour, minute int) time.Time {
	return time.Date(2021, 3, 1, hour, minute, 0, 0, time.UTC)
}

func str(s string) *string { return &s }

// table has three rows between 9AM and 5PM, two of them inside box().
var table = domain.Table{
	{Time: at(8, 30), Speed: 10, Latitude: 40.5, Longitude: -83.5},
	{Time: at(9, 0), Speed: 20, Latitude: 40.5, Longitude: -83.5},
	{Time: at(12, 0), Speed: 30, Latitude: 39.5, Longitude: -82.5},
	{Time: at(17, 0), Speed: 40, Latitude: 40.2, Longitude: -83.2},
	{Time: at(18, 0), Speed: 50, Latitude: 40.2, Longitude: -83.2},
}

func workday() domain.FormFields {
	return domain.FormFields{
		StartTime: domain.ClockField{Hour: str("9"), Minute: str("00"), Period: str("AM")},
		EndTime:   domain.ClockField{Hour: str("5"), Minute: str("00"), Period: str("PM")},
	}
}

func night() domain.FormFields {
	return domain.FormFields{
		StartTime: domain.ClockField{Hour: str("1"), Minute: str("00"), Period: str("AM")},
		EndTime:   domain.ClockField{Hour: str("2"), Minute: str("00"), Period: str("AM")},
	}
}

func box() domain.FormFields {
	return domain.FormFields{
		Selection: &domain.Selection{Range: &domain.SelectionRange{
			Mapbox: [][]float64{{-84, 41}, {-83, 40}},
		}},
	}
}

func newSessionService(pub *mockPublisher) *usecases.SessionService {
	var p ports.EventPublisher
	if pub != nil {
		p = pub
	}
	return usecases.NewSessionService(
		usecases.NewStaticDatasetService(table),
		memory.NewSessionStore(),
		p,
		time.Hour,
	)
}

// --- Tests ---

func TestSessionService_CreateIsAbsent(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sess.ID == "" {
		t.Fatal("expected generated ID")
	}
	if sess.WorkingSet.State() != domain.StateAbsent {
		t.Errorf("expected absent, got %s", sess.WorkingSet.State())
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != sess.ID {
		t.Errorf("expected %s, got %s", sess.ID, got.ID)
	}
}

func TestSessionService_Lifecycle(t *testing.T) {
	pub := &mockPublisher{}
	svc := newSessionService(pub)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	s, err := svc.Generate(ctx, sess.ID, workday())
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if s.WorkingSet.Current.Len() != 3 || !s.WorkingSet.Baseline.Equal(s.WorkingSet.Current) {
		t.Fatalf("after generate: %+v", s.WorkingSet)
	}

	s, err = svc.Refine(ctx, sess.ID, box())
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if s.WorkingSet.Current.Len() != 2 || s.WorkingSet.Baseline.Len() != 3 {
		t.Fatalf("after refine: current=%d baseline=%d", s.WorkingSet.Current.Len(), s.WorkingSet.Baseline.Len())
	}

	s, err = svc.Reset(ctx, sess.ID)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.WorkingSet.Current.Len() != 3 || s.WorkingSet.Refined {
		t.Fatalf("after reset: %+v", s.WorkingSet)
	}

	s, err = svc.Reset(ctx, sess.ID)
	if err != nil {
		t.Fatalf("second reset: %v", err)
	}
	if s.WorkingSet.State() != domain.StateAbsent {
		t.Fatalf("expected absent after second reset, got %s", s.WorkingSet.State())
	}

	if _, err := svc.Reset(ctx, sess.ID); !errors.Is(err, domain.ErrMissingBaseline) {
		t.Errorf("expected ErrMissingBaseline, got %v", err)
	}

	if len(pub.events) != 4 {
		t.Fatalf("expected 4 events, got %d", len(pub.events))
	}
	want := []domain.Action{domain.ActionGenerate, domain.ActionRefine, domain.ActionReset, domain.ActionReset}
	for i, e := range pub.events {
		if e.Action != want[i] || e.SessionID != sess.ID {
			t.Errorf("event %d: expected %s for %s, got %+v", i, want[i], sess.ID, e)
		}
	}
	if pub.events[1].Rows != 2 {
		t.Errorf("expected refine event with 2 rows, got %d", pub.events[1].Rows)
	}
}

func TestSessionService_EmptyResult(t *testing.T) {
	pub := &mockPublisher{}
	svc := newSessionService(pub)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	_, _ = svc.Generate(ctx, sess.ID, workday())

	s, err := svc.Refine(ctx, sess.ID, night())
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if s == nil {
		t.Fatal("expected session alongside empty result")
	}
	if s.Message != domain.EmptyResultMessage {
		t.Errorf("expected message %q, got %q", domain.EmptyResultMessage, s.Message)
	}
	if s.WorkingSet.Current.Len() != 3 || s.WorkingSet.Refined {
		t.Errorf("working set changed: %+v", s.WorkingSet)
	}

	stored, _ := svc.Get(ctx, sess.ID)
	if stored.Message != domain.EmptyResultMessage {
		t.Errorf("message not persisted: %q", stored.Message)
	}

	s, err = svc.Refine(ctx, sess.ID, box())
	if err != nil {
		t.Fatalf("refine: %v", err)
	}
	if s.Message != "" {
		t.Errorf("expected message cleared, got %q", s.Message)
	}
}

func TestSessionService_EmptyGenerateFromAbsent(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	s, err := svc.Generate(ctx, sess.ID, night())
	if !errors.Is(err, domain.ErrEmptyResult) {
		t.Fatalf("expected ErrEmptyResult, got %v", err)
	}
	if s.WorkingSet.State() != domain.StateAbsent {
		t.Errorf("expected absent, got %s", s.WorkingSet.State())
	}
}

func TestSessionService_RefineFromAbsent(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	s, err := svc.Refine(ctx, sess.ID, box())
	if !errors.Is(err, domain.ErrMissingBaseline) {
		t.Fatalf("expected ErrMissingBaseline, got %v", err)
	}
	if s != nil {
		t.Errorf("expected nil session, got %+v", s)
	}
}

func TestSessionService_InvalidField(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	f := workday()
	f.StartTime.Minute = str("75")
	if _, err := svc.Generate(ctx, sess.ID, f); !errors.Is(err, domain.ErrInvalidField) {
		t.Errorf("expected ErrInvalidField, got %v", err)
	}
}

func TestSessionService_UnknownSession(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()

	if _, err := svc.Generate(ctx, "nope", workday()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("generate: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Reset(ctx, "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("reset: expected ErrSessionNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, "nope"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("delete: expected ErrSessionNotFound, got %v", err)
	}
	if _, err := svc.Controls(ctx, "nope", workday()); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("controls: expected ErrSessionNotFound, got %v", err)
	}
}

func TestSessionService_PublisherFailureIsNotFatal(t *testing.T) {
	pub := &mockPublisher{
		publishFn: func(ctx context.Context, e *domain.SessionEvent) error {
			return errors.New("nats down")
		},
	}
	svc := newSessionService(pub)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	if _, err := svc.Generate(ctx, sess.ID, workday()); err != nil {
		t.Fatalf("expected success despite publish failure, got %v", err)
	}
}

func TestSessionService_StoreFailure(t *testing.T) {
	storeErr := errors.New("valkey down")
	store := &mockStore{
		getFn: func(ctx context.Context, id string) (*domain.Session, error) {
			return &domain.Session{ID: id}, nil
		},
		putFn: func(ctx context.Context, s *domain.Session, ttl time.Duration) error {
			return storeErr
		},
	}
	svc := usecases.NewSessionService(usecases.NewStaticDatasetService(table), store, nil, time.Hour)

	if _, err := svc.Generate(context.Background(), "s1", workday()); !errors.Is(err, storeErr) {
		t.Errorf("expected store error, got %v", err)
	}
}

func TestSessionService_PutUsesTTL(t *testing.T) {
	var gotTTL time.Duration
	store := &mockStore{
		putFn: func(ctx context.Context, s *domain.Session, ttl time.Duration) error {
			gotTTL = ttl
			return nil
		},
	}
	svc := usecases.NewSessionService(usecases.NewStaticDatasetService(table), store, nil, 15*time.Minute)

	if _, err := svc.Create(context.Background()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if gotTTL != 15*time.Minute {
		t.Errorf("expected 15m ttl, got %s", gotTTL)
	}
}

func TestSessionService_DatasetNotLoaded(t *testing.T) {
	svc := usecases.NewSessionService(usecases.NewDatasetService(nil, nil), memory.NewSessionStore(), nil, time.Hour)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	if _, err := svc.Generate(ctx, sess.ID, workday()); !errors.Is(err, domain.ErrDatasetUnavailable) {
		t.Errorf("expected ErrDatasetUnavailable, got %v", err)
	}
}

func TestSessionService_Controls(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)

	ctrl, err := svc.Controls(ctx, sess.ID, box())
	if err != nil {
		t.Fatalf("controls: %v", err)
	}
	if !ctrl.Generate || ctrl.Refine || ctrl.Reset {
		t.Errorf("absent session: %+v", ctrl)
	}

	_, _ = svc.Generate(ctx, sess.ID, workday())
	ctrl, _ = svc.Controls(ctx, sess.ID, domain.FormFields{})
	if ctrl.Generate || ctrl.Refine || !ctrl.Reset {
		t.Errorf("populated session with empty form: %+v", ctrl)
	}
}

func TestSessionService_ConcurrentActions(t *testing.T) {
	svc := newSessionService(nil)
	ctx := context.Background()
	sess, _ := svc.Create(ctx)
	_, _ = svc.Generate(ctx, sess.ID, workday())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, _ = svc.Refine(ctx, sess.ID, box())
			} else {
				_, _ = svc.Generate(ctx, sess.ID, workday())
			}
		}(i)
	}
	wg.Wait()

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WorkingSet.Baseline.Len() != 3 {
		t.Errorf("baseline corrupted: %d rows", got.WorkingSet.Baseline.Len())
	}
	if n := got.WorkingSet.Current.Len(); n != 2 && n != 3 {
		t.Errorf("unexpected current size %d", n)
	}
}

func TestSessionService_PublishDoesNotHoldSessionLock(t *testing.T) {
	ctx := context.Background()
	var (
		svc     *usecases.SessionService
		once    sync.Once
		blocked bool
	)
	pub := &mockPublisher{}
	pub.publishFn = func(ctx context.Context, e *domain.SessionEvent) error {
		once.Do(func() {
			done := make(chan error, 1)
			go func() {
				_, err := svc.Reset(ctx, e.SessionID)
				done <- err
			}()
			select {
			case err := <-done:
				if err != nil {
					t.Errorf("reset during publish: %v", err)
				}
			case <-time.After(2 * time.Second):
				blocked = true
			}
		})
		return nil
	}
	svc = newSessionService(pub)

	sess, err := svc.Create(ctx)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Generate(ctx, sess.ID, workday()); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if blocked {
		t.Fatal("a second action on the session waited for the event publish")
	}

	got, err := svc.Get(ctx, sess.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.WorkingSet.State() != domain.StateAbsent {
		t.Errorf("expected the nested reset to clear the set, got %s", got.WorkingSet.State())
	}
}
