package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/trafficmap/internal/core/domain"
	"github.com/samirrijal/trafficmap/internal/core/filter"
	"github.com/samirrijal/trafficmap/internal/core/ports"
	"github.com/samirrijal/trafficmap/internal/core/predicate"
	"github.com/samirrijal/trafficmap/internal/core/workingset"
	"github.com/samirrijal/trafficmap/internal/pkg/metrics"
)

var tracer = otel.Tracer("github.com/samirrijal/trafficmap/internal/core/usecases")

// SessionService drives the per-session working-set state machine.
type SessionService struct {
	dataset   *DatasetService
	store     ports.SessionStore
	publisher ports.EventPublisher
	ttl       time.Duration
	locks     *sessionLocks
	now       func() time.Time
}

// NewSessionService creates a new SessionService. publisher may be nil.
func NewSessionService(
	dataset *DatasetService,
	store ports.SessionStore,
	publisher ports.EventPublisher,
	ttl time.Duration,
) *SessionService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionService{
		dataset:   dataset,
		store:     store,
		publisher: publisher,
		ttl:       ttl,
		locks:     newSessionLocks(),
		now:       time.Now,
	}
}

// Create starts a new session with an absent working set.
func (s *SessionService) Create(ctx context.Context) (*domain.Session, error) {
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.Put(ctx, sess, s.ttl); err != nil {
		return nil, fmt.Errorf("store session: %w", err)
	}
	s.refreshActiveGauge(ctx)
	return sess, nil
}

// Get returns a session by ID.
func (s *SessionService) Get(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Get(ctx, id)
}

// Delete drops a session.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.lock(id)
	defer unlock()

	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.refreshActiveGauge(ctx)
	return nil
}

// Controls reports which buttons the dashboard should enable. An empty id
// is treated as a session with no working set.
func (s *SessionService) Controls(ctx context.Context, id string, fields domain.FormFields) (domain.Controls, error) {
	populated := false
	if id != "" {
		sess, err := s.store.Get(ctx, id)
		if err != nil {
			return domain.Controls{}, err
		}
		populated = sess.WorkingSet.Populated
	}
	return predicate.Controls(fields, populated), nil
}

// Generate filters the base dataset with the given fields and makes the
// result the session's current table and baseline.
//
// When the filter matches nothing the session is returned alongside
// domain.ErrEmptyResult: its working set is unchanged and its message slot
// holds domain.EmptyResultMessage.
func (s *SessionService) Generate(ctx context.Context, id string, fields domain.FormFields) (*domain.Session, error) {
	base, err := s.dataset.Table()
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, id, domain.ActionGenerate, fields, func(ws domain.WorkingSet, p filter.Predicates) (domain.WorkingSet, error) {
		return workingset.Generate(ws, base, p)
	})
}

// Refine narrows the session's current table. The baseline is kept.
func (s *SessionService) Refine(ctx context.Context, id string, fields domain.FormFields) (*domain.Session, error) {
	return s.apply(ctx, id, domain.ActionRefine, fields, workingset.Refine)
}

// Reset restores the baseline after a refine, or clears the working set
// when there is nothing to undo.
func (s *SessionService) Reset(ctx context.Context, id string) (*domain.Session, error) {
	return s.apply(ctx, id, domain.ActionReset, domain.FormFields{}, func(ws domain.WorkingSet, _ filter.Predicates) (domain.WorkingSet, error) {
		return workingset.Reset(ws)
	})
}

type transition func(domain.WorkingSet, filter.Predicates) (domain.WorkingSet, error)

func (s *SessionService) apply(
	ctx context.Context,
	id string,
	action domain.Action,
	fields domain.FormFields,
	next transition,
) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "session."+string(action))
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", id),
		attribute.String("session.action", string(action)),
	)

	preds, err := predicate.Build(fields)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		metrics.WorkingSetActions.WithLabelValues(string(action), "invalid").Inc()
		return nil, err
	}

	sess, err := s.commit(ctx, id, action, preds, next)
	if sess == nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.String("session.state", string(sess.WorkingSet.State())),
		attribute.Int("session.rows", sess.WorkingSet.Current.Len()),
	)
	slog.DebugContext(ctx, "working set updated",
		"session_id", id,
		"action", action,
		"state", sess.WorkingSet.State(),
		"rows", sess.WorkingSet.Current.Len(),
		"empty_result", err != nil,
	)

	// Published outside the session lock.
	s.publish(ctx, sess, action)
	return sess, err
}

// commit runs next against the stored working set and saves the outcome
// while holding the session's lock. An empty result still returns the
// session, carrying the message, together with domain.ErrEmptyResult.
func (s *SessionService) commit(
	ctx context.Context,
	id string,
	action domain.Action,
	preds filter.Predicates,
	next transition,
) (*domain.Session, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	ws, err := next(sess.WorkingSet, preds)
	metrics.FilterDuration.WithLabelValues(string(action)).Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, domain.ErrEmptyResult):
		sess.Message = domain.EmptyResultMessage
		metrics.WorkingSetActions.WithLabelValues(string(action), "empty").Inc()
	case err != nil:
		metrics.WorkingSetActions.WithLabelValues(string(action), "rejected").Inc()
		return nil, err
	default:
		sess.WorkingSet = ws
		sess.Message = ""
		metrics.WorkingSetActions.WithLabelValues(string(action), "ok").Inc()
		metrics.WorkingSetRows.WithLabelValues(string(action)).Observe(float64(ws.Current.Len()))
	}

	sess.UpdatedAt = s.now()
	if perr := s.store.Put(ctx, sess, s.ttl); perr != nil {
		return nil, fmt.Errorf("store session: %w", perr)
	}
	return sess, err
}

func (s *SessionService) publish(ctx context.Context, sess *domain.Session, action domain.Action) {
	if s.publisher == nil {
		return
	}
	event := &domain.SessionEvent{
		SessionID: sess.ID,
		Action:    action,
		State:     sess.WorkingSet.State(),
		Rows:      sess.WorkingSet.Current.Len(),
		Message:   sess.Message,
		Time:      sess.UpdatedAt,
	}
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "publish session event failed", "session_id", sess.ID, "error", err)
	}
}

// Sweep refreshes the active sessions gauge. Stores that expire lazily drop
// stale sessions while counting.
func (s *SessionService) Sweep(ctx context.Context) {
	s.refreshActiveGauge(ctx)
}

func (s *SessionService) refreshActiveGauge(ctx context.Context) {
	if n, err := s.store.Count(ctx); err == nil {
		metrics.ActiveSessions.Set(float64(n))
	}
}

// sessionLocks serialises actions per session while letting different
// sessions proceed in parallel.
type sessionLocks struct {
	mu sync.Mutex
	m  map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{m: make(map[string]*sessionLock)}
}

func (l *sessionLocks) lock(id string) func() {
	l.mu.Lock()
	sl, ok := l.m[id]
	if !ok {
		sl = &sessionLock{}
		l.m[id] = sl
	}
	sl.refs++
	l.mu.Unlock()

	sl.mu.Lock()
	return func() {
		sl.mu.Unlock()
		l.mu.Lock()
		sl.refs--
		if sl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}
