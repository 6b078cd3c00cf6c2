package valkey

import (
	"context"
	"fmt"
	"time"

	"github.com/valkey-io/valkey-go"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/samirrijal/trafficmap/internal/core/domain"
)

const sessionKeyPrefix = "session:"

// SessionStore implements ports.SessionStore. Sessions are msgpack blobs
// under session:<id> and expire with their TTL.
type SessionStore struct {
	client valkey.Client
}

// NewSessionStore shares the cache's client.
func NewSessionStore(c *Cache) *SessionStore {
	return &SessionStore{client: c.client}
}

func sessionKey(id string) string { return sessionKeyPrefix + id }

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	b, err := s.client.Do(ctx, s.client.B().Get().Key(sessionKey(id)).Build()).AsBytes()
	if valkey.IsValkeyNil(err) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", id, err)
	}

	sess, err := decodeSession(b)
	if err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return sess, nil
}

func (s *SessionStore) Put(ctx context.Context, sess *domain.Session, ttl time.Duration) error {
	b, err := encodeSession(sess)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", sess.ID, err)
	}
	cmd := s.client.B().Set().Key(sessionKey(sess.ID)).Value(valkey.BinaryString(b)).Ex(ttl).Build()
	if err := s.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("put session %s: %w", sess.ID, err)
	}
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	n, err := s.client.Do(ctx, s.client.B().Del().Key(sessionKey(id)).Build()).AsInt64()
	if err != nil {
		return fmt.Errorf("delete session %s: %w", id, err)
	}
	if n == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Count walks the keyspace with SCAN. It is only used for the sessions gauge.
func (s *SessionStore) Count(ctx context.Context) (int, error) {
	var (
		cursor uint64
		total  int
	)
	for {
		entry, err := s.client.Do(ctx,
			s.client.B().Scan().Cursor(cursor).Match(sessionKeyPrefix+"*").Count(500).Build(),
		).AsScanEntry()
		if err != nil {
			return 0, fmt.Errorf("scan sessions: %w", err)
		}
		total += len(entry.Elements)
		cursor = entry.Cursor
		if cursor == 0 {
			return total, nil
		}
	}
}

func encodeSession(sess *domain.Session) ([]byte, error) {
	return msgpack.Marshal(sess)
}

func decodeSession(b []byte) (*domain.Session, error) {
	var sess domain.Session
	if err := msgpack.Unmarshal(b, &sess); err != nil {
		return nil, err
	}
	// msgpack decodes timestamps into time.Local.
	sess.WorkingSet.Current.InUTC()
	sess.WorkingSet.Baseline.InUTC()
	sess.CreatedAt = sess.CreatedAt.UTC()
	sess.UpdatedAt = sess.UpdatedAt.UTC()
	return &sess, nil
}
