package valkey

import (
	"testing"
	"time"

	"github.com/samirrijal/trafficmap/internal/core/domain"
)

func TestSessionCodec_RoundTrip(t *testing.T) {
	ts := time.Date(2021, 3, 1, 9, 30, 0, 0, time.UTC)
	base := domain.Table{
		{Time: ts, Speed: 31.5, Latitude: 40.1, Longitude: -83.2},
		{Time: ts.Add(time.Minute), Speed: 0, Latitude: 40.2, Longitude: -83.1},
	}
	in := &domain.Session{
		ID: "abc",
		WorkingSet: domain.WorkingSet{
			Current:   base[:1],
			Baseline:  base,
			Populated: true,
			Refined:   true,
		},
		Message:   domain.EmptyResultMessage,
		CreatedAt: ts,
		UpdatedAt: ts.Add(time.Hour),
	}

	b, err := encodeSession(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeSession(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if out.ID != in.ID || out.Message != in.Message {
		t.Errorf("expected %+v, got %+v", in, out)
	}
	if !out.WorkingSet.Current.Equal(in.WorkingSet.Current) {
		t.Errorf("current table changed: %+v", out.WorkingSet.Current)
	}
	if !out.WorkingSet.Baseline.Equal(in.WorkingSet.Baseline) {
		t.Errorf("baseline table changed: %+v", out.WorkingSet.Baseline)
	}
	if !out.WorkingSet.Populated || !out.WorkingSet.Refined {
		t.Errorf("flags lost: %+v", out.WorkingSet)
	}
	if !out.UpdatedAt.Equal(in.UpdatedAt) {
		t.Errorf("expected updated_at %s, got %s", in.UpdatedAt, out.UpdatedAt)
	}
}

func TestSessionCodec_KeepsWallClockUnderLocalZone(t *testing.T) {
	orig := time.Local
	time.Local = time.FixedZone("EST", -5*3600)
	defer func() { time.Local = orig }()

	ts := time.Date(2021, 3, 1, 9, 30, 0, 0, time.UTC)
	rows := domain.Table{{Time: ts, Speed: 20, Latitude: 40.1, Longitude: -83.2}}
	in := &domain.Session{
		ID:         "tz",
		WorkingSet: domain.WorkingSet{Current: rows, Baseline: rows, Populated: true},
	}

	b, err := encodeSession(in)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeSession(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	want := domain.NewTimeOfDay(9, 30, 0)
	for name, tbl := range map[string]domain.Table{"current": out.WorkingSet.Current, "baseline": out.WorkingSet.Baseline} {
		got := tbl[0].Time
		if got.Location() != time.UTC {
			t.Errorf("%s: expected UTC location, got %s", name, got.Location())
		}
		if c := domain.ClockOf(got); c != want {
			t.Errorf("%s: expected clock %s, got %s", name, want, c)
		}
	}

	window := domain.TimeRange{Start: domain.NewTimeOfDay(9, 0, 0), End: domain.NewTimeOfDay(17, 0, 0)}
	if !window.Contains(out.WorkingSet.Current[0].Time) {
		t.Error("decoded record fell outside the window it was generated with")
	}
}

func TestSessionCodec_AbsentWorkingSet(t *testing.T) {
	b, err := encodeSession(&domain.Session{ID: "empty"})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	out, err := decodeSession(b)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.WorkingSet.State() != domain.StateAbsent {
		t.Errorf("expected absent, got %s", out.WorkingSet.State())
	}
	if out.WorkingSet.Current.Len() != 0 {
		t.Errorf("expected no rows, got %d", out.WorkingSet.Current.Len())
	}
}

func TestSessionCodec_Garbage(t *testing.T) {
	if _, err := decodeSession([]byte{0xc1}); err == nil {
		t.Error("expected decode error")
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey("42"); got != "session:42" {
		t.Errorf("expected session:42, got %s", got)
	}
}
