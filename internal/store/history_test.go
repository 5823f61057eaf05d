package store

import (
	"testing"
	"time"

	"spotiui/internal/models"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestInsertAndRecentPlays(t *testing.T) {
	s := newTestStore(t)

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"First", "Second", "Third"} {
		err := s.InsertPlay(&models.PlayRecord{
			ConnectionID: "conn-1",
			TrackID:      title,
			Title:        title,
			Artist:       "Artist",
			Album:        "Album",
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.RecentPlays(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 3 {
		t.Fatalf("got %d records, want 3", len(recs))
	}
	if recs[0].Title != "Third" {
		t.Errorf("newest first: got %q, want Third", recs[0].Title)
	}
	if recs[0].ID == 0 {
		t.Error("id should be assigned")
	}
}

func TestRecentPlaysLimit(t *testing.T) {
	s := newTestStore(t)

	for i := 0; i < 5; i++ {
		err := s.InsertPlay(&models.PlayRecord{
			ConnectionID: "c",
			TrackID:      "t",
			Title:        "t",
			StartedAt:    time.Now().UTC(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	recs, err := s.RecentPlays(2)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 2 {
		t.Errorf("got %d records, want 2", len(recs))
	}
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	if err := s.Ping(); err != nil {
		t.Fatal(err)
	}
}
