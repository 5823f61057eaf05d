package store

import (
	"fmt"

	"spotiui/internal/models"
)

const defaultHistoryLimit = 50

// InsertPlay appends one observed track play.
func (s *Store) InsertPlay(rec *models.PlayRecord) error {
	res, err := s.db.Exec(
		`INSERT INTO play_history (connection_id, track_id, title, artist, album, started_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ConnectionID, rec.TrackID, rec.Title, rec.Artist, rec.Album, rec.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("inserting play record: %w", err)
	}
	rec.ID, _ = res.LastInsertId()
	return nil
}

// RecentPlays returns the newest plays first. limit <= 0 uses the default.
func (s *Store) RecentPlays(limit int) ([]models.PlayRecord, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	rows, err := s.db.Query(
		`SELECT id, connection_id, track_id, title, artist, album, started_at
		 FROM play_history ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying play history: %w", err)
	}
	defer rows.Close()

	var recs []models.PlayRecord
	for rows.Next() {
		var r models.PlayRecord
		if err := rows.Scan(&r.ID, &r.ConnectionID, &r.TrackID, &r.Title, &r.Artist, &r.Album, &r.StartedAt); err != nil {
			return nil, err
		}
		recs = append(recs, r)
	}
	return recs, rows.Err()
}
