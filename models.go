// this file defines the data structures used throughout the server
package main

import (
	"github.com/himanshub16/patchbay/patchbay"
)

// Track is a catalog entry served to id: players.
type Track struct {
	TrackID   string   `json:"track_id" db:"track_id"`
	Title     string   `json:"title" db:"title"`
	Artist    string   `json:"artist" db:"artist"`
	Album     string   `json:"album" db:"album"`
	CoverURL  string   `json:"cover_url" db:"cover_url"`
	AudioURLs []string `json:"audio_urls" db:"-"`
	CreatedAt int64    `json:"created_at" db:"created_at"`
}

// Record converts the catalog entry to what a lookup returns.
func (t Track) Record() patchbay.TrackRecord {
	return patchbay.TrackRecord{
		Title:     t.Title,
		Artist:    t.Artist,
		Album:     t.Album,
		CoverURL:  t.CoverURL,
		AudioURLs: append([]string(nil), t.AudioURLs...),
	}
}

type User struct {
	UserID    string `json:"user_id" db:"user_id"`
	FirstName string `json:"firstname" db:"firstname"`
	LastName  string `json:"lastname" db:"lastname"`
	Email     string `json:"email" db:"email"`
}
