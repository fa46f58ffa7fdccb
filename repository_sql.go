package main

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var errTrackNotFound = errors.New("track not found")

// sqlRepository holds the queries shared by the postgres and sqlite
// repositories. Queries use ? placeholders and are rebound per driver.
type sqlRepository struct {
	db *sqlx.DB
}

type trackRow struct {
	TrackID   string `db:"track_id"`
	Title     string `db:"title"`
	Artist    string `db:"artist"`
	Album     string `db:"album"`
	CoverURL  string `db:"cover_url"`
	AudioURLs string `db:"audio_urls"`
	CreatedAt int64  `db:"created_at"`
}

func (row trackRow) track() Track {
	t := Track{
		TrackID:   row.TrackID,
		Title:     row.Title,
		Artist:    row.Artist,
		Album:     row.Album,
		CoverURL:  row.CoverURL,
		CreatedAt: row.CreatedAt,
	}
	for _, u := range strings.Split(row.AudioURLs, "\n") {
		if u != "" {
			t.AudioURLs = append(t.AudioURLs, u)
		}
	}
	return t
}

const trackColumns = `track_id, title, artist, album, cover_url, audio_urls, created_at`

func (r *sqlRepository) CreateOrUpdateUser(user User) error {
	query := r.db.Rebind(`
      insert into users (user_id, firstname, lastname, email)
      values (?, ?, ?, ?)
      on conflict(user_id) do update
         set firstname = excluded.firstname,
             lastname = excluded.lastname,
             email = excluded.email;`)

	_, err := r.db.Exec(query, user.UserID, user.FirstName, user.LastName, user.Email)
	return err
}

func (r *sqlRepository) GetUserByID(userID string) (*User, error) {
	query := r.db.Rebind(`
	  select user_id, firstname, lastname, email
	  from users where user_id=?;`)

	user := &User{}
	if err := r.db.Get(user, query, userID); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *sqlRepository) InsertTrack(track Track) error {
	query := r.db.Rebind(`
	  insert into tracks (` + trackColumns + `)
	  values (?, ?, ?, ?, ?, ?, ?);`)

	_, err := r.db.Exec(query, track.TrackID, track.Title, track.Artist, track.Album,
		track.CoverURL, strings.Join(track.AudioURLs, "\n"), track.CreatedAt)
	return err
}

func (r *sqlRepository) GetTrackByID(id string) (*Track, error) {
	query := r.db.Rebind(`select ` + trackColumns + ` from tracks where track_id=?;`)

	var row trackRow
	err := r.db.Get(&row, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", errTrackNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	t := row.track()
	return &t, nil
}

func (r *sqlRepository) GetTracksByIDs(ids []string) (map[string]Track, error) {
	result := make(map[string]Track)
	if len(ids) == 0 {
		return result, nil
	}

	query, args, err := sqlx.In(`select `+trackColumns+` from tracks where track_id IN (?);`, ids)
	if err != nil {
		return nil, err
	}
	var rows []trackRow
	if err := r.db.Select(&rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, row := range rows {
		result[row.TrackID] = row.track()
	}
	return result, nil
}

func (r *sqlRepository) GetAllTracks(limit int64) ([]Track, error) {
	query := r.db.Rebind(`select ` + trackColumns + ` from tracks order by created_at, track_id limit ?;`)

	var rows []trackRow
	if err := r.db.Select(&rows, query, limit); err != nil {
		return nil, err
	}
	tracks := make([]Track, 0, len(rows))
	for _, row := range rows {
		tracks = append(tracks, row.track())
	}
	return tracks, nil
}

func (r *sqlRepository) close() {
	r.db.Close()
}

func (r *sqlRepository) createTables(tables []string) error {
	for _, t := range tables {
		if _, err := r.db.Exec(t); err != nil {
			return fmt.Errorf("failed to exec stmt: %w", err)
		}
	}
	return nil
}
