package main

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

type SQLiteRepository struct {
	sqlRepository
}

// NewSQLiteRepository opens the database file at filePath; ":memory:" keeps
// everything in memory.
func NewSQLiteRepository(filePath string) (*SQLiteRepository, error) {
	db, err := sqlx.Open("sqlite3", filePath)
	if err != nil {
		return nil, err
	}
	// an in-memory database exists once per connection
	db.SetMaxOpenConns(1)

	usersTable := `
	  create table if not exists users (
		user_id text primary key,
		firstname text,
		lastname text,
		email text
	  );`
	tracksTable := `
	  create table if not exists tracks (
		track_id text primary key,
		title text not null default '',
		artist text not null default '',
		album text not null default '',
		cover_url text not null default '',
		audio_urls text not null,
		created_at integer not null
	  );`

	r := &SQLiteRepository{sqlRepository{db: db}}
	if err := r.createTables([]string{usersTable, tracksTable}); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}
