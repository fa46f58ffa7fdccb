package main

import (
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type PostgresRepository struct {
	sqlRepository
}

func NewPostgresRepository(dbUrl string) (*PostgresRepository, error) {
	db, err := sqlx.Open("postgres", dbUrl)
	if err != nil {
		return nil, err
	}

	// make sure the required tables exist
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
		created_at bigint not null
	  );`

	r := &PostgresRepository{sqlRepository{db: db}}
	if err := r.createTables([]string{usersTable, tracksTable}); err != nil {
		db.Close()
		return nil, err
	}
	return r, nil
}
