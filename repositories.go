package main

type UserRepository interface {
	CreateOrUpdateUser(user User) error
	GetUserByID(userID string) (*User, error)
	close()
}

type TrackRepository interface {
	InsertTrack(track Track) error
	GetTrackByID(id string) (*Track, error)
	// GetTracksByIDs returns the known tracks among ids; unknown ids are absent.
	GetTracksByIDs(ids []string) (map[string]Track, error)
	GetAllTracks(limit int64) ([]Track, error)
	close()
}
