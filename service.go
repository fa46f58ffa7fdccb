package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/himanshub16/patchbay/patchbay"
)

var errInvalidTrack = errors.New("invalid track")

type Service interface {
	SubmitTrack(track Track) (*Track, error)
	GetTrackByID(id string) (*Track, error)
	ListTracks(limit int64) ([]Track, error)
	// LookupTracks answers a lookup for an ordered list of ids.
	LookupTracks(ids []string) (map[string]patchbay.TrackRecord, error)
	CreateOrUpdateUser(user User) error
	GetUserByID(userID string) (*User, error)
	close()
}

type ServiceImpl struct {
	userRepo  UserRepository
	trackRepo TrackRepository
}

func (s *ServiceImpl) SubmitTrack(track Track) (*Track, error) {
	if len(track.AudioURLs) == 0 {
		return nil, fmt.Errorf("%w: at least one audio url is required", errInvalidTrack)
	}
	for _, raw := range track.AudioURLs {
		u, err := url.Parse(raw)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("%w: %q is not an absolute url", errInvalidTrack, raw)
		}
	}
	// ids end up in a kind:payload attribute, so they must stay a bare token
	if strings.ContainsAny(track.TrackID, ",: \t\n") {
		return nil, fmt.Errorf("%w: bad track id %q", errInvalidTrack, track.TrackID)
	}
	if track.TrackID == "" {
		track.TrackID = uuid.New().String()
	}
	track.CreatedAt = time.Now().Unix()

	if err := s.trackRepo.InsertTrack(track); err != nil {
		return nil, err
	}
	return &track, nil
}

func (s *ServiceImpl) GetTrackByID(id string) (*Track, error) {
	return s.trackRepo.GetTrackByID(id)
}

func (s *ServiceImpl) ListTracks(limit int64) ([]Track, error) {
	return s.trackRepo.GetAllTracks(limit)
}

func (s *ServiceImpl) LookupTracks(ids []string) (map[string]patchbay.TrackRecord, error) {
	tracks, err := s.trackRepo.GetTracksByIDs(ids)
	if err != nil {
		return nil, err
	}
	records := make(map[string]patchbay.TrackRecord, len(tracks))
	for id, t := range tracks {
		records[id] = t.Record()
	}
	return records, nil
}

// Lookup lets the server's own patchbay resolve id: tracks without a round
// trip through HTTP.
func (s *ServiceImpl) Lookup(ctx context.Context, ids []string) (map[string]patchbay.TrackRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.LookupTracks(ids)
}

func (s *ServiceImpl) CreateOrUpdateUser(user User) error {
	return s.userRepo.CreateOrUpdateUser(user)
}

func (s *ServiceImpl) GetUserByID(userID string) (*User, error) {
	return s.userRepo.GetUserByID(userID)
}

func (s *ServiceImpl) close() {
	s.userRepo.close()
	s.trackRepo.close()
}
