package patchbay

import "errors"

var (
	// ErrInvalidDescriptor is returned for a track attribute that cannot be parsed.
	ErrInvalidDescriptor = errors.New("patchbay: invalid track descriptor")
	// ErrLookupFailure is returned when the remote lookup fails or omits a requested id.
	ErrLookupFailure = errors.New("patchbay: track lookup failed")
	// ErrUnknownRole is returned when a UI element names a role outside the fixed set.
	ErrUnknownRole = errors.New("patchbay: unknown ui role")
	// ErrNoMaster is returned by operations that need a master player before one was swept.
	ErrNoMaster = errors.New("patchbay: no master player")
	// ErrNotResolved is returned when a track has no playable sources yet.
	ErrNotResolved = errors.New("patchbay: track sources not resolved")
	// ErrMalformedStamp is returned by StampToSec for anything but m:ss.
	ErrMalformedStamp = errors.New("patchbay: malformed timestamp")
	// ErrNoEntity is returned when no player has the requested id.
	ErrNoEntity = errors.New("patchbay: no such entity")
)
