package room

import "errors"

var (
	// ErrUnauthorized indicates a missing or mismatched player credential.
	// The caller gets the public view only and no state is mutated.
	ErrUnauthorized = errors.New("room: invalid player credential")

	// ErrForbidden indicates a privileged request from a non-host player.
	ErrForbidden = errors.New("room: only the host can do that")

	// ErrNotFound indicates an unknown room code.
	ErrNotFound = errors.New("room: not found")

	// ErrPlayerNotFound indicates an unknown player id within a room.
	ErrPlayerNotFound = errors.New("room: player not found")

	// ErrRoomFull indicates the room cannot seat another human player.
	ErrRoomFull = errors.New("room: no seat available")

	// ErrRoomLimit indicates the process-wide concurrent room cap was hit.
	// Room creation fails rather than evicting a live room.
	ErrRoomLimit = errors.New("room: room limit reached")

	// ErrHandInProgress indicates a start request while a hand is live.
	ErrHandInProgress = errors.New("room: current hand has not finished")

	// ErrInvalidConfig indicates unusable room creation parameters.
	ErrInvalidConfig = errors.New("room: invalid configuration")
)
