package logic

import "errors"

var (
	// ErrSessionTerminated is returned for any action after GameOver.
	ErrSessionTerminated = errors.New("session terminated")
	// ErrSnapshot marks an incomplete or inconsistent entity snapshot.
	ErrSnapshot = errors.New("invalid snapshot")
	// ErrUnknownAttackerType is a catalog miss for attacker_id.
	ErrUnknownAttackerType = errors.New("unknown attacker type")
	// ErrUnknownBombType is a catalog miss for bomb_id.
	ErrUnknownBombType = errors.New("unknown bomb type")
	// ErrUnknownAction is a frame whose action_type is not recognised. The
	// engine is left untouched.
	ErrUnknownAction = errors.New("unknown action")
	// ErrRouteMissing means the route oracle has no entry for a pair it must know.
	ErrRouteMissing = errors.New("route missing")
)
