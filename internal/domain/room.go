package domain

import "errors"

// RoomName is a client-supplied grouping key. Beyond non-emptiness it is
// opaque to the relay.
type RoomName string

var ErrRoomNameEmpty = errors.New("room name empty")
