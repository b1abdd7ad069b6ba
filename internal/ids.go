package internal

import (
	"math/rand"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	roomIDMin   = 100000
	roomIDSpan  = 900000
	msgIDJitter = 1000
)

// NewRoomID draws a 6-digit numeric room code in [100000, 999999].
// Uniqueness is left to the size of the space; the registry handles reuse.
func NewRoomID() string {
	return strconv.Itoa(roomIDMin + rand.Intn(roomIDSpan))
}

// NewMessageID returns "<unix millis>-<0..999>". Two sends in the same
// millisecond only collide when they also draw the same suffix.
func NewMessageID() string {
	return newMessageIDAt(time.Now())
}

func newMessageIDAt(now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + strconv.Itoa(rand.Intn(msgIDJitter))
}

// NewConnectionID tags a websocket connection for the lifetime of the socket.
func NewConnectionID() string {
	return uuid.NewString()
}
