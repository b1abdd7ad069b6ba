package internal

import "sync"

// Session is the identity bound to one connection while it is open.
type Session struct {
	ConnectionID string
	Name         string
	Language     string
	RoomID       string
}

// Directory maps a connection id to its current session.
type Directory struct {
	mu       sync.Mutex
	sessions map[string]Session
}

func NewDirectory() *Directory {
	return &Directory{sessions: make(map[string]Session)}
}

// Set creates or overwrites the session for connID. Names are not checked
// for uniqueness.
func (d *Directory) Set(connID, name, language, roomID string) Session {
	session := Session{ConnectionID: connID, Name: name, Language: language, RoomID: roomID}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sessions[connID] = session
	return session
}

func (d *Directory) Get(connID string) (Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[connID]
	return session, ok
}

// Clear removes the session and hands back what was stored, if anything.
func (d *Directory) Clear(connID string) (Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[connID]
	if ok {
		delete(d.sessions, connID)
	}
	return session, ok
}

// ClearIf removes the session only when it is still bound to roomID.
func (d *Directory) ClearIf(connID, roomID string) (Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	session, ok := d.sessions[connID]
	if !ok || session.RoomID != roomID {
		return Session{}, false
	}
	delete(d.sessions, connID)
	return session, true
}

func (d *Directory) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}
