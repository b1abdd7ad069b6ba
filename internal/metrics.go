package internal

import "sync/atomic"

type Metrics struct {
	roomsCreated  atomic.Uint64
	joins         atomic.Uint64
	joinsRejected atomic.Uint64
	messages      atomic.Uint64
	edits         atomic.Uint64
	droppedFrames atomic.Uint64
	rateLimited   atomic.Uint64
	activeConns   atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncRoomCreated() {
	m.roomsCreated.Add(1)
}

func (m *Metrics) IncJoin() {
	m.joins.Add(1)
}

func (m *Metrics) IncJoinRejected() {
	m.joinsRejected.Add(1)
}

func (m *Metrics) IncMessage() {
	m.messages.Add(1)
}

func (m *Metrics) IncEdit() {
	m.edits.Add(1)
}

func (m *Metrics) IncDropped() {
	m.droppedFrames.Add(1)
}

func (m *Metrics) IncRateLimited() {
	m.rateLimited.Add(1)
}

func (m *Metrics) IncConn() {
	m.activeConns.Add(1)
}

func (m *Metrics) DecConn() {
	m.activeConns.Add(-1)
}

// Snapshot returns the counters keyed by their exported names.
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"rooms_created_total":  m.roomsCreated.Load(),
		"joins_total":          m.joins.Load(),
		"joins_rejected_total": m.joinsRejected.Load(),
		"messages_total":       m.messages.Load(),
		"edits_total":          m.edits.Load(),
		"dropped_frames_total": m.droppedFrames.Load(),
		"rate_limited_total":   m.rateLimited.Load(),
		"active_connections":   m.activeConns.Load(),
	}
}
