package main

import (
	"math"
	"time"
)

type sessionKind int

const (
	sessionBackground sessionKind = iota
	sessionNote
	sessionHandle
)

// pointerSession tracks one press-drag-release interaction. A terminal has a
// single pointer, so at most one session is live at a time.
type pointerSession struct {
	kind     sessionKind
	subject  int64 // note id; connect source for handle sessions
	startX   float64
	startY   float64
	lastX    float64
	lastY    float64
	dragging bool
}

// tapState accumulates taps per subject inside the multi-tap window.
type tapState struct {
	count    int
	deadline time.Time
	x, y     float64 // release point of the first tap, screen cells
}

// gestures turns raw pointer events into discrete intents. It is a plain
// state machine with the clock passed in, so tests drive time explicitly;
// the Update loop feeds it real timestamps and schedules expiry ticks.
type gestures struct {
	active *pointerSession
	taps   map[int64]*tapState
}

func newGestures() *gestures {
	return &gestures{taps: make(map[int64]*tapState)}
}

func (g *gestures) PressBackground(x, y float64) {
	g.active = &pointerSession{kind: sessionBackground, subject: subjectBackground, startX: x, startY: y, lastX: x, lastY: y}
}

func (g *gestures) PressNote(id int64, x, y float64) {
	g.active = &pointerSession{kind: sessionNote, subject: id, startX: x, startY: y, lastX: x, lastY: y}
}

func (g *gestures) PressHandle(source int64, x, y float64) {
	g.active = &pointerSession{kind: sessionHandle, subject: source, startX: x, startY: y, lastX: x, lastY: y}
}

// Move classifies pointer motion. panMod reports whether the pan modifier is
// held for this event.
func (g *gestures) Move(x, y float64, panMod bool) []intent {
	s := g.active
	if s == nil {
		return nil
	}
	prevX, prevY := s.lastX, s.lastY
	s.lastX, s.lastY = x, y

	if !s.dragging {
		dist := math.Hypot(x-s.startX, y-s.startY)
		threshold := float64(moveThresholdNode)
		if s.kind == sessionBackground {
			threshold = float64(moveThresholdBackground)
		}
		if s.kind == sessionHandle {
			threshold = 1
		}
		if dist <= threshold {
			return nil
		}
		s.dragging = true
		// A committed drag kills any pending tap sequence on this subject
		// so the move cannot fire a spurious double/triple tap afterwards.
		delete(g.taps, s.subject)
	}

	switch s.kind {
	case sessionBackground:
		if !panMod {
			return nil
		}
		return []intent{{kind: intentPan, deltaX: x - prevX, deltaY: y - prevY}}
	case sessionNote:
		return []intent{{kind: intentDragMove, note: s.subject, screen: Point{X: x, Y: y}}}
	case sessionHandle:
		return []intent{{kind: intentConnectPreview, note: s.subject, screen: Point{X: x, Y: y}}}
	}
	return nil
}

// Release ends the session: a committed drag resolves to its release intent,
// anything else becomes a tap candidate.
func (g *gestures) Release(x, y float64, now time.Time) []intent {
	s := g.active
	if s == nil {
		return nil
	}
	g.active = nil

	if s.dragging {
		switch s.kind {
		case sessionNote:
			return []intent{{kind: intentDragRelease, note: s.subject, screen: Point{X: x, Y: y}}}
		case sessionHandle:
			return []intent{{kind: intentConnectRelease, note: s.subject, screen: Point{X: x, Y: y}}}
		}
		return nil // background pan ends silently
	}

	if s.kind == sessionHandle {
		return nil // press-release on the handle without a drag: cancel
	}

	ts := g.taps[s.subject]
	if ts != nil && now.Before(ts.deadline) {
		// Second tap inside the window.
		delete(g.taps, s.subject)
		if s.kind == sessionBackground {
			return []intent{{kind: intentNavigateBack}}
		}
		return []intent{{kind: intentDrillNote, note: s.subject}}
	}

	g.taps[s.subject] = &tapState{count: 1, deadline: now.Add(tapWindow), x: x, y: y}
	if s.kind == sessionNote {
		// Selection fires on the first tap; the window only decides whether
		// a second tap escalates to a drill-in.
		return []intent{{kind: intentSelectNote, note: s.subject, screen: Point{X: x, Y: y}}}
	}
	return nil
}

// ExpireTaps resolves tap windows that elapsed unmatched: a lone background
// tap becomes a create at its release point; node windows just expire, since
// selection already fired on the first tap.
func (g *gestures) ExpireTaps(now time.Time) []intent {
	var out []intent
	for subject, ts := range g.taps {
		if now.Before(ts.deadline) {
			continue
		}
		delete(g.taps, subject)
		if subject == subjectBackground {
			out = append(out, intent{kind: intentCreateAt, screen: Point{X: ts.x, Y: ts.y}})
		}
	}
	return out
}

// NextDeadline reports the soonest pending tap deadline, if any, so the
// caller can schedule a wakeup.
func (g *gestures) NextDeadline() (time.Time, bool) {
	var soonest time.Time
	found := false
	for _, ts := range g.taps {
		if !found || ts.deadline.Before(soonest) {
			soonest = ts.deadline
			found = true
		}
	}
	return soonest, found
}

// Cancel drops all pointer and tap state. Used at session end and on stage
// transitions.
func (g *gestures) Cancel() {
	g.active = nil
	g.taps = make(map[int64]*tapState)
}

// Dragging reports whether a committed drag is in progress for the subject.
func (g *gestures) Dragging() (sessionKind, int64, bool) {
	if g.active == nil || !g.active.dragging {
		return 0, 0, false
	}
	return g.active.kind, g.active.subject, true
}
