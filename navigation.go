package main

import "time"

// rememberView snapshots the current pan and zoom for the active stage.
func (m *model) rememberView(now time.Time) {
	m.views.Put(m.focus.Isolated, ViewState{PanX: m.pan.X, PanY: m.pan.Y, Zoom: m.zoom}, now)
}

// applyViewState restores the remembered pan/zoom for a stage, or derives a
// sensible default: root starts centered at the origin, an isolated stage
// centers its note.
func (m *model) applyViewState(stage int64) {
	if vs, ok := m.views.Get(stage); ok {
		m.pan = Point{X: vs.PanX, Y: vs.PanY}
		m.zoom = clampZoom(vs.Zoom)
		return
	}
	m.zoom = zoomDefault
	m.pan = Point{}
	if stage != 0 {
		if n, ok := m.graph.Note(stage); ok {
			m.pan = Point{X: -n.X * m.zoom, Y: -n.Y * m.zoom}
		}
	}
}

// drillInto makes a note the isolated stage. The outgoing stage's view is
// flushed synchronously first, so a crash mid-session never loses more than
// the stage being entered.
func (m *model) drillInto(id int64, now time.Time) {
	if !m.graph.HasNote(id) || id == m.focus.Isolated {
		return
	}
	m.rememberView(now)
	if err := m.views.FlushNow(); err != nil {
		m.log.Warn("view state flush failed: " + err.Error())
	}
	m.gestures.Cancel()
	m.focus.clearTransient()
	m.focus.Isolated = id
	m.highlighted = id
	m.applyViewState(id)
}

// navigateBack climbs one stage toward root. At root it is a no-op.
func (m *model) navigateBack(now time.Time) {
	if m.focus.Isolated == 0 {
		return
	}
	parent := m.graph.StageOf(m.focus.Isolated)
	m.rememberView(now)
	if err := m.views.FlushNow(); err != nil {
		m.log.Warn("view state flush failed: " + err.Error())
	}
	m.gestures.Cancel()
	prior := m.focus.Isolated
	m.focus.clearTransient()
	m.focus.Isolated = parent
	m.highlighted = prior
	m.applyViewState(parent)
}

// jumpTo drills to whatever stage a note lives on and highlights it. Used by
// search result selection.
func (m *model) jumpTo(id int64, now time.Time) {
	stage := m.graph.StageOf(id)
	if stage != m.focus.Isolated {
		m.rememberView(now)
		if err := m.views.FlushNow(); err != nil {
			m.log.Warn("view state flush failed: " + err.Error())
		}
		m.gestures.Cancel()
		m.focus.clearTransient()
		m.focus.Isolated = stage
		m.applyViewState(stage)
	}
	m.highlighted = id
	// Center the target so the jump is visible regardless of the cached pan.
	if n, ok := m.graph.Note(id); ok {
		m.pan = Point{X: -n.X * m.zoom, Y: -n.Y * m.zoom}
	}
}

// breadcrumbs walks the ancestor chain of the current stage from root
// inward. The walk is hop-bounded so a corrupt parent cycle cannot hang the
// render loop.
func (m *model) breadcrumbs() []string {
	trail := []string{"root"}
	if m.focus.Isolated == 0 {
		return trail
	}
	var chain []string
	id := m.focus.Isolated
	for hops := 0; hops < maxAncestorHops && id != 0; hops++ {
		n, ok := m.graph.Note(id)
		if !ok {
			break
		}
		chain = append(chain, n.Title)
		id = m.graph.StageOf(id)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		trail = append(trail, chain[i])
	}
	return trail
}
