package main

import (
	"errors"
	"sort"
)

var errSelfLink = errors.New("a note cannot link to itself")

// normalizeLink applies the canonical smaller-id-first ordering. Self-links
// are invalid, matching the backend's CHECK constraint.
func normalizeLink(a, b int64) (LinkKey, error) {
	if a == b {
		return LinkKey{}, errSelfLink
	}
	if a < b {
		return LinkKey{A: a, B: b}, nil
	}
	return LinkKey{A: b, B: a}, nil
}

// Graph is the optimistic in-memory snapshot of the note graph. All access
// happens on the Update goroutine; there is no locking by design.
type Graph struct {
	notes map[int64]*Note
	links map[LinkKey]struct{}
}

func NewGraph() *Graph {
	return &Graph{
		notes: make(map[int64]*Note),
		links: make(map[LinkKey]struct{}),
	}
}

func (g *Graph) Replace(notes []Note, links []LinkKey) {
	g.notes = make(map[int64]*Note, len(notes))
	g.links = make(map[LinkKey]struct{}, len(links))
	for i := range notes {
		n := notes[i]
		g.notes[n.ID] = &n
	}
	for _, k := range links {
		if k.A != k.B {
			g.links[k] = struct{}{}
		}
	}
}

func (g *Graph) Note(id int64) (*Note, bool) {
	n, ok := g.notes[id]
	return n, ok
}

func (g *Graph) HasNote(id int64) bool {
	_, ok := g.notes[id]
	return ok
}

func (g *Graph) AddNote(n Note) {
	copied := n
	g.notes[n.ID] = &copied
}

// RemoveNote drops the note and every incident link, returning what was
// removed so the caller can build the delete inverse. Companions keep their
// now-dangling parent reference; visibility treats that as rootless.
func (g *Graph) RemoveNote(id int64) (Note, []LinkKey, []int64, bool) {
	n, ok := g.notes[id]
	if !ok {
		return Note{}, nil, nil, false
	}
	removed := *n
	delete(g.notes, id)

	var links []LinkKey
	for k := range g.links {
		if k.A == id || k.B == id {
			links = append(links, k)
			delete(g.links, k)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if links[i].A != links[j].A {
			return links[i].A < links[j].A
		}
		return links[i].B < links[j].B
	})

	var companions []int64
	for _, other := range g.notes {
		if other.ParentID == id {
			companions = append(companions, other.ID)
		}
	}
	sort.Slice(companions, func(i, j int) bool { return companions[i] < companions[j] })

	return removed, links, companions, true
}

func (g *Graph) HasLink(k LinkKey) bool {
	_, ok := g.links[k]
	return ok
}

func (g *Graph) AddLink(k LinkKey) {
	if k.A != k.B {
		g.links[k] = struct{}{}
	}
}

func (g *Graph) RemoveLink(k LinkKey) {
	delete(g.links, k)
}

// LinkedTo returns the ids on the far end of every link touching id.
func (g *Graph) LinkedTo(id int64) []int64 {
	var out []int64
	for k := range g.links {
		switch id {
		case k.A:
			out = append(out, k.B)
		case k.B:
			out = append(out, k.A)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// StageOf resolves which stage a note belongs to: its parent, or root when
// the parent reference is unset or dangling (deleted parent).
func (g *Graph) StageOf(id int64) int64 {
	n, ok := g.notes[id]
	if !ok {
		return 0
	}
	if n.ParentID == 0 || !g.HasNote(n.ParentID) {
		return 0
	}
	return n.ParentID
}

// SameScope reports whether two notes can appear on one stage together:
// either both resolve to the same stage, or one is the isolated note whose
// stage the other lives on.
func (g *Graph) SameScope(a, b int64) bool {
	sa, sb := g.StageOf(a), g.StageOf(b)
	return sa == sb || sa == b || sb == a
}

// VisibleNotes returns the note set for a stage: at root, every note whose
// resolved stage is root; inside an isolated note, that note plus its
// companions. Order is stable (by id) so rendering and hit tests are
// deterministic.
func (g *Graph) VisibleNotes(stage int64) []*Note {
	var out []*Note
	for _, n := range g.notes {
		if stage == 0 {
			if g.StageOf(n.ID) == 0 {
				out = append(out, n)
			}
			continue
		}
		if n.ID == stage || g.StageOf(n.ID) == stage {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// VisibleLinks restricts links to pairs whose endpoints are both visible in
// the stage; links crossing a stage boundary are not drawn.
func (g *Graph) VisibleLinks(stage int64) []LinkKey {
	visible := make(map[int64]struct{})
	for _, n := range g.VisibleNotes(stage) {
		visible[n.ID] = struct{}{}
	}
	var out []LinkKey
	for k := range g.links {
		if _, ok := visible[k.A]; !ok {
			continue
		}
		if _, ok := visible[k.B]; !ok {
			continue
		}
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}

// AdoptID rewrites a provisional draft id to the server-assigned one:
// the note itself, links touching it, and companions parented under it.
func (g *Graph) AdoptID(oldID, newID int64) {
	n, ok := g.notes[oldID]
	if !ok || oldID == newID {
		return
	}
	delete(g.notes, oldID)
	n.ID = newID
	g.notes[newID] = n

	for k := range g.links {
		if k.A != oldID && k.B != oldID {
			continue
		}
		delete(g.links, k)
		a, b := k.A, k.B
		if a == oldID {
			a = newID
		}
		if b == oldID {
			b = newID
		}
		if nk, err := normalizeLink(a, b); err == nil {
			g.links[nk] = struct{}{}
		}
	}

	for _, other := range g.notes {
		if other.ParentID == oldID {
			other.ParentID = newID
		}
	}
}

// Notes returns every note, id-ordered. Used by tests and the PNG export.
func (g *Graph) Notes() []*Note {
	out := make([]*Note, 0, len(g.notes))
	for _, n := range g.notes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (g *Graph) Links() []LinkKey {
	out := make([]LinkKey, 0, len(g.links))
	for k := range g.links {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].A != out[j].A {
			return out[i].A < out[j].A
		}
		return out[i].B < out[j].B
	})
	return out
}
