package main

import "time"

// Point is a location in either graph space or screen space; which one is
// clear from context. Screen points are in terminal cells.
type Point struct {
	X float64
	Y float64
}

// Note is the in-memory copy of a note. The backend owns the durable copy
// and assigns ids; locally created drafts carry negative ids until the
// create round trip adopts the server id. ParentID zero means the note lives
// at the root stage.
type Note struct {
	ID        int64
	Title     string
	Subtitle  string
	Body      string
	X         float64
	Y         float64
	ParentID  int64
	UpdatedAt string
}

// LinkKey is a normalized unordered note pair: A is always the smaller id.
// This normalization is the only identity rule for links anywhere in the
// program.
type LinkKey struct {
	A int64
	B int64
}

// ViewState is the remembered pan offset and zoom scale for one stage.
type ViewState struct {
	PanX float64 `json:"panX"`
	PanY float64 `json:"panY"`
	Zoom float64 `json:"zoom"`
}

// quickDraft is a pending create at a background tap point: the title is
// typed inline before anything is sent anywhere.
type quickDraft struct {
	At        Point // graph space
	Title     string
	CursorPos int
}

// FocusContext is the transient per-session focus state. Everything here is
// cleared whenever the isolated stage changes.
type FocusContext struct {
	Isolated     int64 // 0 = root stage
	Contextual   int64 // direct-connections-only scope, 0 = none
	SelectedLink *LinkKey
	ConnectFrom  int64 // elastic connect-drag source, 0 = none
	ConnectAt    Point // current pointer position of the connect preview, screen space
	Draft        *quickDraft
}

func (f *FocusContext) clearTransient() {
	f.Contextual = 0
	f.SelectedLink = nil
	f.ConnectFrom = 0
	f.Draft = nil
}

type editorField int

const (
	editorFieldTitle editorField = iota
	editorFieldSubtitle
	editorFieldBody
)

type editorState struct {
	noteID    int64
	title     string
	subtitle  string
	body      string
	field     editorField
	cursorPos int
}

type searchState struct {
	query    string
	results  []Note
	selected int
	ran      bool
}

// intent is a classified gesture: what the user meant, decoupled from the
// raw pointer events that produced it.
type intent struct {
	kind   intentKind
	note   int64
	target int64 // connect target
	screen Point
	deltaX float64
	deltaY float64
}

// Messages delivered back into Update. Remote results carry fromUndo so the
// handlers know not to register a fresh undo entry and to clear the
// applying flag.

type graphLoadedMsg struct {
	notes []Note
	links []LinkKey
	err   error
}

type createResultMsg struct {
	draftID    int64
	note       Note
	err        error
	fromUndo   bool
	companions []int64 // prior companions to re-parent onto the recreated note
}

type editResultMsg struct {
	id       int64
	seq      uint64
	prior    Note
	note     Note
	err      error
	fromUndo bool
}

type moveResultMsg struct {
	id       int64
	seq      uint64
	priorX   float64
	priorY   float64
	err      error
	fromUndo bool
}

type deleteResultMsg struct {
	id         int64
	prior      Note
	links      []LinkKey
	companions []int64
	err        error
	fromUndo   bool
}

type linkResultMsg struct {
	key      LinkKey
	created  bool // true for connect, false for disconnect
	err      error
	fromUndo bool
}

type layoutResultMsg struct {
	notes []Note
	links []LinkKey
	err   error
}

type reparentResultMsg struct {
	id  int64
	err error
}

type searchResultMsg struct {
	query   string
	results []Note
	err     error
}

type tapWindowMsg struct {
	at time.Time
}

type flushTickMsg struct {
	at time.Time
}
