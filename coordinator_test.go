package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeBackend is a minimal stand-in for the note service: it assigns ids,
// echoes updates, and can be told to fail the next request.
type fakeBackend struct {
	t   *testing.T
	srv *httptest.Server

	mu            sync.Mutex
	nextID        int64
	failNext      bool
	createCalls   int
	positionCalls int
	linkCalls     int
	deleteCalls   int
}

func newFakeBackend(t *testing.T) *fakeBackend {
	b := &fakeBackend{t: t, nextID: 100}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /notes", func(w http.ResponseWriter, r *http.Request) {
		if b.maybeFail(w) {
			return
		}
		var req createNoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		b.mu.Lock()
		b.createCalls++
		id := b.nextID
		b.nextID++
		b.mu.Unlock()
		note := apiNote{ID: id, Title: req.Title, UpdatedAt: "2026-03-01T12:00:00Z"}
		if req.Subtitle != nil {
			note.Subtitle = *req.Subtitle
		}
		if req.Content != nil {
			note.Content = *req.Content
		}
		if req.X != nil {
			note.X = *req.X
		}
		if req.Y != nil {
			note.Y = *req.Y
		}
		if req.ParentID != nil {
			note.ParentID = *req.ParentID
		}
		json.NewEncoder(w).Encode(note)
	})

	mux.HandleFunc("PUT /notes/{id}/position", func(w http.ResponseWriter, r *http.Request) {
		if b.maybeFail(w) {
			return
		}
		b.mu.Lock()
		b.positionCalls++
		b.mu.Unlock()
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var req positionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		json.NewEncoder(w).Encode(apiNote{ID: id, X: req.X, Y: req.Y, UpdatedAt: "2026-03-01T12:00:00Z"})
	})

	mux.HandleFunc("PUT /notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		if b.maybeFail(w) {
			return
		}
		id, _ := strconv.ParseInt(r.PathValue("id"), 10, 64)
		var req updateNoteRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		note := apiNote{ID: id, Title: req.Title, Subtitle: req.Subtitle, Content: req.Content, X: req.X, Y: req.Y, UpdatedAt: "2026-03-01T12:00:01Z"}
		if req.ParentID != nil {
			note.ParentID = *req.ParentID
		}
		json.NewEncoder(w).Encode(note)
	})

	mux.HandleFunc("DELETE /notes/{id}", func(w http.ResponseWriter, r *http.Request) {
		if b.maybeFail(w) {
			return
		}
		b.mu.Lock()
		b.deleteCalls++
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/links", func(w http.ResponseWriter, r *http.Request) {
		if b.maybeFail(w) {
			return
		}
		b.mu.Lock()
		b.linkCalls++
		b.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("POST /layout/auto", func(w http.ResponseWriter, r *http.Request) {
		if b.maybeFail(w) {
			return
		}
		json.NewEncoder(w).Encode(graphPayload{
			Notes: []apiNote{{ID: 1, X: 0, Y: 0}, {ID: 2, X: 300, Y: 0}},
		})
	})

	b.srv = httptest.NewServer(mux)
	return b
}

func (b *fakeBackend) maybeFail(w http.ResponseWriter) bool {
	b.mu.Lock()
	fail := b.failNext
	b.failNext = false
	b.mu.Unlock()
	if fail {
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "boom"})
	}
	return fail
}

func (b *fakeBackend) URL() string { return b.srv.URL }
func (b *fakeBackend) Close()      { b.srv.Close() }

func newTestModel(baseURL string) *model {
	graph := NewGraph()
	undo := &undoStack{}
	logger := zap.NewNop()
	return &model{
		graph:    graph,
		undo:     undo,
		co:       newCoordinator(graph, undo, newAPIClient(baseURL), logger),
		gestures: newGestures(),
		log:      logger,
	}
}

func TestCreateNoteAdoptsServerID(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())

	draftID, cmd, err := m.co.CreateNote("alpha", "", "", Point{X: 10, Y: 20}, 0, false)
	require.NoError(t, err)
	assert.Negative(t, draftID)
	require.True(t, m.graph.HasNote(draftID), "draft visible before the server answers")

	msg := cmd().(createResultMsg)
	id, banner, _ := m.co.HandleCreateResult(msg)
	assert.Empty(t, banner)
	assert.Equal(t, int64(100), id)
	assert.False(t, m.graph.HasNote(draftID))

	n, ok := m.graph.Note(100)
	require.True(t, ok)
	assert.Equal(t, "alpha", n.Title)
	assert.Equal(t, 10.0, n.X)

	require.Equal(t, 1, m.undo.Len())
	e, _ := m.undo.Pop()
	assert.Equal(t, undoCreate{ID: 100}, e.Op)
}

func TestCreateNoteRejectsEmptyTitle(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())

	_, _, err := m.co.CreateNote("   ", "", "", Point{}, 0, false)
	assert.ErrorIs(t, err, errEmptyTitle)
	assert.Empty(t, m.graph.Notes())
}

func TestCreateFailureRollsBackDraft(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())

	backend.failNext = true
	draftID, cmd, err := m.co.CreateNote("alpha", "", "", Point{}, 0, false)
	require.NoError(t, err)

	_, banner, _ := m.co.HandleCreateResult(cmd().(createResultMsg))
	assert.Contains(t, banner, "boom")
	assert.False(t, m.graph.HasNote(draftID))
	assert.Equal(t, 0, m.undo.Len())
}

func TestEditFailureRestoresPriorFields(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.AddNote(Note{ID: 1, Title: "old", Body: "text"})

	backend.failNext = true
	cmd, err := m.co.EditNote(1, "new", "sub", "body", false)
	require.NoError(t, err)

	n, _ := m.graph.Note(1)
	assert.Equal(t, "new", n.Title, "edit applies optimistically")

	banner := m.co.HandleEditResult(cmd().(editResultMsg))
	assert.NotEmpty(t, banner)
	n, _ = m.graph.Note(1)
	assert.Equal(t, "old", n.Title)
	assert.Equal(t, "text", n.Body)
	assert.Equal(t, 0, m.undo.Len())
}

func TestEditStaleResultIsIgnored(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.AddNote(Note{ID: 1, Title: "old"})

	backend.failNext = true
	cmd1, err := m.co.EditNote(1, "first", "", "", false)
	require.NoError(t, err)
	cmd2, err := m.co.EditNote(1, "second", "", "", false)
	require.NoError(t, err)

	// The first (failed) edit resolves after the second superseded it; its
	// rollback must not clobber the newer fields.
	stale := cmd1().(editResultMsg)
	fresh := cmd2().(editResultMsg)

	assert.Empty(t, m.co.HandleEditResult(stale))
	n, _ := m.graph.Note(1)
	assert.Equal(t, "second", n.Title)

	assert.Empty(t, m.co.HandleEditResult(fresh))
	require.Equal(t, 1, m.undo.Len(), "only the surviving edit is undoable")
	e, _ := m.undo.Pop()
	assert.Equal(t, "first", e.Op.(undoEdit).Prior.Title)
}

func TestMoveStaleResultIsIgnored(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.AddNote(Note{ID: 1, X: 0, Y: 0})

	backend.failNext = true
	cmd1, err := m.co.MoveNote(1, Point{X: 10, Y: 0}, false)
	require.NoError(t, err)
	cmd2, err := m.co.MoveNote(1, Point{X: 20, Y: 0}, false)
	require.NoError(t, err)

	// The first (failed) persist resolves after the second superseded it;
	// its rollback must not clobber the newer position.
	stale := cmd1().(moveResultMsg)
	fresh := cmd2().(moveResultMsg)

	assert.Empty(t, m.co.HandleMoveResult(stale))
	n, _ := m.graph.Note(1)
	assert.Equal(t, 20.0, n.X)

	assert.Empty(t, m.co.HandleMoveResult(fresh))
	require.Equal(t, 1, m.undo.Len(), "only the surviving move is undoable")
	e, _ := m.undo.Pop()
	assert.Equal(t, undoMove{ID: 1, X: 10, Y: 0}, e.Op)
}

func TestConnectValidation(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.Replace([]Note{
		{ID: 1}, {ID: 2},
		{ID: 3, ParentID: 1},
	}, []LinkKey{{A: 1, B: 2}})

	_, err := m.co.Connect(1, 1, false)
	assert.ErrorIs(t, err, errSelfLink)

	_, err = m.co.Connect(1, 99, false)
	assert.ErrorIs(t, err, errMissingNote)

	_, err = m.co.Connect(2, 3, false)
	assert.ErrorIs(t, err, errCrossStage)

	_, err = m.co.Connect(2, 1, false)
	assert.ErrorIs(t, err, errAlreadyLinked)

	cmd, err := m.co.Connect(3, 1, false)
	assert.NoError(t, err, "a companion may link to its isolated note")
	require.NotNil(t, cmd)
}

func TestConnectDisconnectRoundtrip(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.Replace([]Note{{ID: 1}, {ID: 2}}, nil)

	cmd, err := m.co.Connect(2, 1, false)
	require.NoError(t, err)
	key := LinkKey{A: 1, B: 2}
	assert.True(t, m.graph.HasLink(key))

	assert.Empty(t, m.co.HandleLinkResult(cmd().(linkResultMsg)))
	require.Equal(t, 1, m.undo.Len())

	cmd, err = m.co.Disconnect(key, false)
	require.NoError(t, err)
	assert.False(t, m.graph.HasLink(key))
	assert.Empty(t, m.co.HandleLinkResult(cmd().(linkResultMsg)))

	e, _ := m.undo.Pop()
	assert.Equal(t, undoDisconnect{Key: key}, e.Op)
}

func TestDisconnectFailureRestoresLink(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	key := LinkKey{A: 1, B: 2}
	m.graph.Replace([]Note{{ID: 1}, {ID: 2}}, []LinkKey{key})

	backend.failNext = true
	cmd, err := m.co.Disconnect(key, false)
	require.NoError(t, err)
	assert.False(t, m.graph.HasLink(key))

	banner := m.co.HandleLinkResult(cmd().(linkResultMsg))
	assert.NotEmpty(t, banner)
	assert.True(t, m.graph.HasLink(key), "failed disconnect puts the link back")
}

func TestDeleteThenUndoRestoresNoteLinksAndCompanions(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.Replace([]Note{
		{ID: 1, Title: "hub", X: 5, Y: 6},
		{ID: 2, Title: "peer"},
		{ID: 3, Title: "child", ParentID: 1},
	}, []LinkKey{{A: 1, B: 2}})

	cmd, err := m.co.DeleteNote(1, false)
	require.NoError(t, err)
	assert.False(t, m.graph.HasNote(1))
	assert.False(t, m.graph.HasLink(LinkKey{A: 1, B: 2}))
	assert.Empty(t, m.co.HandleDeleteResult(cmd().(deleteResultMsg)))
	require.Equal(t, 1, m.undo.Len())

	undoCmd := m.runUndo()
	require.NotNil(t, undoCmd)
	result := undoCmd().(createResultMsg)
	require.True(t, result.fromUndo)
	newID, banner, followup := m.co.HandleCreateResult(result)
	assert.Empty(t, banner)
	assert.Equal(t, int64(100), newID, "recreated under a fresh server id")

	n, ok := m.graph.Note(newID)
	require.True(t, ok)
	assert.Equal(t, "hub", n.Title)
	assert.Equal(t, 5.0, n.X)
	assert.True(t, m.graph.HasLink(LinkKey{A: 2, B: newID}), "surviving links re-attach")

	child, _ := m.graph.Note(3)
	assert.Equal(t, newID, child.ParentID, "companions re-parent onto the new id")
	require.NotNil(t, followup, "re-parenting persists to the backend")
	assert.False(t, m.undo.applying)
	assert.Equal(t, 0, m.undo.Len())
}

func TestUndoSequenceRestoresSnapshot(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.Replace([]Note{{ID: 1, Title: "alpha", X: 0, Y: 0}}, nil)

	// create, move, connect
	_, cmd, err := m.co.CreateNote("beta", "", "", Point{X: 40, Y: 0}, 0, false)
	require.NoError(t, err)
	newID, _, _ := m.co.HandleCreateResult(cmd().(createResultMsg))

	moveCmd, err := m.co.MoveNote(1, Point{X: -40, Y: 0}, false)
	require.NoError(t, err)
	m.co.HandleMoveResult(moveCmd().(moveResultMsg))

	linkCmd, err := m.co.Connect(1, newID, false)
	require.NoError(t, err)
	m.co.HandleLinkResult(linkCmd().(linkResultMsg))
	require.Equal(t, 3, m.undo.Len())

	// Three undos, pumping each inverse's result like the Update loop would.
	for i := 0; i < 3; i++ {
		undoCmd := m.runUndo()
		require.NotNil(t, undoCmd)
		switch msg := undoCmd().(type) {
		case linkResultMsg:
			m.co.HandleLinkResult(msg)
		case moveResultMsg:
			m.co.HandleMoveResult(msg)
		case deleteResultMsg:
			m.co.HandleDeleteResult(msg)
		}
		require.False(t, m.undo.applying)
	}

	assert.Equal(t, 0, m.undo.Len())
	assert.Empty(t, m.graph.Links())
	notes := m.graph.Notes()
	require.Len(t, notes, 1)
	assert.Equal(t, int64(1), notes[0].ID)
	assert.Equal(t, 0.0, notes[0].X, "every mutation rolled back")
}

func TestAutoLayoutUndoRestoresPositions(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.Replace([]Note{
		{ID: 1, X: 11, Y: 12},
		{ID: 2, X: 21, Y: 22},
	}, nil)

	cmd := m.co.AutoLayout()
	assert.Empty(t, m.co.HandleLayoutResult(cmd().(layoutResultMsg)))

	n1, _ := m.graph.Note(1)
	n2, _ := m.graph.Note(2)
	assert.Equal(t, 0.0, n1.X)
	assert.Equal(t, 300.0, n2.X)
	require.Equal(t, 1, m.undo.Len())

	undoCmd := m.runUndo()
	require.NotNil(t, undoCmd)
	n1, _ = m.graph.Note(1)
	n2, _ = m.graph.Note(2)
	assert.Equal(t, Point{X: 11, Y: 12}, Point{X: n1.X, Y: n1.Y})
	assert.Equal(t, Point{X: 21, Y: 22}, Point{X: n2.X, Y: n2.Y})
}
