package main

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUndoStackIsBounded(t *testing.T) {
	s := &undoStack{}
	for i := 0; i < maxUndoDepth+25; i++ {
		s.Push("move note", undoMove{ID: int64(i)})
	}
	assert.Equal(t, maxUndoDepth, s.Len())

	e, ok := s.Pop()
	require.True(t, ok)
	assert.Equal(t, int64(maxUndoDepth+24), e.Op.(undoMove).ID, "newest entry pops first")
}

func TestPushSuppressedWhileApplying(t *testing.T) {
	s := &undoStack{}
	s.applying = true
	s.Push("create note", undoCreate{ID: 1})
	assert.Equal(t, 0, s.Len(), "an inverse in flight must not register undo entries")

	s.applying = false
	s.Push("create note", undoCreate{ID: 1})
	assert.Equal(t, 1, s.Len())
}

func TestPopEmpty(t *testing.T) {
	s := &undoStack{}
	_, ok := s.Pop()
	assert.False(t, ok)
}

func TestRunUndoDispatchesInverse(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())

	// A recorded move undoes by moving back.
	n := Note{ID: 5, Title: "alpha", X: 50, Y: 50}
	m.graph.AddNote(n)
	m.undo.Push("move note", undoMove{ID: 5, X: 1, Y: 2})

	cmd := m.runUndo()
	require.NotNil(t, cmd)
	assert.True(t, m.undo.applying, "applying stays set until the result lands")

	got, ok := m.graph.Note(5)
	require.True(t, ok)
	assert.Equal(t, Point{X: 1, Y: 2}, Point{X: got.X, Y: got.Y}, "inverse applies optimistically")

	msg := cmd().(moveResultMsg)
	assert.True(t, msg.fromUndo)
	m.co.HandleMoveResult(msg)
	assert.False(t, m.undo.applying)
	assert.Equal(t, 0, m.undo.Len(), "undoing the undo is not a thing")
}

func TestRunUndoStaleInverseIsDropped(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())

	m.undo.Push("move note", undoMove{ID: 99, X: 0, Y: 0})
	cmd := m.runUndo()
	assert.Nil(t, cmd, "note 99 no longer exists")
	assert.False(t, m.undo.applying)
	assert.NotEmpty(t, m.errorMessage)
	assert.Equal(t, 0, m.undo.Len(), "the stale entry is consumed, not retried")
}

func TestRunUndoWhileApplyingIsANoOp(t *testing.T) {
	backend := newFakeBackend(t)
	defer backend.Close()
	m := newTestModel(backend.URL())
	m.graph.AddNote(Note{ID: 5})
	m.undo.Push("move note", undoMove{ID: 5, X: 1, Y: 1})
	m.undo.Push("move note", undoMove{ID: 5, X: 2, Y: 2})

	require.NotNil(t, m.runUndo())
	assert.Nil(t, m.runUndo(), "second undo waits for the first inverse to land")
	assert.Equal(t, 1, m.undo.Len())
}

func TestUndoLabelPerKind(t *testing.T) {
	for _, tc := range []struct {
		op    undoOp
		label string
	}{
		{undoCreate{ID: 1}, "create note"},
		{undoDelete{Node: Note{ID: 1}}, "delete note"},
		{undoConnect{Key: LinkKey{A: 1, B: 2}}, "connect notes"},
	} {
		s := &undoStack{}
		s.Push(tc.label, tc.op)
		e, ok := s.Pop()
		require.True(t, ok, fmt.Sprintf("%T", tc.op))
		assert.Equal(t, tc.label, e.Label)
	}
}
