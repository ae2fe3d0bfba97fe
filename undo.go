package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Each mutation kind has its own inverse variant, computed from the
// pre-mutation snapshot. An inverse is not a generic replay: undo-of-delete,
// for example, has to re-validate relations against whatever still exists
// when it runs.
type undoOp interface{ undoOp() }

type undoCreate struct {
	ID int64
}

type undoDelete struct {
	Node       Note
	Links      []LinkKey
	Companions []int64
}

type undoEdit struct {
	Prior Note
}

type undoMove struct {
	ID int64
	X  float64
	Y  float64
}

type undoConnect struct {
	Key LinkKey
}

type undoDisconnect struct {
	Key LinkKey
}

type undoLayout struct {
	Positions map[int64]Point
}

func (undoCreate) undoOp()     {}
func (undoDelete) undoOp()     {}
func (undoEdit) undoOp()       {}
func (undoMove) undoOp()       {}
func (undoConnect) undoOp()    {}
func (undoDisconnect) undoOp() {}
func (undoLayout) undoOp()     {}

type undoEntry struct {
	Label string
	Op    undoOp
}

// undoStack is a bounded LIFO of reversible actions. While an inverse is in
// flight the applying flag suppresses Push, so running an undo never
// registers its own undo entry.
type undoStack struct {
	entries  []undoEntry
	applying bool
}

func (s *undoStack) Push(label string, op undoOp) {
	if s.applying {
		return
	}
	s.entries = append(s.entries, undoEntry{Label: label, Op: op})
	if len(s.entries) > maxUndoDepth {
		s.entries = s.entries[len(s.entries)-maxUndoDepth:]
	}
}

func (s *undoStack) Pop() (undoEntry, bool) {
	if len(s.entries) == 0 {
		return undoEntry{}, false
	}
	last := len(s.entries) - 1
	e := s.entries[last]
	s.entries = s.entries[:last]
	return e, true
}

func (s *undoStack) Len() int { return len(s.entries) }

// runUndo pops the newest entry and dispatches its inverse through the
// coordinator. The applying flag stays set until the inverse's result
// message comes back.
func (m *model) runUndo() tea.Cmd {
	if m.undo.applying {
		return nil
	}
	entry, ok := m.undo.Pop()
	if !ok {
		return nil
	}
	m.undo.applying = true
	m.log.Info("undo", zap.String("label", entry.Label))

	var cmd tea.Cmd
	var err error
	switch op := entry.Op.(type) {
	case undoCreate:
		cmd, err = m.co.DeleteNote(op.ID, true)
	case undoDelete:
		cmd, err = m.co.RecreateNote(op.Node, op.Links, op.Companions)
	case undoEdit:
		cmd, err = m.co.EditNote(op.Prior.ID, op.Prior.Title, op.Prior.Subtitle, op.Prior.Body, true)
	case undoMove:
		cmd, err = m.co.MoveNote(op.ID, Point{X: op.X, Y: op.Y}, true)
	case undoConnect:
		cmd, err = m.co.Disconnect(op.Key, true)
	case undoDisconnect:
		cmd, err = m.co.Connect(op.Key.A, op.Key.B, true)
	case undoLayout:
		cmd = m.co.RestoreLayout(op.Positions)
	}
	if err != nil {
		// The inverse no longer applies to current state; drop it rather
		// than crash or loop.
		m.undo.applying = false
		m.errorMessage = err.Error()
		return nil
	}
	if cmd == nil {
		m.undo.applying = false
	}
	return cmd
}
