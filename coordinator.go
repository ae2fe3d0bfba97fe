package main

import (
	"context"
	"errors"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

var (
	errEmptyTitle    = errors.New("title cannot be empty")
	errMissingNote   = errors.New("note no longer exists")
	errMissingLink   = errors.New("link no longer exists")
	errCrossStage    = errors.New("notes are in different stages and cannot be connected")
	errAlreadyLinked = errors.New("notes are already connected")
)

// coordinator applies every mutation optimistically: validate, change the
// local snapshot, fire one remote request, and either register the undo
// entry on success or roll the snapshot back on failure. Local state is only
// touched from the Update goroutine; the returned tea.Cmd runs the remote
// call off it and marshals the outcome back as a message.
type coordinator struct {
	graph       *Graph
	undo        *undoStack
	client      *apiClient
	log         *zap.Logger
	moveSeq     map[int64]uint64
	editSeq     map[int64]uint64
	nextDraftID int64
}

func newCoordinator(graph *Graph, undo *undoStack, client *apiClient, log *zap.Logger) *coordinator {
	return &coordinator{
		graph:       graph,
		undo:        undo,
		client:      client,
		log:         log,
		moveSeq:     make(map[int64]uint64),
		editSeq:     make(map[int64]uint64),
		nextDraftID: -1,
	}
}

// CreateNote inserts a draft under a provisional negative id and asks the
// backend for the durable copy. parentID zero creates at root.
func (c *coordinator) CreateNote(title, subtitle, body string, at Point, parentID int64, fromUndo bool) (int64, tea.Cmd, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, nil, errEmptyTitle
	}
	if parentID != 0 && !c.graph.HasNote(parentID) {
		parentID = 0
	}

	draftID := c.nextDraftID
	c.nextDraftID--
	c.graph.AddNote(Note{
		ID:       draftID,
		Title:    title,
		Subtitle: subtitle,
		Body:     body,
		X:        at.X,
		Y:        at.Y,
		ParentID: parentID,
	})
	c.log.Info("create note", zap.Int64("draft", draftID), zap.String("title", title))

	req := createNoteRequest{Title: title, X: &at.X, Y: &at.Y}
	if subtitle != "" {
		req.Subtitle = &subtitle
	}
	if body != "" {
		req.Content = &body
	}
	if parentID != 0 {
		req.ParentID = &parentID
	}
	return draftID, c.createCmd(draftID, req, fromUndo, nil), nil
}

// RecreateNote is the delete inverse: same fields, relations re-validated
// against current state. Links are restored only toward endpoints that still
// exist, and prior companions are re-parented onto the new server id once
// the create lands.
func (c *coordinator) RecreateNote(prior Note, links []LinkKey, companions []int64) (tea.Cmd, error) {
	var related []int64
	for _, k := range links {
		other := k.A
		if other == prior.ID {
			other = k.B
		}
		if c.graph.HasNote(other) {
			related = append(related, other)
		}
	}
	parentID := prior.ParentID
	if parentID != 0 && !c.graph.HasNote(parentID) {
		parentID = 0
	}

	draftID := c.nextDraftID
	c.nextDraftID--
	draft := prior
	draft.ID = draftID
	draft.ParentID = parentID
	c.graph.AddNote(draft)
	for _, other := range related {
		if k, err := normalizeLink(draftID, other); err == nil {
			c.graph.AddLink(k)
		}
	}
	c.log.Info("recreate note", zap.Int64("draft", draftID), zap.String("title", prior.Title))

	req := createNoteRequest{
		Title:      prior.Title,
		Subtitle:   &prior.Subtitle,
		Content:    &prior.Body,
		X:          &prior.X,
		Y:          &prior.Y,
		RelatedIDs: related,
	}
	if parentID != 0 {
		req.ParentID = &parentID
	}
	var survivors []int64
	for _, id := range companions {
		if c.graph.HasNote(id) {
			survivors = append(survivors, id)
		}
	}
	return c.createCmd(draftID, req, true, survivors), nil
}

func (c *coordinator) createCmd(draftID int64, req createNoteRequest, fromUndo bool, companions []int64) tea.Cmd {
	client := c.client
	return func() tea.Msg {
		note, err := client.CreateNote(context.Background(), req)
		return createResultMsg{draftID: draftID, note: note, err: err, fromUndo: fromUndo, companions: companions}
	}
}

// HandleCreateResult adopts the server id into the snapshot, or discards
// the draft on failure. Returns the adopted id (0 on failure), a banner
// message, and any follow-up command (companion re-parenting).
func (c *coordinator) HandleCreateResult(msg createResultMsg) (int64, string, tea.Cmd) {
	if msg.fromUndo {
		c.undo.applying = false
	}
	if msg.err != nil {
		c.graph.RemoveNote(msg.draftID)
		c.log.Warn("create failed", zap.Int64("draft", msg.draftID), zap.Error(msg.err))
		return 0, msg.err.Error(), nil
	}

	c.graph.AdoptID(msg.draftID, msg.note.ID)
	if n, ok := c.graph.Note(msg.note.ID); ok {
		n.UpdatedAt = msg.note.UpdatedAt
		// The backend picks a spawn position when none was sent; adopt it.
		n.X = msg.note.X
		n.Y = msg.note.Y
	}

	var followup tea.Cmd
	if len(msg.companions) > 0 {
		var cmds []tea.Cmd
		for _, id := range msg.companions {
			n, ok := c.graph.Note(id)
			if !ok {
				continue
			}
			n.ParentID = msg.note.ID
			cmds = append(cmds, c.reparentCmd(*n))
		}
		followup = tea.Batch(cmds...)
	}

	if !msg.fromUndo {
		c.undo.Push("create note", undoCreate{ID: msg.note.ID})
	}
	return msg.note.ID, "", followup
}

func (c *coordinator) reparentCmd(n Note) tea.Cmd {
	client := c.client
	parent := n.ParentID
	req := updateNoteRequest{Title: n.Title, Subtitle: n.Subtitle, Content: n.Body, X: n.X, Y: n.Y}
	if parent != 0 {
		req.ParentID = &parent
	}
	id := n.ID
	return func() tea.Msg {
		_, err := client.UpdateNote(context.Background(), id, req)
		return reparentResultMsg{id: id, err: err}
	}
}

// EditNote rewrites the text fields, keeping position and parent. In-flight
// edits are fenced per note id like moves.
func (c *coordinator) EditNote(id int64, title, subtitle, body string, fromUndo bool) (tea.Cmd, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, errEmptyTitle
	}
	n, ok := c.graph.Note(id)
	if !ok {
		return nil, errMissingNote
	}
	prior := *n
	n.Title = title
	n.Subtitle = subtitle
	n.Body = body
	c.editSeq[id]++
	seq := c.editSeq[id]
	c.log.Info("edit note", zap.Int64("id", id))

	req := updateNoteRequest{Title: title, Subtitle: subtitle, Content: body, X: n.X, Y: n.Y}
	if n.ParentID != 0 {
		parent := n.ParentID
		req.ParentID = &parent
	}
	client := c.client
	return func() tea.Msg {
		updated, err := client.UpdateNote(context.Background(), id, req)
		return editResultMsg{id: id, seq: seq, prior: prior, note: updated, err: err, fromUndo: fromUndo}
	}, nil
}

func (c *coordinator) HandleEditResult(msg editResultMsg) string {
	if msg.fromUndo {
		c.undo.applying = false
	}
	if msg.seq != c.editSeq[msg.id] {
		// Superseded by a newer edit; its own result owns the state now.
		return ""
	}
	n, ok := c.graph.Note(msg.id)
	if msg.err != nil {
		if ok {
			n.Title = msg.prior.Title
			n.Subtitle = msg.prior.Subtitle
			n.Body = msg.prior.Body
		}
		c.log.Warn("edit failed", zap.Int64("id", msg.id), zap.Error(msg.err))
		return msg.err.Error()
	}
	if ok {
		n.UpdatedAt = msg.note.UpdatedAt
	}
	if !msg.fromUndo {
		c.undo.Push("edit note", undoEdit{Prior: msg.prior})
	}
	return ""
}

// MoveNote commits a position. In-flight persists are fenced per note id so
// a stale response can never clobber a newer local move.
func (c *coordinator) MoveNote(id int64, to Point, fromUndo bool) (tea.Cmd, error) {
	n, ok := c.graph.Note(id)
	if !ok {
		return nil, errMissingNote
	}
	priorX, priorY := n.X, n.Y
	n.X, n.Y = to.X, to.Y
	c.moveSeq[id]++
	seq := c.moveSeq[id]

	client := c.client
	return func() tea.Msg {
		_, err := client.UpdatePosition(context.Background(), id, to.X, to.Y)
		return moveResultMsg{id: id, seq: seq, priorX: priorX, priorY: priorY, err: err, fromUndo: fromUndo}
	}, nil
}

func (c *coordinator) HandleMoveResult(msg moveResultMsg) string {
	if msg.fromUndo {
		c.undo.applying = false
	}
	if msg.seq != c.moveSeq[msg.id] {
		// Superseded by a newer move; its own result owns the state now.
		return ""
	}
	if msg.err != nil {
		if n, ok := c.graph.Note(msg.id); ok {
			n.X, n.Y = msg.priorX, msg.priorY
		}
		c.log.Warn("move failed", zap.Int64("id", msg.id), zap.Error(msg.err))
		return msg.err.Error()
	}
	if !msg.fromUndo {
		c.undo.Push("move note", undoMove{ID: msg.id, X: msg.priorX, Y: msg.priorY})
	}
	return ""
}

// DeleteNote removes the note and its incident links from the snapshot
// before the backend confirms; the removed pieces ride along in the result
// message for rollback and for the delete inverse.
func (c *coordinator) DeleteNote(id int64, fromUndo bool) (tea.Cmd, error) {
	removed, links, companions, ok := c.graph.RemoveNote(id)
	if !ok {
		return nil, errMissingNote
	}
	c.log.Info("delete note", zap.Int64("id", id))

	client := c.client
	return func() tea.Msg {
		err := client.DeleteNote(context.Background(), id)
		return deleteResultMsg{id: id, prior: removed, links: links, companions: companions, err: err, fromUndo: fromUndo}
	}, nil
}

func (c *coordinator) HandleDeleteResult(msg deleteResultMsg) string {
	if msg.fromUndo {
		c.undo.applying = false
	}
	if msg.err != nil {
		c.graph.AddNote(msg.prior)
		for _, k := range msg.links {
			c.graph.AddLink(k)
		}
		c.log.Warn("delete failed", zap.Int64("id", msg.id), zap.Error(msg.err))
		return msg.err.Error()
	}
	if !msg.fromUndo {
		c.undo.Push("delete note", undoDelete{Node: msg.prior, Links: msg.links, Companions: msg.companions})
	}
	return ""
}

// Connect links two notes. Cross-stage connections are rejected before any
// state changes; a duplicate of an existing link is a validation error too,
// since nothing would change and nothing should become undoable.
func (c *coordinator) Connect(a, b int64, fromUndo bool) (tea.Cmd, error) {
	key, err := normalizeLink(a, b)
	if err != nil {
		return nil, err
	}
	if !c.graph.HasNote(a) || !c.graph.HasNote(b) {
		return nil, errMissingNote
	}
	if !c.graph.SameScope(a, b) {
		return nil, errCrossStage
	}
	if c.graph.HasLink(key) {
		return nil, errAlreadyLinked
	}
	c.graph.AddLink(key)
	c.log.Info("connect", zap.Int64("a", key.A), zap.Int64("b", key.B))

	client := c.client
	return func() tea.Msg {
		err := client.CreateLink(context.Background(), key)
		return linkResultMsg{key: key, created: true, err: err, fromUndo: fromUndo}
	}, nil
}

// Disconnect removes a link.
func (c *coordinator) Disconnect(key LinkKey, fromUndo bool) (tea.Cmd, error) {
	if !c.graph.HasLink(key) {
		return nil, errMissingLink
	}
	c.graph.RemoveLink(key)
	c.log.Info("disconnect", zap.Int64("a", key.A), zap.Int64("b", key.B))

	client := c.client
	return func() tea.Msg {
		err := client.DeleteLink(context.Background(), key)
		return linkResultMsg{key: key, created: false, err: err, fromUndo: fromUndo}
	}, nil
}

func (c *coordinator) HandleLinkResult(msg linkResultMsg) string {
	if msg.fromUndo {
		c.undo.applying = false
	}
	if msg.err != nil {
		if msg.created {
			c.graph.RemoveLink(msg.key)
		} else {
			c.graph.AddLink(msg.key)
		}
		c.log.Warn("link mutation failed", zap.Error(msg.err))
		return msg.err.Error()
	}
	if !msg.fromUndo {
		if msg.created {
			c.undo.Push("connect notes", undoConnect{Key: msg.key})
		} else {
			c.undo.Push("disconnect notes", undoDisconnect{Key: msg.key})
		}
	}
	return ""
}

// AutoLayout asks the backend to recompute every position. Nothing is
// applied optimistically — there is nothing to apply until the server
// answers — so failure needs no rollback.
func (c *coordinator) AutoLayout() tea.Cmd {
	client := c.client
	return func() tea.Msg {
		notes, links, err := client.AutoLayout(context.Background())
		return layoutResultMsg{notes: notes, links: links, err: err}
	}
}

// HandleLayoutResult snapshots prior positions before adopting the new
// ones, so the whole layout reverts as one inverse action.
func (c *coordinator) HandleLayoutResult(msg layoutResultMsg) string {
	if msg.err != nil {
		c.log.Warn("auto-layout failed", zap.Error(msg.err))
		return msg.err.Error()
	}
	prior := make(map[int64]Point)
	for _, incoming := range msg.notes {
		n, ok := c.graph.Note(incoming.ID)
		if !ok {
			continue
		}
		prior[n.ID] = Point{X: n.X, Y: n.Y}
		n.X, n.Y = incoming.X, incoming.Y
		n.UpdatedAt = incoming.UpdatedAt
	}
	if len(prior) > 0 {
		c.undo.Push("auto layout", undoLayout{Positions: prior})
	}
	return ""
}

// RestoreLayout is the layout inverse: put every note back and persist each
// position. The persists are fenced like any other move.
func (c *coordinator) RestoreLayout(positions map[int64]Point) tea.Cmd {
	var cmds []tea.Cmd
	for id, p := range positions {
		n, ok := c.graph.Note(id)
		if !ok {
			continue
		}
		n.X, n.Y = p.X, p.Y
		c.moveSeq[id]++
		seq := c.moveSeq[id]
		client := c.client
		noteID, to := id, p
		cmds = append(cmds, func() tea.Msg {
			_, err := client.UpdatePosition(context.Background(), noteID, to.X, to.Y)
			// priorX/priorY are the restored target on purpose: the layout
			// snapshot positions are already gone, so a failed persist keeps
			// the restored value rather than rolling anywhere else.
			return moveResultMsg{id: noteID, seq: seq, priorX: to.X, priorY: to.Y, err: err, fromUndo: true}
		})
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}
