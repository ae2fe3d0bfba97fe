package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	config := loadConfig()

	root := &cobra.Command{
		Use:   "graphalfred",
		Short: "Interactive canvas for a linked note graph",
		Long: "graphalfred is a terminal canvas onto a note graph served by a\n" +
			"GraphAlfred backend: click to select, double-click to drill into a\n" +
			"note's own stage, drag to move, drag the handle to connect.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger(config.DataPath("canvas.log"), config.Verbose)
			if err != nil {
				return fmt.Errorf("open log: %w", err)
			}
			defer logger.Sync()

			m := initialModel(config, logger)
			p := tea.NewProgram(
				m,
				tea.WithAltScreen(),
				tea.WithMouseCellMotion(),
			)
			if _, err := p.Run(); err != nil {
				return err
			}
			return nil
		},
	}

	root.Flags().StringVar(&config.ServerURL, "server", config.ServerURL, "backend base URL")
	root.Flags().StringVar(&config.DataDir, "data-dir", config.DataDir, "directory for logs, view state and exports")
	root.Flags().BoolVarP(&config.Verbose, "verbose", "v", config.Verbose, "debug logging")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLogger writes structured logs to a file; stdout belongs to the TUI.
func newLogger(path string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{path}
	cfg.ErrorOutputPaths = []string{path}
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}

type model struct {
	width  int
	height int

	config *Config
	log    *zap.Logger

	graph    *Graph
	undo     *undoStack
	co       *coordinator
	gestures *gestures
	views    *viewStateCache

	mode  Mode
	focus FocusContext
	pan   Point
	zoom  float64

	highlighted int64
	editor      editorState
	search      searchState

	confirmAction ConfirmAction
	confirmNote   int64
	confirmLink   LinkKey

	dragOrigin    Point
	dragOriginSet bool

	errorMessage string
	notice       string
	loaded       bool
}

func initialModel(config *Config, logger *zap.Logger) *model {
	graph := NewGraph()
	undo := &undoStack{}
	client := newAPIClient(config.ServerURL)
	return &model{
		config:   config,
		log:      logger,
		graph:    graph,
		undo:     undo,
		co:       newCoordinator(graph, undo, client, logger),
		gestures: newGestures(),
		views:    newViewStateCache(config.DataPath("viewstate.json")),
		zoom:     zoomDefault,
	}
}

func (m *model) Init() tea.Cmd {
	client := m.co.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), remoteTimeout)
		defer cancel()
		if err := client.Health(ctx); err != nil {
			return graphLoadedMsg{err: fmt.Errorf("backend unreachable at %s", m.config.ServerURL)}
		}
		notes, links, err := client.FetchGraph(ctx)
		return graphLoadedMsg{notes: notes, links: links, err: err}
	}
}

func tapTickCmd(deadline time.Time) tea.Cmd {
	return tea.Tick(time.Until(deadline)+10*time.Millisecond, func(t time.Time) tea.Msg {
		return tapWindowMsg{at: t}
	})
}

func flushTickCmd() tea.Cmd {
	return tea.Tick(viewStateDebounce+50*time.Millisecond, func(t time.Time) tea.Msg {
		return flushTickMsg{at: t}
	})
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case graphLoadedMsg:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
			return m, nil
		}
		m.graph.Replace(msg.notes, msg.links)
		m.loaded = true
		m.applyViewState(0)
		m.log.Info("graph loaded", zap.Int("notes", len(msg.notes)), zap.Int("links", len(msg.links)))
		return m, nil

	case createResultMsg:
		id, banner, followup := m.co.HandleCreateResult(msg)
		if banner != "" {
			m.errorMessage = banner
			if m.highlighted == msg.draftID {
				m.highlighted = 0
			}
			return m, nil
		}
		if m.highlighted == msg.draftID {
			m.highlighted = id
		}
		return m, followup

	case editResultMsg:
		if banner := m.co.HandleEditResult(msg); banner != "" {
			m.errorMessage = banner
		}
		return m, nil

	case moveResultMsg:
		if banner := m.co.HandleMoveResult(msg); banner != "" {
			m.errorMessage = banner
		}
		return m, nil

	case deleteResultMsg:
		if banner := m.co.HandleDeleteResult(msg); banner != "" {
			m.errorMessage = banner
		}
		return m, nil

	case linkResultMsg:
		if banner := m.co.HandleLinkResult(msg); banner != "" {
			m.errorMessage = banner
		}
		return m, nil

	case layoutResultMsg:
		if banner := m.co.HandleLayoutResult(msg); banner != "" {
			m.errorMessage = banner
		} else {
			m.notice = "layout applied"
		}
		return m, nil

	case reparentResultMsg:
		if msg.err != nil {
			m.errorMessage = msg.err.Error()
		}
		return m, nil

	case searchResultMsg:
		if m.mode == ModeSearch && msg.query == m.search.query {
			if msg.err != nil {
				m.errorMessage = msg.err.Error()
			} else {
				m.search.results = msg.results
				m.search.ran = true
				if m.search.selected >= len(msg.results) {
					m.search.selected = 0
				}
			}
		}
		return m, nil

	case tapWindowMsg:
		var cmds []tea.Cmd
		for _, it := range m.gestures.ExpireTaps(msg.at) {
			// An overlay opened mid-window swallows the expiring tap.
			if m.mode != ModeNormal {
				continue
			}
			if cmd := m.applyIntent(it, msg.at); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		if deadline, ok := m.gestures.NextDeadline(); ok {
			cmds = append(cmds, tapTickCmd(deadline))
		}
		return m, tea.Batch(cmds...)

	case flushTickMsg:
		if err := m.views.MaybeFlush(msg.at); err != nil {
			m.log.Warn("view state flush failed", zap.Error(err))
		}
		return m, nil
	}
	return m, nil
}

// handleMouse routes pointer events to the gesture machine. Hit testing
// happens here, once, at press time: the handle wins over its note, notes
// win over links, links win over bare background.
func (m *model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.mode != ModeNormal && m.mode != ModeQuickCreate {
		return m, nil
	}
	now := time.Now()
	x, y := msg.X, msg.Y-1 // canvas starts below the breadcrumb bar

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.zoomAt(Point{X: float64(x), Y: float64(y)}, zoomStep)
		m.rememberView(now)
		return m, flushTickCmd()
	case tea.MouseButtonWheelDown:
		m.zoomAt(Point{X: float64(x), Y: float64(y)}, 1/zoomStep)
		m.rememberView(now)
		return m, flushTickCmd()
	}

	if m.mode == ModeQuickCreate {
		// A pointer press elsewhere abandons the inline draft.
		if msg.Action == tea.MouseActionPress {
			m.focus.Draft = nil
			m.mode = ModeNormal
		}
		return m, nil
	}

	switch msg.Button {
	case tea.MouseButtonLeft:
		switch msg.Action {
		case tea.MouseActionPress:
			if m.config.DragToConnect {
				if id, ok := m.handleAt(x, y); ok {
					m.gestures.PressHandle(id, float64(x), float64(y))
					return m, nil
				}
			}
			if id, ok := m.noteAt(x, y); ok {
				m.gestures.PressNote(id, float64(x), float64(y))
				return m, nil
			}
			if k, ok := m.linkAt(x, y); ok {
				m.focus.SelectedLink = &k
				m.highlighted = 0
				return m, nil
			}
			m.focus.SelectedLink = nil
			m.gestures.PressBackground(float64(x), float64(y))
			return m, nil

		case tea.MouseActionMotion:
			return m.dispatchIntents(m.gestures.Move(float64(x), float64(y), msg.Alt), now)

		case tea.MouseActionRelease:
			_, cmd := m.dispatchIntents(m.gestures.Release(float64(x), float64(y), now), now)
			var cmds []tea.Cmd
			if cmd != nil {
				cmds = append(cmds, cmd)
			}
			if deadline, ok := m.gestures.NextDeadline(); ok {
				cmds = append(cmds, tapTickCmd(deadline))
			}
			return m, tea.Batch(cmds...)
		}

	case tea.MouseButtonNone:
		if msg.Action == tea.MouseActionMotion {
			return m.dispatchIntents(m.gestures.Move(float64(x), float64(y), msg.Alt), now)
		}

	case tea.MouseButtonRight:
		if msg.Action != tea.MouseActionRelease {
			return m, nil
		}
		if id, ok := m.noteAt(x, y); ok {
			if m.focus.Contextual == id {
				m.focus.Contextual = 0
			} else {
				m.focus.Contextual = id
			}
		} else {
			m.focus.Contextual = 0
		}
		return m, nil
	}
	return m, nil
}

func (m *model) dispatchIntents(intents []intent, now time.Time) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	for _, it := range intents {
		if cmd := m.applyIntent(it, now); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return m, nil
	}
	return m, tea.Batch(cmds...)
}

// applyIntent executes one classified gesture.
func (m *model) applyIntent(it intent, now time.Time) tea.Cmd {
	switch it.kind {
	case intentSelectNote:
		m.highlighted = it.note
		m.focus.SelectedLink = nil
		if m.focus.Contextual != 0 {
			// Tapping inside an active contextual scope re-centers it.
			m.focus.Contextual = it.note
		}

	case intentDrillNote:
		m.drillInto(it.note, now)

	case intentNavigateBack:
		m.navigateBack(now)

	case intentCreateAt:
		m.focus.Draft = &quickDraft{At: m.graphPoint(it.screen)}
		m.mode = ModeQuickCreate

	case intentPan:
		m.pan.X += it.deltaX
		m.pan.Y += it.deltaY
		m.rememberView(now)
		return flushTickCmd()

	case intentDragMove:
		n, ok := m.graph.Note(it.note)
		if !ok {
			return nil
		}
		if !m.dragOriginSet {
			m.dragOrigin = Point{X: n.X, Y: n.Y}
			m.dragOriginSet = true
		}
		p := m.graphPoint(it.screen)
		n.X, n.Y = p.X, p.Y

	case intentDragRelease:
		n, ok := m.graph.Note(it.note)
		if !ok || !m.dragOriginSet {
			m.dragOriginSet = false
			return nil
		}
		final := m.graphPoint(it.screen)
		// Rewind to the drag origin so the persist records the right prior
		// position for undo, then commit the final one.
		n.X, n.Y = m.dragOrigin.X, m.dragOrigin.Y
		m.dragOriginSet = false
		if m.config.DragToConnect {
			// Dropping onto another note connects instead of moving; the
			// source stays where the drag started.
			if target, ok := nearestNote(m.stageNotes(), it.note, final, m.zoom); ok {
				cmd, err := m.co.Connect(it.note, target, false)
				if err != nil {
					m.errorMessage = err.Error()
					return nil
				}
				return cmd
			}
		}
		cmd, err := m.co.MoveNote(it.note, final, false)
		if err != nil {
			m.errorMessage = err.Error()
			return nil
		}
		return cmd

	case intentConnectPreview:
		m.focus.ConnectFrom = it.note
		m.focus.ConnectAt = it.screen

	case intentConnectRelease:
		source := it.note
		m.focus.ConnectFrom = 0
		target, ok := nearestNote(m.stageNotes(), source, m.graphPoint(it.screen), m.zoom)
		if !ok {
			return nil
		}
		cmd, err := m.co.Connect(source, target, false)
		if err != nil {
			m.errorMessage = err.Error()
			return nil
		}
		return cmd
	}
	return nil
}

func (m *model) graphPoint(screen Point) Point {
	return toGraph(screen, m.pan, m.zoom, m.width, m.canvasHeight())
}

func (m *model) zoomAt(anchor Point, factor float64) {
	g := m.graphPoint(anchor)
	m.zoom = clampZoom(m.zoom * factor)
	m.pan = Point{
		X: anchor.X - float64(m.width)/2 - g.X*m.zoom,
		Y: anchor.Y - float64(m.canvasHeight())/2 - g.Y*m.zoom,
	}
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case ModeQuickCreate:
		return m.handleQuickCreateKey(msg)
	case ModeEditing:
		return m.handleEditorKey(msg)
	case ModeSearch:
		return m.handleSearchKey(msg)
	case ModeConfirm:
		return m.handleConfirmKey(msg)
	case ModeHelp:
		m.mode = ModeNormal
		return m, nil
	}
	return m.handleNormalKey(msg)
}

func (m *model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	now := time.Now()
	m.notice = ""

	switch msg.String() {
	case "ctrl+c":
		return m.quit()

	case "q":
		if m.config.Confirmations {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmQuit
			return m, nil
		}
		return m.quit()

	case "esc":
		// Peel one layer at a time: in-flight transients first, then the
		// stage itself. Backing out of a stage clears its scope and
		// selection with it, so those only matter at root.
		switch {
		case m.errorMessage != "":
			m.errorMessage = ""
		case m.focus.ConnectFrom != 0:
			m.focus.ConnectFrom = 0
			m.gestures.Cancel()
		case m.focus.SelectedLink != nil:
			m.focus.SelectedLink = nil
		case m.focus.Isolated != 0:
			m.navigateBack(now)
		case m.focus.Contextual != 0:
			m.focus.Contextual = 0
		case m.highlighted != 0:
			m.highlighted = 0
		}
		return m, nil

	case "backspace":
		m.navigateBack(now)
		return m, nil

	case "u":
		return m, m.runUndo()

	case "e", "enter":
		if m.highlighted == 0 {
			return m, nil
		}
		n, ok := m.graph.Note(m.highlighted)
		if !ok {
			return m, nil
		}
		m.editor = editorState{
			noteID:   n.ID,
			title:    n.Title,
			subtitle: n.Subtitle,
			body:     n.Body,
		}
		m.editor.cursorPos = len([]rune(n.Title))
		m.mode = ModeEditing
		return m, nil

	case "b":
		center := Point{X: float64(m.width) / 2, Y: float64(m.canvasHeight()) / 2}
		m.focus.Draft = &quickDraft{At: m.graphPoint(center)}
		m.mode = ModeQuickCreate
		return m, nil

	case "d", "delete":
		if m.focus.SelectedLink != nil {
			k := *m.focus.SelectedLink
			if m.config.Confirmations {
				m.mode = ModeConfirm
				m.confirmAction = ConfirmDeleteLink
				m.confirmLink = k
				return m, nil
			}
			return m, m.deleteLink(k)
		}
		if m.highlighted != 0 {
			if m.config.Confirmations {
				m.mode = ModeConfirm
				m.confirmAction = ConfirmDeleteNote
				m.confirmNote = m.highlighted
				return m, nil
			}
			return m, m.deleteNote(m.highlighted)
		}
		return m, nil

	case "/":
		m.mode = ModeSearch
		m.search = searchState{}
		return m, nil

	case "?":
		m.mode = ModeHelp
		return m, nil

	case "y":
		if n, ok := m.graph.Note(m.highlighted); ok {
			if err := yankNote(n); err != nil {
				m.errorMessage = "clipboard: " + err.Error()
			} else {
				m.notice = "yanked"
			}
		}
		return m, nil

	case "L":
		return m, m.co.AutoLayout()

	case "P":
		name := fmt.Sprintf("canvas-%s.png", time.Now().Format("20060102-150405"))
		path := m.config.DataPath(name)
		if err := exportStagePNG(m.graph, m.focus.Isolated, path); err != nil {
			m.errorMessage = err.Error()
		} else {
			m.notice = "exported " + path
		}
		return m, nil

	case "+", "=":
		m.zoomAt(Point{X: float64(m.width) / 2, Y: float64(m.canvasHeight()) / 2}, zoomStep)
		m.rememberView(now)
		return m, flushTickCmd()

	case "-", "_":
		m.zoomAt(Point{X: float64(m.width) / 2, Y: float64(m.canvasHeight()) / 2}, 1/zoomStep)
		m.rememberView(now)
		return m, flushTickCmd()

	case "h", "left":
		return m.panBy(4, 0, now)
	case "l", "right":
		return m.panBy(-4, 0, now)
	case "k", "up":
		return m.panBy(0, 2, now)
	case "j", "down":
		return m.panBy(0, -2, now)
	}
	return m, nil
}

func (m *model) panBy(dx, dy float64, now time.Time) (tea.Model, tea.Cmd) {
	m.pan.X += dx
	m.pan.Y += dy
	m.rememberView(now)
	return m, flushTickCmd()
}

func (m *model) deleteNote(id int64) tea.Cmd {
	// Deleting the note you are standing in pops the stage first, so the
	// view never points at a removed note.
	if id == m.focus.Isolated {
		m.navigateBack(time.Now())
	}
	cmd, err := m.co.DeleteNote(id, false)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	if m.highlighted == id {
		m.highlighted = 0
	}
	if m.focus.Contextual == id {
		m.focus.Contextual = 0
	}
	if m.focus.SelectedLink != nil && (m.focus.SelectedLink.A == id || m.focus.SelectedLink.B == id) {
		m.focus.SelectedLink = nil
	}
	return cmd
}

func (m *model) deleteLink(k LinkKey) tea.Cmd {
	cmd, err := m.co.Disconnect(k, false)
	if err != nil {
		m.errorMessage = err.Error()
		return nil
	}
	if m.focus.SelectedLink != nil && *m.focus.SelectedLink == k {
		m.focus.SelectedLink = nil
	}
	return cmd
}

func (m *model) handleQuickCreateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	d := m.focus.Draft
	if d == nil {
		m.mode = ModeNormal
		return m, nil
	}
	switch msg.String() {
	case "esc":
		m.focus.Draft = nil
		m.mode = ModeNormal
		return m, nil

	case "enter":
		title := strings.TrimSpace(d.Title)
		m.focus.Draft = nil
		m.mode = ModeNormal
		if title == "" {
			return m, nil
		}
		draftID, cmd, err := m.co.CreateNote(title, "", "", d.At, m.focus.Isolated, false)
		if err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		m.highlighted = draftID
		return m, cmd

	case "backspace":
		runes := []rune(d.Title)
		if d.CursorPos > 0 && d.CursorPos <= len(runes) {
			d.Title = string(runes[:d.CursorPos-1]) + string(runes[d.CursorPos:])
			d.CursorPos--
		}
		return m, nil

	case "left":
		if d.CursorPos > 0 {
			d.CursorPos--
		}
		return m, nil

	case "right":
		if d.CursorPos < len([]rune(d.Title)) {
			d.CursorPos++
		}
		return m, nil

	case "ctrl+v":
		if text, err := readClipboardText(); err == nil {
			pasted := firstLine(cleanClipboardText(text))
			runes := []rune(d.Title)
			d.Title = string(runes[:d.CursorPos]) + pasted + string(runes[d.CursorPos:])
			d.CursorPos += len([]rune(pasted))
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		runes := []rune(d.Title)
		d.Title = string(runes[:d.CursorPos]) + text + string(runes[d.CursorPos:])
		d.CursorPos += len([]rune(text))
	}
	return m, nil
}

func (m *model) editorFieldText() *string {
	switch m.editor.field {
	case editorFieldSubtitle:
		return &m.editor.subtitle
	case editorFieldBody:
		return &m.editor.body
	}
	return &m.editor.title
}

func (m *model) handleEditorKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	ed := &m.editor
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		return m, nil

	case "ctrl+s":
		m.mode = ModeNormal
		cmd, err := m.co.EditNote(ed.noteID, ed.title, ed.subtitle, ed.body, false)
		if err != nil {
			m.errorMessage = err.Error()
			return m, nil
		}
		return m, cmd

	case "tab":
		ed.field = (ed.field + 1) % 3
		ed.cursorPos = len([]rune(*m.editorFieldText()))
		return m, nil

	case "shift+tab":
		ed.field = (ed.field + 2) % 3
		ed.cursorPos = len([]rune(*m.editorFieldText()))
		return m, nil

	case "enter":
		if ed.field == editorFieldBody {
			m.insertEditorText("\n")
			return m, nil
		}
		ed.field++
		ed.cursorPos = len([]rune(*m.editorFieldText()))
		return m, nil

	case "backspace":
		target := m.editorFieldText()
		runes := []rune(*target)
		if ed.cursorPos > 0 && ed.cursorPos <= len(runes) {
			*target = string(runes[:ed.cursorPos-1]) + string(runes[ed.cursorPos:])
			ed.cursorPos--
		}
		return m, nil

	case "left":
		if ed.cursorPos > 0 {
			ed.cursorPos--
		}
		return m, nil

	case "right":
		if ed.cursorPos < len([]rune(*m.editorFieldText())) {
			ed.cursorPos++
		}
		return m, nil

	case "ctrl+v":
		if text, err := readClipboardText(); err == nil {
			pasted := cleanClipboardText(text)
			if ed.field != editorFieldBody {
				pasted = firstLine(pasted)
			}
			m.insertEditorText(pasted)
		}
		return m, nil
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		m.insertEditorText(text)
	}
	return m, nil
}

func (m *model) insertEditorText(text string) {
	target := m.editorFieldText()
	runes := []rune(*target)
	pos := clampInt(m.editor.cursorPos, 0, len(runes))
	*target = string(runes[:pos]) + text + string(runes[pos:])
	m.editor.cursorPos = pos + len([]rune(text))
}

func (m *model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = ModeNormal
		return m, nil

	case "enter":
		if len(m.search.results) == 0 {
			return m, nil
		}
		target := m.search.results[m.search.selected]
		m.mode = ModeNormal
		if m.graph.HasNote(target.ID) {
			m.jumpTo(target.ID, time.Now())
		}
		return m, nil

	case "up":
		if m.search.selected > 0 {
			m.search.selected--
		}
		return m, nil

	case "down":
		if m.search.selected < len(m.search.results)-1 {
			m.search.selected++
		}
		return m, nil

	case "backspace":
		runes := []rune(m.search.query)
		if len(runes) > 0 {
			m.search.query = string(runes[:len(runes)-1])
		}
		return m, m.searchCmd()
	}

	if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
		text := string(msg.Runes)
		if msg.Type == tea.KeySpace {
			text = " "
		}
		m.search.query += text
		return m, m.searchCmd()
	}
	return m, nil
}

// searchCmd fires a query for the current input. Responses carry the query
// they answered; Update drops any that no longer match what is typed.
func (m *model) searchCmd() tea.Cmd {
	query := strings.TrimSpace(m.search.query)
	if query == "" {
		m.search.results = nil
		m.search.ran = false
		return nil
	}
	client := m.co.client
	return func() tea.Msg {
		results, err := client.Search(context.Background(), query, searchLimit)
		return searchResultMsg{query: query, results: results, err: err}
	}
}

func (m *model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		action := m.confirmAction
		m.mode = ModeNormal
		switch action {
		case ConfirmDeleteNote:
			return m, m.deleteNote(m.confirmNote)
		case ConfirmDeleteLink:
			return m, m.deleteLink(m.confirmLink)
		case ConfirmQuit:
			return m.quit()
		}
		return m, nil
	case "n", "N", "esc":
		m.mode = ModeNormal
		return m, nil
	}
	return m, nil
}

func (m *model) quit() (tea.Model, tea.Cmd) {
	m.rememberView(time.Now())
	if err := m.views.FlushNow(); err != nil {
		m.log.Warn("view state flush failed", zap.Error(err))
	}
	m.log.Info("session end")
	return m, tea.Quit
}

func (m *model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if !m.loaded && m.errorMessage == "" {
		return m.renderCrumbBar() + "\n" +
			m.overlayCentered("connecting to "+m.config.ServerURL+" ...") + "\n" +
			m.renderStatusBar()
	}
	var body string
	switch m.mode {
	case ModeEditing:
		body = m.overlayCentered(m.renderEditor())
	case ModeSearch:
		body = m.overlayCentered(m.renderSearch())
	case ModeConfirm:
		body = m.overlayCentered(m.renderConfirm())
	case ModeHelp:
		body = m.overlayCentered(m.renderHelp())
	default:
		body = m.renderCanvas()
	}
	return m.renderCrumbBar() + "\n" + body + "\n" + m.renderStatusBar()
}
