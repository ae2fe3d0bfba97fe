package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	crumbStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203"))
	overlayStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpKeyStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("111"))
)

// noteRect computes a note's box in screen cells. Width tracks the title so
// short notes stay compact; the subtitle line appears once the zoom is close
// enough to read it.
func (m *model) noteRect(n *Note) (x, y, w, h int) {
	center := toScreen(Point{X: n.X, Y: n.Y}, m.pan, m.zoom, m.width, m.canvasHeight())
	title := firstLine(n.Title)
	w = len([]rune(title)) + 4
	if w < 8 {
		w = 8
	}
	if w > 26 {
		w = 26
	}
	h = 3
	if n.Subtitle != "" && m.zoom >= 0.12 {
		h = 4
	}
	x = int(math.Round(center.X)) - w/2
	y = int(math.Round(center.Y)) - h/2
	return x, y, w, h
}

// handleCell is the connect affordance: one cell just past the right border
// of the highlighted note.
func (m *model) handleCell(n *Note) (int, int) {
	x, y, w, h := m.noteRect(n)
	return x + w, y + h/2
}

// stageNotes resolves what is on screen: the isolated stage's notes,
// narrowed to direct connections when a contextual scope is active.
func (m *model) stageNotes() []*Note {
	notes := m.graph.VisibleNotes(m.focus.Isolated)
	if m.focus.Contextual == 0 {
		return notes
	}
	keep := map[int64]struct{}{m.focus.Contextual: {}}
	for _, id := range m.graph.LinkedTo(m.focus.Contextual) {
		keep[id] = struct{}{}
	}
	var out []*Note
	for _, n := range notes {
		if _, ok := keep[n.ID]; ok {
			out = append(out, n)
		}
	}
	return out
}

// noteAt hit-tests a screen cell against the visible notes. Notes draw in id
// order, so the last match is the topmost one.
func (m *model) noteAt(px, py int) (int64, bool) {
	var hit int64
	found := false
	for _, n := range m.stageNotes() {
		x, y, w, h := m.noteRect(n)
		if px >= x && px < x+w && py >= y && py < y+h {
			hit = n.ID
			found = true
		}
	}
	return hit, found
}

// handleAt hit-tests the connect handle of the highlighted note.
func (m *model) handleAt(px, py int) (int64, bool) {
	if m.highlighted == 0 {
		return 0, false
	}
	n, ok := m.graph.Note(m.highlighted)
	if !ok {
		return 0, false
	}
	hx, hy := m.handleCell(n)
	if px == hx && py == hy {
		return n.ID, true
	}
	return 0, false
}

// linkAt hit-tests visible links: within 1.5 cells of the segment between
// the endpoint centers.
func (m *model) linkAt(px, py int) (LinkKey, bool) {
	p := Point{X: float64(px), Y: float64(py)}
	best := LinkKey{}
	bestDist := 1.5
	found := false
	for _, k := range m.graph.VisibleLinks(m.focus.Isolated) {
		a, okA := m.graph.Note(k.A)
		b, okB := m.graph.Note(k.B)
		if !okA || !okB {
			continue
		}
		sa := toScreen(Point{X: a.X, Y: a.Y}, m.pan, m.zoom, m.width, m.canvasHeight())
		sb := toScreen(Point{X: b.X, Y: b.Y}, m.pan, m.zoom, m.width, m.canvasHeight())
		if d := distToSegment(p, sa, sb); d < bestDist {
			best, bestDist, found = k, d, true
		}
	}
	return best, found
}

func distToSegment(p, a, b Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return math.Hypot(p.X-a.X, p.Y-a.Y)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	if t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	return math.Hypot(p.X-(a.X+t*dx), p.Y-(a.Y+t*dy))
}

func (m *model) canvasHeight() int {
	h := m.height - 2 // breadcrumb bar + status bar
	if h < 1 {
		h = 1
	}
	return h
}

// renderCanvas paints the stage into a rune grid: links first so boxes sit
// on top, then the connect preview, then the notes.
func (m *model) renderCanvas() string {
	width, height := m.width, m.canvasHeight()
	if width < 1 {
		width = 1
	}
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = make([]rune, width)
		for j := range grid[i] {
			grid[i][j] = ' '
		}
	}

	for _, k := range m.graph.VisibleLinks(m.focus.Isolated) {
		a, okA := m.graph.Note(k.A)
		b, okB := m.graph.Note(k.B)
		if !okA || !okB {
			continue
		}
		selected := m.focus.SelectedLink != nil && *m.focus.SelectedLink == k
		sa := toScreen(Point{X: a.X, Y: a.Y}, m.pan, m.zoom, width, height)
		sb := toScreen(Point{X: b.X, Y: b.Y}, m.pan, m.zoom, width, height)
		drawSegment(grid, sa, sb, selected)
	}

	if m.focus.ConnectFrom != 0 {
		if n, ok := m.graph.Note(m.focus.ConnectFrom); ok {
			from := toScreen(Point{X: n.X, Y: n.Y}, m.pan, m.zoom, width, height)
			drawSegment(grid, from, m.focus.ConnectAt, true)
		}
	}

	for _, n := range m.stageNotes() {
		m.drawNote(grid, n)
	}

	if m.highlighted != 0 && m.config.DragToConnect {
		if n, ok := m.graph.Note(m.highlighted); ok {
			hx, hy := m.handleCell(n)
			putRune(grid, hx, hy, 'o')
		}
	}

	if m.mode == ModeQuickCreate && m.focus.Draft != nil {
		m.drawDraft(grid, m.focus.Draft)
	}

	lines := make([]string, height)
	for i, row := range grid {
		lines[i] = string(row)
	}
	return strings.Join(lines, "\n")
}

// drawNote paints one note box. Selection swaps the border to '#', the
// isolated stage note itself gets '=' so it reads as the room you are in.
func (m *model) drawNote(grid [][]rune, n *Note) {
	x, y, w, h := m.noteRect(n)

	corner, horizontal, vertical := '+', '-', '|'
	if n.ID == m.highlighted {
		corner, horizontal, vertical = '#', '#', '#'
	} else if n.ID == m.focus.Isolated {
		corner, horizontal, vertical = '+', '=', '|'
	}

	for gy := y; gy < y+h; gy++ {
		for gx := x; gx < x+w; gx++ {
			if gy == y || gy == y+h-1 {
				if gx == x || gx == x+w-1 {
					putRune(grid, gx, gy, corner)
				} else {
					putRune(grid, gx, gy, horizontal)
				}
			} else if gx == x || gx == x+w-1 {
				putRune(grid, gx, gy, vertical)
			} else {
				putRune(grid, gx, gy, ' ')
			}
		}
	}

	title := truncateTo(firstLine(n.Title), w-2)
	drawString(grid, x+1, y+1, title)
	if h == 4 {
		drawString(grid, x+1, y+2, truncateTo(firstLine(n.Subtitle), w-2))
	}
}

// drawDraft renders the inline quick-create input at its tap point.
func (m *model) drawDraft(grid [][]rune, d *quickDraft) {
	center := toScreen(d.At, m.pan, m.zoom, m.width, m.canvasHeight())
	text := d.Title
	w := len([]rune(text)) + 4
	if w < 10 {
		w = 10
	}
	x := int(math.Round(center.X)) - w/2
	y := int(math.Round(center.Y)) - 1
	for gy := y; gy < y+3; gy++ {
		for gx := x; gx < x+w; gx++ {
			switch {
			case gy == y || gy == y+2:
				putRune(grid, gx, gy, '.')
			case gx == x || gx == x+w-1:
				putRune(grid, gx, gy, ':')
			default:
				putRune(grid, gx, gy, ' ')
			}
		}
	}
	drawString(grid, x+1, y+1, text)
	cursor := x + 1 + d.CursorPos
	putRune(grid, cursor, y+1, '█')
}

// drawSegment steps a straight line between two screen points. Selected
// links render with '=' so they are visibly armed for deletion.
func drawSegment(grid [][]rune, a, b Point, selected bool) {
	dx, dy := b.X-a.X, b.Y-a.Y
	steps := int(math.Max(math.Abs(dx), math.Abs(dy)))
	if steps == 0 {
		return
	}
	var ch rune
	switch {
	case selected:
		ch = '='
	case math.Abs(dy) < 0.5:
		ch = '-'
	case math.Abs(dx) < 0.5:
		ch = '|'
	default:
		ch = '·'
	}
	for i := 0; i <= steps; i++ {
		t := float64(i) / float64(steps)
		x := int(math.Round(a.X + dx*t))
		y := int(math.Round(a.Y + dy*t))
		putRune(grid, x, y, ch)
	}
}

func putRune(grid [][]rune, x, y int, ch rune) {
	if y < 0 || y >= len(grid) || x < 0 || x >= len(grid[y]) {
		return
	}
	grid[y][x] = ch
}

func drawString(grid [][]rune, x, y int, s string) {
	for i, ch := range []rune(s) {
		putRune(grid, x+i, y, ch)
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// renderCrumbBar is the top line: the ancestor trail plus the contextual
// scope marker when one is active.
func (m *model) renderCrumbBar() string {
	trail := strings.Join(m.breadcrumbs(), " > ")
	if m.focus.Contextual != 0 {
		if n, ok := m.graph.Note(m.focus.Contextual); ok {
			trail += "  [" + firstLine(n.Title) + " + connections]"
		}
	}
	return crumbStyle.Render(truncateTo(trail, m.width))
}

// renderStatusBar is the bottom line: an error banner wins, otherwise mode
// hints and the zoom readout.
func (m *model) renderStatusBar() string {
	if m.errorMessage != "" {
		return errorStyle.Render(truncateTo("✗ "+m.errorMessage+" (esc to dismiss)", m.width))
	}
	if m.notice != "" {
		return statusStyle.Render(truncateTo(m.notice, m.width))
	}
	var hint string
	switch m.mode {
	case ModeQuickCreate:
		hint = "enter: create  esc: cancel"
	case ModeSearch:
		hint = "enter: jump  esc: close"
	case ModeEditing:
		hint = "tab: next field  ctrl+s: save  esc: cancel"
	case ModeConfirm:
		hint = "y: confirm  n/esc: cancel"
	case ModeHelp:
		hint = "esc: close help"
	default:
		hint = "?: help  /: search  u: undo  q: quit"
	}
	status := fmt.Sprintf("%s  zoom %.2f  undo %d", hint, m.zoom, m.undo.Len())
	return statusStyle.Render(truncateTo(status, m.width))
}

// overlayCentered places a bordered panel in the middle of the canvas area.
func (m *model) overlayCentered(panel string) string {
	return lipgloss.Place(m.width, m.canvasHeight(), lipgloss.Center, lipgloss.Center,
		panel, lipgloss.WithWhitespaceChars(" "))
}

// renderEditor builds the note editor panel: three fields, the active one
// marked, cursor shown in the active field.
func (m *model) renderEditor() string {
	ed := m.editor
	field := func(label, value string, f editorField) string {
		marker := "  "
		if ed.field == f {
			marker = "> "
			runes := []rune(value)
			pos := clampInt(ed.cursorPos, 0, len(runes))
			value = string(runes[:pos]) + "█" + string(runes[pos:])
		}
		return marker + helpKeyStyle.Render(label) + " " + value
	}
	body := ed.body
	if ed.field == editorFieldBody {
		runes := []rune(body)
		pos := clampInt(ed.cursorPos, 0, len(runes))
		body = string(runes[:pos]) + "█" + string(runes[pos:])
	}
	lines := []string{
		field("title:   ", ed.title, editorFieldTitle),
		field("subtitle:", ed.subtitle, editorFieldSubtitle),
		"",
	}
	marker := "  "
	if ed.field == editorFieldBody {
		marker = "> "
	}
	lines = append(lines, marker+helpKeyStyle.Render("body:"))
	for _, l := range strings.Split(body, "\n") {
		lines = append(lines, "  "+l)
	}
	return overlayStyle.Render(strings.Join(lines, "\n"))
}

// renderSearch builds the search palette: query line plus the result list
// with the selected row marked.
func (m *model) renderSearch() string {
	lines := []string{"/" + m.search.query + "█", ""}
	if m.search.ran && len(m.search.results) == 0 {
		lines = append(lines, "  no matches")
	}
	for i, n := range m.search.results {
		marker := "  "
		if i == m.search.selected {
			marker = "> "
		}
		row := firstLine(n.Title)
		if n.Subtitle != "" {
			row += " / " + firstLine(n.Subtitle)
		}
		lines = append(lines, marker+truncateTo(row, 48))
	}
	return overlayStyle.Render(strings.Join(lines, "\n"))
}

func (m *model) renderConfirm() string {
	var prompt string
	switch m.confirmAction {
	case ConfirmDeleteNote:
		prompt = "Delete this note and its connections?"
	case ConfirmDeleteLink:
		prompt = "Delete this connection?"
	case ConfirmQuit:
		prompt = "Quit?"
	}
	return overlayStyle.Render(prompt + "\n\n  y: yes   n: no")
}

func (m *model) renderHelp() string {
	rows := [][2]string{
		{"click", "select note"},
		{"double click", "drill into note"},
		{"double click bg", "back out one stage"},
		{"click bg (hold)", "quick-create note at point"},
		{"drag note", "move note"},
		{"drag handle (o)", "connect to nearest note"},
		{"right click", "toggle contextual scope"},
		{"alt+drag bg", "pan"},
		{"b", "create note at center"},
		{"e / enter", "edit selected note"},
		{"d", "delete selected note or link"},
		{"u", "undo"},
		{"/", "search"},
		{"L", "auto layout"},
		{"y", "yank note text"},
		{"P", "export stage to PNG"},
		{"+/-/wheel", "zoom"},
		{"esc", "dismiss / back out"},
		{"q", "quit"},
	}
	var lines []string
	for _, r := range rows {
		lines = append(lines, fmt.Sprintf("%s %s", helpKeyStyle.Render(fmt.Sprintf("%-16s", r[0])), r[1]))
	}
	return overlayStyle.Render(strings.Join(lines, "\n"))
}
