package tui

import (
	"fmt"
	"image"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/wasm-repl/storage"
	"github.com/wippyai/wasm-repl/surface"
)

// MaxScrollback is the number of console lines kept.
const MaxScrollback = 5000

type tab int

const (
	tabFiles tab = iota
	tabViewer
	tabPlot
	tabCount
)

var tabNames = [tabCount]string{"Files", "Viewer", "Plot"}

type viewerMode int

const (
	viewerEmpty viewerMode = iota
	viewerText
	viewerTable
)

type fileItem struct {
	entry storage.Entry
}

func (f fileItem) FilterValue() string { return f.entry.Name }

type fileItemDelegate struct{}

func (d fileItemDelegate) Height() int  { return 1 }
func (d fileItemDelegate) Spacing() int { return 0 }
func (d fileItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}
func (d fileItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	f, ok := item.(fileItem)
	if !ok {
		return
	}
	prefix := "  "
	if index == m.Index() {
		prefix = cursorStyle.Render("> ")
	}
	name := f.entry.Name
	if f.entry.IsDir() {
		name = dirStyle.Render(name + "/")
	} else {
		name = fmt.Sprintf("%s  %s", name, helpStyle.Render(humanSize(f.entry.Size)))
	}
	fmt.Fprint(w, prefix+name)
}

// Model is the terminal application: a console on the left and a tabbed
// files/viewer/plot pane on the right.
type Model struct {
	plot      image.Image
	logger    *zap.Logger
	onReady   func()
	pending   chan<- string
	files     list.Model
	table     table.Model
	input     textinput.Model
	console   viewport.Model
	viewer    viewport.Model
	lines     []string
	plotCache string
	viewTitle string
	prompt    string
	canvas    image.Point
	plotSize  image.Point
	width     int
	height    int
	active    tab
	mode      viewerMode
	readyOnce sync.Once
	openLine  bool
}

// NewModel creates the model. canvas is the plot device size in pixels and
// sets the plot aspect ratio. onReady runs once, on the first window size.
func NewModel(canvas image.Point, logger *zap.Logger, onReady func()) *Model {
	if logger == nil {
		logger = zap.NewNop()
	}
	if canvas.X <= 0 || canvas.Y <= 0 {
		canvas = image.Pt(504, 504)
	}

	in := textinput.New()
	in.Prompt = ""
	in.Focus()

	files := list.New([]list.Item{}, fileItemDelegate{}, 0, 0)
	files.SetShowTitle(false)
	files.SetShowHelp(false)
	files.SetShowStatusBar(false)
	files.SetFilteringEnabled(false)

	t := table.New(table.WithFocused(true))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Bold(true)
	styles.Selected = styles.Selected.Bold(true)
	t.SetStyles(styles)

	return &Model{
		logger:  logger,
		onReady: onReady,
		input:   in,
		files:   files,
		table:   t,
		console: viewport.New(0, 0),
		viewer:  viewport.New(0, 0),
		canvas:  canvas,
	}
}

func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		if m.onReady != nil {
			m.readyOnce.Do(m.onReady)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case printMsg:
		m.appendText(msg.text + "\n")

	case rawMsg:
		m.appendText(msg.text)

	case readMsg:
		m.pending = msg.reply
		m.prompt = msg.prompt
		m.input.Prompt = msg.prompt
		m.input.Reset()
		return m, m.input.Focus()

	case filesMsg:
		items := make([]list.Item, len(msg.entries))
		for i, e := range msg.entries {
			items[i] = fileItem{entry: e}
		}
		return m, m.files.SetItems(items)

	case fileMsg:
		title := msg.title
		if msg.readOnly {
			title += " [read-only]"
		}
		m.showText(title, msg.text)

	case tableMsg:
		cols := make([]table.Column, len(msg.table.Columns))
		for i, c := range msg.table.Columns {
			cols[i] = table.Column{Title: c, Width: columnWidth(c, i, msg.table.Rows)}
		}
		rows := make([]table.Row, len(msg.table.Rows))
		for i, r := range msg.table.Rows {
			row := make(table.Row, len(cols))
			copy(row, r)
			rows[i] = row
		}
		m.table.SetRows(nil)
		m.table.SetColumns(cols)
		m.table.SetRows(rows)
		m.table.GotoTop()
		m.viewTitle = msg.title
		m.mode = viewerTable
		m.active = tabViewer

	case htmlMsg:
		body := msg.markdown
		if msg.exported != "" {
			body = helpStyle.Render("saved to "+msg.exported) + "\n\n" + body
		}
		m.showText(msg.title, body)

	case canvasSizeMsg:
		if msg.pixels <= 0 {
			break
		}
		switch msg.axis {
		case surface.AxisWidth:
			m.canvas.X = msg.pixels
		case surface.AxisHeight:
			m.canvas.Y = msg.pixels
		}
		m.plotCache = ""

	case newPageMsg:
		m.plot = nil
		m.plotCache = ""

	case imageMsg:
		m.plot = msg.img
		m.plotCache = ""
		m.active = tabPlot
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.active = (m.active + 1) % tabCount

	case "shift+tab":
		m.active = (m.active + tabCount - 1) % tabCount

	case "pgup", "pgdown":
		m.console, cmd = m.console.Update(msg)

	case "up", "down":
		switch m.active {
		case tabFiles:
			m.files, cmd = m.files.Update(msg)
		case tabViewer:
			if m.mode == viewerTable {
				m.table, cmd = m.table.Update(msg)
			} else {
				m.viewer, cmd = m.viewer.Update(msg)
			}
		}

	case "enter":
		m.submit()

	default:
		m.input, cmd = m.input.Update(msg)
	}
	return m, cmd
}

// submit answers the pending console read. Without one the typed line is kept.
func (m *Model) submit() {
	if m.pending == nil {
		return
	}
	line := m.input.Value()
	m.appendText(m.prompt + line + "\n")
	m.pending <- line
	m.pending = nil
	m.prompt = ""
	m.input.Prompt = ""
	m.input.Reset()
}

// appendText adds text to the scrollback. A line without a trailing newline
// stays open and the next text continues it.
func (m *Model) appendText(text string) {
	parts := strings.Split(text, "\n")
	if m.openLine && len(m.lines) > 0 {
		m.lines[len(m.lines)-1] += parts[0]
		parts = parts[1:]
	}
	m.openLine = !strings.HasSuffix(text, "\n")
	if !m.openLine {
		parts = parts[:len(parts)-1]
	}
	m.lines = append(m.lines, parts...)
	if n := len(m.lines) - MaxScrollback; n > 0 {
		m.lines = append([]string(nil), m.lines[n:]...)
	}

	atBottom := m.console.AtBottom()
	m.console.SetContent(strings.Join(m.lines, "\n"))
	if atBottom {
		m.console.GotoBottom()
	}
}

func (m *Model) showText(title, text string) {
	m.viewTitle = title
	m.mode = viewerText
	m.viewer.SetContent(text)
	m.viewer.GotoTop()
	m.active = tabViewer
}

func (m *Model) layout() {
	leftW := m.width / 2
	rightW := m.width - leftW

	m.console.Width = max(leftW-2, 1)
	m.console.Height = max(m.height-3, 1)
	m.input.Width = max(leftW-4-len(m.prompt), 1)

	innerW, innerH := m.contentSize(rightW)
	m.files.SetSize(innerW, innerH)
	m.viewer.Width = innerW
	m.viewer.Height = innerH
	m.table.SetWidth(innerW)
	m.table.SetHeight(innerH)
	m.plotCache = ""

	m.console.GotoBottom()
}

// contentSize is the right pane's inner size below the tab bar and title.
func (m *Model) contentSize(rightW int) (int, int) {
	return max(rightW-2, 1), max(m.height-4, 1)
}

func (m *Model) View() string {
	if m.width == 0 {
		return "starting..."
	}
	leftW := m.width / 2
	rightW := m.width - leftW

	left := paneStyle.
		Width(leftW - 2).
		Height(m.height - 2).
		Render(m.console.View() + "\n" + m.input.View())

	right := paneStyle.
		Width(rightW - 2).
		Height(m.height - 2).
		Render(m.tabBar() + "\n" + m.paneView(rightW))

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (m *Model) tabBar() string {
	tabs := make([]string, 0, tabCount)
	for i, name := range tabNames {
		if tab(i) == m.active {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, tabStyle.Render(name))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) paneView(rightW int) string {
	innerW, innerH := m.contentSize(rightW)

	switch m.active {
	case tabFiles:
		if len(m.files.Items()) == 0 {
			return helpStyle.Render("no files")
		}
		return m.files.View()

	case tabViewer:
		switch m.mode {
		case viewerText:
			return titleStyle.Render(m.viewTitle) + "\n" + m.viewer.View()
		case viewerTable:
			return titleStyle.Render(m.viewTitle) + "\n" + m.table.View()
		}
		return helpStyle.Render("nothing to show")

	case tabPlot:
		if m.plot == nil {
			return helpStyle.Render("no plot")
		}
		size := image.Pt(innerW, innerH)
		if m.plotCache == "" || m.plotSize != size {
			aspect := float64(m.canvas.X) / float64(m.canvas.Y)
			m.plotCache = renderHalfBlocks(m.plot, innerW, innerH, aspect)
			m.plotSize = size
		}
		return m.plotCache
	}
	return ""
}

func columnWidth(title string, col int, rows [][]string) int {
	w := lipgloss.Width(title)
	for _, r := range rows {
		if col < len(r) {
			w = max(w, lipgloss.Width(r[col]))
		}
	}
	return min(w, 40)
}

func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
