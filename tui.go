package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type state int

const (
	stateOpening state = iota
	stateReady
	stateNaming
	statePicking
	stateDone
)

// colorSource is what the UI samples from; *Sampler implements it.
type colorSource interface {
	PointerPosition() (Point, error)
	SamplePixel(Point) (RGB, error)
	SampleRegion(Point) ([]RGB, error)
}

type deviceOpenedMsg struct {
	dev  Device
	name string
	err  error
}

type paletteMsg struct {
	doc *PaletteDocument
	err error
}

type sampleMsg struct {
	point     Point
	color     RGB
	region    []RGB
	err       error
	regionErr error
}

type pickedMsg struct {
	color RGB
	err   error
}

type keyMap struct {
	Sample key.Binding
	Nudge  key.Binding
	Pick   key.Binding
	Add    key.Binding
	Delete key.Binding
	Prev   key.Binding
	Next   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Sample, k.Add, k.Pick, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Sample, k.Nudge, k.Pick},
		{k.Add, k.Delete, k.Prev, k.Next},
		{k.Help, k.Quit},
	}
}

var keys = keyMap{
	Sample: key.NewBinding(key.WithKeys("s", " "), key.WithHelp("s/space", "sample under pointer")),
	Nudge:  key.NewBinding(key.WithKeys("up", "down", "left", "right"), key.WithHelp("←↑↓→", "move 1px")),
	Pick:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "portal pick")),
	Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add to palette")),
	Delete: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "delete entry")),
	Prev:   key.NewBinding(key.WithKeys("["), key.WithHelp("[", "previous entry")),
	Next:   key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next entry")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

type model struct {
	state   state
	spinner spinner.Model
	input   textinput.Model
	help    help.Model

	cfg     Config
	store   PaletteStore
	dev     Device
	backend string
	src     colorSource

	point   Point
	located bool
	sampled bool
	color   RGB
	region  []RGB

	palette []PaletteEntry
	cursor  int

	status string
	err    error
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	itemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	selectedStyle = lipgloss.NewStyle().PaddingLeft(0).Foreground(lipgloss.Color("170"))
	helpStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	panelStyle    = lipgloss.NewStyle().PaddingLeft(2)
)

func newModel(cfg Config) model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

	in := textinput.New()
	in.Placeholder = "name (optional)"
	in.CharLimit = 64

	return model{
		state:   stateOpening,
		spinner: s,
		input:   in,
		help:    help.New(),
		cfg:     cfg,
		store:   PaletteStore{Dir: cfg.Dir},
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, openDeviceCmd(m.cfg.Backend), loadPaletteCmd(m.store))
}

func openDeviceCmd(backend string) tea.Cmd {
	return func() tea.Msg {
		dev, name, err := openDevice(backend)
		return deviceOpenedMsg{dev: dev, name: name, err: err}
	}
}

func loadPaletteCmd(store PaletteStore) tea.Cmd {
	return func() tea.Msg {
		doc, err := store.Read()
		if errors.Is(err, fs.ErrNotExist) {
			return paletteMsg{doc: &PaletteDocument{Colors: []PaletteEntry{}}}
		}
		return paletteMsg{doc: doc, err: err}
	}
}

// sampleCmd samples at p, or under the pointer when p is nil. Near a
// screen edge the region cannot be copied; the pixel color is kept.
func sampleCmd(src colorSource, p *Point) tea.Cmd {
	return func() tea.Msg {
		var at Point
		if p != nil {
			at = *p
		} else {
			var err error
			if at, err = src.PointerPosition(); err != nil {
				return sampleMsg{err: err}
			}
		}
		c, err := src.SamplePixel(at)
		if err != nil {
			return sampleMsg{point: at, err: err}
		}
		region, err := src.SampleRegion(at)
		if err != nil {
			return sampleMsg{point: at, color: c, regionErr: err}
		}
		return sampleMsg{point: at, color: c, region: region}
	}
}

func pickCmd() tea.Cmd {
	return func() tea.Msg {
		c, err := PickColorPortal(context.Background())
		return pickedMsg{color: c, err: err}
	}
}

func addCmd(store PaletteStore, e PaletteEntry) tea.Cmd {
	return func() tea.Msg {
		doc, err := store.Add(e)
		return paletteMsg{doc: doc, err: err}
	}
}

func removeCmd(store PaletteStore, i int) tea.Cmd {
	return func() tea.Msg {
		doc, err := store.Remove(i)
		return paletteMsg{doc: doc, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.state == stateNaming {
			return m.updateNaming(msg)
		}
		if key.Matches(msg, keys.Quit) {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case deviceOpenedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("opening graphics device: %w", msg.err)
			m.state = stateDone
			return m, tea.Quit
		}
		m.dev = msg.dev
		m.backend = msg.name
		m.src = NewSampler(msg.dev)
		m.state = stateReady
		logger().Info("device opened", "backend", msg.name)
		return m, nil

	case paletteMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.palette = msg.doc.Colors
		if m.cursor >= len(m.palette) {
			m.cursor = max(len(m.palette)-1, 0)
		}
		return m, nil

	case sampleMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.point = msg.point
		m.located = true
		m.color = msg.color
		m.region = msg.region
		m.sampled = true
		m.status = ""
		if msg.regionErr != nil {
			m.status = "magnifier unavailable: " + msg.regionErr.Error()
		}
		return m, nil

	case pickedMsg:
		m.state = stateReady
		if msg.err != nil {
			m.status = msg.err.Error()
			return m, nil
		}
		m.color = msg.color
		m.region = nil
		m.located = false
		m.sampled = true
		m.status = ""
		return m, nil
	}

	if m.state != stateReady {
		return m, nil
	}
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch {
	case key.Matches(km, keys.Sample):
		return m, sampleCmd(m.src, nil)

	case key.Matches(km, keys.Nudge):
		if !m.located {
			return m, nil
		}
		p := m.point
		switch km.String() {
		case "up":
			p.Y--
		case "down":
			p.Y++
		case "left":
			p.X--
		case "right":
			p.X++
		}
		return m, sampleCmd(m.src, &p)

	case key.Matches(km, keys.Pick):
		m.state = statePicking
		return m, pickCmd()

	case key.Matches(km, keys.Add):
		if !m.sampled {
			return m, nil
		}
		m.state = stateNaming
		m.input.Reset()
		return m, m.input.Focus()

	case key.Matches(km, keys.Delete):
		if len(m.palette) == 0 {
			return m, nil
		}
		return m, removeCmd(m.store, m.cursor)

	case key.Matches(km, keys.Prev):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(km, keys.Next):
		if m.cursor < len(m.palette)-1 {
			m.cursor++
		}

	case key.Matches(km, keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}

	return m, nil
}

func (m model) updateNaming(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.input.Blur()
		m.state = stateReady
		return m, nil
	case "enter":
		name := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.state = stateReady
		m.cursor = len(m.palette)
		return m, addCmd(m.store, NewPaletteEntry(m.color, name))
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// swatch renders s on a background of c.
func swatch(c RGB, s string) string {
	fg := lipgloss.Color("#ffffff")
	if c.HSL().L > 50 {
		fg = lipgloss.Color("#000000")
	}
	return lipgloss.NewStyle().Background(lipgloss.Color(c.String())).Foreground(fg).Render(s)
}

// magnifier draws the sampled region two cells per pixel with the center
// pixel marked.
func magnifier(region []RGB) string {
	var b strings.Builder
	for row := 0; row < regionSize; row++ {
		for col := 0; col < regionSize; col++ {
			i := row*regionSize + col
			cell := "  "
			if i == regionCenter {
				cell = "[]"
			}
			b.WriteString(swatch(region[i], cell))
		}
		if row < regionSize-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (m model) details() string {
	if !m.sampled {
		return helpStyle.Render("Press s to sample the pixel under the pointer.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n\n", swatch(m.color, "      "), titleStyle.Render(m.color.Hex()))
	if m.located {
		fmt.Fprintf(&b, "Point  %v\n", m.point)
	}
	fmt.Fprintf(&b, "RGB    %d, %d, %d\n", m.color.R, m.color.G, m.color.B)
	fmt.Fprintf(&b, "HSL    %s\n", m.color.HSL())
	if m.backend != "" {
		fmt.Fprintf(&b, "\n%s", helpStyle.Render("via "+m.backend))
	}
	return b.String()
}

func (m model) paletteView() string {
	s := titleStyle.Render("Palette") + "\n"
	if len(m.palette) == 0 {
		return s + helpStyle.Render("  empty - press a to add the sampled color") + "\n"
	}
	for i, e := range m.palette {
		c, err := ParseHex(e.HexColor)
		sw := "  "
		if err == nil {
			sw = swatch(c, "  ")
		}
		label := e.HexColor
		if name := e.DisplayName(); name != "" {
			label += "  " + name
		}
		if i == m.cursor {
			s += selectedStyle.Render("▸ ") + sw + " " + selectedStyle.Render(label) + "\n"
		} else {
			s += itemStyle.Render(sw+" "+label) + "\n"
		}
	}
	return s
}

func (m model) View() string {
	switch m.state {
	case stateOpening:
		return fmt.Sprintf("\n %s %s\n\n", m.spinner.View(), titleStyle.Render("Opening graphics device..."))

	case statePicking:
		return fmt.Sprintf("\n %s %s\n\n", m.spinner.View(), titleStyle.Render("Click a pixel to pick its color..."))

	case stateDone:
		if m.err != nil {
			return "\n" + errStyle.Render("  Error: "+m.err.Error()) + "\n\n"
		}
		return ""
	}

	top := m.details()
	if m.region != nil {
		top = lipgloss.JoinHorizontal(lipgloss.Top, magnifier(m.region), panelStyle.Render(top))
	}

	s := "\n" + top + "\n\n" + m.paletteView() + "\n"
	if m.state == stateNaming {
		s += titleStyle.Render("  Name for "+m.color.Hex()+": ") + m.input.View() + "\n"
		s += helpStyle.Render("  enter save · esc cancel") + "\n"
		return s
	}
	if m.status != "" {
		s += errStyle.Render("  "+m.status) + "\n"
	}
	s += "  " + m.help.View(keys) + "\n"
	return s
}

// runTUI runs the interactive picker until the user quits.
func runTUI(cfg Config) error {
	if cfg.LogFile != "" {
		f, err := tea.LogToFile(cfg.LogFile, "pixelpick")
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		SetLogger(newLogger(cfg, f))
		defer SetLogger(nil)
	}

	store := PaletteStore{Dir: cfg.Dir}
	if _, err := store.WriteSchema(); err != nil {
		logger().Warn("writing palette schema", "error", err)
	}

	p := tea.NewProgram(newModel(cfg), tea.WithAltScreen())
	result, err := p.Run()
	if err != nil {
		return err
	}

	m := result.(model)
	if m.dev != nil {
		if err := m.dev.Close(); err != nil {
			logger().Warn("closing device", "error", err)
		}
	}
	return m.err
}
