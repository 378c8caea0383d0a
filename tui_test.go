package main

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

type fakeSource struct {
	pointer Point
	err     error
	calls   []Point
}

func (f *fakeSource) color(p Point) RGB {
	return RGB{R: uint8(p.X), G: uint8(p.Y), B: 99}
}

func (f *fakeSource) PointerPosition() (Point, error) { return f.pointer, f.err }

func (f *fakeSource) SamplePixel(p Point) (RGB, error) {
	f.calls = append(f.calls, p)
	return f.color(p), f.err
}

func (f *fakeSource) SampleRegion(p Point) ([]RGB, error) {
	region := make([]RGB, regionSize*regionSize)
	for i := range region {
		region[i] = f.color(Point{X: p.X - regionRadius + i%regionSize, Y: p.Y - regionRadius + i/regionSize})
	}
	return region, f.err
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func readyModel(t *testing.T, src colorSource) model {
	t.Helper()
	m := newModel(Config{Dir: t.TempDir(), Backend: BackendAuto})
	m.state = stateReady
	m.src = src
	return m
}

// step applies msg and runs the resulting command once, feeding its
// message back into the model.
func step(t *testing.T, m model, msg tea.Msg) model {
	t.Helper()
	next, cmd := m.Update(msg)
	m = next.(model)
	if cmd == nil {
		return m
	}
	next, _ = m.Update(cmd())
	return next.(model)
}

func TestTUI_DeviceOpenFailure(t *testing.T) {
	m := newModel(Config{Dir: t.TempDir()})
	next, cmd := m.Update(deviceOpenedMsg{err: ErrUnsupported})
	m = next.(model)

	if m.state != stateDone {
		t.Fatalf("state = %v, want done", m.state)
	}
	if !errors.Is(m.err, ErrUnsupported) {
		t.Errorf("err = %v, want ErrUnsupported", m.err)
	}
	if cmd == nil {
		t.Error("expected quit command")
	}
	if !strings.Contains(m.View(), "opening graphics device") {
		t.Errorf("view does not show the error: %q", m.View())
	}
}

func TestTUI_DeviceOpened(t *testing.T) {
	m := newModel(Config{Dir: t.TempDir()})
	next, _ := m.Update(deviceOpenedMsg{dev: newFakeDevice(10, 10), name: "fake"})
	m = next.(model)

	if m.state != stateReady || m.src == nil || m.backend != "fake" {
		t.Fatalf("state %v, src %v, backend %q", m.state, m.src, m.backend)
	}
}

func TestTUI_LoadMissingPalette(t *testing.T) {
	m := newModel(Config{Dir: t.TempDir()})
	msg := loadPaletteCmd(m.store)()

	next, _ := m.Update(msg)
	m = next.(model)
	if m.status != "" {
		t.Errorf("missing palette reported as %q", m.status)
	}
	if m.palette == nil || len(m.palette) != 0 {
		t.Errorf("palette = %#v, want empty", m.palette)
	}
}

func TestTUI_SampleAndNudge(t *testing.T) {
	src := &fakeSource{pointer: Point{X: 40, Y: 50}}
	m := readyModel(t, src)

	m = step(t, m, runeKey("s"))
	if !m.sampled || m.point != src.pointer {
		t.Fatalf("sampled=%v point=%v", m.sampled, m.point)
	}
	if m.color != src.color(src.pointer) {
		t.Errorf("color = %v, want %v", m.color, src.color(src.pointer))
	}
	if m.region[regionCenter] != m.color {
		t.Errorf("region center %v != color %v", m.region[regionCenter], m.color)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyRight})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyUp})
	want := Point{X: 41, Y: 49}
	if m.point != want {
		t.Fatalf("point after nudge = %v, want %v", m.point, want)
	}
	if m.color != src.color(want) {
		t.Errorf("color = %v, want %v", m.color, src.color(want))
	}
	if !strings.Contains(m.View(), m.color.Hex()) {
		t.Error("view does not show the sampled color")
	}
}

func TestTUI_NudgeBeforeSample(t *testing.T) {
	src := &fakeSource{}
	m := readyModel(t, src)

	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyLeft}); cmd != nil {
		t.Fatal("nudge without a sample should do nothing")
	}
}

func TestTUI_SampleError(t *testing.T) {
	src := &fakeSource{err: ErrSample}
	m := readyModel(t, src)

	m = step(t, m, runeKey("s"))
	if m.sampled {
		t.Fatal("failed sample marked as sampled")
	}
	if m.status == "" {
		t.Error("expected status message")
	}
}

func TestTUI_AddAndDelete(t *testing.T) {
	src := &fakeSource{pointer: Point{X: 255, Y: 0}}
	m := readyModel(t, src)
	m = step(t, m, runeKey("s"))

	next, _ := m.Update(runeKey("a"))
	m = next.(model)
	if m.state != stateNaming {
		t.Fatalf("state = %v, want naming", m.state)
	}
	for _, r := range "  Sample " {
		next, _ = m.Update(runeKey(string(r)))
		m = next.(model)
	}
	m = step(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	if m.state != stateReady {
		t.Fatalf("state = %v, want ready", m.state)
	}
	if len(m.palette) != 1 {
		t.Fatalf("palette has %d entries, want 1 (status %q)", len(m.palette), m.status)
	}
	if e := m.palette[0]; e.HexColor != "#FF0063" || e.DisplayName() != "Sample" {
		t.Errorf("entry = %s %q", e.HexColor, e.DisplayName())
	}

	doc, err := m.store.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(doc.Colors) != 1 {
		t.Fatalf("stored %d entries, want 1", len(doc.Colors))
	}

	m = step(t, m, runeKey("x"))
	if len(m.palette) != 0 || m.cursor != 0 {
		t.Errorf("after delete: %d entries, cursor %d", len(m.palette), m.cursor)
	}
}

func TestTUI_AddCancelled(t *testing.T) {
	src := &fakeSource{}
	m := readyModel(t, src)
	m = step(t, m, runeKey("s"))

	next, _ := m.Update(runeKey("a"))
	m = next.(model)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(model)
	if m.state != stateReady || cmd != nil {
		t.Fatalf("state = %v, cmd = %v", m.state, cmd)
	}
	if _, err := m.store.Read(); err == nil {
		t.Error("cancelled add wrote a palette")
	}
}

func TestTUI_AddBeforeSample(t *testing.T) {
	m := readyModel(t, &fakeSource{})
	next, _ := m.Update(runeKey("a"))
	if next.(model).state != stateReady {
		t.Fatal("add without a sample entered naming")
	}
}

func TestTUI_PaletteCursor(t *testing.T) {
	m := readyModel(t, &fakeSource{})
	m.palette = []PaletteEntry{
		NewPaletteEntry(RGB{R: 255}, "Red"),
		NewPaletteEntry(RGB{G: 255}, ""),
	}

	m = step(t, m, runeKey("]"))
	m = step(t, m, runeKey("]"))
	if m.cursor != 1 {
		t.Fatalf("cursor = %d, want 1", m.cursor)
	}
	m = step(t, m, runeKey("["))
	m = step(t, m, runeKey("["))
	if m.cursor != 0 {
		t.Fatalf("cursor = %d, want 0", m.cursor)
	}
}

func TestTUI_Picked(t *testing.T) {
	m := readyModel(t, &fakeSource{})
	m.state = statePicking

	next, _ := m.Update(pickedMsg{color: RGB{R: 1, G: 2, B: 3}})
	m = next.(model)
	if m.state != stateReady || !m.sampled || m.region != nil {
		t.Fatalf("state %v sampled %v region %v", m.state, m.sampled, m.region != nil)
	}
	if m.color != (RGB{R: 1, G: 2, B: 3}) {
		t.Errorf("color = %v", m.color)
	}
}

func TestTUI_Quit(t *testing.T) {
	m := readyModel(t, &fakeSource{})
	_, cmd := m.Update(runeKey("q"))
	if cmd == nil {
		t.Fatal("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("q did not quit")
	}
}

func TestTUI_SampleNearEdge(t *testing.T) {
	dev := newFakeDevice(100, 100)
	dev.cursor = Point{X: 3, Y: 50}
	m := readyModel(t, NewSampler(dev))

	m = step(t, m, runeKey("s"))
	if !m.sampled {
		t.Fatalf("edge sample dropped, status %q", m.status)
	}
	if want := dev.pixel(3, 50); m.color != want {
		t.Errorf("color = %v, want %v", m.color, want)
	}
	if m.region != nil {
		t.Error("expected no magnifier at the edge")
	}
	if !strings.Contains(m.status, "block copy") {
		t.Errorf("status = %q, want the region error", m.status)
	}
	if !strings.Contains(m.View(), m.color.Hex()) {
		t.Error("view does not show the sampled color")
	}

	// Moving away from the edge brings the magnifier back.
	for i := 0; i < 8; i++ {
		m = step(t, m, tea.KeyMsg{Type: tea.KeyRight})
	}
	if m.point != (Point{X: 11, Y: 50}) {
		t.Fatalf("point = %v, want (11, 50)", m.point)
	}
	if m.region == nil || m.status != "" {
		t.Errorf("region %v, status %q", m.region != nil, m.status)
	}
	if n := dev.openHandles(); n != 0 {
		t.Errorf("%d handles left open", n)
	}
}
