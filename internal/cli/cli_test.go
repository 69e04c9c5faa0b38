package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/adapters/staticmap"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/usecases"
)

func testPipeline() *pipeline {
	canvas := staticmap.NewCanvas(100, 100)
	return &pipeline{
		origin:    "http://localhost:8080",
		segmenter: usecases.NewSegmenter(),
		canvas:    canvas,
		render:    usecases.NewRenderService(canvas),
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestNextColorCycles(t *testing.T) {
	if got := nextColor(palette[0]); got != palette[1] {
		t.Errorf("expected %s after %s, got %s", palette[1], palette[0], got)
	}
	if got := nextColor(palette[len(palette)-1]); got != palette[0] {
		t.Errorf("expected wraparound to %s, got %s", palette[0], got)
	}
	if got := nextColor("#123456"); got != palette[0] {
		t.Errorf("unknown colors should restart the palette, got %s", got)
	}
}

func TestProgressMessageAdvancesBar(t *testing.T) {
	m := newViewerModel(testPipeline(), "out.png", nil)

	next, cmd := m.Update(progressMsg(42))
	got := next.(viewerModel)

	if got.pct != 42 {
		t.Errorf("expected pct 42, got %d", got.pct)
	}
	if cmd == nil {
		t.Error("progress listener must be re-armed")
	}
}

func TestLoadDoneRendersTracks(t *testing.T) {
	m := newViewerModel(testPipeline(), "out.png", nil)

	tracks := domain.TrackSet{
		{Points: []domain.Point{{Lat: 1, Lon: 1}, {Lat: 1.001, Lon: 1.001}}},
		{Points: []domain.Point{{Lat: 2, Lon: 2}, {Lat: 2.001, Lon: 2.001}}},
	}
	sum := &domain.Summary{TotalKm: 10.5, Points: 4}

	next, _ := m.Update(loadDoneMsg{tracks: tracks, summary: sum})
	got := next.(viewerModel)

	if got.state != stateReady {
		t.Fatalf("expected ready state, got %d", got.state)
	}
	if got.p.render.DrawnCount() != 2 {
		t.Errorf("expected 2 polylines drawn, got %d", got.p.render.DrawnCount())
	}
	if _, ok := got.p.canvas.Viewport(); !ok {
		t.Error("expected a fitted viewport after rendering")
	}
	if !strings.Contains(got.View(), "10.50 km") {
		t.Errorf("expected summary distance in view, got:\n%s", got.View())
	}
}

func TestLoadFailureShowsRetrievalError(t *testing.T) {
	m := newViewerModel(testPipeline(), "out.png", nil)

	loadErr := &domain.RetrievalError{URL: "http://localhost:8080/points.bin", Status: 503}
	next, _ := m.Update(loadDoneMsg{err: loadErr})
	got := next.(viewerModel)

	if got.state != stateFailed {
		t.Fatalf("expected failed state, got %d", got.state)
	}
	if !strings.Contains(got.View(), "retrieve") {
		t.Errorf("expected the retrieval error in view, got:\n%s", got.View())
	}
}

func TestMissingSummaryShowsPlaceholder(t *testing.T) {
	m := newViewerModel(testPipeline(), "out.png", nil)

	next, _ := m.Update(loadDoneMsg{tracks: domain.TrackSet{}})
	got := next.(viewerModel)

	if !strings.Contains(got.View(), "-- km") {
		t.Errorf("expected the distance placeholder, got:\n%s", got.View())
	}
}

func TestColorKeyCyclesStyle(t *testing.T) {
	m := newViewerModel(testPipeline(), "out.png", nil)
	next, _ := m.Update(loadDoneMsg{tracks: domain.TrackSet{}})
	m = next.(viewerModel)

	before := m.p.render.Style().Color
	next, _ = m.Update(keyMsg("c"))
	m = next.(viewerModel)

	after := m.p.render.Style().Color
	if after == before {
		t.Error("color key did not change the style")
	}
	if after != nextColor(before) {
		t.Errorf("expected %s, got %s", nextColor(before), after)
	}
}

func TestWidthKeysRespectClamping(t *testing.T) {
	m := newViewerModel(testPipeline(), "out.png", nil)
	m.p.render.SetStyle(domain.Style{Color: "#ff4500", Width: domain.MinStrokeWidth, Opacity: 0.8})

	next, _ := m.Update(keyMsg("-"))
	m = next.(viewerModel)

	if got := m.p.render.Style().Width; got != domain.MinStrokeWidth {
		t.Errorf("width must not drop below %v, got %v", domain.MinStrokeWidth, got)
	}

	next, _ = m.Update(keyMsg("+"))
	m = next.(viewerModel)
	if got := m.p.render.Style().Width; got != domain.MinStrokeWidth+1 {
		t.Errorf("expected width %v, got %v", domain.MinStrokeWidth+1, got)
	}
}

func TestQuitKeys(t *testing.T) {
	m := newViewerModel(testPipeline(), "out.png", nil)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatal("expected a quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("ctrl+c must quit")
	}
}
