package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/domain"
	"github.com/maGnet2C-cmd/Cycling-heatmap/internal/core/usecases"
)

var (
	docStyle    = lipgloss.NewStyle().Margin(1, 2)
	titleStyle  = lipgloss.NewStyle().Bold(true)
	faintStyle  = lipgloss.NewStyle().Faint(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	swatchStyle = lipgloss.NewStyle().Bold(true)
)

// palette cycled by the color key.
var palette = []string{"#ff4500", "#1e90ff", "#32cd32", "#ffd700", "#ff1493"}

// nextColor returns the palette entry after current, starting over at the
// front for colors outside the palette.
func nextColor(current string) string {
	for i, c := range palette {
		if c == current {
			return palette[(i+1)%len(palette)]
		}
	}
	return palette[0]
}

type viewerState int

const (
	stateLoading viewerState = iota
	stateReady
	stateFailed
)

type progressMsg int

type loadDoneMsg struct {
	tracks  domain.TrackSet
	summary *domain.Summary
	err     error
}

type updateMsg struct{ resource string }

type snapshotDoneMsg struct {
	path string
	err  error
}

type viewerModel struct {
	p       *pipeline
	out     string
	updates <-chan updateMsg
	progCh  chan progressMsg

	state   viewerState
	bar     progress.Model
	pct     int
	tracks  domain.TrackSet
	summary *domain.Summary
	loadErr error
	status  string
}

func newViewerModel(p *pipeline, out string, updates <-chan updateMsg) viewerModel {
	return viewerModel{
		p:       p,
		out:     out,
		updates: updates,
		progCh:  make(chan progressMsg, 32),
		state:   stateLoading,
		bar:     progress.New(progress.WithDefaultGradient()),
	}
}

func (m viewerModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.startLoad(), waitProgress(m.progCh)}
	if m.updates != nil {
		cmds = append(cmds, waitUpdate(m.updates))
	}
	return tea.Batch(cmds...)
}

// startLoad runs the full load pipeline off the UI goroutine.
func (m viewerModel) startLoad() tea.Cmd {
	p := m.p
	ch := m.progCh
	return func() tea.Msg {
		tracks, summary, err := p.load(context.Background(), func(pct int) {
			ch <- progressMsg(pct)
		})
		return loadDoneMsg{tracks: tracks, summary: summary, err: err}
	}
}

// waitProgress forwards one progress event; Update re-arms it, so exactly one
// listener is parked on the channel at any time.
func waitProgress(ch <-chan progressMsg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func waitUpdate(ch <-chan updateMsg) tea.Cmd {
	return func() tea.Msg { return <-ch }
}

func (m viewerModel) snapshot() tea.Cmd {
	canvas := m.p.canvas
	out := m.out
	return func() tea.Msg {
		return snapshotDoneMsg{path: out, err: canvas.WritePNG(out)}
	}
}

func (m viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		w := msg.Width - 8
		if w > 60 {
			w = 60
		}
		if w > 0 {
			m.bar.Width = w
		}
		return m, nil

	case progressMsg:
		m.pct = int(msg)
		return m, waitProgress(m.progCh)

	case loadDoneMsg:
		if msg.err != nil {
			m.state = stateFailed
			m.loadErr = msg.err
			return m, nil
		}
		m.state = stateReady
		m.pct = 100
		m.tracks = msg.tracks
		m.summary = msg.summary
		m.loadErr = nil
		m.p.render.Render(m.tracks)
		return m, nil

	case updateMsg:
		cmds := []tea.Cmd{waitUpdate(m.updates)}
		if m.state != stateLoading {
			m.status = "new " + msg.resource + " data published, reloading"
			m = m.resetForLoad()
			cmds = append(cmds, m.startLoad())
		}
		return m, tea.Batch(cmds...)

	case snapshotDoneMsg:
		if msg.err != nil {
			m.status = errorStyle.Render("snapshot failed: " + msg.err.Error())
		} else {
			m.status = "snapshot written to " + msg.path
		}
		return m, nil
	}

	return m, nil
}

func (m viewerModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "r":
		if m.state == stateLoading {
			return m, nil
		}
		m = m.resetForLoad()
		m.status = ""
		return m, m.startLoad()

	case "c":
		st := m.p.render.Style()
		st.Color = nextColor(st.Color)
		m.p.render.SetStyle(st)
		return m, nil

	case "+", "=":
		st := m.p.render.Style()
		st.Width++
		m.p.render.SetStyle(st)
		return m, nil

	case "-", "_":
		st := m.p.render.Style()
		st.Width--
		m.p.render.SetStyle(st)
		return m, nil

	case "o":
		st := m.p.render.Style()
		st.Opacity -= 0.05
		m.p.render.SetStyle(st)
		return m, nil

	case "O":
		st := m.p.render.Style()
		st.Opacity += 0.05
		m.p.render.SetStyle(st)
		return m, nil

	case "w":
		if m.state != stateReady {
			return m, nil
		}
		m.status = "rendering snapshot..."
		return m, m.snapshot()
	}

	return m, nil
}

func (m viewerModel) resetForLoad() viewerModel {
	m.state = stateLoading
	m.pct = 0
	m.loadErr = nil
	return m
}

func (m viewerModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Cycling Heatmap"))
	b.WriteString("\n\n")

	switch m.state {
	case stateLoading:
		b.WriteString(fmt.Sprintf("loading %s\n", m.p.streamURL()))
		b.WriteString(m.bar.ViewAs(float64(m.pct) / 100))
		b.WriteString(fmt.Sprintf("  %d%%\n", m.pct))

	case stateFailed:
		b.WriteString(errorStyle.Render(m.loadErr.Error()))
		b.WriteString("\n\n")
		b.WriteString(faintStyle.Render("r retry · q quit"))

	case stateReady:
		st := m.p.render.Style()
		b.WriteString(fmt.Sprintf("segments   %d\n", len(m.tracks)))
		b.WriteString(fmt.Sprintf("points     %d\n", m.tracks.PointCount()))
		b.WriteString(fmt.Sprintf("distance   %s km\n", usecases.FormatTotalKm(m.summary)))
		if bounds, ok := m.p.canvas.Viewport(); ok {
			b.WriteString(fmt.Sprintf("viewport   %.4f,%.4f to %.4f,%.4f\n",
				bounds.MinLat, bounds.MinLon, bounds.MaxLat, bounds.MaxLon))
		}
		b.WriteString(fmt.Sprintf("style      %s  width %.0f  opacity %.2f\n",
			swatchStyle.Foreground(lipgloss.Color(st.Color)).Render(st.Color), st.Width, st.Opacity))

		if m.status != "" {
			b.WriteString("\n" + m.status + "\n")
		}
		b.WriteString("\n")
		b.WriteString(faintStyle.Render("r reload · c color · +/- width · O/o opacity · w snapshot · q quit"))
	}

	return docStyle.Render(b.String())
}
