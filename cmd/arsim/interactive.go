package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/wippyai/ar-placement/catalog"
	"github.com/wippyai/ar-placement/config"
	"github.com/wippyai/ar-placement/registry"
	"github.com/wippyai/ar-placement/runtime"
	"github.com/wippyai/ar-placement/session"
	"github.com/wippyai/ar-placement/xr"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	activeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	okStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	descStyle = lipgloss.NewStyle().
			Italic(true).
			Foreground(lipgloss.Color("#D0D0D0"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

const (
	refreshInterval = 100 * time.Millisecond
	maxNotes        = 8
)

type interactiveModel struct {
	err         error
	app         *app
	bar         progress.Model
	progress    map[catalog.ID]float64
	description string
	notes       []string
	snap        runtime.Snapshot
	hits        bool
}

func newInteractiveModel(a *app) *interactiveModel {
	return &interactiveModel{
		app:      a,
		bar:      progress.New(progress.WithDefaultGradient(), progress.WithWidth(24)),
		progress: make(map[catalog.ID]float64),
	}
}

type (
	tickMsg     struct{}
	snapshotMsg struct{ snap runtime.Snapshot }
	stateMsg    struct{ state session.State }
	progressMsg struct {
		id       catalog.ID
		fraction float64
	}
	assetErrMsg struct {
		err error
		id  catalog.ID
	}
	activeMsg struct {
		id     catalog.ID
		policy catalog.Policy
	}
	placedMsg struct {
		id   catalog.ID
		pose xr.Pose
	}
	errMsg struct{ err error }
)

// teaObserver forwards runtime notifications into the program.
type teaObserver struct {
	p *tea.Program
}

func (o teaObserver) OnSessionStateChanged(s session.State) {
	o.p.Send(stateMsg{state: s})
}

func (o teaObserver) OnLoadProgress(id catalog.ID, f float64) {
	o.p.Send(progressMsg{id: id, fraction: f})
}

func (o teaObserver) OnAssetError(id catalog.ID, err error) {
	o.p.Send(assetErrMsg{id: id, err: err})
}

func (o teaObserver) OnActiveChanged(id catalog.ID, p catalog.Policy) {
	o.p.Send(activeMsg{id: id, policy: p})
}

func (o teaObserver) OnPlaced(id catalog.ID, pose xr.Pose) {
	o.p.Send(placedMsg{id: id, pose: pose})
}

func (o teaObserver) OnError(err error) {
	o.p.Send(errMsg{err: err})
}

func tick() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m *interactiveModel) Init() tea.Cmd {
	return tea.Batch(m.fetchSnapshot, tick())
}

// fetchSnapshot runs as a command so the program never blocks on the loop.
func (m *interactiveModel) fetchSnapshot() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	snap, err := m.app.rt.Snapshot(ctx)
	if err != nil {
		return nil
	}
	return snapshotMsg{snap: snap}
}

func (m *interactiveModel) note(format string, args ...any) {
	m.notes = append(m.notes, fmt.Sprintf(format, args...))
	if len(m.notes) > maxNotes {
		m.notes = m.notes[len(m.notes)-maxNotes:]
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	ctx := context.Background()

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch key := msg.String(); key {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "s":
			m.report(m.app.rt.StartSession(ctx))

		case "e":
			m.report(m.app.rt.EndSession(ctx))

		case "b":
			m.app.background()

		case "x":
			m.report(m.app.rt.Exit(ctx))

		case "h":
			m.hits = !m.hits
			m.app.setHits(m.hits)

		case " ":
			m.app.tap()

		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			id, ok := m.app.catalog.At(int(key[0] - '1'))
			if !ok {
				m.note("no object %s", key)
				break
			}
			m.report(m.app.rt.PlaceByID(ctx, id))
		}

	case tickMsg:
		return m, tea.Batch(m.fetchSnapshot, tick())

	case snapshotMsg:
		m.snap = msg.snap

	case stateMsg:
		m.note("session %s", msg.state)
		if msg.state == session.Active {
			m.app.setHits(m.hits)
		}

	case progressMsg:
		m.progress[msg.id] = msg.fraction

	case assetErrMsg:
		m.note("%s: %v", msg.id, msg.err)

	case activeMsg:
		m.description = msg.policy.Description
		m.note("selected %s", msg.policy.Name)

	case placedMsg:
		m.note("placed %s at %s", msg.id, msg.pose.Position())

	case errMsg:
		m.err = msg.err
		m.note("error: %v", msg.err)
	}

	return m, nil
}

func (m *interactiveModel) report(err error) {
	if err != nil {
		m.err = err
		m.note("error: %v", err)
		m.app.log.Warn("command failed", zap.Error(err))
	}
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("AR Placement Simulator"))
	b.WriteString("\n\n")

	b.WriteString(labelStyle.Render("session  "))
	b.WriteString(m.snap.State.String())
	if m.snap.State == session.Active {
		b.WriteString(" " + helpStyle.Render(m.snap.SessionID.String()))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("surface  "))
	switch {
	case m.snap.Cursor:
		b.WriteString(okStyle.Render("cursor on floor"))
	case m.hits:
		b.WriteString("scanning")
	default:
		b.WriteString(helpStyle.Render("camera off surface"))
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("sound    "))
	if m.snap.Playing != "" {
		b.WriteString(string(m.snap.Playing))
	} else {
		b.WriteString("-")
	}
	b.WriteString("\n\n")

	objects := make(map[catalog.ID]runtime.ObjectInfo, len(m.snap.Objects))
	for _, o := range m.snap.Objects {
		objects[o.ID] = o
	}
	for i, id := range m.app.catalog.IDs() {
		line := fmt.Sprintf("%d %-10s", i+1, id)
		if id == m.snap.Active {
			line = activeStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString(" ")

		o, loaded := objects[id]
		switch {
		case !loaded:
			b.WriteString(helpStyle.Render("not loaded"))
		case o.State == registry.Failed:
			b.WriteString(errorStyle.Render("failed"))
		case o.State == registry.Loading:
			b.WriteString(m.bar.ViewAs(m.progress[id]))
		case o.Placed:
			b.WriteString(okStyle.Render("placed"))
		default:
			b.WriteString(o.State.String())
		}
		b.WriteString("\n")
	}

	if m.description != "" {
		b.WriteString("\n")
		b.WriteString(descStyle.Render(m.description))
		b.WriteString("\n")
	}

	if len(m.notes) > 0 {
		b.WriteString("\n")
		for _, n := range m.notes {
			b.WriteString(helpStyle.Render(n))
			b.WriteString("\n")
		}
	}

	if m.err != nil {
		b.WriteString("\n")
		b.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render("s start • e end • b background • 1-9 object • h surface • space select • x exit AR • q quit"))

	return b.String()
}

func runInteractive(ctx context.Context, cfg config.Config, log *zap.Logger) error {
	a, err := newApp(cfg, log)
	if err != nil {
		return err
	}

	m := newInteractiveModel(a)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if err := a.rt.Subscribe(teaObserver{p: p}); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	a.run(runCtx)
	defer shutdown(a)

	_, err = p.Run()
	return err
}
