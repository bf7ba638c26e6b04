package watch

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	exercisedto "stride/internal/modules/exercise/dto"
	"stride/internal/ui/theme"
)

// Port is the minimal interface this view needs to control the running
// session. A nil port makes the view read-only.
type Port interface {
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	End(ctx context.Context) error
}

// SnapshotMsg carries the next fused live snapshot into the model.
type SnapshotMsg exercisedto.Snapshot

// commandErrMsg reports a failed session command.
type commandErrMsg struct{ err error }

// closedMsg is sent when the snapshot stream ends.
type closedMsg struct{}

// Model renders the live session view for `stride run`.
type Model struct {
	port      Port
	snapshots <-chan exercisedto.Snapshot
	snap      exercisedto.Snapshot
	cmdErr    string
	ready     bool
	width     int
	height    int
}

func New(port Port, snapshots <-chan exercisedto.Snapshot) Model {
	return Model{port: port, snapshots: snapshots}
}

func (m Model) Init() tea.Cmd {
	return m.waitForSnapshot()
}

func (m Model) waitForSnapshot() tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-m.snapshots
		if !ok {
			return closedMsg{}
		}
		return SnapshotMsg(snap)
	}
}

func (m Model) command(fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(context.Background()); err != nil {
			return commandErrMsg{err: err}
		}
		return nil
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "p":
			if m.port != nil {
				return m, m.command(m.port.Pause)
			}
		case "r":
			if m.port != nil {
				return m, m.command(m.port.Resume)
			}
		case "e":
			if m.port != nil {
				return m, m.command(m.port.End)
			}
		}
	case SnapshotMsg:
		m.snap = exercisedto.Snapshot(msg)
		m.ready = true
		return m, m.waitForSnapshot()
	case commandErrMsg:
		m.cmdErr = msg.err.Error()
	case closedMsg:
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) View() string {
	if !m.ready {
		return theme.App.Render(theme.Muted.Render("waiting for session data..."))
	}

	var b strings.Builder
	b.WriteString(theme.Title.Render("stride") + "  " + statusStyle(m.snap.Status).Render(m.snap.Status))
	b.WriteString("\n\n")
	row(&b, "duration", theme.Value.Render(formatDuration(m.snap.Duration)))
	row(&b, "heart rate", heartRateLine(m.snap))
	row(&b, "distance", theme.Value.Render(formatDistance(m.snap.DistanceMeters)))
	row(&b, "pace", paceLine(m.snap.CurrentPacePerKM, m.snap.PaceDerived))
	row(&b, "avg pace", paceLine(m.snap.AveragePacePerKM, m.snap.PaceDerived))
	row(&b, "calories", theme.Value.Render(fmt.Sprintf("%d kcal", m.snap.Calories)))
	if m.snap.Error != "" {
		b.WriteString("\n" + theme.Error.Render(m.snap.Error))
	}
	if m.cmdErr != "" {
		b.WriteString("\n" + theme.Error.Render(m.cmdErr))
	}

	panel := theme.Panel.Render(b.String())
	footer := theme.Muted.Render(m.footer())
	content := lipgloss.JoinVertical(lipgloss.Left, panel, footer)
	if m.width > 0 && m.height > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	return content
}

func (m Model) footer() string {
	if m.port == nil {
		return "q quits; the session keeps running"
	}
	return "p pause · r resume · e end · q quit view"
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(theme.Label.Render(label) + " " + value + "\n")
}

func statusStyle(status string) lipgloss.Style {
	if status == "in_progress" {
		return theme.Live
	}
	return theme.Muted
}

func heartRateLine(snap exercisedto.Snapshot) string {
	if snap.HeartRateBPM <= 0 {
		return theme.Muted.Render("--")
	}
	line := theme.Hot.Render(fmt.Sprintf("%d bpm", snap.HeartRateBPM))
	if snap.HeartRateSource != "" {
		line += " " + theme.Muted.Render(snap.HeartRateSource)
	}
	return line
}

func paceLine(pace time.Duration, derived bool) string {
	if pace <= 0 {
		return theme.Muted.Render("--")
	}
	line := formatPace(pace) + "/km"
	if derived {
		line = "~" + line
	}
	return theme.Value.Render(line)
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

func formatPace(d time.Duration) string {
	d = d.Round(time.Second)
	return fmt.Sprintf("%d:%02d", d/time.Minute, (d%time.Minute)/time.Second)
}

func formatDistance(meters float64) string {
	if meters >= 1000 {
		return fmt.Sprintf("%.2f km", meters/1000)
	}
	return fmt.Sprintf("%.0f m", meters)
}
