// Package ui implements the interactive terminal player.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/BumpyClock/digests-audio/playback"
)

const (
	seekStep   = 10 * time.Second
	volumeStep = 0.1
	rateStep   = 0.25
	minRate    = 0.25
	maxRate    = 4.0

	statusBarHeight = 2
	headerHeight    = 2
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#04B575", Dark: "#ECFD65"}).
			Padding(0, 1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().Padding(0, 1)

	playingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FF00"))
	pausedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00"))
	stoppedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF0000"))
)

// eventMsg carries a playback event into the update loop.
type eventMsg playback.Event

// playFailedMsg reports a rejected transport command.
type playFailedMsg struct{ err error }

type model struct {
	cfg     Config
	player  playback.Source
	content string

	keys     keyMap
	help     help.Model
	progress progress.Model
	viewport viewport.Model

	events chan playback.Event

	state     playback.State
	errText   string
	width     int
	height    int
	ready     bool
	finished  bool
	quitting  bool
	startedAt time.Duration
}

// NewProgram builds the Bubble Tea program for player and its optional
// text content.
func NewProgram(cfg Config, player playback.Source, content string) *tea.Program {
	m := newModel(cfg, player, content)
	return tea.NewProgram(m, tea.WithAltScreen())
}

func newModel(cfg Config, player playback.Source, content string) *model {
	m := &model{
		cfg:       cfg,
		player:    player,
		content:   content,
		keys:      newKeyMap(),
		help:      help.New(),
		progress:  progress.New(progress.WithDefaultGradient()),
		events:    make(chan playback.Event, 64),
		state:     player.State(),
		startedAt: cfg.StartTime,
	}

	for _, t := range []playback.EventType{
		playback.EventPlay,
		playback.EventPause,
		playback.EventResume,
		playback.EventStop,
		playback.EventEnd,
		playback.EventProgress,
		playback.EventLoading,
		playback.EventLoaded,
		playback.EventRateChange,
		playback.EventVolumeChange,
		playback.EventError,
	} {
		player.AddListener(t, m.enqueue)
	}
	return m
}

// enqueue pushes an event into the update loop, dropping when the UI
// falls behind. Progress events are frequent and the next one carries
// fresher data anyway.
func (m *model) enqueue(ev playback.Event) {
	select {
	case m.events <- ev:
	default:
		log.Debug("dropping ui event", "type", ev.Type)
	}
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(m.startPlayback(), m.waitForEvent())
}

func (m *model) startPlayback() tea.Cmd {
	return func() tea.Msg {
		var opts *playback.PlayOptions
		if m.startedAt > 0 {
			opts = &playback.PlayOptions{StartTime: m.startedAt}
		}
		if err := m.player.Play(context.Background(), opts); err != nil {
			return playFailedMsg{err: err}
		}
		return nil
	}
}

func (m *model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		return eventMsg(<-m.events)
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case eventMsg:
		m.applyEvent(playback.Event(msg))
		return m, m.waitForEvent()

	case playFailedMsg:
		m.errText = msg.err.Error()
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		_ = m.player.Stop()
		_ = m.player.Dispose()
		return m, tea.Quit

	case key.Matches(msg, m.keys.PlayPause):
		if m.state.Playing {
			_ = m.player.Pause()
		} else {
			return m, m.startPlayback()
		}
		return m, nil

	case key.Matches(msg, m.keys.Stop):
		_ = m.player.Stop()
		return m, nil

	case key.Matches(msg, m.keys.SeekBack):
		_ = m.player.Seek(m.state.CurrentTime - seekStep)
		m.state = m.player.State()
		return m, nil

	case key.Matches(msg, m.keys.SeekAhead):
		_ = m.player.Seek(m.state.CurrentTime + seekStep)
		m.state = m.player.State()
		return m, nil

	case key.Matches(msg, m.keys.VolumeUp):
		_ = m.player.SetVolume(m.state.Volume + volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.VolumeDown):
		_ = m.player.SetVolume(m.state.Volume - volumeStep)
		return m, nil

	case key.Matches(msg, m.keys.RateUp):
		return m, m.setRate(m.state.Rate + rateStep)

	case key.Matches(msg, m.keys.RateDown):
		return m, m.setRate(m.state.Rate - rateStep)

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *model) setRate(r float64) tea.Cmd {
	if r < minRate {
		r = minRate
	}
	if r > maxRate {
		r = maxRate
	}
	if err := m.player.SetRate(r); err != nil {
		return func() tea.Msg { return playFailedMsg{err: err} }
	}
	return nil
}

func (m *model) applyEvent(ev playback.Event) {
	m.state = m.player.State()

	switch ev.Type {
	case playback.EventError:
		m.errText = ev.Err.Message
	case playback.EventEnd:
		m.finished = true
	case playback.EventPlay, playback.EventResume:
		m.finished = false
		m.errText = ""
	}
}

func (m *model) resize(w, h int) {
	m.width = w
	m.height = h
	m.help.Width = w

	contentHeight := h - headerHeight - statusBarHeight - 1
	if contentHeight < 0 {
		contentHeight = 0
	}
	if !m.ready {
		m.viewport = viewport.New(w, contentHeight)
		m.viewport.SetContent(m.renderContent(w))
		m.ready = true
	} else {
		m.viewport.Width = w
		m.viewport.Height = contentHeight
		m.viewport.SetContent(m.renderContent(w))
	}

	barWidth := w - 30
	if barWidth < 10 {
		barWidth = 10
	}
	m.progress.Width = barWidth
}

// renderContent renders the text preview through glamour, falling back
// to the raw text when rendering is disabled or fails.
func (m *model) renderContent(width int) string {
	if m.content == "" {
		return ""
	}
	if !m.cfg.GlamourEnabled {
		return m.content
	}

	wrap := width
	if m.cfg.MaxWidth > 0 && int(m.cfg.MaxWidth) < wrap {
		wrap = int(m.cfg.MaxWidth)
	}

	opts := []glamour.TermRendererOption{
		glamour.WithColorProfile(lipgloss.ColorProfile()),
		glamour.WithWordWrap(wrap),
	}
	if m.cfg.GlamourStyle != "" {
		opts = append(opts, glamour.WithStylePath(m.cfg.GlamourStyle))
	} else {
		opts = append(opts, glamour.WithAutoStyle())
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		log.Debug("glamour renderer unavailable", "err", err)
		return m.content
	}
	out, err := r.Render(m.content)
	if err != nil {
		log.Debug("glamour render failed", "err", err)
		return m.content
	}
	return out
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "\n  Loading..."
	}

	var b strings.Builder
	b.WriteString(m.headerView())
	b.WriteString("\n")
	if m.content != "" {
		b.WriteString(m.viewport.View())
		b.WriteString("\n")
	}
	b.WriteString(m.statusView())
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m *model) headerView() string {
	meta := m.player.Metadata()
	name := meta.Title
	if name == "" {
		name = meta.Source
	}
	header := titleStyle.Render(name)
	if meta.Title != "" && meta.Source != "" && meta.Title != meta.Source {
		header += subtitleStyle.Render(meta.Source)
	}
	return header + "\n"
}

func (m *model) statusView() string {
	st := m.state

	var icon string
	switch {
	case st.Loading:
		icon = stoppedStyle.Render("⟳")
	case st.Playing:
		icon = playingStyle.Render("▶")
	case st.Paused:
		icon = pausedStyle.Render("⏸")
	default:
		icon = stoppedStyle.Render("■")
	}

	times := fmt.Sprintf("%s / %s", formatDuration(st.CurrentTime), formatDuration(st.Duration))
	extras := fmt.Sprintf("%.2fx  vol %d%%", st.Rate, int(st.Volume*100+0.5))

	line := fmt.Sprintf("%s %s %s  %s", icon, times, m.progress.ViewAs(st.Progress), extras)
	if m.finished {
		line += stoppedStyle.Render("  done")
	}
	if m.errText != "" {
		line += errorStyle.Render("  ✗ " + m.errText)
	}
	return statusStyle.Render(line)
}

// formatDuration formats a duration for display.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}
