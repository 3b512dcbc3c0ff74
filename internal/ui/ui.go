package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/clouder/internal/categories"
	"github.com/desertthunder/clouder/internal/formatter"
	"github.com/desertthunder/clouder/internal/models"
	"github.com/desertthunder/clouder/internal/playback"
	"github.com/desertthunder/clouder/internal/services"
	"github.com/desertthunder/clouder/internal/shared"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	PlaylistView ViewState = iota
	PlayerView
)

// Deps are the collaborators the TUI drives.
type Deps struct {
	Playlists  services.PlaylistService
	Dispatcher *playback.Dispatcher
	Resolver   *categories.Resolver
	Mover      *categories.Mover
}

// Model represents the TUI application state.
type Model struct {
	ctx  context.Context
	deps Deps
	view ViewState

	width        int
	height       int
	playlistList list.Model
	loaded       bool

	snapshot models.Snapshot
	known    bool
	stale    error

	categoryFor string
	categories  []models.CategoryPlaylist
	picking     bool
	cursor      int
	moving      bool

	status  string
	err     error
	expired bool

	bar  progress.Model
	help help.Model
	keys keyMap
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, deps Deps) *Model {
	return &Model{
		ctx:          ctx,
		deps:         deps,
		view:         PlaylistView,
		playlistList: newPlaylistList(nil, 80),
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
		help:         help.New(),
		keys:         newKeyMap(),
	}
}

// Watch forwards every snapshot of source to p and returns the unsubscribe func.
func Watch(p *tea.Program, source playback.Source) func() {
	return source.Subscribe(func(snap models.Snapshot, err error) {
		p.Send(SnapshotMsg(snap, err))
	})
}

// Init initializes the TUI by fetching playlists.
func (m *Model) Init() tea.Cmd {
	return m.fetchPlaylists()
}

// textFocused reports whether keys belong to the playlist filter input.
func (m *Model) textFocused() bool {
	return m.view == PlaylistView && m.playlistList.FilterState() == list.Filtering
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.playlistList.SetWidth(msg.Width - 4)
		m.bar.Width = max(10, min(60, msg.Width-20))
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateList(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgPlaylistsFetched:
		data := msg.data.(struct {
			playlists []models.Playlist
			err       error
		})
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.playlistList = newPlaylistList(data.playlists, max(m.width-4, 40))
		m.loaded = true
		return m, nil

	case MsgSnapshot:
		data := msg.data.(snapshotData)
		m.stale = data.err
		if data.err != nil {
			return m, nil
		}
		m.snapshot, m.known = data.snap, true
		return m, m.resolveCategories()

	case MsgCategoriesResolved:
		data := msg.data.(categoriesData)
		if data.playlistID != m.categoryFor {
			return m, nil
		}
		if data.err != nil {
			// retried on the next snapshot
			m.status = categoriesUnavailable
			m.categoryFor, m.categories = "", nil
			return m, nil
		}
		if m.status == categoriesUnavailable {
			m.status = ""
		}
		m.categories = categories.Present(data.categories, categories.MaxShown)
		m.cursor = min(m.cursor, max(len(m.categories)-1, 0))
		return m, nil

	case MsgCommandDone:
		data := msg.data.(struct {
			intent string
			err    error
		})
		m.status = ""
		if data.err != nil {
			m.status = fmt.Sprintf("%s failed", data.intent)
			m.checkExpired(data.err)
		}
		return m, nil

	case MsgMoveDone:
		data := msg.data.(struct {
			target string
			err    error
		})
		m.moving = false
		switch {
		case data.err == nil:
			m.status = "moved to " + data.target
		case errors.Is(data.err, shared.ErrPrecondition):
			m.status = "cannot move this track"
		default:
			m.status = "move failed"
			m.checkExpired(data.err)
		}
		return m, nil

	case MsgSessionExpired:
		m.expired = true
		return m, nil
	}
	return m, nil
}

func (m *Model) checkExpired(err error) {
	if errors.Is(err, shared.ErrAuthExpired) {
		m.expired = true
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := msg.String()

	if m.textFocused() {
		return m.updateList(msg)
	}

	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}
	if m.expired {
		return m, nil
	}

	if m.picking {
		return m.handlePickerKey(msg)
	}

	if b, ok := playback.Lookup(k); ok {
		return m, m.dispatch(b)
	}

	if key.Matches(msg, m.keys.tab) {
		m.view = (m.view + 1) % 2
		return m, nil
	}

	switch m.view {
	case PlaylistView:
		if key.Matches(msg, m.keys.enter) {
			if item, ok := m.playlistList.SelectedItem().(playlistItem); ok {
				m.view = PlayerView
				return m, m.playContext(item.playlist)
			}
			return m, nil
		}
		return m.updateList(msg)

	case PlayerView:
		if key.Matches(msg, m.keys.move) && len(m.categories) > 0 && !m.moving {
			m.picking = true
			return m, nil
		}
	}
	return m, nil
}

func (m *Model) handlePickerKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.back):
		m.picking = false
	case key.Matches(msg, m.keys.up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(msg, m.keys.down):
		m.cursor = min(m.cursor+1, len(m.categories)-1)
	case key.Matches(msg, m.keys.enter):
		m.picking = false
		if m.moving || m.cursor >= len(m.categories) {
			return m, nil
		}
		m.moving = true
		m.status = "moving..."
		return m, m.move(m.categories[m.cursor])
	}
	return m, nil
}

func (m *Model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.view != PlaylistView {
		return m, nil
	}
	var cmd tea.Cmd
	m.playlistList, cmd = m.playlistList.Update(msg)
	return m, cmd
}

func (m *Model) fetchPlaylists() tea.Cmd {
	return func() tea.Msg {
		playlists, err := m.deps.Playlists.GetPlaylists(m.ctx)
		return playlistsFetchedMsg(playlists, err)
	}
}

func (m *Model) dispatch(b playback.Binding) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg(b.Action.String(), m.deps.Dispatcher.Do(m.ctx, b))
	}
}

func (m *Model) playContext(pl models.Playlist) tea.Cmd {
	return func() tea.Msg {
		return commandDoneMsg("play "+pl.Name, m.deps.Dispatcher.PlayContext(m.ctx, pl.URI))
	}
}

const categoriesUnavailable = "categories unavailable"

// resolveCategories starts a resolution when the playing playlist changed.
func (m *Model) resolveCategories() tea.Cmd {
	playlistID, ok := m.snapshot.Context.PlaylistID()
	if !ok {
		m.categoryFor, m.categories = "", nil
		return nil
	}
	if playlistID == m.categoryFor {
		return nil
	}

	m.categoryFor, m.categories, m.cursor = playlistID, nil, 0
	return func() tea.Msg {
		resolved, err := m.deps.Resolver.ResolvePlaylist(m.ctx, playlistID)
		return categoriesResolvedMsg(playlistID, resolved, err)
	}
}

func (m *Model) move(target models.CategoryPlaylist) tea.Cmd {
	return func() tea.Msg {
		return moveDoneMsg(target.DisplayName, m.deps.Mover.MoveCurrentTrack(m.ctx, target.PlaylistID))
	}
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.expired {
		return styles.err.Render("Session expired.") + "\n\nRun `clouder auth login`, then restart.\n\n" +
			m.help.ShortHelpView([]key.Binding{m.keys.quit})
	}
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v", m.err)) + "\n\nPress q to quit"
	}

	switch m.view {
	case PlayerView:
		return m.renderPlayer()
	default:
		return m.renderPlaylists()
	}
}

func (m *Model) renderPlaylists() string {
	if !m.loaded {
		return "Loading playlists..."
	}
	helpView := m.help.ShortHelpView([]key.Binding{m.keys.enter, m.keys.tab, m.keys.quit})
	return fmt.Sprintf("%s\n%s\n\n%s", m.playlistList.View(), m.nowPlayingLine(), helpView)
}

func (m *Model) nowPlayingLine() string {
	if !m.known {
		return styles.help.Render("Waiting for playback state...")
	}
	return formatter.Line(m.snapshot)
}

func (m *Model) renderPlayer() string {
	var b strings.Builder
	b.WriteString(styles.title.Render("Now Playing"))
	b.WriteString("\n")

	switch t := m.snapshot.Track; {
	case !m.known:
		b.WriteString(styles.help.Render("Waiting for playback state..."))
	case t == nil:
		b.WriteString("Nothing playing")
	default:
		b.WriteString(styles.track.Render(t.Name))
		fmt.Fprintf(&b, "\n%s", t.ArtistNames())
		if t.Album.Name != "" {
			fmt.Fprintf(&b, " • %s", t.Album.Name)
		}
		state := "⏸"
		if m.snapshot.IsPlaying {
			state = "▶"
		}
		fmt.Fprintf(&b, "\n\n%s %s %s / %s", state, m.bar.ViewAs(m.snapshot.Fraction()),
			shared.FormatDuration(m.snapshot.ProgressMs), shared.FormatDuration(t.DurationMs))
	}

	if m.stale != nil {
		b.WriteString("\n" + styles.warn.Render("stale: "+m.stale.Error()))
	}

	b.WriteString("\n\n" + m.renderCategories())

	if m.status != "" {
		b.WriteString("\n" + styles.help.Render(m.status))
	}

	b.WriteString("\n\n" + m.help.FullHelpView(m.keys.FullHelp()))
	return b.String()
}

func (m *Model) renderCategories() string {
	if len(m.categories) == 0 {
		return styles.help.Render("No categories")
	}

	var b strings.Builder
	b.WriteString("Categories")
	if m.picking {
		b.WriteString(" (enter to move, esc to cancel)")
	}
	for i, c := range m.categories {
		line := "  " + c.DisplayName
		if m.picking && i == m.cursor {
			line = styles.cursor.Render("> " + c.DisplayName)
		}
		b.WriteString("\n" + line)
	}
	return b.String()
}
