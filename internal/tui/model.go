// Package tui is the terminal browser for the cached catalog.
package tui

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/logging"
	"github.com/dendi/filmscatalog/internal/repository"
)

// Source is the part of the repository the browser uses.
type Source interface {
	ObserveList(kind catalog.Kind) *live.Stream[repository.ListResource]
	ObserveFavorites(kind catalog.Kind) *live.Stream[repository.ListResource]
	ObserveDetail(kind catalog.Kind, id int) *live.Stream[repository.DetailResource]
	SetFavorite(item catalog.ListItem, favorite bool) <-chan error
	Refresh(ctx context.Context, kind catalog.Kind) error
}

var _ Source = (*repository.Repository)(nil)

const (
	// chromeLines is the height taken by the tab bar, status line and help.
	chromeLines      = 5
	refreshTimeout   = time.Minute
	notificationTime = 2 * time.Second
)

// tabSpec describes one browser tab.
type tabSpec struct {
	title     string
	kind      catalog.Kind
	favorites bool
}

var tabs = []tabSpec{
	{title: "Movies", kind: catalog.KindMovie},
	{title: "TV", kind: catalog.KindTV},
	{title: "Favorite movies", kind: catalog.KindMovie, favorites: true},
	{title: "Favorite TV", kind: catalog.KindTV, favorites: true},
}

// listState is the subscription and loaded window of one tab.
type listState struct {
	gen    int
	stream *live.Stream[repository.ListResource]
	res    repository.ListResource
	hasRes bool
	view   catalog.PagedView

	total  int
	offset int
	rows   []catalog.ListItem
	cursor int

	refreshing bool
}

func (ls *listState) selected() (catalog.ListItem, bool) {
	i := ls.cursor - ls.offset
	if i < 0 || i >= len(ls.rows) {
		return catalog.ListItem{}, false
	}
	return ls.rows[i], true
}

// detailState is the open detail subscription.
type detailState struct {
	gen    int
	kind   catalog.Kind
	id     int
	title  string
	stream *live.Stream[repository.DetailResource]
	res    repository.DetailResource
	hasRes bool
}

// Option configures the Model.
type Option func(*Model)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithClipboard replaces the system clipboard writer.
func WithClipboard(write func(string) error) Option {
	return func(m *Model) {
		if write != nil {
			m.copyText = write
		}
	}
}

// Model is the bubbletea model of the browser.
type Model struct {
	src      Source
	logger   *slog.Logger
	keys     keyMap
	help     help.Model
	spinner  spinner.Model
	copyText func(string) error

	active int
	lists  []*listState
	detail *detailState
	gen    int

	width  int
	height int

	notification string
}

// New creates the browser over src.
func New(src Source, opts ...Option) *Model {
	m := &Model{
		src:      src,
		logger:   logging.Discard(),
		keys:     DefaultKeyMap(),
		help:     help.New(),
		spinner:  spinner.New(spinner.WithSpinner(spinner.Dot)),
		copyText: clipboard.WriteAll,
		lists:    make([]*listState, len(tabs)),
	}
	for i := range m.lists {
		m.lists[i] = &listState{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Init subscribes the first tab.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.observeTab(m.active))
}

// Close releases every subscription.
func (m *Model) Close() {
	for _, ls := range m.lists {
		if ls.stream != nil {
			ls.stream.Close()
			ls.stream = nil
		}
	}
	m.closeDetail()
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, m.reloadPage(m.active)

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case listMsg:
		return m, m.handleList(msg)

	case pageMsg:
		m.handlePage(msg)
		return m, nil

	case detailMsg:
		return m, m.handleDetail(msg)

	case favoriteDoneMsg:
		if msg.err != nil {
			return m, m.notify("✗ " + msg.err.Error())
		}
		return m, nil

	case refreshDoneMsg:
		m.lists[msg.tab].refreshing = false
		if msg.err != nil {
			return m, m.notify("✗ Refresh failed")
		}
		return m, m.notify("✓ Refreshed")

	case clearNotificationMsg:
		m.notification = ""
		return m, nil
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return nil
	}

	if m.detail != nil {
		switch {
		case key.Matches(msg, m.keys.Back):
			m.closeDetail()
		case key.Matches(msg, m.keys.Favorite):
			if d, ok := m.detail.res.Data(); ok {
				return m.setFavorite(catalog.ListItem{Kind: d.Kind, ID: d.ID}, !d.Favorited)
			}
		case key.Matches(msg, m.keys.Copy):
			return m.copy(m.detail.title)
		}
		return nil
	}

	ls := m.lists[m.active]
	switch {
	case key.Matches(msg, m.keys.Tab):
		return m.switchTab((m.active + 1) % len(tabs))
	case key.Matches(msg, m.keys.ShiftTab):
		return m.switchTab((m.active + len(tabs) - 1) % len(tabs))
	case key.Matches(msg, m.keys.Down):
		return m.moveCursor(1)
	case key.Matches(msg, m.keys.Up):
		return m.moveCursor(-1)
	case key.Matches(msg, m.keys.PageDown):
		return m.moveCursor(m.pageSize())
	case key.Matches(msg, m.keys.PageUp):
		return m.moveCursor(-m.pageSize())
	case key.Matches(msg, m.keys.Open):
		if item, ok := ls.selected(); ok {
			return m.openDetail(item)
		}
	case key.Matches(msg, m.keys.Favorite):
		if item, ok := ls.selected(); ok {
			return m.setFavorite(item, !item.Favorited)
		}
	case key.Matches(msg, m.keys.Refresh):
		return m.refresh(m.active)
	case key.Matches(msg, m.keys.Copy):
		if item, ok := ls.selected(); ok {
			return m.copy(item.Title)
		}
	}
	return nil
}

func (m *Model) switchTab(tab int) tea.Cmd {
	m.active = tab
	if m.lists[tab].stream == nil {
		return m.observeTab(tab)
	}
	return m.reloadPage(tab)
}

// observeTab opens the tab's stream, replacing any previous one.
func (m *Model) observeTab(tab int) tea.Cmd {
	ls := m.lists[tab]
	if ls.stream != nil {
		ls.stream.Close()
	}

	spec := tabs[tab]
	m.gen++
	ls.gen = m.gen
	if spec.favorites {
		ls.stream = m.src.ObserveFavorites(spec.kind)
	} else {
		ls.stream = m.src.ObserveList(spec.kind)
	}
	return waitList(tab, ls.gen, ls.stream)
}

func (m *Model) handleList(msg listMsg) tea.Cmd {
	ls := m.lists[msg.tab]
	if msg.gen != ls.gen {
		return nil
	}
	if !msg.ok {
		ls.stream = nil
		return nil
	}

	ls.res = msg.res
	ls.hasRes = true
	cmds := []tea.Cmd{waitList(msg.tab, msg.gen, ls.stream)}

	if view, ok := msg.res.Data(); ok {
		ls.view = view
		cmds = append(cmds, m.loadPage(msg.tab, ls.offset))
	}
	if msg.res.IsError() {
		m.logger.Warn("list update failed", "tab", tabs[msg.tab].title, "error", msg.res.Message())
	}
	return tea.Batch(cmds...)
}

// reloadPage reads the current window again, e.g. after a resize.
func (m *Model) reloadPage(tab int) tea.Cmd {
	if m.lists[tab].view == nil {
		return nil
	}
	return m.loadPage(tab, m.lists[tab].offset)
}

func (m *Model) loadPage(tab, offset int) tea.Cmd {
	ls := m.lists[tab]
	view, gen, limit := ls.view, ls.gen, m.pageSize()
	if view == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		total, err := view.Count(ctx)
		if err != nil {
			return pageMsg{tab: tab, gen: gen, err: err}
		}
		if offset >= total {
			offset = max(0, total-limit)
		}
		items, err := view.Page(ctx, offset, limit)
		return pageMsg{tab: tab, gen: gen, offset: offset, total: total, items: items, err: err}
	}
}

func (m *Model) handlePage(msg pageMsg) {
	ls := m.lists[msg.tab]
	if msg.gen != ls.gen {
		return
	}
	if msg.err != nil {
		m.logger.Warn("page read failed", "tab", tabs[msg.tab].title, "error", msg.err)
		return
	}

	ls.total = msg.total
	ls.offset = msg.offset
	ls.rows = msg.items

	switch {
	case len(ls.rows) == 0:
		ls.cursor = 0
	case ls.cursor < ls.offset:
		ls.cursor = ls.offset
	case ls.cursor >= ls.offset+len(ls.rows):
		ls.cursor = ls.offset + len(ls.rows) - 1
	}
}

func (m *Model) moveCursor(delta int) tea.Cmd {
	ls := m.lists[m.active]
	if ls.total == 0 {
		return nil
	}

	ls.cursor = min(max(ls.cursor+delta, 0), ls.total-1)
	if ls.cursor >= ls.offset && ls.cursor < ls.offset+len(ls.rows) {
		return nil
	}

	size := m.pageSize()
	offset := ls.cursor
	if delta > 0 {
		offset = ls.cursor - size + 1
	}
	return m.loadPage(m.active, max(offset, 0))
}

func (m *Model) openDetail(item catalog.ListItem) tea.Cmd {
	m.closeDetail()
	m.gen++
	d := &detailState{
		gen:    m.gen,
		kind:   item.Kind,
		id:     item.ID,
		title:  item.Title,
		stream: m.src.ObserveDetail(item.Kind, item.ID),
	}
	m.detail = d
	return waitDetail(d.gen, d.stream)
}

func (m *Model) closeDetail() {
	if m.detail == nil {
		return
	}
	m.detail.stream.Close()
	m.detail = nil
}

func (m *Model) handleDetail(msg detailMsg) tea.Cmd {
	d := m.detail
	if d == nil || msg.gen != d.gen {
		return nil
	}
	if !msg.ok {
		return nil
	}
	d.res = msg.res
	d.hasRes = true
	if v, ok := msg.res.Data(); ok && v.Title != "" {
		d.title = v.Title
	}
	return waitDetail(msg.gen, d.stream)
}

func (m *Model) setFavorite(item catalog.ListItem, favorite bool) tea.Cmd {
	done := m.src.SetFavorite(item, favorite)
	return func() tea.Msg {
		return favoriteDoneMsg{err: <-done}
	}
}

func (m *Model) refresh(tab int) tea.Cmd {
	spec := tabs[tab]
	if spec.favorites {
		return m.observeTab(tab)
	}

	ls := m.lists[tab]
	if ls.refreshing {
		return nil
	}
	ls.refreshing = true
	src := m.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return refreshDoneMsg{tab: tab, err: src.Refresh(ctx, spec.kind)}
	}
}

func (m *Model) copy(text string) tea.Cmd {
	if text == "" {
		return nil
	}
	if err := m.copyText(text); err != nil {
		return m.notify("✗ Copy failed")
	}
	return m.notify(fmt.Sprintf("✓ Copied %q", text))
}

func (m *Model) notify(text string) tea.Cmd {
	m.notification = text
	return tea.Tick(notificationTime, func(time.Time) tea.Msg {
		return clearNotificationMsg{}
	})
}

// pageSize is the number of rows that fit on screen.
func (m *Model) pageSize() int {
	if m.height == 0 {
		return catalog.DefaultPageSize
	}
	return max(m.height-chromeLines, 1)
}
