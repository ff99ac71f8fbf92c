package tui

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dendi/filmscatalog/internal/catalog"
	"github.com/dendi/filmscatalog/internal/live"
	"github.com/dendi/filmscatalog/internal/repository"
	"github.com/dendi/filmscatalog/internal/resource"
)

// fakeSource hands out streams the test drives by hand.
type fakeSource struct {
	mu          sync.Mutex
	lists       []catalog.Kind
	favorites   []catalog.Kind
	details     []int
	favoriteErr error
	setCalls    []catalog.ListItem
	setValues   []bool
	refreshes   []catalog.Kind
	listStreams []*live.Stream[repository.ListResource]
	detailSt    []*live.Stream[repository.DetailResource]
}

func (f *fakeSource) ObserveList(kind catalog.Kind) *live.Stream[repository.ListResource] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lists = append(f.lists, kind)
	s := live.NewStream[repository.ListResource]()
	f.listStreams = append(f.listStreams, s)
	return s
}

func (f *fakeSource) ObserveFavorites(kind catalog.Kind) *live.Stream[repository.ListResource] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.favorites = append(f.favorites, kind)
	s := live.NewStream[repository.ListResource]()
	f.listStreams = append(f.listStreams, s)
	return s
}

func (f *fakeSource) ObserveDetail(kind catalog.Kind, id int) *live.Stream[repository.DetailResource] {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.details = append(f.details, id)
	s := live.NewStream[repository.DetailResource]()
	f.detailSt = append(f.detailSt, s)
	return s
}

func (f *fakeSource) SetFavorite(item catalog.ListItem, favorite bool) <-chan error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setCalls = append(f.setCalls, item)
	f.setValues = append(f.setValues, favorite)
	ch := make(chan error, 1)
	ch <- f.favoriteErr
	return ch
}

func (f *fakeSource) Refresh(ctx context.Context, kind catalog.Kind) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refreshes = append(f.refreshes, kind)
	return nil
}

func items(n int) catalog.SliceView {
	out := make(catalog.SliceView, n)
	for i := range out {
		out[i] = catalog.ListItem{Kind: catalog.KindMovie, ID: i + 1, Title: fmt.Sprintf("Movie %d", i+1), ReleaseDate: "2024-01-01"}
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// deliver feeds an envelope to a tab and loads its current page.
func deliver(t *testing.T, m *Model, tab int, res repository.ListResource) {
	t.Helper()
	m.Update(listMsg{tab: tab, gen: m.lists[tab].gen, res: res, ok: true})
	if _, ok := res.Data(); ok {
		cmd := m.loadPage(tab, m.lists[tab].offset)
		require.NotNil(t, cmd)
		m.Update(cmd())
	}
}

func newModel(t *testing.T, height int) (*Model, *fakeSource) {
	t.Helper()
	src := &fakeSource{}
	m := New(src, WithClipboard(func(string) error { return nil }))
	m.Update(tea.WindowSizeMsg{Width: 100, Height: height})
	require.NotNil(t, m.Init())
	t.Cleanup(m.Close)
	return m, src
}

func TestModel_Init(t *testing.T) {
	m, src := newModel(t, 30)

	assert.Equal(t, []catalog.Kind{catalog.KindMovie}, src.lists)
	assert.Contains(t, m.View(), "Loading")
}

func TestModel_ShowsList(t *testing.T) {
	m, _ := newModel(t, 30)

	deliver(t, m, 0, resource.Success[catalog.PagedView](items(3)))

	view := m.View()
	assert.Contains(t, view, "Movie 1")
	assert.Contains(t, view, "Movie 3")
	assert.Contains(t, view, "1/3")
}

func TestModel_WindowedPaging(t *testing.T) {
	// chromeLines leaves three visible rows.
	m, _ := newModel(t, chromeLines+3)
	deliver(t, m, 0, resource.Success[catalog.PagedView](items(10)))

	ls := m.lists[0]
	require.Len(t, ls.rows, 3)

	for i := 0; i < 2; i++ {
		assert.Nil(t, m.handleKey(runes("j")))
	}
	assert.Equal(t, 2, ls.cursor)

	cmd := m.handleKey(runes("j"))
	require.NotNil(t, cmd, "leaving the window loads the next page")
	m.Update(cmd())

	assert.Equal(t, 3, ls.cursor)
	assert.Equal(t, 1, ls.offset)
	require.Len(t, ls.rows, 3)
	assert.Equal(t, 2, ls.rows[0].ID)

	item, ok := ls.selected()
	require.True(t, ok)
	assert.Equal(t, 4, item.ID)

	// The cursor stops at the last item.
	for i := 0; i < 20; i++ {
		if cmd := m.handleKey(runes("j")); cmd != nil {
			m.Update(cmd())
		}
	}
	assert.Equal(t, 9, ls.cursor)
	assert.Equal(t, 7, ls.offset)
}

func TestModel_ErrorKeepsRows(t *testing.T) {
	m, _ := newModel(t, 30)
	deliver(t, m, 0, resource.Success[catalog.PagedView](items(2)))

	deliver(t, m, 0, resource.Error[catalog.PagedView]("fetch movie list: network error: offline", items(2), true))

	view := m.View()
	assert.Contains(t, view, "Movie 1")
	assert.Contains(t, view, "offline")
}

func TestModel_IgnoresStaleGenerations(t *testing.T) {
	m, _ := newModel(t, 30)
	deliver(t, m, 0, resource.Success[catalog.PagedView](items(2)))

	m.Update(listMsg{tab: 0, gen: m.lists[0].gen - 1, res: resource.Success[catalog.PagedView](items(5)), ok: true})
	m.Update(pageMsg{tab: 0, gen: m.lists[0].gen - 1, total: 5, items: items(5)})

	assert.Equal(t, 2, m.lists[0].total)
}

func TestModel_Tabs(t *testing.T) {
	m, src := newModel(t, 30)

	m.handleKey(tea.KeyMsg{Type: tea.KeyTab})
	m.handleKey(tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, 2, m.active)
	assert.Equal(t, []catalog.Kind{catalog.KindMovie, catalog.KindTV}, src.lists)
	assert.Equal(t, []catalog.Kind{catalog.KindMovie}, src.favorites)

	deliver(t, m, 2, resource.Success[catalog.PagedView](catalog.SliceView{}))
	assert.Contains(t, m.View(), "No favorites yet")

	m.handleKey(tea.KeyMsg{Type: tea.KeyShiftTab})
	assert.Equal(t, 1, m.active)
	assert.Len(t, src.lists, 2, "an observed tab is not observed again")
}

func TestModel_Detail(t *testing.T) {
	m, src := newModel(t, 30)
	deliver(t, m, 0, resource.Success[catalog.PagedView](items(3)))
	m.handleKey(runes("j"))

	require.NotNil(t, m.handleKey(tea.KeyMsg{Type: tea.KeyEnter}))
	require.NotNil(t, m.detail)
	assert.Equal(t, []int{2}, src.details)
	assert.Contains(t, m.View(), "Movie 2")

	detail := catalog.DetailItem{Kind: catalog.KindMovie, ID: 2, Title: "Movie 2", Tagline: "Again.", Genres: []string{"Drama"}, Runtime: 101}
	m.Update(detailMsg{gen: m.detail.gen, res: resource.Success(detail), ok: true})

	view := m.View()
	assert.Contains(t, view, "Again.")
	assert.Contains(t, view, "101 min")
	assert.Contains(t, view, "Drama")

	stream := src.detailSt[0]
	m.handleKey(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, m.detail)
	assert.True(t, stream.Closed())
}

func TestModel_Favorite(t *testing.T) {
	t.Run("toggles selected row", func(t *testing.T) {
		m, src := newModel(t, 30)
		list := items(2)
		list[0].Favorited = true
		deliver(t, m, 0, resource.Success[catalog.PagedView](list))

		cmd := m.handleKey(runes("f"))
		require.NotNil(t, cmd)
		assert.Equal(t, favoriteDoneMsg{}, cmd())
		require.Len(t, src.setCalls, 1)
		assert.Equal(t, 1, src.setCalls[0].ID)
		assert.False(t, src.setValues[0])
	})

	t.Run("reports failure", func(t *testing.T) {
		m, src := newModel(t, 30)
		src.favoriteErr = errors.New("store error")
		deliver(t, m, 0, resource.Success[catalog.PagedView](items(1)))

		cmd := m.handleKey(runes("f"))
		require.NotNil(t, cmd)
		m.Update(cmd())
		assert.Contains(t, m.notification, "store error")
	})

	t.Run("from detail", func(t *testing.T) {
		m, src := newModel(t, 30)
		deliver(t, m, 0, resource.Success[catalog.PagedView](items(1)))
		m.handleKey(tea.KeyMsg{Type: tea.KeyEnter})
		m.Update(detailMsg{gen: m.detail.gen, res: resource.Success(catalog.DetailItem{Kind: catalog.KindMovie, ID: 1, Title: "Movie 1"}), ok: true})

		cmd := m.handleKey(runes("f"))
		require.NotNil(t, cmd)
		cmd()
		require.Len(t, src.setCalls, 1)
		assert.True(t, src.setValues[0])
	})
}

func TestModel_Refresh(t *testing.T) {
	t.Run("list tab refreshes", func(t *testing.T) {
		m, src := newModel(t, 30)

		cmd := m.handleKey(runes("r"))
		require.NotNil(t, cmd)
		assert.True(t, m.lists[0].refreshing)
		assert.Nil(t, m.handleKey(runes("r")), "one refresh at a time")

		m.Update(cmd())
		assert.False(t, m.lists[0].refreshing)
		assert.Equal(t, []catalog.Kind{catalog.KindMovie}, src.refreshes)
		assert.Contains(t, m.notification, "Refreshed")
	})

	t.Run("favorites tab re-observes", func(t *testing.T) {
		m, src := newModel(t, 30)
		m.switchTab(3)
		first := src.listStreams[len(src.listStreams)-1]

		m.handleKey(runes("r"))
		assert.True(t, first.Closed())
		assert.Equal(t, []catalog.Kind{catalog.KindTV, catalog.KindTV}, src.favorites)
		assert.Empty(t, src.refreshes)
	})
}

func TestModel_Copy(t *testing.T) {
	var copied string
	src := &fakeSource{}
	m := New(src, WithClipboard(func(s string) error {
		copied = s
		return nil
	}))
	defer m.Close()
	m.Init()
	deliver(t, m, 0, resource.Success[catalog.PagedView](items(2)))

	require.NotNil(t, m.handleKey(runes("y")))
	assert.Equal(t, "Movie 1", copied)
	assert.Contains(t, m.notification, "Copied")

	m.Update(clearNotificationMsg{})
	assert.Empty(t, m.notification)
}

func TestModel_QuitAndClose(t *testing.T) {
	m, src := newModel(t, 30)

	cmd := m.handleKey(runes("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m.Close()
	for _, s := range src.listStreams {
		assert.True(t, s.Closed())
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.Equal(t, "a", truncate("abc", 1))
}
